// Package bot runs the chat message loop: inbound messages are parsed for
// commands and otherwise proxied to the completion API, with per-chat
// context windows.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"relaybot/src/ai"
	"relaybot/src/backup"
	"relaybot/src/websearch"
)

// historyWindow is how many recent turns per chat are sent as context.
const historyWindow = 10

// Bot wires the channel to the AI, search, and backup collaborators.
type Bot struct {
	Channel Channel
	AI      *ai.Client
	Search  *websearch.Client
	Builder *backup.Builder
	// Tables is the full table set backed up by the /backup command.
	Tables []string
	Log    *slog.Logger

	history map[string][]ai.Turn
}

// New returns a Bot. log may be nil.
func New(channel Channel, aiClient *ai.Client, search *websearch.Client, builder *backup.Builder, tables []string, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		Channel: channel,
		AI:      aiClient,
		Search:  search,
		Builder: builder,
		Tables:  tables,
		Log:     log,
		history: map[string][]ai.Turn{},
	}
}

// Run consumes messages until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	for msg := range b.Channel.Listen(ctx) {
		reply := b.handle(ctx, msg)
		if reply == "" {
			continue
		}
		if err := b.Channel.Send(ctx, msg.ChatID, reply); err != nil {
			b.Log.Warn("send failed", "chat", msg.ChatID, "error", err)
		}
	}
	return ctx.Err()
}

func (b *Bot) handle(ctx context.Context, msg Message) string {
	cmd, arg := parseCommand(msg.Text)
	switch cmd {
	case "help":
		return "Commands: /backup [critical], /search <query>, /help. Anything else is answered by the model."
	case "backup":
		path, snap, err := b.Builder.Build(b.Tables, arg == "critical", "requested via chat by "+msg.From)
		if err != nil {
			b.Log.Error("chat-requested backup failed", "category", "database", "error", err)
			return "Backup failed: " + err.Error()
		}
		return fmt.Sprintf("Backup written to %s (%d tables)", path, len(snap.Metadata.Tables))
	case "search":
		if arg == "" {
			return "Usage: /search <query>"
		}
		results, err := b.Search.Search(ctx, arg)
		if err != nil {
			return "Search failed: " + err.Error()
		}
		if len(results) == 0 {
			return "No results."
		}
		var sb strings.Builder
		for i, r := range results {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "%s\n%s\n", r.Title, r.URL)
		}
		return sb.String()
	case "":
		return b.complete(ctx, msg)
	default:
		return "Unknown command /" + cmd + ". Try /help."
	}
}

func (b *Bot) complete(ctx context.Context, msg Message) string {
	turns := append(b.history[msg.ChatID], ai.Turn{Role: "user", Content: msg.Text})
	reply, err := b.AI.Complete(ctx, turns)
	if err != nil {
		b.Log.Warn("completion failed", "chat", msg.ChatID, "error", err)
		return "Sorry, I could not reach the model."
	}
	turns = append(turns, ai.Turn{Role: "assistant", Content: reply})
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}
	b.history[msg.ChatID] = turns
	return reply
}

// parseCommand splits "/cmd rest of line" into ("cmd", "rest of line");
// non-command text yields ("", text).
func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	parts := strings.SplitN(strings.TrimPrefix(text, "/"), " ", 2)
	cmd = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return cmd, arg
}
