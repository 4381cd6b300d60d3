package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"relaybot/src/backend/directory"
	"relaybot/src/backup"
	"relaybot/src/dbapi"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in       string
		cmd, arg string
	}{
		{"/help", "help", ""},
		{"/backup critical", "backup", "critical"},
		{"/search best pizza", "search", "best pizza"},
		{"/SEARCH upper", "search", "upper"},
		{"hello there", "", "hello there"},
		{"  /help  ", "help", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		cmd, arg := parseCommand(c.in)
		if cmd != c.cmd || arg != c.arg {
			t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)", c.in, cmd, arg, c.cmd, c.arg)
		}
	}
}

func newTestBot(t *testing.T) (*Bot, *dbapi.FakeClient) {
	t.Helper()
	fake := dbapi.NewFake()
	fake.Seed("users", []dbapi.Row{
		dbapi.NewRow(dbapi.Field{Name: "id", Value: int64(1)}, dbapi.Field{Name: "name", Value: "ada"}),
	})
	store, err := directory.New(t.TempDir())
	if err != nil {
		t.Fatalf("directory.New: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := backup.NewBuilder(fake, store, log)
	return New(nil, nil, nil, builder, []string{"users"}, log), fake
}

func TestHandleHelp(t *testing.T) {
	b, _ := newTestBot(t)
	reply := b.handle(context.Background(), Message{ChatID: "c1", Text: "/help"})
	if !strings.Contains(reply, "/backup") {
		t.Fatalf("help reply: %q", reply)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	b, _ := newTestBot(t)
	reply := b.handle(context.Background(), Message{ChatID: "c1", Text: "/frobnicate"})
	if !strings.Contains(reply, "Unknown command") {
		t.Fatalf("unknown reply: %q", reply)
	}
}

func TestHandleBackupCommand(t *testing.T) {
	b, _ := newTestBot(t)
	reply := b.handle(context.Background(), Message{ChatID: "c1", From: "ada", Text: "/backup"})
	if !strings.Contains(reply, "Backup written to") {
		t.Fatalf("backup reply: %q", reply)
	}
	if !strings.Contains(reply, "1 tables") {
		t.Fatalf("table count missing: %q", reply)
	}
}
