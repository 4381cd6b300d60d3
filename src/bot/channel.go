package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Message is one inbound chat message, platform-agnostic.
type Message struct {
	ID     int64
	ChatID string
	From   string
	Text   string
}

// Channel is the chat-platform connection the bot listens on.
type Channel interface {
	// Listen emits inbound messages until ctx is cancelled; the channel is
	// closed on return.
	Listen(ctx context.Context) <-chan Message
	// Send posts a reply to a chat.
	Send(ctx context.Context, chatID, text string) error
	Close() error
}

// HTTPChannel long-polls a bot-API style endpoint for updates.
type HTTPChannel struct {
	BaseURL     string
	Token       string
	PollTimeout time.Duration
	HTTPClient  *http.Client

	offset int64
}

// NewHTTPChannel returns a long-polling channel.
func NewHTTPChannel(baseURL, token string, pollTimeout time.Duration) *HTTPChannel {
	return &HTTPChannel{
		BaseURL:     baseURL,
		Token:       token,
		PollTimeout: pollTimeout,
		HTTPClient:  &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

type update struct {
	ID     int64  `json:"update_id"`
	ChatID string `json:"chat_id"`
	From   string `json:"from"`
	Text   string `json:"text"`
}

func (c *HTTPChannel) Listen(ctx context.Context) <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			updates, err := c.poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// transient poll failures back off briefly
				select {
				case <-time.After(3 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			for _, u := range updates {
				if u.ID >= c.offset {
					c.offset = u.ID + 1
				}
				select {
				case out <- Message{ID: u.ID, ChatID: u.ChatID, From: u.From, Text: u.Text}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (c *HTTPChannel) poll(ctx context.Context) ([]update, error) {
	q := url.Values{}
	q.Set("token", c.Token)
	q.Set("offset", strconv.FormatInt(c.offset, 10))
	q.Set("timeout", strconv.Itoa(int(c.PollTimeout.Seconds())))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/updates?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll: %s", resp.Status)
	}
	var out struct {
		Updates []update `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Updates, nil
}

func (c *HTTPChannel) Send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]string{
		"token":   c.Token,
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send: %s", resp.Status)
	}
	return nil
}

func (c *HTTPChannel) Close() error { return nil }
