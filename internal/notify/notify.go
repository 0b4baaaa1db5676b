// Package notify delivers composed alert text to the operator's chat.
// Delivery failure is reported, never fatal: losing an alert must never
// lose a price observation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dstanway/grocermon/internal/fetch"
)

// Notifier delivers one composed message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop is the --dry-run notifier: it logs the message and reports success.
type Nop struct {
	Log zerolog.Logger
}

func (n Nop) Send(_ context.Context, text string) error {
	n.Log.Info().Int("chars", len(text)).Msg("dry run, notification suppressed")
	return nil
}

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram sends messages through the Bot API with Markdown formatting.
type Telegram struct {
	client  *fetch.Client
	apiBase string
	token   string
	chatID  string
}

// TelegramOptions configures the notifier. APIBase defaults to the public
// Bot API host and exists for tests.
type TelegramOptions struct {
	APIBase string
	Token   string
	ChatID  string
}

// NewTelegram builds the notifier; both credentials are required.
func NewTelegram(client *fetch.Client, opts TelegramOptions) (*Telegram, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if strings.TrimSpace(opts.ChatID) == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	base := strings.TrimRight(opts.APIBase, "/")
	if base == "" {
		base = defaultTelegramAPI
	}
	return &Telegram{client: client, apiBase: base, token: opts.Token, chatID: opts.ChatID}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	body, err := t.client.PostJSON(ctx, t.apiBase+"/bot"+t.token+"/sendMessage", map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("telegram response: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}
