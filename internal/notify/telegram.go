// Package notify delivers operator alerts (failed publishes, cursor save
// failures) to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Config configures the Telegram sender.
type Config struct {
	Token    string
	ChatID   int64
	ThreadID int // forum topic; 0 for none
	// URL overrides the Bot API base URL (tests, local bot API servers).
	URL     string
	Timeout time.Duration
}

// Telegram sends plain-text messages to one chat. It satisfies logx.Sender.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
	opts *tele.SendOptions
}

func NewTelegram(cfg Config) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.URL,
		Offline: true, // send-only: no getMe, no polling
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
		opts: &tele.SendOptions{ThreadID: cfg.ThreadID, DisableWebPagePreview: true},
	}, nil
}

// SendText posts text to the configured chat. Telegram caps messages at 4096
// characters; longer texts are cut.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if r := []rune(text); len(r) > 4000 {
		text = string(r[:4000]) + "..."
	}
	_, err := t.bot.Send(t.chat, text, t.opts)
	return err
}
