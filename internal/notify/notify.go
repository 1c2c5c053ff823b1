// Package notify provides notification delivery for alert events.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sectorscope/internal/config"
)

// DeliveryResult is the outcome of one delivery attempt. Delivery is
// best effort: a failure is reported, never retried automatically.
type DeliveryResult struct {
	Success    bool
	StatusCode int
}

// Notifier defines the interface for sending a formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) DeliveryResult
}

// TelegramNotifier sends messages via a Telegram bot.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	log      zerolog.Logger
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithBaseURL overrides the Telegram API endpoint, used in tests.
func WithBaseURL(u string) TelegramOption {
	return func(t *TelegramNotifier) { t.baseURL = u }
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig, logger zerolog.Logger, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  "https://api.telegram.org",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send delivers the message to the configured chat. HTTP 200 denotes
// success; anything else, including transport errors, is a failed
// delivery with the status code when one was received.
func (t *TelegramNotifier) Send(ctx context.Context, text string) DeliveryResult {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		t.log.Error().Err(err).Msg("Marshaling telegram payload")
		return DeliveryResult{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.log.Error().Err(err).Msg("Creating telegram request")
		return DeliveryResult{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn().Err(err).Msg("Sending telegram message")
		return DeliveryResult{}
	}
	defer resp.Body.Close()

	return DeliveryResult{
		Success:    resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
	}
}

// Ensure TelegramNotifier implements Notifier.
var _ Notifier = (*TelegramNotifier)(nil)
