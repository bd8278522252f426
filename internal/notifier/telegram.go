// Package notifier sends run summaries to Telegram.
package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"holdingscope/pkg/model"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	client   *resty.Client
}

// NewTelegramNotifier creates a notifier posting to baseURL.
func NewTelegramNotifier(botToken, chatID, baseURL string) *TelegramNotifier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		client:   c,
	}
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send sends a message to the configured chat. There is no retry.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var result sendResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("token", t.BotToken).
		SetBody(map[string]string{
			"chat_id":    t.ChatID,
			"text":       text,
			"parse_mode": "HTML",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode(), result.Description)
	}
	return nil
}

// FormatReport renders a short HTML summary of a run.
func FormatReport(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Holdings analysis</b> | %s\n", r.Timestamp.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Symbols analyzed: %d\n", r.TotalSymbolsAnalyzed)

	for _, res := range r.Results {
		trend, price := "N/A", "N/A"
		if res.Analysis != nil {
			if res.Analysis.Trend != "" {
				trend = string(res.Analysis.Trend)
			}
			price = res.Analysis.CurrentPrice.Or("N/A")
		}
		fmt.Fprintf(&b, "\n<b>%s</b>: %s units @ %s\n", html.EscapeString(res.Symbol),
			html.EscapeString(res.Position.Quantity), html.EscapeString(res.Position.CurrentPrice))
		fmt.Fprintf(&b, "  Trend: %s | Price: %s\n", trend, html.EscapeString(price))
	}
	return b.String()
}
