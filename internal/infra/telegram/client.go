package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Client pushes operator alerts to a set of admin chats. There is no bot
// UI in this service; the channel is outbound-only.
type Client struct {
	api      *tgbotapi.BotAPI
	adminIDs []int64
	logger   *slog.Logger
	limiter  *rate.Limiter
}

func NewClient(token string, adminIDs []int64, logger *slog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	// Telegram caps bots at 30 messages per second.
	limiter := rate.NewLimiter(30, 1)

	return &Client{
		api:      bot,
		adminIDs: adminIDs,
		logger:   logger,
		limiter:  limiter,
	}, nil
}

// Alert fans the text out to every admin chat. Delivery failures are logged
// and dropped; an alert channel outage must never block a renewal.
func (c *Client) Alert(text string) {
	for _, chatID := range c.adminIDs {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}

		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := c.api.Send(msg); err != nil {
			c.logger.Error("Failed to deliver operator alert",
				slog.Int64("chat_id", chatID),
				slog.String("error", err.Error()))
		}
	}
}
