package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gopkg.in/telebot.v4"
)

// Telegram delivers alert messages to a Telegram chat.
type Telegram struct {
	bot    *telebot.Bot
	log    *slog.Logger
	chatID int64
}

// NewTelegram creates a Telegram deliverer authorized with the given token.
func NewTelegram(log *slog.Logger, token string, chatID int64, poller time.Duration) (*Telegram, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: poller},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	log.Info("Authorized on account", "account", bot.Me.Username)

	return &Telegram{bot: bot, log: log, chatID: chatID}, nil
}

// Deliver sends the message to the configured chat and returns the Telegram
// message ID.
func (t *Telegram) Deliver(ctx context.Context, message string) (string, error) {
	const opn = "notifier.telegram.Deliver"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	sent, err := t.bot.Send(telebot.ChatID(t.chatID), message)
	if err != nil {
		return "", fmt.Errorf("%s: failed to send message: %w", opn, err)
	}

	messageID := strconv.Itoa(sent.ID)
	t.log.DebugContext(ctx, "Telegram message delivered", "message_id", messageID)

	return messageID, nil
}
