package alert

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram mirrors alerts into a Telegram chat.
type Telegram struct {
	api     telegramAPI
	chatID  int64
	feedURL string
}

// NewTelegram creates a Telegram sink for the given bot token and chat.
func NewTelegram(token string, chatID int64, feedURL string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID, feedURL: feedURL}, nil
}

// Notify sends the alert text to the chat.
func (t *Telegram) Notify(_ context.Context, newCount int) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatTelegram(newCount, t.feedURL))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatTelegram formats the alert as a chat message.
func FormatTelegram(newCount int, feedURL string) string {
	title, body := Message(newCount)
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(body)
	if feedURL != "" {
		b.WriteString("\n\n")
		b.WriteString(feedURL)
	}
	return b.String()
}
