package delivery

import (
	"context"
	"fmt"

	"gopkg.in/telebot.v3"

	"trackmed/internal/domain/delivery"
)

// TelegramSender delivers reminder notifications to a direct user chat
// via a Telegram bot.
type TelegramSender struct {
	bot *telebot.Bot
}

func NewTelegramSender(b *telebot.Bot) *TelegramSender {
	return &TelegramSender{bot: b}
}

func (s *TelegramSender) Send(ctx context.Context, to delivery.Recipient, msg delivery.Message) error {
	if to.TelegramChatID == 0 {
		return fmt.Errorf("recipient has no telegram chat ID")
	}

	text := fmt.Sprintf("💊 Reminder for %s\n\n%s", msg.MedicationName, msg.Body)

	markup := &telebot.ReplyMarkup{}
	btnDone := markup.URL("I took it ✅", msg.CompleteLink)
	btnSnooze := markup.URL("Snooze 10 min ⏰", msg.SnoozeLink)
	markup.Inline(markup.Row(btnDone, btnSnooze))

	recipient := &telebot.User{ID: to.TelegramChatID}
	_, err := s.bot.Send(recipient, text, &telebot.SendOptions{ReplyMarkup: markup})
	if err != nil {
		return fmt.Errorf("failed to send telegram reminder: %w", err)
	}
	return nil
}
