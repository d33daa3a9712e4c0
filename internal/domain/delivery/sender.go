package delivery

import (
	"context"
	"fmt"
	"strings"
)

// Channel identifies how a reminder notification reaches the patient.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelTelegram Channel = "TELEGRAM"
)

// ParseChannel normalizes and validates a channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelTelegram:
		return ChannelTelegram, nil
	}
	return "", fmt.Errorf("mode of notification should be one of Whatsapp, Email or Telegram, got %q", s)
}

// Recipient carries the contact details a sender needs. Kept free of the
// user entity so concrete senders don't depend on domain packages.
type Recipient struct {
	FirstName      string
	Email          string
	PhoneNumber    string
	TelegramChatID int64
}

// Message is one composed reminder notification.
type Message struct {
	MedicationName string
	Body           string
	CompleteLink   string
	SnoozeLink     string
}

// Sender delivers a composed reminder message over one concrete channel.
// Implementations live in internal/infra/delivery.
type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}
