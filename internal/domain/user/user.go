package user

import (
	"time"

	"github.com/google/uuid"

	"trackmed/internal/domain/delivery"
)

// User is the patient/caregiver account the reminder core notifies.
// Account management (registration, verification, passwords) is owned by
// another service; this package only reads what message composition needs.
type User struct {
	ID               uuid.UUID
	Email            string
	FirstName        string
	LastName         string
	PhoneNumber      string
	TelegramChatID   int64
	NotificationType delivery.Channel
	IsVerified       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recipient projects the user onto the contact details senders consume.
func (u *User) Recipient() delivery.Recipient {
	return delivery.Recipient{
		FirstName:      u.FirstName,
		Email:          u.Email,
		PhoneNumber:    u.PhoneNumber,
		TelegramChatID: u.TelegramChatID,
	}
}
