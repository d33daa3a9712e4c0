package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/user"
)

var ErrUserNotFound = fmt.Errorf("user not found")

// PostgresUserRepository reads the externally managed users table. The
// reminder core never writes it.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT id, email, first_name, last_name, phone_number, telegram_chat_id,
                     notification_type, is_verified, created_at, updated_at
              FROM users WHERE id = $1`
	u := user.User{}
	var channel string
	var phone sql.NullString
	var chatID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &phone, &chatID,
		&channel, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	u.NotificationType, err = delivery.ParseChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("user %s has invalid notification type: %w", id, err)
	}
	u.PhoneNumber = phone.String
	u.TelegramChatID = chatID.Int64
	return &u, nil
}
