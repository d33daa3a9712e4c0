package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/reminder"
)

// Custom errors specific to the reminder repository.
var ErrReminderNotFound = fmt.Errorf("reminder not found")

const reminderColumns = `id, user_id, medication_id, drug_name, dose, time_of_day,
       start_at, end_at, channel, ledger, token, snoozed, parent_reminder_id,
       created_at, updated_at`

type PostgresReminderRepository struct {
	db *sql.DB
}

func NewPostgresReminderRepository(db *sql.DB) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db}
}

func (r *PostgresReminderRepository) Create(ctx context.Context, rem *reminder.Reminder) error {
	query := `INSERT INTO reminders (id, user_id, medication_id, drug_name, dose, time_of_day,
                    start_at, end_at, channel, ledger, token, snoozed, parent_reminder_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
              RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rem.ID, rem.UserID, rem.MedicationID, rem.DrugName, rem.Dose, rem.TimeOfDay,
		rem.StartAt, rem.EndAt, string(rem.Channel), rem.Ledger, rem.Token, rem.Snoozed, rem.ParentID,
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepository) BulkCreate(ctx context.Context, rems []*reminder.Reminder) error {
	if len(rems) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk create: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO reminders (id, user_id, medication_id, drug_name, dose,
                    time_of_day, start_at, end_at, channel, ledger, token, snoozed, parent_reminder_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk create: %w", err)
	}
	defer stmt.Close()

	for _, rem := range rems {
		_, err := stmt.ExecContext(ctx,
			rem.ID, rem.UserID, rem.MedicationID, rem.DrugName, rem.Dose, rem.TimeOfDay,
			rem.StartAt, rem.EndAt, string(rem.Channel), rem.Ledger, rem.Token, rem.Snoozed, rem.ParentID)
		if err != nil {
			return fmt.Errorf("error in bulk create (reminder for drug %s at %s): %w", rem.DrugName, rem.TimeOfDay, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresReminderRepository) GetByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresReminderRepository) GetChild(ctx context.Context, parentID uuid.UUID) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE parent_reminder_id = $1 AND snoozed = TRUE LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, parentID))
}

func (r *PostgresReminderRepository) Update(ctx context.Context, rem *reminder.Reminder) error {
	query := `UPDATE reminders
              SET time_of_day = $2, start_at = $3, end_at = $4, channel = $5,
                  ledger = $6, token = $7, updated_at = NOW()
              WHERE id = $1
              RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		rem.ID, rem.TimeOfDay, rem.StartAt, rem.EndAt, string(rem.Channel), rem.Ledger, rem.Token,
	).Scan(&rem.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrReminderNotFound
		}
		return fmt.Errorf("error updating reminder %s: %w", rem.ID, err)
	}
	return nil
}

func (r *PostgresReminderRepository) DeleteByMedication(ctx context.Context, medicationID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE medication_id = $1`, medicationID)
	if err != nil {
		return fmt.Errorf("error deleting reminders for medication %s: %w", medicationID, err)
	}
	return nil
}

// ListDue mirrors reminder.DueAt: the active window contains now and the
// stored time-of-day equals now's minute.
func (r *PostgresReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*reminder.Reminder, error) {
	now = now.UTC().Truncate(time.Minute)
	query := `SELECT ` + reminderColumns + ` FROM reminders
              WHERE start_at <= $1 AND end_at > $1 AND time_of_day = $2`
	return r.list(ctx, query, now, now.Format(reminder.ClockLayout))
}

func (r *PostgresReminderRepository) ListByMedication(ctx context.Context, medicationID uuid.UUID) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE medication_id = $1 ORDER BY drug_name, time_of_day`
	return r.list(ctx, query, medicationID)
}

func (r *PostgresReminderRepository) ListByMedicationAndDrug(ctx context.Context, medicationID uuid.UUID, drugName string) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
              WHERE medication_id = $1 AND LOWER(drug_name) = LOWER($2) AND snoozed = FALSE
              ORDER BY time_of_day ASC`
	return r.list(ctx, query, medicationID, drugName)
}

// MarkPending sets the date's entry to pending (false) unless the date is
// already done. Zero affected rows means another actor completed first.
func (r *PostgresReminderRepository) MarkPending(ctx context.Context, id uuid.UUID, dateKey string) (bool, error) {
	query := `UPDATE reminders
              SET ledger = jsonb_set(COALESCE(ledger, '{}'::jsonb), ARRAY[$2], 'false'::jsonb),
                  updated_at = NOW()
              WHERE id = $1 AND COALESCE(ledger->>$2, '') <> 'true'`
	return r.conditionalWrite(ctx, query, id, dateKey)
}

func (r *PostgresReminderRepository) MarkDone(ctx context.Context, id uuid.UUID, dateKey string) (bool, error) {
	query := `UPDATE reminders
              SET ledger = jsonb_set(COALESCE(ledger, '{}'::jsonb), ARRAY[$2], 'true'::jsonb),
                  updated_at = NOW()
              WHERE id = $1 AND COALESCE(ledger->>$2, '') <> 'true'`
	return r.conditionalWrite(ctx, query, id, dateKey)
}

func (r *PostgresReminderRepository) MarkSnoozed(ctx context.Context, id uuid.UUID, dateKey string, entry reminder.LedgerEntry) (bool, error) {
	marker, ok := entry.Display().(string)
	if !ok {
		return false, fmt.Errorf("ledger entry %v is not a snooze marker", entry.Kind)
	}
	query := `UPDATE reminders
              SET ledger = jsonb_set(COALESCE(ledger, '{}'::jsonb), ARRAY[$2], to_jsonb($3::text)),
                  updated_at = NOW()
              WHERE id = $1 AND COALESCE(ledger->>$2, '') <> 'true'`
	res, err := r.db.ExecContext(ctx, query, id, dateKey, marker)
	if err != nil {
		return false, fmt.Errorf("error writing snooze marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresReminderRepository) conditionalWrite(ctx context.Context, query string, id uuid.UUID, dateKey string) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, id, dateKey)
	if err != nil {
		return false, fmt.Errorf("error updating reminder ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresReminderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*reminder.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders: %w", err)
	}
	defer rows.Close()

	var rems []*reminder.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		rems = append(rems, rem)
	}
	return rems, rows.Err()
}

func (r *PostgresReminderRepository) scanOne(row *sql.Row) (*reminder.Reminder, error) {
	rem, err := scanReminder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return rem, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReminder(row rowScanner) (*reminder.Reminder, error) {
	rem := reminder.Reminder{}
	var channel string
	err := row.Scan(
		&rem.ID, &rem.UserID, &rem.MedicationID, &rem.DrugName, &rem.Dose, &rem.TimeOfDay,
		&rem.StartAt, &rem.EndAt, &channel, &rem.Ledger, &rem.Token, &rem.Snoozed, &rem.ParentID,
		&rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning reminder row: %w", err)
	}
	rem.Channel = delivery.Channel(channel)
	rem.StartAt = rem.StartAt.UTC()
	rem.EndAt = rem.EndAt.UTC()
	return &rem, nil
}
