package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for Reminder entities and
// their status ledgers. Ledger mutations are conditional writes: a write
// that loses a race against an already-advanced state reports done=false
// instead of failing, per the read-modify-write discipline shared by the
// dispatcher and the inbound link handlers.
type Repository interface {
	Create(ctx context.Context, rem *Reminder) error
	BulkCreate(ctx context.Context, rems []*Reminder) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	// GetChild returns the snoozed child reminder linked to a parent.
	GetChild(ctx context.Context, parentID uuid.UUID) (*Reminder, error)
	// Update persists window, time-of-day, token and ledger changes of
	// an existing reminder (used when a re-snooze reuses the child row).
	Update(ctx context.Context, rem *Reminder) error
	DeleteByMedication(ctx context.Context, medicationID uuid.UUID) error

	// ListDue returns reminders whose active window contains now and
	// whose canonical time-of-day equals now's minute.
	ListDue(ctx context.Context, now time.Time) ([]*Reminder, error)
	ListByMedication(ctx context.Context, medicationID uuid.UUID) ([]*Reminder, error)
	// ListByMedicationAndDrug returns the non-snoozed reminders for one
	// drug of a medication, ordered by time-of-day ascending.
	ListByMedicationAndDrug(ctx context.Context, medicationID uuid.UUID, drugName string) ([]*Reminder, error)

	// MarkPending sets the date's entry to pending unless it is already
	// done. done=false means another actor completed the date first.
	MarkPending(ctx context.Context, id uuid.UUID, dateKey string) (bool, error)
	// MarkDone sets the date's entry to done. done=false means it
	// already was, which callers treat as an idempotent success.
	MarkDone(ctx context.Context, id uuid.UUID, dateKey string) (bool, error)
	// MarkSnoozed writes the snoozed-to marker unless the date is done.
	MarkSnoozed(ctx context.Context, id uuid.UUID, dateKey string, entry LedgerEntry) (bool, error)
}
