package app

import (
	"errors"
	"fmt"
)

// User-facing rejections. Not-found and token-mismatch cases collapse
// into ErrInvalidLink so inbound link probing can't learn which
// reminders exist.
var (
	ErrInvalidLink      = errors.New("invalid reminder link")
	ErrAlreadyCompleted = errors.New("reminder already completed, cannot snooze")
	ErrSnoozeCrossesDay = errors.New("snoozing would push the dose into the next day")
	ErrReportNotReady   = errors.New("start date/time for drugs hasn't reached")
	ErrMedicationExists = errors.New("you already have a medication with this name")
	ErrNotFound         = errors.New("not found")
)

// SnoozeCollisionError rejects a snooze whose deferred time would run
// into a later dose of the same drug. CollidesAt is the colliding dose's
// local display time.
type SnoozeCollisionError struct {
	DrugName   string
	CollidesAt string
}

func (e *SnoozeCollisionError) Error() string {
	return fmt.Sprintf("snoozing would overlap your next dose of %s scheduled at %s", e.DrugName, e.CollidesAt)
}
