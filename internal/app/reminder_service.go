package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/schedule"
	idb "trackmed/internal/infra/database"
)

// CompletionMessage is the user-visible confirmation for a completed dose.
const CompletionMessage = "Thank you for taking your drugs!"

// SnoozeResult is the user-facing local date and time of the deferred
// occurrence.
type SnoozeResult struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// ReminderService handles the inbound link actions: marking a dose
// complete and snoozing it. Both validate the reminder's access token
// and ledger state, resolve snoozed-to markers to the deferred child
// occurrence, and mutate ledgers with conditional writes so races with
// the dispatcher settle into one consistent state.
type ReminderService struct {
	remRepo reminder.Repository
	loc     *time.Location
	grace   time.Duration
	log     *logrus.Entry
	now     func() time.Time
}

func NewReminderService(
	remRepo reminder.Repository,
	loc *time.Location,
	grace time.Duration,
	log *logrus.Entry,
) *ReminderService {
	return &ReminderService{
		remRepo: remRepo,
		loc:     loc,
		grace:   grace,
		log:     log,
		now:     time.Now,
	}
}

// MarkComplete flips the date's ledger entry to done. Completing an
// already-completed dose succeeds idempotently. If the date was snoozed,
// the completion is re-targeted at the deferred occurrence.
func (s *ReminderService) MarkComplete(ctx context.Context, reminderID, token, dateKey string) (string, error) {
	rem, err := s.loadVerified(ctx, reminderID, token, dateKey)
	if err != nil {
		return "", err
	}
	if rem.Ledger.Get(dateKey).Kind == reminder.KindUnset {
		// No notification was ever scheduled for this date.
		return "", ErrInvalidLink
	}

	target, targetDateKey, err := s.resolveTarget(ctx, rem, dateKey)
	if err != nil {
		return "", err
	}
	if target.Ledger.Get(targetDateKey).Kind == reminder.KindDone {
		return CompletionMessage, nil
	}

	if _, err := s.remRepo.MarkDone(ctx, target.ID, targetDateKey); err != nil {
		return "", fmt.Errorf("failed to mark reminder %s done for %s: %w", target.ID, targetDateKey, err)
	}
	s.log.WithFields(logrus.Fields{"reminder_id": target.ID, "date": targetDateKey}).Info("Dose marked complete")
	return CompletionMessage, nil
}

// Snooze defers the date's occurrence by the configured grace period.
// The first snooze of a reminder creates a linked child reminder; later
// snoozes mutate that same child in place with a fresh token and a reset
// ledger. The original reminder's entry records the snoozed-to marker.
func (s *ReminderService) Snooze(ctx context.Context, reminderID, token, dateKey string) (*SnoozeResult, error) {
	rem, err := s.loadVerified(ctx, reminderID, token, dateKey)
	if err != nil {
		return nil, err
	}
	if rem.Ledger.Get(dateKey).Kind == reminder.KindUnset {
		return nil, ErrInvalidLink
	}

	target, targetDateKey, err := s.resolveTarget(ctx, rem, dateKey)
	if err != nil {
		return nil, err
	}
	if target.Ledger.Get(targetDateKey).Kind == reminder.KindDone {
		return nil, ErrAlreadyCompleted
	}

	original, originalDateKey, err := s.resolveOriginal(ctx, rem, dateKey)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Minute)
	deferred := now.Add(s.grace)

	if !schedule.SameLocalDay(now, deferred, s.loc) {
		return nil, ErrSnoozeCrossesDay
	}
	if err := s.checkOverlap(ctx, original, originalDateKey, deferred); err != nil {
		return nil, err
	}

	marker := reminder.LedgerEntry{
		Kind:        reminder.KindSnoozed,
		SnoozedDate: schedule.DateKey(deferred),
		SnoozedTime: schedule.Clock(deferred),
	}
	marked, err := s.remRepo.MarkSnoozed(ctx, original.ID, originalDateKey, marker)
	if err != nil {
		return nil, fmt.Errorf("failed to record snooze marker on reminder %s: %w", original.ID, err)
	}
	if !marked {
		// The dose was completed while this request was in flight.
		return nil, ErrAlreadyCompleted
	}

	if err := s.upsertChild(ctx, original, deferred); err != nil {
		return nil, err
	}

	date, clock := schedule.CanonicalToLocal(deferred, s.loc)
	s.log.WithFields(logrus.Fields{
		"reminder_id": original.ID,
		"date":        originalDateKey,
		"deferred_to": date + " " + clock,
	}).Info("Dose snoozed")
	return &SnoozeResult{Date: date, Time: clock}, nil
}

// loadVerified parses and validates the inbound link parameters. Every
// failure mode collapses into ErrInvalidLink.
func (s *ReminderService) loadVerified(ctx context.Context, reminderID, token, dateKey string) (*reminder.Reminder, error) {
	id, err := uuid.Parse(reminderID)
	if err != nil {
		return nil, ErrInvalidLink
	}
	if token == "" || dateKey == "" {
		return nil, ErrInvalidLink
	}
	if _, err := time.Parse(reminder.DateKeyLayout, dateKey); err != nil {
		return nil, ErrInvalidLink
	}

	rem, err := s.remRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, idb.ErrReminderNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to load reminder %s: %w", id, err)
	}
	if rem.Token != token {
		return nil, ErrInvalidLink
	}
	return rem, nil
}

// resolveTarget follows snoozed-to markers from the requested reminder to
// the reminder/date the action actually applies to. A dangling marker
// (child row missing) falls back to the marker's owner.
func (s *ReminderService) resolveTarget(ctx context.Context, rem *reminder.Reminder, dateKey string) (*reminder.Reminder, string, error) {
	for depth := 0; depth < 4; depth++ {
		entry := rem.Ledger.Get(dateKey)
		if entry.Kind != reminder.KindSnoozed {
			return rem, dateKey, nil
		}
		child, err := s.remRepo.GetChild(ctx, rem.ID)
		if err != nil {
			if errors.Is(err, idb.ErrReminderNotFound) {
				return rem, dateKey, nil
			}
			return nil, "", fmt.Errorf("failed to resolve snoozed child of %s: %w", rem.ID, err)
		}
		rem, dateKey = child, entry.SnoozedDate
	}
	return rem, dateKey, nil
}

// resolveOriginal walks up from a snoozed child to the reminder that owns
// the snooze marker, and finds the marker's own date key.
func (s *ReminderService) resolveOriginal(ctx context.Context, rem *reminder.Reminder, dateKey string) (*reminder.Reminder, string, error) {
	if !rem.Snoozed || !rem.ParentID.Valid {
		return rem, dateKey, nil
	}
	parent, err := s.remRepo.GetByID(ctx, rem.ParentID.UUID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load parent of snoozed reminder %s: %w", rem.ID, err)
	}
	// The child's dispatch date is the marker's deferred date; find the
	// parent entry pointing at it. The dates normally coincide.
	for key, entry := range parent.Ledger {
		if entry.Kind == reminder.KindSnoozed && entry.SnoozedDate == dateKey {
			return parent, key, nil
		}
	}
	return parent, dateKey, nil
}

// checkOverlap enforces that the deferred time stays strictly before any
// later dose of the same drug on the same date.
func (s *ReminderService) checkOverlap(ctx context.Context, original *reminder.Reminder, dateKey string, deferred time.Time) error {
	siblings, err := s.remRepo.ListByMedicationAndDrug(ctx, original.MedicationID, original.DrugName)
	if err != nil {
		return fmt.Errorf("failed to list sibling reminders of %s: %w", original.ID, err)
	}
	for _, sib := range siblings {
		if sib.ID == original.ID || sib.TimeOfDay <= original.TimeOfDay {
			continue
		}
		sibAt, err := schedule.OccurrenceAt(dateKey, sib.TimeOfDay)
		if err != nil {
			return err
		}
		if !deferred.Before(sibAt) {
			_, clock := schedule.CanonicalToLocal(sibAt, s.loc)
			return &SnoozeCollisionError{DrugName: original.DrugName, CollidesAt: clock}
		}
		// Siblings are ordered by time-of-day; only the next one matters.
		break
	}
	return nil
}

// upsertChild creates the deferred child occurrence on first snooze and
// reuses the existing child row on re-snooze, invalidating earlier links
// with a fresh token and resetting its ledger.
func (s *ReminderService) upsertChild(ctx context.Context, original *reminder.Reminder, deferred time.Time) error {
	child, err := s.remRepo.GetChild(ctx, original.ID)
	if err != nil && !errors.Is(err, idb.ErrReminderNotFound) {
		return fmt.Errorf("failed to look up snoozed child of %s: %w", original.ID, err)
	}

	if child == nil {
		child = &reminder.Reminder{
			ID:           uuid.New(),
			UserID:       original.UserID,
			MedicationID: original.MedicationID,
			DrugName:     original.DrugName,
			Dose:         original.Dose,
			TimeOfDay:    schedule.Clock(deferred),
			StartAt:      deferred,
			EndAt:        deferred.Add(24 * time.Hour),
			Channel:      original.Channel,
			Ledger:       reminder.Ledger{},
			Token:        reminder.NewToken(),
			Snoozed:      true,
			ParentID:     uuid.NullUUID{UUID: original.ID, Valid: true},
		}
		if err := s.remRepo.Create(ctx, child); err != nil {
			return fmt.Errorf("failed to create snoozed child of %s: %w", original.ID, err)
		}
		return nil
	}

	child.TimeOfDay = schedule.Clock(deferred)
	child.StartAt = deferred
	child.EndAt = deferred.Add(24 * time.Hour)
	child.Token = reminder.NewToken()
	child.Ledger = reminder.Ledger{}
	if err := s.remRepo.Update(ctx, child); err != nil {
		return fmt.Errorf("failed to reuse snoozed child %s: %w", child.ID, err)
	}
	return nil
}
