package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/medication"
	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/user"
	idb "trackmed/internal/infra/database"
)

// DispatchJob is the payload of one queued notification attempt: one
// reminder, one channel, one canonical date.
type DispatchJob struct {
	ReminderID uuid.UUID        `json:"reminder_id"`
	Channel    delivery.Channel `json:"channel"`
	DateKey    string           `json:"date"`
}

// JobPublisher enqueues dispatch jobs. The Redis queue implements it;
// tests substitute an in-memory fake.
type JobPublisher interface {
	PublishDispatch(ctx context.Context, job DispatchJob) error
}

// DispatchService processes dispatch jobs: it idempotently marks the
// date's ledger entry pending, composes the channel message and invokes
// the delivery sender. Errors returned from Process feed the queue's
// retry policy.
type DispatchService struct {
	remRepo  reminder.Repository
	medRepo  medication.Repository
	userRepo user.Repository
	senders  map[delivery.Channel]delivery.Sender
	host     string
	timeout  time.Duration
	log      *logrus.Entry
}

func NewDispatchService(
	remRepo reminder.Repository,
	medRepo medication.Repository,
	userRepo user.Repository,
	senders map[delivery.Channel]delivery.Sender,
	host string,
	timeout time.Duration,
	log *logrus.Entry,
) *DispatchService {
	return &DispatchService{
		remRepo:  remRepo,
		medRepo:  medRepo,
		userRepo: userRepo,
		senders:  senders,
		host:     host,
		timeout:  timeout,
		log:      log,
	}
}

func (s *DispatchService) Process(ctx context.Context, job DispatchJob) error {
	rem, err := s.remRepo.GetByID(ctx, job.ReminderID)
	if err != nil {
		if errors.Is(err, idb.ErrReminderNotFound) {
			// Medication was deleted between tick and dispatch.
			s.log.WithField("reminder_id", job.ReminderID).Warn("Dispatch job for vanished reminder, dropping")
			return nil
		}
		return fmt.Errorf("failed to load reminder %s: %w", job.ReminderID, err)
	}

	// Completion links must always point at the original reminder so a
	// snoozed dose is still completed through one stable link.
	original := rem
	if rem.Snoozed && rem.ParentID.Valid {
		original, err = s.remRepo.GetByID(ctx, rem.ParentID.UUID)
		if err != nil {
			return fmt.Errorf("failed to load parent reminder %s: %w", rem.ParentID.UUID, err)
		}
	}

	if rem.Ledger.Get(job.DateKey).Kind == reminder.KindDone {
		s.log.WithFields(logrus.Fields{"reminder_id": rem.ID, "date": job.DateKey}).Debug("Date already completed, skipping dispatch")
		return nil
	}
	marked, err := s.remRepo.MarkPending(ctx, rem.ID, job.DateKey)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s pending for %s: %w", rem.ID, job.DateKey, err)
	}
	if !marked {
		// Another actor already completed the date; duplicate and
		// retried jobs must not re-notify.
		return nil
	}

	med, err := s.medRepo.GetByID(ctx, rem.MedicationID)
	if err != nil {
		return fmt.Errorf("failed to load medication %s: %w", rem.MedicationID, err)
	}
	owner, err := s.userRepo.GetByID(ctx, rem.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", rem.UserID, err)
	}

	body, err := s.composeBody(ctx, original)
	if err != nil {
		return err
	}

	sender, ok := s.senders[job.Channel]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", job.Channel)
	}

	msg := delivery.Message{
		MedicationName: med.Name,
		Body:           body,
		CompleteLink:   fmt.Sprintf("%s/reminders/complete/%s?token=%s&date=%s", s.host, original.ID, original.Token, job.DateKey),
		SnoozeLink:     fmt.Sprintf("%s/reminders/snooze/%s?token=%s&date=%s", s.host, rem.ID, rem.Token, job.DateKey),
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := sender.Send(sendCtx, owner.Recipient(), msg); err != nil {
		return fmt.Errorf("delivery via %s failed for reminder %s: %w", job.Channel, rem.ID, err)
	}

	s.log.WithFields(logrus.Fields{
		"reminder_id": rem.ID,
		"channel":     job.Channel,
		"date":        job.DateKey,
	}).Info("Reminder notification sent")
	return nil
}

// composeBody appends the ordinal dose-of-day phrasing, counting the
// original reminder's position among its drug's scheduled times.
func (s *DispatchService) composeBody(ctx context.Context, original *reminder.Reminder) (string, error) {
	siblings, err := s.remRepo.ListByMedicationAndDrug(ctx, original.MedicationID, original.DrugName)
	if err != nil {
		return "", fmt.Errorf("failed to list %s reminders for ordinal phrasing: %w", original.DrugName, err)
	}
	doseNumber := 1
	for i, sib := range siblings {
		if sib.ID == original.ID {
			doseNumber = i + 1
			break
		}
	}
	return fmt.Sprintf("%s This is your %s dose today.", original.Body(), reminder.OrdinalSuffix(doseNumber)), nil
}
