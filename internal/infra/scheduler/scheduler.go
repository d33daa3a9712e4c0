package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"trackmed/internal/app"
	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/schedule"
)

// tickCronSpec fires the due-reminder poll once a minute.
const tickCronSpec = "* * * * *"

// ReminderScheduler polls the reminder store every minute and enqueues
// one dispatch job per due reminder. A tick that finds the previous one
// still running skips itself instead of overlapping it.
type ReminderScheduler struct {
	cronEngine *cron.Cron
	remRepo    reminder.Repository
	publisher  app.JobPublisher
	logger     *logrus.Entry
	running    atomic.Bool
	now        func() time.Time
}

func NewReminderScheduler(
	remRepo reminder.Repository,
	publisher app.JobPublisher,
	logger *logrus.Entry,
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		remRepo:    remRepo,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ReminderScheduler) Start() {
	s.logger.Info("Starting reminder scheduler")

	_, err := s.cronEngine.AddFunc(tickCronSpec, func() {
		if !s.running.CompareAndSwap(false, true) {
			s.logger.Warn("Previous tick still running, skipping this minute")
			return
		}
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		s.Tick(ctx, s.now())
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add minute tick cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Reminder scheduler started")
}

// Tick runs one scheduling pass for the given instant. A store error
// abandons the tick; the next minute retries independently.
func (s *ReminderScheduler) Tick(ctx context.Context, now time.Time) {
	now = now.UTC().Truncate(time.Minute)
	dateKey := schedule.DateKey(now)

	due, err := s.remRepo.ListDue(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query due reminders, abandoning tick")
		return
	}
	if len(due) == 0 {
		return
	}

	enqueued := 0
	for _, rem := range due {
		job := app.DispatchJob{ReminderID: rem.ID, Channel: rem.Channel, DateKey: dateKey}
		if err := s.publisher.PublishDispatch(ctx, job); err != nil {
			s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Failed to enqueue dispatch job")
			continue
		}
		enqueued++
	}
	s.logger.WithFields(logrus.Fields{
		"minute":   now.Format("15:04"),
		"due":      len(due),
		"enqueued": enqueued,
	}).Info("Tick complete")
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped")
}
