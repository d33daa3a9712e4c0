package app

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/medication"
	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/user"
	idb "trackmed/internal/infra/database"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeReminderRepo is an in-memory reminder.Repository with the same
// conditional-write semantics as the Postgres implementation.
type fakeReminderRepo struct {
	mu   sync.Mutex
	rems map[uuid.UUID]*reminder.Reminder
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{rems: make(map[uuid.UUID]*reminder.Reminder)}
}

func (r *fakeReminderRepo) clone(rem *reminder.Reminder) *reminder.Reminder {
	cp := *rem
	cp.Ledger = make(reminder.Ledger, len(rem.Ledger))
	for k, v := range rem.Ledger {
		cp.Ledger[k] = v
	}
	return &cp
}

func (r *fakeReminderRepo) Create(_ context.Context, rem *reminder.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rems[rem.ID] = r.clone(rem)
	return nil
}

func (r *fakeReminderRepo) BulkCreate(ctx context.Context, rems []*reminder.Reminder) error {
	for _, rem := range rems {
		if err := r.Create(ctx, rem); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeReminderRepo) GetByID(_ context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.rems[id]
	if !ok {
		return nil, idb.ErrReminderNotFound
	}
	return r.clone(rem), nil
}

func (r *fakeReminderRepo) GetChild(_ context.Context, parentID uuid.UUID) (*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.rems {
		if rem.Snoozed && rem.ParentID.Valid && rem.ParentID.UUID == parentID {
			return r.clone(rem), nil
		}
	}
	return nil, idb.ErrReminderNotFound
}

func (r *fakeReminderRepo) Update(_ context.Context, rem *reminder.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rems[rem.ID]; !ok {
		return idb.ErrReminderNotFound
	}
	r.rems[rem.ID] = r.clone(rem)
	return nil
}

func (r *fakeReminderRepo) DeleteByMedication(_ context.Context, medicationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rem := range r.rems {
		if rem.MedicationID == medicationID {
			delete(r.rems, id)
		}
	}
	return nil
}

func (r *fakeReminderRepo) ListDue(_ context.Context, now time.Time) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*reminder.Reminder
	for _, rem := range r.rems {
		if rem.DueAt(now) {
			due = append(due, r.clone(rem))
		}
	}
	return due, nil
}

func (r *fakeReminderRepo) ListByMedication(_ context.Context, medicationID uuid.UUID) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reminder.Reminder
	for _, rem := range r.rems {
		if rem.MedicationID == medicationID {
			out = append(out, r.clone(rem))
		}
	}
	return out, nil
}

func (r *fakeReminderRepo) ListByMedicationAndDrug(_ context.Context, medicationID uuid.UUID, drugName string) ([]*reminder.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*reminder.Reminder
	for _, rem := range r.rems {
		if rem.MedicationID == medicationID && !rem.Snoozed &&
			strings.EqualFold(rem.DrugName, drugName) {
			out = append(out, r.clone(rem))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeOfDay < out[j].TimeOfDay })
	return out, nil
}

func (r *fakeReminderRepo) mark(id uuid.UUID, dateKey string, entry reminder.LedgerEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.rems[id]
	if !ok {
		return false, idb.ErrReminderNotFound
	}
	if rem.Ledger.Get(dateKey).Kind == reminder.KindDone {
		return false, nil
	}
	if rem.Ledger == nil {
		rem.Ledger = reminder.Ledger{}
	}
	rem.Ledger[dateKey] = entry
	return true, nil
}

func (r *fakeReminderRepo) MarkPending(_ context.Context, id uuid.UUID, dateKey string) (bool, error) {
	return r.mark(id, dateKey, reminder.LedgerEntry{Kind: reminder.KindPending})
}

func (r *fakeReminderRepo) MarkDone(_ context.Context, id uuid.UUID, dateKey string) (bool, error) {
	return r.mark(id, dateKey, reminder.LedgerEntry{Kind: reminder.KindDone})
}

func (r *fakeReminderRepo) MarkSnoozed(_ context.Context, id uuid.UUID, dateKey string, entry reminder.LedgerEntry) (bool, error) {
	return r.mark(id, dateKey, entry)
}

// fakeMedicationRepo is an in-memory medication.Repository.
type fakeMedicationRepo struct {
	mu   sync.Mutex
	meds map[uuid.UUID]*medication.Medication
}

func newFakeMedicationRepo() *fakeMedicationRepo {
	return &fakeMedicationRepo{meds: make(map[uuid.UUID]*medication.Medication)}
}

func (r *fakeMedicationRepo) Create(_ context.Context, med *medication.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.meds {
		if existing.UserID == med.UserID && strings.EqualFold(existing.Name, med.Name) {
			return idb.ErrDuplicateMedication
		}
	}
	cp := *med
	r.meds[med.ID] = &cp
	return nil
}

func (r *fakeMedicationRepo) GetByID(_ context.Context, id uuid.UUID) (*medication.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	med, ok := r.meds[id]
	if !ok {
		return nil, idb.ErrMedicationNotFound
	}
	cp := *med
	return &cp, nil
}

func (r *fakeMedicationRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*medication.Medication
	for _, med := range r.meds {
		if med.UserID == userID {
			cp := *med
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMedicationRepo) Update(_ context.Context, med *medication.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meds[med.ID]; !ok {
		return idb.ErrMedicationNotFound
	}
	cp := *med
	r.meds[med.ID] = &cp
	return nil
}

func (r *fakeMedicationRepo) Delete(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	med, ok := r.meds[id]
	if !ok || med.UserID != userID {
		return idb.ErrMedicationNotFound
	}
	delete(r.meds, id)
	return nil
}

// fakeUserRepo serves a fixed user set.
type fakeUserRepo struct {
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	return u, nil
}

// recordingSender captures delivered messages.
type recordingSender struct {
	mu       sync.Mutex
	sent     []delivery.Message
	failWith error
}

func (s *recordingSender) Send(_ context.Context, _ delivery.Recipient, msg delivery.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []delivery.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.Message(nil), s.sent...)
}

// recordingPublisher captures enqueued dispatch jobs.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []DispatchJob
}

func (p *recordingPublisher) PublishDispatch(_ context.Context, job DispatchJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *recordingPublisher) published() []DispatchJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]DispatchJob(nil), p.jobs...)
}
