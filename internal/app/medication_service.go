package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trackmed/internal/domain/medication"
	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/schedule"
	"trackmed/internal/domain/user"
	idb "trackmed/internal/infra/database"
)

// MedicationService owns medication CRUD and keeps the reminder set in
// sync with it: creating or re-specifying a medication's drug info
// destroys and re-expands its reminders as one batch.
type MedicationService struct {
	medRepo  medication.Repository
	remRepo  reminder.Repository
	userRepo user.Repository
	loc      *time.Location
	log      *logrus.Entry
}

func NewMedicationService(
	medRepo medication.Repository,
	remRepo reminder.Repository,
	userRepo user.Repository,
	loc *time.Location,
	log *logrus.Entry,
) *MedicationService {
	return &MedicationService{
		medRepo:  medRepo,
		remRepo:  remRepo,
		userRepo: userRepo,
		loc:      loc,
		log:      log,
	}
}

func (s *MedicationService) Create(ctx context.Context, userID uuid.UUID, name string, drugInfo medication.DrugInfo) (*medication.Medication, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &medication.ValidationError{Field: "name", Reason: "medication name is required"}
	}
	if err := drugInfo.Validate(); err != nil {
		return nil, err
	}

	med := &medication.Medication{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		DrugInfo: drugInfo,
	}
	if err := s.medRepo.Create(ctx, med); err != nil {
		if errors.Is(err, idb.ErrDuplicateMedication) {
			return nil, ErrMedicationExists
		}
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	if err := s.rebuildReminders(ctx, med); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"medication_id": med.ID, "user_id": userID}).Info("Medication created and reminders expanded")
	return med, nil
}

func (s *MedicationService) Get(ctx context.Context, userID, medID uuid.UUID) (*medication.Medication, error) {
	med, err := s.medRepo.GetByID(ctx, medID)
	if err != nil {
		if errors.Is(err, idb.ErrMedicationNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get medication %s: %w", medID, err)
	}
	if med.UserID != userID {
		return nil, ErrNotFound
	}
	return med, nil
}

func (s *MedicationService) List(ctx context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	meds, err := s.medRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications for user %s: %w", userID, err)
	}
	return meds, nil
}

// Update changes the medication's name and/or drug info. A drug info
// change rebuilds the whole reminder set for the medication.
func (s *MedicationService) Update(ctx context.Context, userID, medID uuid.UUID, name string, drugInfo medication.DrugInfo) (*medication.Medication, error) {
	if strings.TrimSpace(name) == "" && drugInfo == nil {
		return nil, &medication.ValidationError{Field: "body", Reason: "no field specified to be updated"}
	}

	med, err := s.Get(ctx, userID, medID)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		med.Name = name
	}
	rebuild := false
	if drugInfo != nil {
		if err := drugInfo.Validate(); err != nil {
			return nil, err
		}
		med.DrugInfo = drugInfo
		rebuild = true
	}

	if err := s.medRepo.Update(ctx, med); err != nil {
		if errors.Is(err, idb.ErrDuplicateMedication) {
			return nil, ErrMedicationExists
		}
		return nil, fmt.Errorf("failed to update medication %s: %w", medID, err)
	}

	if rebuild {
		if err := s.remRepo.DeleteByMedication(ctx, med.ID); err != nil {
			return nil, fmt.Errorf("failed to clear reminders for medication %s: %w", med.ID, err)
		}
		if err := s.rebuildReminders(ctx, med); err != nil {
			return nil, err
		}
		s.log.WithField("medication_id", med.ID).Info("Drug info updated, reminders rebuilt")
	}
	return med, nil
}

func (s *MedicationService) Delete(ctx context.Context, userID, medID uuid.UUID) error {
	// Ownership is checked before any reminders are touched, so a
	// rejected delete leaves the owner's ledgers intact.
	if _, err := s.Get(ctx, userID, medID); err != nil {
		return err
	}
	if err := s.remRepo.DeleteByMedication(ctx, medID); err != nil {
		return fmt.Errorf("failed to delete reminders for medication %s: %w", medID, err)
	}
	if err := s.medRepo.Delete(ctx, medID, userID); err != nil {
		if errors.Is(err, idb.ErrMedicationNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete medication %s: %w", medID, err)
	}
	return nil
}

func (s *MedicationService) rebuildReminders(ctx context.Context, med *medication.Medication) error {
	owner, err := s.userRepo.GetByID(ctx, med.UserID)
	if err != nil {
		return fmt.Errorf("failed to load owner %s for reminder expansion: %w", med.UserID, err)
	}

	rems, err := schedule.Expand(med, owner.NotificationType, s.loc)
	if err != nil {
		return err
	}
	if err := s.remRepo.BulkCreate(ctx, rems); err != nil {
		return fmt.Errorf("failed to create reminders for medication %s: %w", med.ID, err)
	}
	return nil
}
