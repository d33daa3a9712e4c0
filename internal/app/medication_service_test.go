package app

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/medication"
	"trackmed/internal/domain/user"
)

func newMedicationFixture(t *testing.T) (*MedicationService, *fakeReminderRepo, *user.User) {
	return newMedicationFixtureIn(t, time.UTC)
}

func newMedicationFixtureIn(t *testing.T, loc *time.Location) (*MedicationService, *fakeReminderRepo, *user.User) {
	t.Helper()
	owner := &user.User{
		ID:               uuid.New(),
		Email:            "pat@example.com",
		FirstName:        "Pat",
		NotificationType: delivery.ChannelEmail,
	}
	remRepo := newFakeReminderRepo()
	svc := NewMedicationService(newFakeMedicationRepo(), remRepo, newFakeUserRepo(owner), loc, testLogger())
	return svc, remRepo, owner
}

func aspirinInfo() medication.DrugInfo {
	return medication.DrugInfo{{
		DrugName:  "Aspirin",
		Dose:      "100mg",
		Frequency: medication.FrequencyTwiceDaily,
		StartDate: "2026-09-01",
		EndDate:   "2026-09-10",
	}}
}

func TestMedicationCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates medication and expands reminders", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)

		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		rems, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		require.Len(t, rems, 2)
		for _, rem := range rems {
			assert.Equal(t, owner.NotificationType, rem.Channel)
			assert.Equal(t, owner.ID, rem.UserID)
		}
	})

	t.Run("rejects duplicate name per user", func(t *testing.T) {
		svc, _, owner := newMedicationFixture(t)
		_, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		_, err = svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		assert.ErrorIs(t, err, ErrMedicationExists)

		// Uniqueness is case-normalized, matching the store's
		// (user_id, LOWER(name)) index.
		_, err = svc.Create(ctx, owner.ID, "MORNING MEDS", aspirinInfo())
		assert.ErrorIs(t, err, ErrMedicationExists)
	})

	t.Run("rejects invalid drug info without persisting", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)
		info := aspirinInfo()
		info[0].Dose = ""

		_, err := svc.Create(ctx, owner.ID, "Morning meds", info)
		var vErr *medication.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Empty(t, remRepo.rems)
	})

	t.Run("rejects blank medication name", func(t *testing.T) {
		svc, _, owner := newMedicationFixture(t)
		_, err := svc.Create(ctx, owner.ID, "   ", aspirinInfo())
		var vErr *medication.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "name", vErr.Field)
	})
}

func TestMedicationGetEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, owner := newMedicationFixture(t)

	med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner.ID, med.ID)
	assert.NoError(t, err)

	// Another user's id looks exactly like a missing medication.
	_, err = svc.Get(ctx, uuid.New(), med.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMedicationUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("drug info change rebuilds the reminder set", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)
		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		before, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		require.Len(t, before, 2)

		info := aspirinInfo()
		info[0].Frequency = medication.FrequencyThriceDaily
		updated, err := svc.Update(ctx, owner.ID, med.ID, "", info)
		require.NoError(t, err)
		assert.Equal(t, "Morning meds", updated.Name)

		after, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		require.Len(t, after, 3)
		for _, oldRem := range before {
			for _, newRem := range after {
				assert.NotEqual(t, oldRem.ID, newRem.ID, "old reminders must be replaced, not kept")
			}
		}
	})

	t.Run("name-only change keeps reminders intact", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)
		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)
		before, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)

		updated, err := svc.Update(ctx, owner.ID, med.ID, "Evening meds", nil)
		require.NoError(t, err)
		assert.Equal(t, "Evening meds", updated.Name)

		after, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		assert.Equal(t, len(before), len(after))
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		svc, _, owner := newMedicationFixture(t)
		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		_, err = svc.Update(ctx, owner.ID, med.ID, "", nil)
		var vErr *medication.ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestMedicationDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner delete removes medication and reminders", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)
		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, owner.ID, med.ID))

		rems, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		assert.Empty(t, rems)

		assert.ErrorIs(t, svc.Delete(ctx, owner.ID, med.ID), ErrNotFound)
	})

	t.Run("rejected delete by non-owner leaves reminders intact", func(t *testing.T) {
		svc, remRepo, owner := newMedicationFixture(t)
		med, err := svc.Create(ctx, owner.ID, "Morning meds", aspirinInfo())
		require.NoError(t, err)

		err = svc.Delete(ctx, uuid.New(), med.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		// The owner's reminder set and its ledgers must survive.
		rems, err := remRepo.ListByMedication(ctx, med.ID)
		require.NoError(t, err)
		assert.Len(t, rems, 2)

		_, err = svc.Get(ctx, owner.ID, med.ID)
		assert.NoError(t, err)
	})
}
