package schedule

import (
	"time"

	"github.com/google/uuid"

	"trackmed/internal/domain/delivery"
	"trackmed/internal/domain/medication"
	"trackmed/internal/domain/reminder"
)

// Expand turns a medication's dose specs into the full reminder set: one
// reminder per (drug, time-of-day), canonicalised to the storage zone.
// The active window end is extended one calendar day past the
// caregiver's end date so a dose due on the end date itself is still
// delivered. Any validation failure aborts the whole batch.
func Expand(med *medication.Medication, channel delivery.Channel, loc *time.Location) ([]*reminder.Reminder, error) {
	if err := med.DrugInfo.Validate(); err != nil {
		return nil, err
	}

	var rems []*reminder.Reminder
	for _, spec := range med.DrugInfo {
		endDate, err := time.Parse(DateLayout, spec.EndDate)
		if err != nil {
			return nil, err
		}
		windowEndDate := endDate.AddDate(0, 0, 1).Format(DateLayout)

		for _, clock := range spec.ResolvedTimes() {
			startAt, err := LocalToCanonical(spec.StartDate, clock, loc)
			if err != nil {
				return nil, err
			}
			endAt, err := LocalToCanonical(windowEndDate, clock, loc)
			if err != nil {
				return nil, err
			}

			rems = append(rems, &reminder.Reminder{
				ID:           uuid.New(),
				UserID:       med.UserID,
				MedicationID: med.ID,
				DrugName:     spec.DrugName,
				Dose:         spec.Dose,
				TimeOfDay:    Clock(startAt),
				StartAt:      startAt,
				EndAt:        endAt,
				Channel:      channel,
				Ledger:       reminder.Ledger{},
				Token:        reminder.NewToken(),
			})
		}
	}
	return rems, nil
}
