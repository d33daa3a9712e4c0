package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"trackmed/internal/domain/reminder"
	"trackmed/internal/domain/schedule"
)

// ReportEntry is one (display time, status) pair in an adherence report.
// Status is surfaced as persisted: false pending, true done, the marker
// string for a snoozed dose.
type ReportEntry struct {
	Time   string      `json:"time"`
	Status interface{} `json:"status"`
}

// Report groups ledger entries by drug name, then by local display date,
// with entries inside a date sorted ascending by display time.
type Report map[string]map[string][]ReportEntry

// MedicationReport is the full generated report for one medication.
type MedicationReport struct {
	MedicationName string `json:"medicationName"`
	Report         Report `json:"report"`
}

// ReportService reconstructs a patient's adherence history from the
// reminder ledgers of one medication.
type ReportService struct {
	medService *MedicationService
	remRepo    reminder.Repository
	loc        *time.Location
	log        *logrus.Entry
}

func NewReportService(medService *MedicationService, remRepo reminder.Repository, loc *time.Location, log *logrus.Entry) *ReportService {
	return &ReportService{medService: medService, remRepo: remRepo, loc: loc, log: log}
}

func (s *ReportService) Generate(ctx context.Context, userID, medID uuid.UUID) (*MedicationReport, error) {
	med, err := s.medService.Get(ctx, userID, medID)
	if err != nil {
		return nil, err
	}

	rems, err := s.remRepo.ListByMedication(ctx, med.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders for medication %s: %w", med.ID, err)
	}

	// Reminders with an empty ledger have not entered their window yet.
	active := rems[:0]
	for _, rem := range rems {
		if len(rem.Ledger) > 0 {
			active = append(active, rem)
		}
	}
	if len(active) == 0 {
		return nil, ErrReportNotReady
	}

	report := make(Report)
	for _, rem := range active {
		byDate := report[rem.DrugName]
		if byDate == nil {
			byDate = make(map[string][]ReportEntry)
			report[rem.DrugName] = byDate
		}
		for dateKey, entry := range rem.Ledger {
			occurrence, err := schedule.OccurrenceAt(dateKey, rem.TimeOfDay)
			if err != nil {
				return nil, err
			}
			// Display in the caregiver's zone; this also shifts the
			// date back across midnight where canonicalisation moved it.
			displayDate, displayTime := schedule.CanonicalToLocal(occurrence, s.loc)
			byDate[displayDate] = append(byDate[displayDate], ReportEntry{
				Time:   displayTime,
				Status: entry.Display(),
			})
		}
	}

	for _, byDate := range report {
		for _, entries := range byDate {
			sort.Slice(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })
		}
	}

	return &MedicationReport{MedicationName: med.Name, Report: report}, nil
}
