// Package schedule owns the pure temporal arithmetic of the reminder
// core: conversion between the caregiver's local wall clock and the
// canonical (UTC) storage zone, and expansion of a medication's dose
// specs into concrete reminders.
package schedule

import (
	"fmt"
	"time"

	"trackmed/internal/domain/medication"
)

const (
	DateLayout  = medication.DateLayout
	ClockLayout = medication.ClockLayout
)

// LocalToCanonical interprets a local calendar date and wall-clock time
// in loc and returns the canonical instant. A conversion that crosses
// midnight lands on the neighbouring canonical date, which is exactly
// what keeps the scheduler's per-minute comparison consistent.
func LocalToCanonical(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local date/time %q %q: %w", date, clock, err)
	}
	return t.UTC(), nil
}

// CanonicalToLocal converts a canonical instant back to the caregiver's
// local display date and wall-clock time.
func CanonicalToLocal(t time.Time, loc *time.Location) (date, clock string) {
	local := t.In(loc)
	return local.Format(DateLayout), local.Format(ClockLayout)
}

// DateKey returns the canonical ledger key for an instant.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Clock returns the canonical HH:MM of an instant.
func Clock(t time.Time) string {
	return t.UTC().Format(ClockLayout)
}

// OccurrenceAt reconstructs the canonical instant of a reminder
// occurrence from its ledger date key and stored time-of-day. Stored
// clocks are always zero-padded HH:MM; time.Parse alone would accept a
// one-digit hour, so the length is checked explicitly.
func OccurrenceAt(dateKey, timeOfDay string) (time.Time, error) {
	if len(dateKey) != len(DateLayout) || len(timeOfDay) != len(ClockLayout) {
		return time.Time{}, fmt.Errorf("invalid occurrence %q %q", dateKey, timeOfDay)
	}
	t, err := time.Parse(DateLayout+" "+ClockLayout, dateKey+" "+timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid occurrence %q %q: %w", dateKey, timeOfDay, err)
	}
	return t, nil
}

// SameLocalDay reports whether two canonical instants fall on the same
// calendar day in the caregiver's zone. The snooze day-boundary rule is
// defined on local days, not canonical ones.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	ay, am, ad := al.Date()
	by, bm, bd := bl.Date()
	return ay == by && am == bm && ad == bd
}
