package reminder

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trackmed/internal/domain/delivery"
)

const (
	// DateKeyLayout keys the status ledger by canonical calendar date.
	DateKeyLayout = "2006-01-02"
	// ClockLayout is the stored zero-padded time-of-day format.
	ClockLayout = "15:04"

	snoozedMarkerPrefix = "snoozed to:"
)

// LedgerKind tags the per-date status variant.
type LedgerKind int

const (
	// KindUnset means no notification has been attempted for the date.
	KindUnset LedgerKind = iota
	// KindPending means dispatch was attempted but intake is unconfirmed.
	KindPending
	// KindDone means the dose was confirmed taken.
	KindDone
	// KindSnoozed means the occurrence was deferred; SnoozedDate and
	// SnoozedTime point at the deferred occurrence.
	KindSnoozed
)

// LedgerEntry is the status of one reminder on one calendar date.
// The zero value is the unset entry.
type LedgerEntry struct {
	Kind        LedgerKind
	SnoozedDate string
	SnoozedTime string
}

// Display returns the persisted wire form: false for pending, true for
// done, the marker string for snoozed. Reports surface this as-is.
func (e LedgerEntry) Display() interface{} {
	switch e.Kind {
	case KindPending:
		return false
	case KindDone:
		return true
	case KindSnoozed:
		return fmt.Sprintf("%s%s %s", snoozedMarkerPrefix, e.SnoozedDate, e.SnoozedTime)
	}
	return nil
}

func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	if e.Kind == KindUnset {
		return nil, fmt.Errorf("unset ledger entries are represented by key absence, not null")
	}
	return json.Marshal(e.Display())
}

func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		if v {
			e.Kind = KindDone
		} else {
			e.Kind = KindPending
		}
		return nil
	case string:
		rest, ok := strings.CutPrefix(v, snoozedMarkerPrefix)
		if !ok {
			return fmt.Errorf("unrecognized ledger marker %q", v)
		}
		parts := strings.Fields(rest)
		if len(parts) != 2 {
			return fmt.Errorf("malformed snooze marker %q", v)
		}
		e.Kind = KindSnoozed
		e.SnoozedDate = parts[0]
		e.SnoozedTime = parts[1]
		return nil
	}
	return fmt.Errorf("unsupported ledger entry value %s", string(data))
}

// Ledger maps canonical date keys to statuses. Stored as JSONB.
type Ledger map[string]LedgerEntry

// Get returns the entry for the date key, or the unset zero value.
func (l Ledger) Get(dateKey string) LedgerEntry {
	if l == nil {
		return LedgerEntry{}
	}
	return l[dateKey]
}

func (l Ledger) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l)
}

func (l *Ledger) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = Ledger{}
		return nil
	}
	return fmt.Errorf("unsupported ledger source type %T", src)
}

// Reminder is the atomic schedulable unit: one (medication, drug,
// time-of-day) occurrence series. All stored instants and clocks are in
// the canonical (UTC) time zone.
type Reminder struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	MedicationID uuid.UUID
	DrugName     string
	Dose         string
	TimeOfDay    string    // canonical HH:MM
	StartAt      time.Time // inclusive window start
	EndAt        time.Time // exclusive window end
	Channel      delivery.Channel
	Ledger       Ledger
	Token        string
	Snoozed      bool
	ParentID     uuid.NullUUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DueAt reports whether the reminder fires at the given canonical
// instant, at minute resolution. The Postgres due query mirrors this.
func (r *Reminder) DueAt(now time.Time) bool {
	now = now.UTC().Truncate(time.Minute)
	if now.Before(r.StartAt) || !now.Before(r.EndAt) {
		return false
	}
	return now.Format(ClockLayout) == r.TimeOfDay
}

// Body is the base notification text for this reminder's drug.
func (r *Reminder) Body() string {
	return fmt.Sprintf("Hey! Remember to take %s of your %s.", r.Dose, r.DrugName)
}

// NewToken generates a short URL-safe access token for reminder links.
func NewToken() string {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("reminder token entropy unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// OrdinalSuffix formats a dose-of-day number as 1st, 2nd, 3rd, 11th...
func OrdinalSuffix(n int) string {
	j, k := n%10, n%100
	switch {
	case j == 1 && k != 11:
		return fmt.Sprintf("%dst", n)
	case j == 2 && k != 12:
		return fmt.Sprintf("%dnd", n)
	case j == 3 && k != 13:
		return fmt.Sprintf("%drd", n)
	}
	return fmt.Sprintf("%dth", n)
}
