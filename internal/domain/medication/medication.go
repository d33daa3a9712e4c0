package medication

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Frequency is the administration frequency code chosen by the caregiver.
type Frequency string

const (
	FrequencyOnceDaily      Frequency = "ONCE_DAILY"
	FrequencyTwiceDaily     Frequency = "TWICE_DAILY"
	FrequencyThriceDaily    Frequency = "THRICE_DAILY"
	FrequencyFourTimesDaily Frequency = "FOUR_TIMES_DAILY"
	// FrequencyCustom means the caregiver supplies explicit times.
	FrequencyCustom Frequency = "CUSTOM"
)

// StandardTimes maps each standard frequency code to its canonical local
// administration times.
var StandardTimes = map[Frequency][]string{
	FrequencyOnceDaily:      {"09:00"},
	FrequencyTwiceDaily:     {"09:00", "21:00"},
	FrequencyThriceDaily:    {"08:00", "14:00", "20:00"},
	FrequencyFourTimesDaily: {"06:00", "12:00", "18:00", "23:00"},
}

// DoseSpec is one drug line of a medication as submitted by a caregiver.
// Dates and times are in the caregiver's local time zone.
type DoseSpec struct {
	DrugName  string    `json:"drugName"`
	Dose      string    `json:"dose"`
	Frequency Frequency `json:"frequency"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Times     []string  `json:"times,omitempty"`
}

// DrugInfo is the list of dose specs, stored as JSONB.
type DrugInfo []DoseSpec

func (d DrugInfo) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DrugInfo) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = nil
		return nil
	}
	return fmt.Errorf("unsupported drug info source type %T", src)
}

// Medication is a named set of dose specs owned by one user.
type Medication struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	DrugInfo  DrugInfo
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationError names the dose spec field that failed validation. One
// failing field aborts the whole batch.
type ValidationError struct {
	Drug   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Drug == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s for %s: %s", e.Field, e.Drug, e.Reason)
}

// NormalizeClock pads a submitted H:MM time to zero-padded HH:MM.
func NormalizeClock(clock string) string {
	if len(clock) == 4 {
		return "0" + clock
	}
	return clock
}

// Validate checks the whole drug info batch: drug names present and unique
// (case/trim-insensitive), frequency codes known, dates well-formed and
// ordered, custom times valid HH:MM. Custom times are normalized,
// deduplicated and sorted in place.
func (d DrugInfo) Validate() error {
	if len(d) == 0 {
		return &ValidationError{Field: "drugInfo", Reason: "drug information should be a non-empty list"}
	}

	seen := make(map[string]bool, len(d))
	for i := range d {
		spec := &d[i]
		name := strings.TrimSpace(spec.DrugName)
		if name == "" {
			return &ValidationError{Field: "drugName", Reason: "drug name is required"}
		}
		key := strings.ToLower(name)
		if seen[key] {
			return &ValidationError{Drug: name, Field: "drugName", Reason: "duplicate drug in medication"}
		}
		seen[key] = true

		if strings.TrimSpace(spec.Dose) == "" {
			return &ValidationError{Drug: name, Field: "dose", Reason: "dosage is required"}
		}

		switch spec.Frequency {
		case FrequencyOnceDaily, FrequencyTwiceDaily, FrequencyThriceDaily, FrequencyFourTimesDaily:
			if len(spec.Times) > 0 {
				return &ValidationError{Drug: name, Field: "times", Reason: "administration times are only allowed with CUSTOM frequency"}
			}
		case FrequencyCustom:
			if len(spec.Times) == 0 {
				return &ValidationError{Drug: name, Field: "times", Reason: "administration times are required for CUSTOM frequency"}
			}
			normalized, err := normalizeTimes(spec.Times)
			if err != nil {
				return &ValidationError{Drug: name, Field: "times", Reason: err.Error()}
			}
			spec.Times = normalized
		default:
			return &ValidationError{Drug: name, Field: "frequency", Reason: fmt.Sprintf("unknown frequency code %q", spec.Frequency)}
		}

		start, err := time.Parse(DateLayout, spec.StartDate)
		if err != nil {
			return &ValidationError{Drug: name, Field: "startDate", Reason: "date should be in YYYY-MM-DD format"}
		}
		end, err := time.Parse(DateLayout, spec.EndDate)
		if err != nil {
			return &ValidationError{Drug: name, Field: "endDate", Reason: "date should be in YYYY-MM-DD format"}
		}
		if end.Before(start) {
			return &ValidationError{Drug: name, Field: "endDate", Reason: "end date should not be before start date"}
		}
	}
	return nil
}

// ResolvedTimes returns the local administration times for a validated
// spec: the fixed lookup for standard codes, the caregiver's own times
// for CUSTOM.
func (s DoseSpec) ResolvedTimes() []string {
	if s.Frequency == FrequencyCustom {
		return s.Times
	}
	return StandardTimes[s.Frequency]
}

func normalizeTimes(times []string) ([]string, error) {
	set := make(map[string]bool, len(times))
	out := make([]string, 0, len(times))
	for _, t := range times {
		t = NormalizeClock(strings.TrimSpace(t))
		if _, err := time.Parse(ClockLayout, t); err != nil {
			return nil, fmt.Errorf("%q is not a valid HH:MM time", t)
		}
		if set[t] {
			continue
		}
		set[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
