package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestLocalToCanonical(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		loc   string
		want  time.Time
	}{
		{
			name:  "utc is identity",
			date:  "2026-09-01",
			clock: "09:00",
			loc:   "UTC",
			want:  time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name:  "positive offset shifts earlier",
			date:  "2026-09-01",
			clock: "09:00",
			loc:   "Asia/Kolkata", // UTC+5:30
			want:  time.Date(2026, 9, 1, 3, 30, 0, 0, time.UTC),
		},
		{
			name:  "early local morning crosses to previous canonical day",
			date:  "2026-09-01",
			clock: "01:00",
			loc:   "Asia/Tokyo", // UTC+9
			want:  time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC),
		},
		{
			name:  "late local evening crosses to next canonical day",
			date:  "2026-09-01",
			clock: "23:00",
			loc:   "America/New_York", // UTC-4 in September
			want:  time.Date(2026, 9, 2, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalToCanonical(tt.date, tt.clock, mustLoc(t, tt.loc))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestLocalToCanonicalInvalid(t *testing.T) {
	_, err := LocalToCanonical("2026-13-01", "09:00", time.UTC)
	assert.Error(t, err)
}

func TestCanonicalToLocalRoundTrip(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	canonical, err := LocalToCanonical("2026-09-01", "01:00", loc)
	require.NoError(t, err)

	date, clock := CanonicalToLocal(canonical, loc)
	assert.Equal(t, "2026-09-01", date)
	assert.Equal(t, "01:00", clock)
}

func TestDateKeyAndClock(t *testing.T) {
	loc := mustLoc(t, "Asia/Tokyo")
	instant := time.Date(2026, 9, 1, 1, 0, 0, 0, loc)

	// Keys are always canonical, regardless of the instant's zone.
	assert.Equal(t, "2026-08-31", DateKey(instant))
	assert.Equal(t, "16:00", Clock(instant))
}

func TestOccurrenceAt(t *testing.T) {
	got, err := OccurrenceAt("2026-09-01", "09:30")
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC).Equal(got))

	// Stored clocks are zero-padded; unpadded or truncated inputs are
	// corrupted data, not alternate formats.
	_, err = OccurrenceAt("2026-09-01", "9:30")
	assert.Error(t, err)
	_, err = OccurrenceAt("2026-9-01", "09:30")
	assert.Error(t, err)
}

func TestSameLocalDay(t *testing.T) {
	loc := mustLoc(t, "America/New_York")

	// 23:30 and 23:50 local are one canonical day apart but the same
	// local day.
	a := time.Date(2026, 9, 2, 3, 30, 0, 0, time.UTC)
	b := time.Date(2026, 9, 2, 3, 50, 0, 0, time.UTC)
	assert.True(t, SameLocalDay(a, b, loc))

	// 19:50 vs 20:10 local spans local midnight in Tokyo terms; in New
	// York it's still the same evening.
	c := time.Date(2026, 9, 1, 23, 50, 0, 0, time.UTC)
	d := time.Date(2026, 9, 2, 0, 10, 0, 0, time.UTC)
	assert.True(t, SameLocalDay(c, d, loc))
	assert.False(t, SameLocalDay(c, d, time.UTC))
}
