package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSpec(t *testing.T, s string) TimeSpec {
	t.Helper()
	spec, err := ParseTimeSpec(s)
	require.NoError(t, err)
	return spec
}

func window(t *testing.T, name, start, stop string) Window {
	t.Helper()
	return Window{Name: name, Start: mustSpec(t, start), Stop: mustSpec(t, stop)}
}

func newResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	r, err := New(cfg, time.UTC)
	require.NoError(t, err)
	return r
}

func at(h, m int) time.Time {
	return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC)
}

func TestActiveInsideWindow(t *testing.T) {
	r := newResolver(t, Config{Windows: []Window{window(t, "day", "08:00", "20:00")}})

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(7, 59), false},
		{at(8, 0), true},  // start inclusive
		{at(12, 0), true},
		{at(19, 59), true},
		{at(20, 0), false}, // stop exclusive
		{at(23, 0), false},
	}
	for _, tc := range tests {
		got, err := r.Active(tc.now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "at %s", tc.now)
	}
}

func TestActiveWindowSpanningMidnight(t *testing.T) {
	r := newResolver(t, Config{Windows: []Window{window(t, "night", "22:00", "06:00")}})

	active, err := r.Active(at(23, 0))
	require.NoError(t, err)
	assert.True(t, active)

	active, err = r.Active(at(2, 0)) // morning after
	require.NoError(t, err)
	assert.True(t, active)

	active, err = r.Active(at(12, 0))
	require.NoError(t, err)
	assert.False(t, active)
}

func TestNextStartup(t *testing.T) {
	r := newResolver(t, Config{Windows: []Window{window(t, "day", "08:00", "20:00")}})

	// Before today's start: today 08:00.
	got, err := r.NextStartup(at(7, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at(8, 0)), "got %s", got)

	// After today's start: tomorrow 08:00.
	got, err = r.NextStartup(at(21, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at(8, 0).AddDate(0, 0, 1)), "got %s", got)

	// Exactly at the start: strictly after, so tomorrow.
	got, err = r.NextStartup(at(8, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at(8, 0).AddDate(0, 0, 1)), "got %s", got)
}

func TestNextShutdownSingleWindow(t *testing.T) {
	r := newResolver(t, Config{Windows: []Window{window(t, "day", "08:00", "20:00")}})

	got, err := r.NextShutdown(at(12, 0))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at(20, 0)), "got %s", got)
}

func TestNextShutdownChainsOverlappingWindows(t *testing.T) {
	// The stop of s1 lands inside s2, so the walk has to carry on to s2's
	// stop, and from there through s3 and s4 to the end of the day.
	r := newResolver(t, Config{Windows: []Window{
		window(t, "s1", "00:00", "02:00"),
		window(t, "s2", "01:00", "05:00"),
		window(t, "s3", "03:00", "04:00"),
		window(t, "s4", "05:00", "23:59"),
	}})

	got, err := r.NextShutdown(at(0, 30))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(at(23, 59)), "got %s", got)

	next, err := r.NextStartup(at(0, 30))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(at(1, 0)), "got %s", next)

	active, err := r.Active(at(4, 30))
	require.NoError(t, err)
	assert.True(t, active)
}

func TestForceOn(t *testing.T) {
	r := newResolver(t, Config{
		ForceOn: true,
		Windows: []Window{window(t, "day", "08:00", "20:00")},
	})

	for _, now := range []time.Time{at(0, 0), at(12, 0), at(23, 59)} {
		active, err := r.Active(now)
		require.NoError(t, err)
		assert.True(t, active)
	}

	next, err := r.NextStartup(at(7, 0))
	require.NoError(t, err)
	assert.Nil(t, next)

	stop, err := r.NextShutdown(at(12, 0))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestEmptySchedule(t *testing.T) {
	r := newResolver(t, Config{})

	active, err := r.Active(at(12, 0))
	require.NoError(t, err)
	assert.False(t, active)

	next, err := r.NextStartup(at(12, 0))
	require.NoError(t, err)
	assert.Nil(t, next)

	stop, err := r.NextShutdown(at(12, 0))
	require.NoError(t, err)
	assert.Nil(t, stop)
}

func TestManualHoldDefersShutdown(t *testing.T) {
	r := newResolver(t, Config{
		ButtonDelay: 30 * time.Minute,
		Windows:     []Window{window(t, "day", "08:00", "20:00")},
	})

	// Powered on manually at 21:00, after the window closed.
	boot := at(21, 0)
	r.SetManualHold(boot)

	active, err := r.Active(at(21, 5))
	require.NoError(t, err)
	assert.True(t, active)

	stop, err := r.NextShutdown(boot)
	require.NoError(t, err)
	require.NotNil(t, stop)
	assert.True(t, stop.Equal(at(21, 30)), "got %s", stop)

	// Once the hold lapses the schedule rules again.
	active, err = r.Active(at(21, 30))
	require.NoError(t, err)
	assert.False(t, active)
}

func TestManualHoldRequiresButtonDelay(t *testing.T) {
	r := newResolver(t, Config{Windows: []Window{window(t, "day", "08:00", "20:00")}})

	r.SetManualHold(at(21, 0))
	active, err := r.Active(at(21, 5))
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMissingLocationDetectedAtLoad(t *testing.T) {
	_, err := New(Config{
		Windows: []Window{window(t, "dawn", "sunrise-01:00", "12:00")},
	}, time.UTC)
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestAstronomicalWindow(t *testing.T) {
	lat, lon := 50.85318, 8.78735
	r := newResolver(t, Config{
		Lat:     &lat,
		Lon:     &lon,
		Windows: []Window{window(t, "dawn", "sunrise-01:00", "12:00")},
	})

	// Midsummer at a mid-European latitude: sunrise is in the early morning
	// UTC, so the window is open late morning and closed in the afternoon.
	morning := time.Date(2024, 6, 21, 11, 0, 0, 0, time.UTC)
	active, err := r.Active(morning)
	require.NoError(t, err)
	assert.True(t, active)

	afternoon := time.Date(2024, 6, 21, 13, 0, 0, 0, time.UTC)
	active, err = r.Active(afternoon)
	require.NoError(t, err)
	assert.False(t, active)

	// The next start is sunrise-1h on the following date, which must fall
	// within its morning.
	next, err := r.NextStartup(afternoon)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.After(afternoon))
	assert.True(t, next.Before(time.Date(2024, 6, 22, 12, 0, 0, 0, time.UTC)))
}

func TestPolarNightIsReportedNotFatal(t *testing.T) {
	// Svalbard in December: the sun never rises.
	lat, lon := 78.22, 15.65
	r := newResolver(t, Config{
		Lat:     &lat,
		Lon:     &lon,
		Windows: []Window{window(t, "dawn", "sunrise", "12:00")},
	})

	polar := time.Date(2024, 12, 21, 10, 0, 0, 0, time.UTC)

	active, err := r.Active(polar)
	assert.False(t, active)
	assert.ErrorIs(t, err, ErrNoSunEvent)

	next, err := r.NextStartup(polar)
	assert.Nil(t, next)
	assert.ErrorIs(t, err, ErrNoSunEvent)
}
