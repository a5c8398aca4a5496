package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbeckett/wittypid/internal/wittypi"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndSince(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := s.Record(base.Add(time.Duration(i)*time.Minute), wittypi.Status{
			VoltageIn:    5.1,
			VoltageOut:   5.0,
			CurrentOut:   0.8,
			WattsOut:     4.0,
			TemperatureC: 31.5,
		})
		require.NoError(t, err)
	}

	all, err := s.Since(base)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].TS.Equal(base))
	assert.InDelta(t, 5.1, all[0].VoltageIn, 1e-9)
	assert.InDelta(t, 4.0, all[2].WattsOut, 1e-9)

	tail, err := s.Since(base.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	require.NoError(t, s.Record(old, wittypi.Status{}))
	require.NoError(t, s.Record(recent, wittypi.Status{}))

	n, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := s.Since(time.Time{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}
