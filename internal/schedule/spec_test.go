package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		in   string
		want TimeSpec
	}{
		{"08:00", TimeSpec{Anchor: AnchorAbsolute, Hour: 8, Minute: 0}},
		{"23:59", TimeSpec{Anchor: AnchorAbsolute, Hour: 23, Minute: 59}},
		{"00:00", TimeSpec{Anchor: AnchorAbsolute}},
		{"sunrise", TimeSpec{Anchor: AnchorSunrise}},
		{"sunset", TimeSpec{Anchor: AnchorSunset}},
		{"sunrise-01:00", TimeSpec{Anchor: AnchorSunrise, Offset: -time.Hour}},
		{"sunset+00:30", TimeSpec{Anchor: AnchorSunset, Offset: 30 * time.Minute}},
		{"sunrise+02:15", TimeSpec{Anchor: AnchorSunrise, Offset: 2*time.Hour + 15*time.Minute}},
		{" 12:30 ", TimeSpec{Anchor: AnchorAbsolute, Hour: 12, Minute: 30}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimeSpec(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimeSpecInvalid(t *testing.T) {
	for _, in := range []string{
		"", "8", "24:00", "12:60", "8:0x", "noon", "sunrise*01:00", "sunset-", "sunrise-90",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTimeSpec(in)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestTimeSpecString(t *testing.T) {
	for _, in := range []string{"08:05", "sunrise", "sunset+00:30", "sunrise-01:00"} {
		spec, err := ParseTimeSpec(in)
		require.NoError(t, err)
		assert.Equal(t, in, spec.String())
	}
}

func TestParseDelay(t *testing.T) {
	d, err := ParseDelay("00:30")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, d)

	d, err = ParseDelay("26:00")
	require.NoError(t, err)
	assert.Equal(t, 26*time.Hour, d)

	_, err = ParseDelay("half an hour")
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
