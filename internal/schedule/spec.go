package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingLocation means a window anchors on sunrise or sunset but the
	// configuration carries no coordinates. Detected at load, not evaluation.
	ErrMissingLocation = errors.New("schedule uses sunrise/sunset but lat/lon are not configured")

	// ErrNoSunEvent means the sun does not rise or set at the configured
	// location on the evaluated date (polar day or night). A reported
	// condition, never a crash.
	ErrNoSunEvent = errors.New("no sunrise/sunset at configured location on this date")

	// ErrInvalidSpec means a start/stop spec string could not be parsed.
	ErrInvalidSpec = errors.New("invalid time spec")
)

// Anchor selects how a TimeSpec resolves to an instant on a given date.
type Anchor int

const (
	AnchorAbsolute Anchor = iota
	AnchorSunrise
	AnchorSunset
)

func (a Anchor) String() string {
	switch a {
	case AnchorSunrise:
		return "sunrise"
	case AnchorSunset:
		return "sunset"
	}
	return "absolute"
}

// TimeSpec is one window boundary: either an absolute time of day or an
// astronomical anchor with a signed offset.
type TimeSpec struct {
	Anchor Anchor

	// Hour/Minute for AnchorAbsolute.
	Hour   int
	Minute int

	// Offset for astronomical anchors.
	Offset time.Duration
}

func (s TimeSpec) Astronomical() bool {
	return s.Anchor != AnchorAbsolute
}

func (s TimeSpec) String() string {
	if !s.Astronomical() {
		return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
	}
	if s.Offset == 0 {
		return s.Anchor.String()
	}
	sign := "+"
	off := s.Offset
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%s%s%02d:%02d", s.Anchor, sign, int(off.Hours()), int(off.Minutes())%60)
}

// ParseTimeSpec parses "HH:MM" or "sunrise|sunset[+|-HH:MM]".
func ParseTimeSpec(raw string) (TimeSpec, error) {
	s := strings.TrimSpace(raw)

	for _, anchor := range []struct {
		prefix string
		anchor Anchor
	}{
		{"sunrise", AnchorSunrise},
		{"sunset", AnchorSunset},
	} {
		if !strings.HasPrefix(s, anchor.prefix) {
			continue
		}
		rest := s[len(anchor.prefix):]
		if rest == "" {
			return TimeSpec{Anchor: anchor.anchor}, nil
		}
		sign := time.Duration(1)
		switch rest[0] {
		case '+':
		case '-':
			sign = -1
		default:
			return TimeSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, raw)
		}
		h, m, err := parseHHMM(rest[1:])
		if err != nil {
			return TimeSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, raw)
		}
		return TimeSpec{
			Anchor: anchor.anchor,
			Offset: sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		}, nil
	}

	h, m, err := parseHHMM(s)
	if err != nil {
		return TimeSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, raw)
	}
	if h > 23 || m > 59 {
		return TimeSpec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, raw)
	}
	return TimeSpec{Anchor: AnchorAbsolute, Hour: h, Minute: m}, nil
}

func parseHHMM(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return h, m, nil
}

// ParseDelay parses a "HH:MM" duration, the format the schedule file uses for
// button_delay.
func ParseDelay(s string) (time.Duration, error) {
	h, m, err := parseHHMM(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
