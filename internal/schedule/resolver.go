// Package schedule resolves a declarative set of named time windows, bounded
// by clock times or sunrise/sunset offsets, into concrete power decisions:
// whether the host should be on now, and when the next startup and shutdown
// fall. Evaluation is a pure function of (configuration, reference instant);
// overlapping windows are a logical OR and never carry priority semantics.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/rs/zerolog/log"
)

// Window is one named on-interval. A stop earlier in the day than its start
// spans midnight into the following date.
type Window struct {
	Name  string
	Start TimeSpec
	Stop  TimeSpec
}

// Config is the plain structured schedule configuration, already parsed from
// whatever file format carried it.
type Config struct {
	// Lat/Lon are required only when a window uses an astronomical anchor.
	Lat *float64
	Lon *float64

	// ForceOn bypasses resolution entirely: always active, no alarms.
	ForceOn bool

	// ButtonDelay is the minimum on-time granted after a manual power-on.
	// Zero disables the grace period.
	ButtonDelay time.Duration

	// Windows may be empty (never active unless ForceOn) and may overlap.
	Windows []Window
}

// Resolver evaluates a Config. Immutable after New except for the manual
// hold, which the daemon installs once at startup.
type Resolver struct {
	cfg  Config
	tz   *time.Location
	hold *span
}

type span struct {
	start, stop time.Time
}

func (s span) contains(t time.Time) bool {
	return !t.Before(s.start) && t.Before(s.stop)
}

// New validates cfg and returns a resolver evaluating in tz (nil for Local).
// An astronomical anchor without coordinates fails here with
// ErrMissingLocation, not later during evaluation.
func New(cfg Config, tz *time.Location) (*Resolver, error) {
	if tz == nil {
		tz = time.Local
	}

	needsLocation := false
	for _, w := range cfg.Windows {
		if w.Start.Astronomical() || w.Stop.Astronomical() {
			needsLocation = true
		}
	}
	if needsLocation && (cfg.Lat == nil || cfg.Lon == nil) {
		return nil, ErrMissingLocation
	}

	log.Info().
		Bool("force_on", cfg.ForceOn).
		Dur("button_delay", cfg.ButtonDelay).
		Int("windows", len(cfg.Windows)).
		Msg("Schedule configuration loaded")
	for _, w := range cfg.Windows {
		log.Debug().
			Str("window", w.Name).
			Str("start", w.Start.String()).
			Str("stop", w.Stop.String()).
			Msg("Schedule window")
	}

	return &Resolver{cfg: cfg, tz: tz}, nil
}

// ButtonDelay returns the configured manual power-on grace period.
func (r *Resolver) ButtonDelay() time.Duration {
	return r.cfg.ButtonDelay
}

// ForceOn reports whether resolution is bypassed entirely.
func (r *Resolver) ForceOn() bool {
	return r.cfg.ForceOn
}

// SetManualHold keeps the system active from bootTime until bootTime plus the
// button delay, deferring the next shutdown even when every window's stop has
// already passed. No-op when no button delay is configured.
func (r *Resolver) SetManualHold(bootTime time.Time) {
	if r.cfg.ButtonDelay <= 0 {
		return
	}
	r.hold = &span{start: bootTime, stop: bootTime.Add(r.cfg.ButtonDelay)}
}

// resolveSpec turns a boundary spec into an instant on the calendar date of
// anchor (in the resolver timezone).
func (r *Resolver) resolveSpec(spec TimeSpec, anchor time.Time) (time.Time, error) {
	y, m, d := anchor.In(r.tz).Date()

	if !spec.Astronomical() {
		return time.Date(y, m, d, spec.Hour, spec.Minute, 0, 0, r.tz), nil
	}

	rise, set := sunrise.SunriseSunset(*r.cfg.Lat, *r.cfg.Lon, y, m, d)
	ev := rise
	if spec.Anchor == AnchorSunset {
		ev = set
	}
	if ev.IsZero() {
		return time.Time{}, fmt.Errorf("%w: %s on %04d-%02d-%02d", ErrNoSunEvent, spec.Anchor, y, m, d)
	}
	return ev.In(r.tz).Add(spec.Offset), nil
}

// occurrence resolves a window against the calendar date of anchor. A stop
// not after the start is resolved against the following date (the window
// spans midnight).
func (r *Resolver) occurrence(w Window, anchor time.Time) (span, error) {
	start, err := r.resolveSpec(w.Start, anchor)
	if err != nil {
		return span{}, err
	}
	stop, err := r.resolveSpec(w.Stop, anchor)
	if err != nil {
		return span{}, err
	}
	if !stop.After(start) {
		stop, err = r.resolveSpec(w.Stop, anchor.AddDate(0, 0, 1))
		if err != nil {
			return span{}, err
		}
	}
	return span{start: start, stop: stop}, nil
}

// spans collects every window occurrence anchored on the dates from dayFrom
// to dayTo (offsets in days relative to now's date), in window input order
// per date. Unresolvable astronomical occurrences are skipped and reported
// through the returned condition.
func (r *Resolver) spans(now time.Time, dayFrom, dayTo int) ([]span, error) {
	var out []span
	var cond error
	for day := dayFrom; day <= dayTo; day++ {
		anchor := now.AddDate(0, 0, day)
		for _, w := range r.cfg.Windows {
			occ, err := r.occurrence(w, anchor)
			if err != nil {
				cond = err
				continue
			}
			out = append(out, occ)
		}
	}
	return out, cond
}

// Active reports whether the system should be on at now: force-on, a manual
// hold, or any window covering now on its own [start, stop) interval.
// A false verdict comes with a condition when astronomical resolution was
// degraded, so callers know it may be incomplete.
func (r *Resolver) Active(now time.Time) (bool, error) {
	if r.cfg.ForceOn {
		return true, nil
	}
	if r.hold != nil && r.hold.contains(now) {
		return true, nil
	}

	// Yesterday's anchor catches windows spanning midnight into today.
	spans, cond := r.spans(now, -1, 0)
	for _, s := range spans {
		if s.contains(now) {
			return true, nil
		}
	}
	return false, cond
}

// NextStartup returns the earliest window start strictly after now, scanning
// today and tomorrow. Ties resolve by earliest instant, then window input
// order. Absent when force-on is set or nothing is scheduled.
func (r *Resolver) NextStartup(now time.Time) (*time.Time, error) {
	if r.cfg.ForceOn {
		return nil, nil
	}

	spans, cond := r.spans(now, 0, 1)
	var best *time.Time
	for _, s := range spans {
		s := s
		if !s.start.After(now) {
			continue
		}
		if best == nil || s.start.Before(*best) {
			best = &s.start
		}
	}
	if best == nil {
		return nil, cond
	}
	return best, nil
}

// NextShutdown returns the first stop instant after now at which no window
// (and no manual hold) is active anymore. Overlapping windows chain: the walk
// advances through stops that land inside another active window. Absent when
// force-on is set, nothing is scheduled, or the system stays active for the
// next 24 hours.
func (r *Resolver) NextShutdown(now time.Time) (*time.Time, error) {
	if r.cfg.ForceOn {
		return nil, nil
	}

	spans, cond := r.spans(now, -1, 1)

	var stops []time.Time
	for _, s := range spans {
		if s.stop.After(now) {
			stops = append(stops, s.stop)
		}
	}
	if r.hold != nil && r.hold.stop.After(now) {
		stops = append(stops, r.hold.stop)
	}
	if len(stops) == 0 {
		return nil, cond
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Before(stops[j]) })

	for _, stop := range stops {
		if stop.Sub(now) >= 24*time.Hour {
			// Online for over a day; let a later evaluation reschedule.
			return nil, nil
		}
		active, err := r.Active(stop)
		if err != nil {
			cond = err
		}
		if !active {
			stop := stop
			return &stop, nil
		}
	}
	return nil, cond
}
