// Package decision glues the hardware accessor and the schedule resolver
// together: one evaluation decides whether the host should currently be on,
// programs both alarm slots for the next transitions, and acknowledges
// processed alarm flags. The daemon drives it; policy about exit codes and
// actually shutting the host down stays out there.
package decision

import (
	"errors"
	"fmt"
	"time"

	"github.com/tbeckett/wittypid/internal/schedule"
	"github.com/tbeckett/wittypid/internal/wittypi"
)

// Report is the outcome of one evaluation round.
type Report struct {
	// Now is the RTC instant the evaluation was anchored on.
	Now time.Time

	// Reason is why the board last powered the host on or off.
	Reason wittypi.ActionReason

	// Active is the schedule verdict at Now.
	Active bool

	// NextStartup/NextShutdown are the instants programmed into the alarm
	// slots; nil means the slot was disabled.
	NextStartup  *time.Time
	NextShutdown *time.Time

	// Condition accumulates non-fatal degradations such as an unresolvable
	// sunrise/sunset or an unknown action reason; match with errors.Is.
	Condition error

	// ShutdownRequired is set when a shutdown-class alarm already fired and
	// the host is still running; the daemon should shut down now.
	ShutdownRequired bool
}

// Options tunes an evaluation round.
type Options struct {
	// DriftThreshold for the RTC/system clock comparison; zero means the
	// device default of 2s.
	DriftThreshold time.Duration

	// GraceDelay is applied when the evaluation finds the system running
	// outside every window: the shutdown alarm is set this far in the
	// future instead of immediately.
	GraceDelay time.Duration
}

// Evaluate runs one decision round against dev using the resolver.
//
// The RTC is checked against the system clock first; a drifted or unreadable
// hardware clock yields wittypi.ErrClockUntrusted and nothing is programmed.
// Alarm flags are cleared after programming so a processed alarm cannot
// re-trigger on the next round.
func Evaluate(dev *wittypi.Device, res *schedule.Resolver, opts Options) (Report, error) {
	var rep Report

	match, err := dev.RTCSysclockMatch(opts.DriftThreshold)
	if err != nil {
		return rep, fmt.Errorf("%w: %v", wittypi.ErrClockUntrusted, err)
	}
	if !match {
		return rep, fmt.Errorf("%w: drift above threshold", wittypi.ErrClockUntrusted)
	}

	rep.Reason, err = dev.ActionReason()
	if err != nil {
		if !errors.Is(err, wittypi.ErrUnknownReason) {
			return rep, err
		}
		rep.Condition = err
	}

	rep.Now, err = dev.RTCDateTime()
	if err != nil {
		return rep, err
	}

	rep.Active, err = res.Active(rep.Now)
	rep.Condition = errors.Join(rep.Condition, err)

	rep.NextStartup, err = res.NextStartup(rep.Now)
	rep.Condition = errors.Join(rep.Condition, err)
	rep.NextShutdown, err = res.NextShutdown(rep.Now)
	rep.Condition = errors.Join(rep.Condition, err)

	// Running outside every window: schedule the shutdown a grace delay out
	// rather than at an instant that already passed.
	if !rep.Active && !res.ForceOn() && opts.GraceDelay > 0 {
		t := rep.Now.Add(opts.GraceDelay)
		rep.NextShutdown = &t
	}

	// A shutdown-class alarm fired and we are still up.
	if rep.Active {
		switch rep.Reason {
		case wittypi.ReasonAlarmShutdown, wittypi.ReasonLowVoltage, wittypi.ReasonOverTemperature:
			rep.ShutdownRequired = true
		}
	}

	if err := dev.SetStartupDateTime(rep.NextStartup); err != nil {
		return rep, err
	}
	if err := dev.SetShutdownDateTime(rep.NextShutdown); err != nil {
		return rep, err
	}
	if err := dev.ClearFlags(); err != nil {
		return rep, err
	}

	return rep, nil
}
