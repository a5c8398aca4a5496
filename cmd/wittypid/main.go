package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbeckett/wittypid/internal/config"
	"github.com/tbeckett/wittypid/internal/decision"
	"github.com/tbeckett/wittypid/internal/i2cbus"
	"github.com/tbeckett/wittypid/internal/logging"
	"github.com/tbeckett/wittypid/internal/metrics"
	"github.com/tbeckett/wittypid/internal/schedule"
	"github.com/tbeckett/wittypid/internal/telemetry"
	"github.com/tbeckett/wittypid/internal/wittypi"
)

// Exit codes consumed by the service unit.
const (
	exitDevice   = 1
	exitSchedule = 2
	exitClock    = 3
)

const (
	fakeHwclockPath = "/etc/fake-hwclock.data"
	timesyncPath    = "/run/systemd/timesync/synchronized"
	telemetryKeep   = 30 * 24 * time.Hour
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	log.Info().
		Str("schedule_file", cfg.ScheduleFile).
		Str("bus", cfg.BusName).
		Uint("addr", cfg.DeviceAddr).
		Msg("Starting wittypid")

	metrics.Init(cfg.StatsdAddr, cfg.StatsdNamespace, nil)

	bus, err := i2cbus.Open(cfg.BusName, uint16(cfg.DeviceAddr))
	if err != nil {
		log.Error().Err(err).Msg("Failed to open I2C bus")
		os.Exit(exitDevice)
	}
	defer bus.Close()

	dev, err := wittypi.New(bus, time.Local)
	if err != nil {
		log.Error().Err(err).Msg("Failed to probe WittyPi, check device connection")
		os.Exit(exitDevice)
	}

	reason, err := dev.ActionReason()
	if err != nil && !errors.Is(err, wittypi.ErrUnknownReason) {
		log.Error().Err(err).Msg("Failed to read action reason")
		os.Exit(exitDevice)
	}
	log.Info().Str("reason", reason.String()).Msg("WittyPi probed")

	if err := dev.ClearFlags(); err != nil {
		log.Error().Err(err).Msg("Failed to clear alarm flags")
		os.Exit(exitDevice)
	}

	// The board keeps the host powered whenever power is present, with a
	// short default-on delay and a 30s cushion before cutting power after a
	// shutdown.
	if err := dev.SetDefaultOn(true); err != nil {
		log.Error().Err(err).Msg("Failed to set default-on")
		os.Exit(exitDevice)
	}
	if err := dev.SetDefaultOnDelay(1); err != nil {
		log.Error().Err(err).Msg("Failed to set default-on delay")
		os.Exit(exitDevice)
	}
	if err := dev.SetPowerCutDelay(30); err != nil {
		log.Error().Err(err).Msg("Failed to set power cut delay")
		os.Exit(exitDevice)
	}

	gateOnClock(dev, cfg.DriftThreshold)

	schedCfg, err := config.LoadSchedule(cfg.ScheduleFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load schedule configuration")
		os.Exit(exitSchedule)
	}
	res, err := schedule.New(schedCfg, time.Local)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build schedule resolver")
		os.Exit(exitSchedule)
	}

	if reason.ManualPowerOn() {
		boot := time.Now()
		res.SetManualHold(boot)
		log.Info().
			Str("reason", reason.String()).
			Time("hold_until", boot.Add(res.ButtonDelay())).
			Msg("Manual power-on, holding before scheduled shutdown")
	}

	var store *telemetry.Store
	if cfg.TelemetryDB != "" {
		store, err = telemetry.Open(cfg.TelemetryDB)
		if err != nil {
			log.Warn().Err(err).Msg("Telemetry history disabled")
		} else {
			defer store.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for running := true; running; {
		runCycle(dev, res, store, cfg)

		select {
		case <-ctx.Done():
			running = false
		case <-ticker.C:
		}
	}

	// Leave the next startup programmed, never a pending shutdown.
	if err := dev.SetShutdownDateTime(nil); err != nil {
		log.Error().Err(err).Msg("Failed to disable shutdown alarm on exit")
	}
	now, err := dev.RTCDateTime()
	if err == nil {
		next, cond := res.NextStartup(now)
		if cond != nil {
			log.Warn().Err(cond).Msg("Startup alarm resolution degraded on exit")
		}
		if err := dev.SetStartupDateTime(next); err != nil {
			log.Error().Err(err).Msg("Failed to program startup alarm on exit")
		}
	}
	log.Info().Msg("Bye from wittypid")
}

// gateOnClock refuses to schedule against an implausible or drifting RTC:
// better to exit and let the operator (or timesync) fix the clock than to
// program alarms years off target.
func gateOnClock(dev *wittypi.Device, threshold time.Duration) {
	rtc, err := dev.RTCDateTime()
	if err != nil {
		log.Error().Err(err).Msg("RTC is unset or unreadable. Connect to GPS/internet and wait for timesync")
		os.Exit(exitClock)
	}

	if floor, err := fakeHwclock(); err == nil && rtc.Before(floor) {
		log.Error().
			Time("rtc", rtc).
			Time("fake_hwclock", floor).
			Msg("RTC is implausible. Connect to GPS/internet and wait for timesync")
		os.Exit(exitClock)
	}

	match, err := dev.RTCSysclockMatch(threshold)
	if err != nil {
		log.Error().Err(err).Msg("RTC drift check failed")
		os.Exit(exitClock)
	}
	if !match {
		log.Error().Msg("RTC does not match system clock, check system configuration")
		os.Exit(exitClock)
	}

	markTimesync()
}

func runCycle(dev *wittypi.Device, res *schedule.Resolver, store *telemetry.Store, cfg config.Config) {
	rep, err := decision.Evaluate(dev, res, decision.Options{
		DriftThreshold: cfg.DriftThreshold,
		GraceDelay:     cfg.GraceDelay,
	})
	if err != nil {
		if errors.Is(err, wittypi.ErrClockUntrusted) {
			log.Error().Err(err).Msg("RTC no longer trusted, exiting")
			os.Exit(exitClock)
		}
		log.Error().Err(err).Msg("Evaluation failed")
		return
	}

	ev := log.Info().
		Time("now", rep.Now).
		Bool("active", rep.Active)
	if rep.NextStartup != nil {
		ev = ev.Time("next_startup", *rep.NextStartup)
	}
	if rep.NextShutdown != nil {
		ev = ev.Time("next_shutdown", *rep.NextShutdown)
	}
	ev.Msg("Alarms programmed")

	if rep.Condition != nil {
		log.Warn().Err(rep.Condition).Msg("Evaluation degraded")
	}

	activeGauge := 0.0
	if rep.Active {
		activeGauge = 1
	}
	metrics.Gauge("schedule.active", activeGauge)

	if status, err := dev.ReadStatus(); err != nil {
		log.Warn().Err(err).Msg("Failed to read status telemetry")
	} else {
		metrics.Gauge("power.voltage_in", status.VoltageIn)
		metrics.Gauge("power.voltage_out", status.VoltageOut)
		metrics.Gauge("power.current_out", status.CurrentOut)
		metrics.Gauge("power.watts_out", status.WattsOut)
		metrics.Gauge("power.temperature_c", status.TemperatureC)

		if store != nil {
			if err := store.Record(rep.Now, status); err != nil {
				log.Warn().Err(err).Msg("Failed to record telemetry")
			}
			if _, err := store.Prune(telemetryKeep); err != nil {
				log.Warn().Err(err).Msg("Failed to prune telemetry")
			}
		}
	}

	if rep.ShutdownRequired {
		log.Warn().Str("reason", rep.Reason.String()).Msg("Shutdown-class alarm fired while running, shutting down")
		if err := exec.Command("shutdown", "0").Run(); err != nil {
			log.Error().Err(err).Msg("Failed to invoke shutdown")
		}
	}
}

// fakeHwclock reads the timestamp fake-hwclock persists across reboots; any
// RTC value before it predates the last clean shutdown and cannot be right.
func fakeHwclock() (time.Time, error) {
	data, err := os.ReadFile(fakeHwclockPath)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", strings.TrimSpace(string(data)), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	log.Info().Time("fake_hwclock", ts).Msg("Read fake-hwclock")
	return ts, nil
}

// markTimesync tells systemd-timesyncd consumers the clock is trustworthy.
func markTimesync() {
	if _, err := os.Stat(filepath.Dir(timesyncPath)); err != nil {
		log.Warn().Err(err).Msg("Timesync runtime directory missing, skipping marker")
		return
	}
	f, err := os.OpenFile(timesyncPath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to touch timesync marker")
		return
	}
	f.Close()
	log.Info().Str("path", timesyncPath).Msg("RTC is valid, timesync marker set")
}
