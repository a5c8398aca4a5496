// Package config carries the daemon's runtime knobs (flags) and loads the
// YAML schedule file into the resolver's plain configuration, validating it
// once here instead of ad hoc at use time.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/tbeckett/wittypid/internal/schedule"
)

type Config struct {
	ScheduleFile string
	LogLevel     zerolog.Level

	// I2C transport. BusName "" selects the first available bus.
	BusName    string
	DeviceAddr uint

	PollInterval   time.Duration
	DriftThreshold time.Duration
	GraceDelay     time.Duration

	// Telemetry sinks. Empty values disable the sink.
	StatsdAddr      string
	StatsdNamespace string
	TelemetryDB     string
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.ScheduleFile, "schedule", "schedule.yml", "Path to YAML schedule configuration")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.BusName, "bus", "", "I2C bus reference (empty for first available)")
	flag.UintVar(&cfg.DeviceAddr, "addr", 8, "WittyPi I2C address")
	flag.DurationVar(&cfg.PollInterval, "poll-interval", 60*time.Second, "Schedule evaluation interval")
	flag.DurationVar(&cfg.DriftThreshold, "drift-threshold", 2*time.Second, "Allowed RTC/system clock drift")
	flag.DurationVar(&cfg.GraceDelay, "grace-delay", 30*time.Second, "Shutdown delay when running outside every window")
	flag.StringVar(&cfg.StatsdAddr, "statsd-addr", "", "DogStatsD address for power telemetry (empty to disable)")
	flag.StringVar(&cfg.StatsdNamespace, "statsd-namespace", "wittypid.", "DogStatsD metric namespace")
	flag.StringVar(&cfg.TelemetryDB, "telemetry-db", "", "Path to sqlite telemetry history (empty to disable)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// scheduleFile is the on-disk YAML shape.
type scheduleFile struct {
	Lat         *float64      `yaml:"lat"`
	Lon         *float64      `yaml:"lon"`
	ForceOn     bool          `yaml:"force_on"`
	ButtonDelay string        `yaml:"button_delay"`
	Schedule    []windowEntry `yaml:"schedule"`
}

type windowEntry struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	Stop  string `yaml:"stop"`
}

// LoadSchedule reads and validates the schedule file. All spec problems are
// collected and reported together. A file without a schedule key at all is
// treated as force-on, matching the daemon's historical behavior; an
// explicitly empty list means "never active".
func LoadSchedule(path string) (schedule.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return schedule.Config{}, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return ParseSchedule(raw)
}

// ParseSchedule parses and validates YAML schedule content.
func ParseSchedule(raw []byte) (schedule.Config, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return schedule.Config{}, fmt.Errorf("failed to parse schedule file: %w", err)
	}

	cfg := schedule.Config{
		Lat:     file.Lat,
		Lon:     file.Lon,
		ForceOn: file.ForceOn,
	}

	if file.ButtonDelay != "" {
		d, err := schedule.ParseDelay(file.ButtonDelay)
		if err != nil {
			log.Warn().Str("button_delay", file.ButtonDelay).Msg("Unparseable button_delay, disabling grace period")
		} else {
			cfg.ButtonDelay = d
		}
	}

	if file.Schedule == nil {
		log.Warn().Msg("Schedule missing in configuration, setting force_on")
		cfg.ForceOn = true
		return cfg, nil
	}

	var problems []string
	for i, entry := range file.Schedule {
		w := schedule.Window{Name: entry.Name}

		start, err := schedule.ParseTimeSpec(entry.Start)
		if err != nil {
			problems = append(problems, fmt.Sprintf("schedule[%d] %q start: %v", i, entry.Name, err))
		}
		stop, err := schedule.ParseTimeSpec(entry.Stop)
		if err != nil {
			problems = append(problems, fmt.Sprintf("schedule[%d] %q stop: %v", i, entry.Name, err))
		}
		w.Start, w.Stop = start, stop

		if (w.Start.Astronomical() || w.Stop.Astronomical()) && (file.Lat == nil || file.Lon == nil) {
			problems = append(problems, fmt.Sprintf("schedule[%d] %q: %v", i, entry.Name, schedule.ErrMissingLocation))
		}

		cfg.Windows = append(cfg.Windows, w)
	}

	if len(problems) > 0 {
		return schedule.Config{}, fmt.Errorf("invalid schedule configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}
