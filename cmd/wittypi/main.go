// Command wittypi prints the board status: telemetry, RTC time, action
// reason and the currently programmed alarms. It never writes to the device.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tbeckett/wittypid/internal/i2cbus"
	"github.com/tbeckett/wittypid/internal/logging"
	"github.com/tbeckett/wittypid/internal/wittypi"
)

func main() {
	busName := flag.String("bus", "", "I2C bus reference (empty for first available)")
	addr := flag.Uint("addr", 8, "WittyPi I2C address")
	verbose := flag.Bool("v", false, "Print the full configuration register dump")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logging.Init(level)

	bus, err := i2cbus.Open(*busName, uint16(*addr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open I2C bus: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	dev, err := wittypi.New(bus, time.Local)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to probe WittyPi: %v\n", err)
		os.Exit(1)
	}

	status, err := dev.ReadStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read status: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Firmware:        0x%02x (revision 0x%02x)\n", status.FirmwareID, status.FirmwareRevision)
	fmt.Printf("Input voltage:   %.2f V\n", status.VoltageIn)
	fmt.Printf("Output voltage:  %.2f V\n", status.VoltageOut)
	fmt.Printf("Output current:  %.2f A\n", status.CurrentOut)
	fmt.Printf("Output power:    %.2f W\n", status.WattsOut)
	fmt.Printf("Power mode:      %s\n", powerMode(status.PowerModeLDO))
	fmt.Printf("Temperature:     %.2f C\n", status.TemperatureC)

	if rtc, err := dev.RTCDateTime(); err != nil {
		fmt.Printf("RTC time:        unreadable (%v)\n", err)
	} else {
		fmt.Printf("RTC time:        %s\n", rtc.Format(time.RFC3339))
	}

	reason, err := dev.ActionReason()
	if err != nil && !errors.Is(err, wittypi.ErrUnknownReason) {
		fmt.Fprintf(os.Stderr, "failed to read action reason: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Action reason:   %s (0x%02x)\n", reason, uint8(reason))

	printAlarm("Next startup", dev.GetStartupDateTime)
	printAlarm("Next shutdown", dev.GetShutdownDateTime)

	if *verbose {
		dumpConfig(dev)
	}
}

func powerMode(ldo bool) string {
	if ldo {
		return "LDO"
	}
	return "DC-DC"
}

func printAlarm(label string, get func() (*time.Time, error)) {
	t, err := get()
	switch {
	case err != nil:
		fmt.Printf("%-16s unreadable (%v)\n", label+":", err)
	case t == nil:
		fmt.Printf("%-16s disabled\n", label+":")
	default:
		fmt.Printf("%-16s %s\n", label+":", t.Format(time.RFC3339))
	}
}

func dumpConfig(dev *wittypi.Device) {
	fmt.Println()

	boolVal := func(f func() (bool, error)) string {
		v, err := f()
		if err != nil {
			return "?"
		}
		return fmt.Sprintf("%v", v)
	}
	floatVal := func(f func() (float64, error)) string {
		v, err := f()
		if err != nil {
			return "?"
		}
		return fmt.Sprintf("%.2f", v)
	}
	intVal := func(f func() (uint8, error)) string {
		v, err := f()
		if err != nil {
			return "?"
		}
		return fmt.Sprintf("%d", v)
	}

	fmt.Printf("default_on:                 %s\n", boolVal(dev.DefaultOn))
	fmt.Printf("default_on_delay:           %s\n", intVal(dev.DefaultOnDelay))
	fmt.Printf("power_cut_delay:            %s\n", floatVal(dev.PowerCutDelay))
	fmt.Printf("low_voltage_threshold:      %s\n", floatVal(dev.LowVoltageThreshold))
	fmt.Printf("recovery_voltage:           %s\n", floatVal(dev.RecoveryVoltage))
	fmt.Printf("pulse_interval:             %s\n", intVal(dev.PulseInterval))
	fmt.Printf("blink_led:                  %s\n", intVal(dev.BlinkLED))
	fmt.Printf("dummy_load:                 %s\n", intVal(dev.DummyLoad))
	fmt.Printf("adj_vin:                    %s\n", floatVal(dev.AdjVoltageIn))
	fmt.Printf("adj_vout:                   %s\n", floatVal(dev.AdjVoltageOut))
	fmt.Printf("adj_iout:                   %s\n", floatVal(dev.AdjCurrentOut))
	fmt.Printf("ignore_power_mode:          %s\n", boolVal(dev.IgnorePowerMode))
	fmt.Printf("ignore_lv_shutdown:         %s\n", boolVal(dev.IgnoreLowVoltageShutdown))
	fmt.Printf("guaranteed_wake:            %s\n", boolVal(dev.GuaranteedWake))
	fmt.Printf("rtc_temp_compensation:      %s\n", boolVal(dev.RTCTemperatureCompensation))
	fmt.Printf("alarm1_flag:                %s\n", boolVal(dev.Alarm1Flag))
	fmt.Printf("alarm2_flag:                %s\n", boolVal(dev.Alarm2Flag))
}
