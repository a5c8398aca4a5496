// Package wittypi drives the WittyPi 4 power controller over its I2C
// register file: electrical and thermal telemetry, configuration and
// calibration registers, the PCF85063 real-time clock, and the two hardware
// alarm slots used to schedule startup and shutdown.
//
// Every accessor is a plain read or write against the bus; nothing is cached
// and no retries happen here. The bus must only ever be touched one register
// at a time — burst reads of the MCU register file return all-ones. Callers
// sharing a Device across goroutines must serialize access themselves, since
// interleaved reads would corrupt multi-register assembly.
package wittypi

import (
	"fmt"
	"time"

	"github.com/tbeckett/wittypid/internal/i2cbus"
)

// Device is a typed accessor over the WittyPi 4 register map.
type Device struct {
	bus i2cbus.Bus
	tz  *time.Location
}

// New probes the device identity register and returns an accessor. The probe
// fails with ErrDeviceUnreachable when the bus transaction fails and with
// ErrDeviceMismatch when the register holds anything but the WittyPi 4
// firmware id. tz is the zone the hardware clock is kept in; nil means UTC.
func New(bus i2cbus.Bus, tz *time.Location) (*Device, error) {
	if tz == nil {
		tz = time.UTC
	}
	d := &Device{bus: bus, tz: tz}

	id, err := bus.ReadByte(regID)
	if err != nil {
		return nil, fmt.Errorf("%w: identity probe failed: %v", ErrDeviceUnreachable, err)
	}
	if id != FirmwareID {
		return nil, fmt.Errorf("%w: got 0x%02x, expected 0x%02x", ErrDeviceMismatch, id, FirmwareID)
	}

	return d, nil
}

func (d *Device) readBool(reg uint8) (bool, error) {
	v, err := d.bus.ReadByte(reg)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *Device) writeBool(reg uint8, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return d.bus.WriteByte(reg, b)
}

// readCenti assembles an integer-part register and a hundredths register into
// one value. Two sequential single-byte reads; never a burst.
func (d *Device) readCenti(intReg, decReg uint8) (float64, error) {
	i, err := d.bus.ReadByte(intReg)
	if err != nil {
		return 0, err
	}
	dec, err := d.bus.ReadByte(decReg)
	if err != nil {
		return 0, err
	}
	return float64(i) + float64(dec)/100, nil
}

func (d *Device) FirmwareID() (uint8, error) {
	return d.bus.ReadByte(regID)
}

func (d *Device) FirmwareRevision() (uint8, error) {
	return d.bus.ReadByte(regFwRevision)
}

// VoltageIn returns the supply voltage in volts.
func (d *Device) VoltageIn() (float64, error) {
	return d.readCenti(regVoltageInInt, regVoltageInDec)
}

// VoltageOut returns the output voltage to the host in volts.
func (d *Device) VoltageOut() (float64, error) {
	return d.readCenti(regVoltageOutInt, regVoltageOutDec)
}

// CurrentOut returns the output current in amps.
func (d *Device) CurrentOut() (float64, error) {
	return d.readCenti(regCurrentOutInt, regCurrentOutDec)
}

// WattsOut returns the output power in watts.
func (d *Device) WattsOut() (float64, error) {
	v, err := d.VoltageOut()
	if err != nil {
		return 0, err
	}
	a, err := d.CurrentOut()
	if err != nil {
		return 0, err
	}
	return v * a, nil
}

// PowerModeLDO reports whether the board is powering the host from the LDO.
func (d *Device) PowerModeLDO() (bool, error) {
	return d.readBool(regPowerMode)
}

// LowVoltageShutdown reports whether the last shutdown was caused by low
// input voltage.
func (d *Device) LowVoltageShutdown() (bool, error) {
	return d.readBool(regLVShutdown)
}

func (d *Device) Alarm1Triggered() (bool, error) {
	return d.readBool(regAlarm1Trig)
}

func (d *Device) Alarm2Triggered() (bool, error) {
	return d.readBool(regAlarm2Trig)
}

// ActionReason reads why the board last changed the host power state. An
// undocumented code is reported as ErrUnknownReason together with the raw
// value so callers can decide whether to proceed.
func (d *Device) ActionReason() (ActionReason, error) {
	v, err := d.bus.ReadByte(regActionReason)
	if err != nil {
		return 0, err
	}
	r := ActionReason(v)
	if !r.Valid() {
		return r, fmt.Errorf("%w: 0x%02x", ErrUnknownReason, v)
	}
	return r, nil
}

// Temperature returns the LM75B reading in degrees Celsius. This passthrough
// is the one genuine 16-bit word register on the board: big-endian in the
// sensor, so the SMBus little-endian word arrives byte-swapped and must be
// swapped back before scaling. 1/256 °C per LSB.
func (d *Device) Temperature() (float64, error) {
	w, err := d.bus.ReadWord(regLM75BTemperature)
	if err != nil {
		return 0, err
	}
	return float64(int16(w<<8|w>>8)) / 256, nil
}

// Configuration registers.

func (d *Device) DefaultOn() (bool, error) {
	return d.readBool(regConfDefaultOn)
}

func (d *Device) SetDefaultOn(v bool) error {
	return d.writeBool(regConfDefaultOn, v)
}

// DefaultOnDelay is the delay in seconds before the default-on power-up.
func (d *Device) DefaultOnDelay() (uint8, error) {
	return d.bus.ReadByte(regConfDefaultOnDelay)
}

func (d *Device) SetDefaultOnDelay(seconds uint8) error {
	return d.bus.WriteByte(regConfDefaultOnDelay, seconds)
}

// PulseInterval is the interval in seconds between LED/dummy-load pulses.
func (d *Device) PulseInterval() (uint8, error) {
	return d.bus.ReadByte(regConfPulseInterval)
}

func (d *Device) SetPulseInterval(seconds uint8) error {
	return d.bus.WriteByte(regConfPulseInterval, seconds)
}

// BlinkLED is how long the white LED stays on per pulse, in milliseconds.
func (d *Device) BlinkLED() (uint8, error) {
	return d.bus.ReadByte(regConfBlinkLED)
}

func (d *Device) SetBlinkLED(v uint8) error {
	return d.bus.WriteByte(regConfBlinkLED, v)
}

// DummyLoad is how long the dummy load draws per pulse, in milliseconds.
func (d *Device) DummyLoad() (uint8, error) {
	return d.bus.ReadByte(regConfDummyLoad)
}

func (d *Device) SetDummyLoad(v uint8) error {
	return d.bus.WriteByte(regConfDummyLoad, v)
}

// LowVoltageThreshold returns the low-voltage shutdown threshold in volts;
// 0 means the protection is disabled (stored as 255).
func (d *Device) LowVoltageThreshold() (float64, error) {
	return d.readTenthsThreshold(regConfLowVoltage)
}

func (d *Device) SetLowVoltageThreshold(volts float64) error {
	return d.writeTenthsThreshold(regConfLowVoltage, volts)
}

// RecoveryVoltage returns the voltage at which power is restored after a
// low-voltage shutdown; 0 means disabled.
func (d *Device) RecoveryVoltage() (float64, error) {
	return d.readTenthsThreshold(regConfRecoveryVoltage)
}

func (d *Device) SetRecoveryVoltage(volts float64) error {
	return d.writeTenthsThreshold(regConfRecoveryVoltage, volts)
}

func (d *Device) readTenthsThreshold(reg uint8) (float64, error) {
	v, err := d.bus.ReadByte(reg)
	if err != nil {
		return 0, err
	}
	if v == 255 {
		return 0, nil
	}
	return float64(v) / 10, nil
}

func (d *Device) writeTenthsThreshold(reg uint8, volts float64) error {
	if volts < 0 || volts > 25.4 {
		return fmt.Errorf("%w: threshold %.1fV out of range 0..25.4", ErrInvalidValue, volts)
	}
	v := uint8(255)
	if volts != 0 {
		v = uint8(volts * 10)
	}
	return d.bus.WriteByte(reg, v)
}

// PowerCutDelay is how long the board waits after host shutdown before
// cutting power, in seconds (0..25, 0.1s resolution).
func (d *Device) PowerCutDelay() (float64, error) {
	v, err := d.bus.ReadByte(regConfPowerCutDelay)
	if err != nil {
		return 0, err
	}
	return float64(v) / 10, nil
}

func (d *Device) SetPowerCutDelay(seconds float64) error {
	v := int(seconds * 10)
	if v < 0 {
		v = 0
	}
	if v > 250 {
		v = 250
	}
	return d.bus.WriteByte(regConfPowerCutDelay, uint8(v))
}

// Calibration adjustments: a signed hundredths offset in one byte, negatives
// stored with the firmware's 255 offset. Representable range is -1.27..+1.27.

const adjLimit = 1.27

func decodeAdj(v uint8) float64 {
	if v > 127 {
		return (float64(v) - 255) / 100
	}
	return float64(v) / 100
}

func encodeAdj(adj float64) (uint8, error) {
	if adj < -adjLimit || adj > adjLimit {
		return 0, fmt.Errorf("%w: adjustment %.2f out of range ±%.2f", ErrInvalidValue, adj, adjLimit)
	}
	v := int(adj * 100)
	if v < 0 {
		v += 255
	}
	return uint8(v), nil
}

func (d *Device) readAdj(reg uint8) (float64, error) {
	v, err := d.bus.ReadByte(reg)
	if err != nil {
		return 0, err
	}
	return decodeAdj(v), nil
}

func (d *Device) writeAdj(reg uint8, adj float64) error {
	v, err := encodeAdj(adj)
	if err != nil {
		return err
	}
	return d.bus.WriteByte(reg, v)
}

func (d *Device) AdjVoltageIn() (float64, error)     { return d.readAdj(regConfAdjVin) }
func (d *Device) SetAdjVoltageIn(adj float64) error  { return d.writeAdj(regConfAdjVin, adj) }
func (d *Device) AdjVoltageOut() (float64, error)    { return d.readAdj(regConfAdjVout) }
func (d *Device) SetAdjVoltageOut(adj float64) error { return d.writeAdj(regConfAdjVout, adj) }
func (d *Device) AdjCurrentOut() (float64, error)    { return d.readAdj(regConfAdjIout) }
func (d *Device) SetAdjCurrentOut(adj float64) error { return d.writeAdj(regConfAdjIout, adj) }

// Temperature thresholds: signed degrees Celsius in one byte, firmware
// convention of values above 80 being negative.

func decodeTempPoint(v uint8) int {
	if v > 80 {
		return int(v) - 256
	}
	return int(v)
}

func encodeTempPoint(deg int) (uint8, error) {
	if deg < -45 || deg > 80 {
		return 0, fmt.Errorf("%w: temperature point %d out of range -45..80", ErrInvalidValue, deg)
	}
	if deg < 0 {
		deg += 256
	}
	return uint8(deg), nil
}

func (d *Device) BelowTemperatureThreshold() (int, error) {
	v, err := d.bus.ReadByte(regConfBelowTempPoint)
	if err != nil {
		return 0, err
	}
	return decodeTempPoint(v), nil
}

func (d *Device) SetBelowTemperatureThreshold(deg int) error {
	v, err := encodeTempPoint(deg)
	if err != nil {
		return err
	}
	return d.bus.WriteByte(regConfBelowTempPoint, v)
}

func (d *Device) OverTemperatureThreshold() (int, error) {
	v, err := d.bus.ReadByte(regConfOverTempPoint)
	if err != nil {
		return 0, err
	}
	return decodeTempPoint(v), nil
}

func (d *Device) SetOverTemperatureThreshold(deg int) error {
	v, err := encodeTempPoint(deg)
	if err != nil {
		return err
	}
	return d.bus.WriteByte(regConfOverTempPoint, v)
}

func (d *Device) BelowTemperatureAction() (uint8, error) {
	return d.bus.ReadByte(regConfBelowTempAction)
}

func (d *Device) SetBelowTemperatureAction(v uint8) error {
	return d.bus.WriteByte(regConfBelowTempAction, v)
}

func (d *Device) OverTemperatureAction() (uint8, error) {
	return d.bus.ReadByte(regConfOverTempAction)
}

func (d *Device) SetOverTemperatureAction(v uint8) error {
	return d.bus.WriteByte(regConfOverTempAction, v)
}

func (d *Device) IgnorePowerMode() (bool, error) {
	return d.readBool(regConfIgnorePowerMode)
}

func (d *Device) SetIgnorePowerMode(v bool) error {
	return d.writeBool(regConfIgnorePowerMode, v)
}

func (d *Device) IgnoreLowVoltageShutdown() (bool, error) {
	return d.readBool(regConfIgnoreLVShutdown)
}

func (d *Device) SetIgnoreLowVoltageShutdown(v bool) error {
	return d.writeBool(regConfIgnoreLVShutdown, v)
}

// GuaranteedWake forces a startup even when other conditions would keep the
// board off.
func (d *Device) GuaranteedWake() (bool, error) {
	return d.readBool(regConfGuaranteedWake)
}

func (d *Device) SetGuaranteedWake(v bool) error {
	return d.writeBool(regConfGuaranteedWake, v)
}

func (d *Device) RTCDigitalOffset() (uint8, error) {
	return d.bus.ReadByte(regConfRTCOffset)
}

func (d *Device) SetRTCDigitalOffset(v uint8) error {
	return d.bus.WriteByte(regConfRTCOffset, v)
}

func (d *Device) RTCTemperatureCompensation() (bool, error) {
	return d.readBool(regConfRTCEnableTC)
}

func (d *Device) SetRTCTemperatureCompensation(v bool) error {
	return d.writeBool(regConfRTCEnableTC, v)
}

// Status is a snapshot of the key hardware readings.
type Status struct {
	FirmwareID       uint8
	FirmwareRevision uint8
	VoltageIn        float64
	VoltageOut       float64
	CurrentOut       float64
	WattsOut         float64
	PowerModeLDO     bool
	TemperatureC     float64
}

// ReadStatus collects the telemetry snapshot used by the daemon's metrics and
// history recording. Fails on the first unreadable register.
func (d *Device) ReadStatus() (Status, error) {
	var s Status
	var err error

	if s.FirmwareID, err = d.FirmwareID(); err != nil {
		return s, fmt.Errorf("%w: %v", ErrDeviceUnreachable, err)
	}
	if s.FirmwareRevision, err = d.FirmwareRevision(); err != nil {
		return s, err
	}
	if s.VoltageIn, err = d.VoltageIn(); err != nil {
		return s, err
	}
	if s.VoltageOut, err = d.VoltageOut(); err != nil {
		return s, err
	}
	if s.CurrentOut, err = d.CurrentOut(); err != nil {
		return s, err
	}
	s.WattsOut = s.VoltageOut * s.CurrentOut
	if s.PowerModeLDO, err = d.PowerModeLDO(); err != nil {
		return s, err
	}
	if s.TemperatureC, err = d.Temperature(); err != nil {
		return s, err
	}
	return s, nil
}
