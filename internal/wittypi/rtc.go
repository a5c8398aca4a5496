package wittypi

import (
	"fmt"
	"time"
)

// BCD codec for the PCF85063 passthrough registers. Each field holds two
// 4-bit decimal digits; a nibble above 9 is a decode error, not garbage to
// pass along. Calendar validation (leap years, day-of-month) is deliberately
// not done here — an implausible date is surfaced by whoever consumes it.

func bcdDecode(b uint8) (int, error) {
	hi := b >> 4
	lo := b & 0x0f
	if hi > 9 || lo > 9 {
		return 0, fmt.Errorf("%w: 0x%02x is not valid BCD", ErrInvalidTimeEncoding, b)
	}
	return int(hi)*10 + int(lo), nil
}

func bcdEncode(v int) uint8 {
	return uint8(v/10<<4 | v%10)
}

// rtcCentury: the PCF85063 year register counts from 2000.
const rtcCentury = 2000

func (d *Device) readBCD(reg uint8) (int, error) {
	b, err := d.bus.ReadByte(reg)
	if err != nil {
		return 0, err
	}
	v, err := bcdDecode(b)
	if err != nil {
		return 0, fmt.Errorf("register 0x%02x: %w", reg, err)
	}
	return v, nil
}

// RTCDateTime assembles the hardware clock from seven sequential single-byte
// reads and returns it in the device timezone.
func (d *Device) RTCDateTime() (time.Time, error) {
	year, err := d.readBCD(regRTCYears)
	if err != nil {
		return time.Time{}, err
	}
	month, err := d.readBCD(regRTCMonths)
	if err != nil {
		return time.Time{}, err
	}
	day, err := d.readBCD(regRTCDays)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := d.readBCD(regRTCHours)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := d.readBCD(regRTCMinutes)
	if err != nil {
		return time.Time{}, err
	}
	second, err := d.readBCD(regRTCSeconds)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(rtcCentury+year, time.Month(month), day, hour, minute, second, 0, d.tz), nil
}

// SetRTCDateTime writes t to the hardware clock. The weekday register is kept
// in the firmware's Monday=0 convention.
func (d *Device) SetRTCDateTime(t time.Time) error {
	t = t.In(d.tz)
	if t.Year() < rtcCentury || t.Year() > rtcCentury+99 {
		return fmt.Errorf("%w: year %d not representable", ErrInvalidValue, t.Year())
	}

	writes := []struct {
		reg uint8
		val int
	}{
		{regRTCYears, t.Year() - rtcCentury},
		{regRTCMonths, int(t.Month())},
		{regRTCWeekdays, (int(t.Weekday()) + 6) % 7},
		{regRTCDays, t.Day()},
		{regRTCHours, t.Hour()},
		{regRTCMinutes, t.Minute()},
		{regRTCSeconds, t.Second()},
	}
	for _, w := range writes {
		if err := d.bus.WriteByte(w.reg, bcdEncode(w.val)); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDriftThreshold is the drift tolerance used when none is given.
const DefaultDriftThreshold = 2 * time.Second

// RTCSysclockMatch reports whether the hardware clock agrees with the system
// clock within threshold. A stale or uninitialized RTC must not be trusted
// for scheduling; callers gate on this before programming alarms.
func (d *Device) RTCSysclockMatch(threshold time.Duration) (bool, error) {
	if threshold <= 0 {
		threshold = DefaultDriftThreshold
	}
	rtc, err := d.RTCDateTime()
	if err != nil {
		return false, err
	}
	diff := time.Now().In(d.tz).Sub(rtc)
	if diff < 0 {
		diff = -diff
	}
	return diff <= threshold, nil
}

func (d *Device) RTCCtrl1() (uint8, error) {
	return d.bus.ReadByte(regRTCCtrl1)
}

func (d *Device) RTCCtrl2() (uint8, error) {
	return d.bus.ReadByte(regRTCCtrl2)
}

// rtcClearAlarmFlag clears the PCF85063 CTRL2 alarm flag (read-modify-write,
// two dependent single-register transactions).
func (d *Device) rtcClearAlarmFlag() error {
	ctrl2, err := d.bus.ReadByte(regRTCCtrl2)
	if err != nil {
		return err
	}
	return d.bus.WriteByte(regRTCCtrl2, ctrl2&^ctrl2AlarmFlag)
}
