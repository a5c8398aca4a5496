package wittypi

import (
	"fmt"
	"time"
)

// The two hardware alarm channels. Alarm 1 powers the host on, alarm 2 shuts
// it down.
type AlarmSlot int

const (
	SlotStartup AlarmSlot = iota
	SlotShutdown
)

func (s AlarmSlot) String() string {
	if s == SlotStartup {
		return "startup"
	}
	return "shutdown"
}

// alarmFieldDisable is bit 7 of every alarm field register. A field with the
// bit set is ignored by the firmware (the PCF85063 AEN convention). Disabled
// alarms keep their BCD digits so a later re-enable does not wake at epoch.
const alarmFieldDisable uint8 = 0x80

// alarmRegs lists a slot's field registers.
type alarmRegs struct {
	second, minute, hour, day, weekday uint8
}

func (s AlarmSlot) regs() alarmRegs {
	if s == SlotStartup {
		return alarmRegs{regAlarm1Second, regAlarm1Minute, regAlarm1Hour, regAlarm1Day, regAlarm1Weekday}
	}
	return alarmRegs{regAlarm2Second, regAlarm2Minute, regAlarm2Hour, regAlarm2Day, regAlarm2Weekday}
}

// SetStartupDateTime programs alarm 1 to power the host on at t, or disables
// the alarm when t is nil.
func (d *Device) SetStartupDateTime(t *time.Time) error {
	return d.programAlarm(SlotStartup, t)
}

// SetShutdownDateTime programs alarm 2 to shut the host down at t, or
// disables the alarm when t is nil.
func (d *Device) SetShutdownDateTime(t *time.Time) error {
	return d.programAlarm(SlotShutdown, t)
}

// programAlarm writes one alarm slot. Targets are truncated to minute
// resolution; the seconds field is programmed to zero so the alarm fires at
// the top of the minute. Disabling sets the disable bit on every field while
// leaving the stored digits untouched. Programming the same target twice
// yields identical register state.
func (d *Device) programAlarm(slot AlarmSlot, t *time.Time) error {
	regs := slot.regs()

	if t == nil {
		for _, reg := range []uint8{regs.day, regs.weekday, regs.hour, regs.minute, regs.second} {
			cur, err := d.bus.ReadByte(reg)
			if err != nil {
				return err
			}
			if err := d.bus.WriteByte(reg, cur|alarmFieldDisable); err != nil {
				return err
			}
		}
		return nil
	}

	ts := t.In(d.tz).Truncate(time.Minute)

	writes := []struct {
		reg uint8
		val uint8
	}{
		{regs.day, bcdEncode(ts.Day())},
		{regs.weekday, alarmFieldDisable},
		{regs.hour, bcdEncode(ts.Hour())},
		{regs.minute, bcdEncode(ts.Minute())},
		{regs.second, bcdEncode(0)},
	}
	for _, w := range writes {
		if err := d.bus.WriteByte(w.reg, w.val); err != nil {
			return err
		}
	}
	return nil
}

// GetStartupDateTime returns the instant alarm 1 will next fire, or nil when
// the alarm is disabled.
func (d *Device) GetStartupDateTime() (*time.Time, error) {
	return d.alarmDateTime(SlotStartup)
}

// GetShutdownDateTime returns the instant alarm 2 will next fire, or nil when
// the alarm is disabled.
func (d *Device) GetShutdownDateTime() (*time.Time, error) {
	return d.alarmDateTime(SlotShutdown)
}

// alarmField reads one alarm field register. ok is false when the field's
// disable bit is set.
func (d *Device) alarmField(reg uint8, limit int) (val int, ok bool, err error) {
	b, err := d.bus.ReadByte(reg)
	if err != nil {
		return 0, false, err
	}
	if b&alarmFieldDisable != 0 {
		return 0, false, nil
	}
	v, err := bcdDecode(b)
	if err != nil {
		return 0, false, fmt.Errorf("register 0x%02x: %w", reg, err)
	}
	if v > limit {
		return 0, false, fmt.Errorf("%w: alarm field 0x%02x holds %d", ErrInvalidTimeEncoding, reg, v)
	}
	return v, true, nil
}

// alarmDateTime reconstructs a slot's next firing instant by stepping the RTC
// time forward until every enabled field matches, the firmware's own match
// rule. A slot with all fields disabled, or a zero day, is inert.
func (d *Device) alarmDateTime(slot AlarmSlot) (*time.Time, error) {
	regs := slot.regs()

	second, secOK, err := d.alarmField(regs.second, 59)
	if err != nil {
		return nil, err
	}
	minute, minOK, err := d.alarmField(regs.minute, 59)
	if err != nil {
		return nil, err
	}
	hour, hourOK, err := d.alarmField(regs.hour, 23)
	if err != nil {
		return nil, err
	}
	day, dayOK, err := d.alarmField(regs.day, 31)
	if err != nil {
		return nil, err
	}
	weekday, wdOK, err := d.alarmField(regs.weekday, 6)
	if err != nil {
		return nil, err
	}

	if !secOK && !minOK && !hourOK && !dayOK && !wdOK {
		return nil, nil
	}
	if dayOK && day == 0 {
		return nil, nil
	}

	ts, err := d.RTCDateTime()
	if err != nil {
		return nil, err
	}

	for secOK && ts.Second() != second {
		ts = ts.Add(time.Second)
	}
	for minOK && ts.Minute() != minute {
		ts = ts.Add(time.Minute)
	}
	for hourOK && ts.Hour() != hour {
		ts = ts.Add(time.Hour)
	}
	for wdOK && (int(ts.Weekday())+6)%7 != weekday {
		ts = ts.AddDate(0, 0, 1)
	}
	for dayOK && ts.Day() != day {
		ts = ts.AddDate(0, 0, 1)
	}

	return &ts, nil
}

func (d *Device) Alarm1Flag() (bool, error) {
	return d.readBool(regConfFlagAlarm1)
}

func (d *Device) Alarm2Flag() (bool, error) {
	return d.readBool(regConfFlagAlarm2)
}

// ClearFlags acknowledges fired alarms: the RTC's own alarm flag plus both
// firmware alarm flags, three dependent single-register writes. Consumers
// must call this after acting on an alarm or it re-triggers on the next
// evaluation.
func (d *Device) ClearFlags() error {
	if err := d.rtcClearAlarmFlag(); err != nil {
		return err
	}
	if err := d.writeBool(regConfFlagAlarm1, false); err != nil {
		return err
	}
	return d.writeBool(regConfFlagAlarm2, false)
}
