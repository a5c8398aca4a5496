package wittypi

// I2C register map of the WittyPi 4 firmware (id 0x26). Addresses and scale
// factors must match the hardware bit-for-bit; do not renumber.

// DefaultAddr is the I2C address of the WittyPi microcontroller.
const DefaultAddr uint16 = 0x08

// FirmwareID is the identity value reported by a WittyPi 4.
const FirmwareID uint8 = 0x26

// Read-only status registers.
const (
	regID             uint8 = 0
	regVoltageInInt   uint8 = 1
	regVoltageInDec   uint8 = 2
	regVoltageOutInt  uint8 = 3
	regVoltageOutDec  uint8 = 4
	regCurrentOutInt  uint8 = 5
	regCurrentOutDec  uint8 = 6
	regPowerMode      uint8 = 7
	regLVShutdown     uint8 = 8
	regAlarm1Trig     uint8 = 9
	regAlarm2Trig     uint8 = 10
	regActionReason   uint8 = 11
	regFwRevision     uint8 = 12
)

// Configuration registers.
const (
	regConfAddress         uint8 = 16
	regConfDefaultOn       uint8 = 17
	regConfPulseInterval   uint8 = 18
	regConfLowVoltage      uint8 = 19
	regConfBlinkLED        uint8 = 20
	regConfPowerCutDelay   uint8 = 21
	regConfRecoveryVoltage uint8 = 22
	regConfDummyLoad       uint8 = 23
	regConfAdjVin          uint8 = 24
	regConfAdjVout         uint8 = 25
	regConfAdjIout         uint8 = 26
)

// Startup alarm (alarm 1) field registers.
const (
	regAlarm1Second  uint8 = 27
	regAlarm1Minute  uint8 = 28
	regAlarm1Hour    uint8 = 29
	regAlarm1Day     uint8 = 30
	regAlarm1Weekday uint8 = 31
)

// Shutdown alarm (alarm 2) field registers.
const (
	regAlarm2Second  uint8 = 32
	regAlarm2Minute  uint8 = 33
	regAlarm2Hour    uint8 = 34
	regAlarm2Day     uint8 = 35
	regAlarm2Weekday uint8 = 36
)

const (
	regConfRTCOffset   uint8 = 37
	regConfRTCEnableTC uint8 = 38
	regConfFlagAlarm1  uint8 = 39
	regConfFlagAlarm2  uint8 = 40

	regConfIgnorePowerMode  uint8 = 41
	regConfIgnoreLVShutdown uint8 = 42

	regConfBelowTempAction uint8 = 43
	regConfBelowTempPoint  uint8 = 44
	regConfOverTempAction  uint8 = 45
	regConfOverTempPoint   uint8 = 46
	regConfDefaultOnDelay  uint8 = 47
	regConfMisc            uint8 = 48
	regConfGuaranteedWake  uint8 = 49
)

// LM75B temperature sensor passthrough.
const (
	regLM75BTemperature uint8 = 50
	regLM75BConf        uint8 = 51
	regLM75BThyst       uint8 = 52
	regLM75BTos         uint8 = 53
)

// PCF85063 RTC passthrough.
const (
	regRTCCtrl1        uint8 = 54
	regRTCCtrl2        uint8 = 55
	regRTCOffset       uint8 = 56
	regRTCRAMByte      uint8 = 57
	regRTCSeconds      uint8 = 58
	regRTCMinutes      uint8 = 59
	regRTCHours        uint8 = 60
	regRTCDays         uint8 = 61
	regRTCWeekdays     uint8 = 62
	regRTCMonths       uint8 = 63
	regRTCYears        uint8 = 64
	regRTCSecondAlarm  uint8 = 65
	regRTCMinuteAlarm  uint8 = 66
	regRTCHourAlarm    uint8 = 67
	regRTCDayAlarm     uint8 = 68
	regRTCWeekdayAlarm uint8 = 69
	regRTCTimerValue   uint8 = 70
	regRTCTimerMode    uint8 = 71
)

// ctrl2AlarmFlag is the PCF85063 CTRL2 alarm flag bit (AF).
const ctrl2AlarmFlag uint8 = 0b01000000

// ActionReason is the firmware's report of why the board last powered the
// host on or off. Values are fixed hardware codes; never construct them
// except for comparison.
type ActionReason uint8

const (
	ReasonAlarmStartup        ActionReason = 0x01
	ReasonAlarmShutdown       ActionReason = 0x02
	ReasonButtonClick         ActionReason = 0x03
	ReasonLowVoltage          ActionReason = 0x04
	ReasonVoltageRestore      ActionReason = 0x05
	ReasonOverTemperature     ActionReason = 0x06
	ReasonBelowTemperature    ActionReason = 0x07
	ReasonAlarmStartupDelayed ActionReason = 0x08
	ReasonPowerConnected      ActionReason = 0x0A
	ReasonReboot              ActionReason = 0x0B
	ReasonGuaranteedWake      ActionReason = 0x0C
)

func (r ActionReason) Valid() bool {
	switch r {
	case ReasonAlarmStartup, ReasonAlarmShutdown, ReasonButtonClick,
		ReasonLowVoltage, ReasonVoltageRestore, ReasonOverTemperature,
		ReasonBelowTemperature, ReasonAlarmStartupDelayed,
		ReasonPowerConnected, ReasonReboot, ReasonGuaranteedWake:
		return true
	}
	return false
}

func (r ActionReason) String() string {
	switch r {
	case ReasonAlarmStartup:
		return "alarm_startup"
	case ReasonAlarmShutdown:
		return "alarm_shutdown"
	case ReasonButtonClick:
		return "button_click"
	case ReasonLowVoltage:
		return "low_voltage"
	case ReasonVoltageRestore:
		return "voltage_restore"
	case ReasonOverTemperature:
		return "over_temperature"
	case ReasonBelowTemperature:
		return "below_temperature"
	case ReasonAlarmStartupDelayed:
		return "alarm_startup_delayed"
	case ReasonPowerConnected:
		return "power_connected"
	case ReasonReboot:
		return "reboot"
	case ReasonGuaranteedWake:
		return "guaranteed_wake"
	}
	return "unknown"
}

// ManualPowerOn reports whether the reason indicates a manual or external
// power-on rather than a scheduled one. The daemon grants the button delay
// grace period for these.
func (r ActionReason) ManualPowerOn() bool {
	switch r {
	case ReasonButtonClick, ReasonVoltageRestore, ReasonPowerConnected:
		return true
	}
	return false
}
