package wittypi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbeckett/wittypid/internal/i2cbus"
)

func TestNewProbesIdentity(t *testing.T) {
	mem := i2cbus.NewMem()
	mem.Regs[regID] = FirmwareID
	_, err := New(mem, time.UTC)
	require.NoError(t, err)
}

func TestNewDeviceMismatch(t *testing.T) {
	mem := i2cbus.NewMem()
	mem.Regs[regID] = 0x17
	_, err := New(mem, time.UTC)
	assert.ErrorIs(t, err, ErrDeviceMismatch)
}

func TestNewDeviceUnreachable(t *testing.T) {
	mem := i2cbus.NewMem()
	mem.FailReads[regID] = true
	_, err := New(mem, time.UTC)
	assert.ErrorIs(t, err, ErrDeviceUnreachable)
}

func TestVoltageAssembly(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	mem.Regs[regVoltageInInt] = 5
	mem.Regs[regVoltageInDec] = 7
	mem.Regs[regVoltageOutInt] = 5
	mem.Regs[regVoltageOutDec] = 10
	mem.Regs[regCurrentOutInt] = 1
	mem.Regs[regCurrentOutDec] = 25

	vin, err := dev.VoltageIn()
	require.NoError(t, err)
	assert.InDelta(t, 5.07, vin, 1e-9)

	vout, err := dev.VoltageOut()
	require.NoError(t, err)
	assert.InDelta(t, 5.10, vout, 1e-9)

	iout, err := dev.CurrentOut()
	require.NoError(t, err)
	assert.InDelta(t, 1.25, iout, 1e-9)

	watts, err := dev.WattsOut()
	require.NoError(t, err)
	assert.InDelta(t, 5.10*1.25, watts, 1e-9)
}

func TestVoltageReadPropagatesBusError(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	mem.FailReads[regVoltageInDec] = true
	_, err := dev.VoltageIn()
	assert.Error(t, err)
}

func TestTemperatureDecode(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	// The sensor is big-endian on the wire, so 25.5C = 0x1980 arrives as the
	// bytes 0x19 then 0x80 and the SMBus word reads back swapped.
	mem.Regs[regLM75BTemperature] = 0x19
	mem.Regs[regLM75BTemperature+1] = 0x80
	got, err := dev.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, 25.5, got, 1e-9)

	// -5.0C = 0xFB00, wire bytes 0xFB then 0x00.
	mem.Regs[regLM75BTemperature] = 0xfb
	mem.Regs[regLM75BTemperature+1] = 0x00
	got, err = dev.Temperature()
	require.NoError(t, err)
	assert.InDelta(t, -5.0, got, 1e-9)
}

func TestCalibrationAdjustmentRoundTrip(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	// Round-trip stays within one register LSB (0.01).
	for raw := -127; raw <= 127; raw++ {
		v := float64(raw) / 100
		require.NoError(t, dev.SetAdjVoltageIn(v))
		got, err := dev.AdjVoltageIn()
		require.NoError(t, err)
		assert.InDelta(t, v, got, 0.01, "adjustment %.2f", v)
	}

	// Known raw encodings from the firmware convention.
	require.NoError(t, dev.SetAdjVoltageIn(-0.05))
	assert.Equal(t, uint8(250), mem.Regs[regConfAdjVin])
	require.NoError(t, dev.SetAdjVoltageIn(0.05))
	assert.Equal(t, uint8(5), mem.Regs[regConfAdjVin])
}

func TestCalibrationAdjustmentRange(t *testing.T) {
	dev, _ := newTestDevice(t, time.UTC)

	assert.ErrorIs(t, dev.SetAdjVoltageIn(1.5), ErrInvalidValue)
	assert.ErrorIs(t, dev.SetAdjVoltageOut(-1.5), ErrInvalidValue)
	assert.ErrorIs(t, dev.SetAdjCurrentOut(math.Inf(1)), ErrInvalidValue)
}

func TestVoltageThresholds(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	require.NoError(t, dev.SetLowVoltageThreshold(11.2))
	assert.Equal(t, uint8(112), mem.Regs[regConfLowVoltage])
	got, err := dev.LowVoltageThreshold()
	require.NoError(t, err)
	assert.InDelta(t, 11.2, got, 1e-9)

	// Zero disables the protection, stored as 255.
	require.NoError(t, dev.SetLowVoltageThreshold(0))
	assert.Equal(t, uint8(255), mem.Regs[regConfLowVoltage])
	got, err = dev.LowVoltageThreshold()
	require.NoError(t, err)
	assert.Zero(t, got)

	assert.ErrorIs(t, dev.SetRecoveryVoltage(30), ErrInvalidValue)
}

func TestPowerCutDelayClamped(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	require.NoError(t, dev.SetPowerCutDelay(8.0))
	assert.Equal(t, uint8(80), mem.Regs[regConfPowerCutDelay])

	require.NoError(t, dev.SetPowerCutDelay(300))
	assert.Equal(t, uint8(250), mem.Regs[regConfPowerCutDelay])
}

func TestTemperatureThresholds(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	require.NoError(t, dev.SetBelowTemperatureThreshold(-20))
	assert.Equal(t, uint8(236), mem.Regs[regConfBelowTempPoint])
	got, err := dev.BelowTemperatureThreshold()
	require.NoError(t, err)
	assert.Equal(t, -20, got)

	require.NoError(t, dev.SetOverTemperatureThreshold(70))
	got, err = dev.OverTemperatureThreshold()
	require.NoError(t, err)
	assert.Equal(t, 70, got)

	assert.ErrorIs(t, dev.SetOverTemperatureThreshold(100), ErrInvalidValue)
}

func TestActionReason(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	mem.Regs[regActionReason] = uint8(ReasonButtonClick)
	r, err := dev.ActionReason()
	require.NoError(t, err)
	assert.Equal(t, ReasonButtonClick, r)
	assert.True(t, r.ManualPowerOn())

	mem.Regs[regActionReason] = uint8(ReasonAlarmStartup)
	r, err = dev.ActionReason()
	require.NoError(t, err)
	assert.False(t, r.ManualPowerOn())

	// 0x09 is a hole in the hardware code space.
	mem.Regs[regActionReason] = 0x09
	_, err = dev.ActionReason()
	assert.ErrorIs(t, err, ErrUnknownReason)
}

func TestReadStatus(t *testing.T) {
	dev, mem := newTestDevice(t, time.UTC)

	mem.Regs[regFwRevision] = 0x02
	mem.Regs[regVoltageInInt] = 5
	mem.Regs[regVoltageInDec] = 10
	mem.Regs[regVoltageOutInt] = 5
	mem.Regs[regVoltageOutDec] = 5
	mem.Regs[regCurrentOutInt] = 0
	mem.Regs[regCurrentOutDec] = 80
	mem.Regs[regPowerMode] = 1
	mem.Regs[regLM75BTemperature] = 0x20 // 32C, big-endian wire order

	st, err := dev.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, FirmwareID, st.FirmwareID)
	assert.Equal(t, uint8(0x02), st.FirmwareRevision)
	assert.InDelta(t, 5.10, st.VoltageIn, 1e-9)
	assert.InDelta(t, 5.05*0.80, st.WattsOut, 1e-9)
	assert.True(t, st.PowerModeLDO)
	assert.InDelta(t, 32.0, st.TemperatureC, 1e-9)
}
