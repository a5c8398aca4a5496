// Package i2cbus provides the single-register I2C transport used to talk to
// the WittyPi microcontroller. Only one-byte addressed reads and writes are
// reliable on this firmware; burst reads of the MCU register file silently
// return all-ones and must not be used. The LM75B temperature passthrough is
// the single true SMBus word register on the board, hence ReadWord.
package i2cbus

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// Bus is the register transport capability consumed by the device layer.
type Bus interface {
	ReadByte(reg uint8) (uint8, error)
	WriteByte(reg uint8, val uint8) error
	ReadWord(reg uint8) (uint16, error)
}

// Dev is a Bus backed by a real I2C device.
type Dev struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// Open opens the named I2C bus ("" for the first available) and returns a
// transport bound to the device at addr.
func Open(name string, addr uint16) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host: %w", err)
	}

	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", name, err)
	}

	return &Dev{
		dev: i2c.Dev{Addr: addr, Bus: b},
		bus: b,
	}, nil
}

func (d *Dev) Close() error {
	return d.bus.Close()
}

func (d *Dev) ReadByte(reg uint8) (uint8, error) {
	r := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("read register 0x%02x: %w", reg, err)
	}
	return r[0], nil
}

func (d *Dev) WriteByte(reg uint8, val uint8) error {
	if err := d.dev.Tx([]byte{reg, val}, nil); err != nil {
		return fmt.Errorf("write register 0x%02x: %w", reg, err)
	}
	return nil
}

// ReadWord reads a 16-bit little-endian SMBus word. Valid only for the LM75B
// passthrough block; everything else on this device is byte-at-a-time.
func (d *Dev) ReadWord(reg uint8) (uint16, error) {
	r := make([]byte, 2)
	if err := d.dev.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("read word register 0x%02x: %w", reg, err)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}
