package i2cbus

import "errors"

// Mem is an in-memory register file implementing Bus. It backs tests and dry
// runs where no hardware is present.
type Mem struct {
	Regs [256]uint8

	// FailReads and FailWrites make the next transaction on the listed
	// registers fail, simulating a flaky bus.
	FailReads  map[uint8]bool
	FailWrites map[uint8]bool

	// Journal records every write as [reg, value] in order.
	Journal [][2]uint8
}

var errSimulated = errors.New("simulated bus failure")

func NewMem() *Mem {
	return &Mem{
		FailReads:  map[uint8]bool{},
		FailWrites: map[uint8]bool{},
	}
}

func (m *Mem) ReadByte(reg uint8) (uint8, error) {
	if m.FailReads[reg] {
		return 0, errSimulated
	}
	return m.Regs[reg], nil
}

func (m *Mem) WriteByte(reg uint8, val uint8) error {
	if m.FailWrites[reg] {
		return errSimulated
	}
	m.Regs[reg] = val
	m.Journal = append(m.Journal, [2]uint8{reg, val})
	return nil
}

func (m *Mem) ReadWord(reg uint8) (uint16, error) {
	if m.FailReads[reg] {
		return 0, errSimulated
	}
	return uint16(m.Regs[reg]) | uint16(m.Regs[reg+1])<<8, nil
}
