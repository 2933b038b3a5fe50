package platform

import "sync"

// MPU9250 register map subset used by the simulator.
const (
	mpuWhoAmI    = 0x75
	mpuWhoAmIVal = 0x71
	mpuReadFlag  = 0x80
)

// SimMPU models the IMU's SPI register interface. The first byte after
// select carries the R/W flag and address; bytes after it read or write
// consecutive registers. Reads are set up one byte ahead, so the value of
// the addressed register comes back on the byte after the address.
type SimMPU struct {
	mu       sync.Mutex
	regs     [128]byte
	stuck    [128]byte // bits forced to stuckVal on write
	stuckVal [128]byte
	readOnly [128]bool

	selected bool
	phase    int // 0: expect address
	addr     byte
	read     bool
	out      byte // byte driven on the next exchange
}

func NewSimMPU() *SimMPU {
	m := &SimMPU{}
	m.regs[mpuWhoAmI] = mpuWhoAmIVal
	m.readOnly[mpuWhoAmI] = true
	for a := 0x3A; a <= 0x60; a++ { // status and sensor data
		m.readOnly[a] = true
	}
	return m
}

// Select is driven by the chip-select line (asserted = true). Asserting it
// restarts framing.
func (m *SimMPU) Select(asserted bool) {
	m.mu.Lock()
	m.selected = asserted
	m.phase = 0
	m.out = 0
	m.mu.Unlock()
}

// ChipSelectHook adapts Select to an active-low SimPin.
func (m *SimMPU) ChipSelectHook() func(level bool) {
	return func(level bool) { m.Select(!level) }
}

func (m *SimMPU) Exchange(b byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.selected {
		return 0
	}
	drive := m.out
	if m.phase == 0 {
		m.read = b&mpuReadFlag != 0
		m.addr = b &^ mpuReadFlag
		m.phase = 1
	} else {
		if !m.read {
			m.store(m.addr, b)
		}
		m.addr = (m.addr + 1) & 0x7F
	}
	m.out = 0
	if m.read {
		m.out = m.regs[m.addr]
	}
	return drive
}

func (m *SimMPU) store(addr, v byte) {
	if m.readOnly[addr] {
		return
	}
	m.regs[addr] = v&^m.stuck[addr] | m.stuckVal[addr]&m.stuck[addr]
}

// Reg returns the current value of a register.
func (m *SimMPU) Reg(addr byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[addr&0x7F]
}

// Poke sets a register directly, bypassing read-only and stuck bits.
func (m *SimMPU) Poke(addr, v byte) {
	m.mu.Lock()
	m.regs[addr&0x7F] = v
	m.mu.Unlock()
}

// Stick forces the bits in mask to the matching bits of val on every bus
// write to addr.
func (m *SimMPU) Stick(addr, mask, val byte) {
	m.mu.Lock()
	m.stuck[addr&0x7F] = mask
	m.stuckVal[addr&0x7F] = val
	m.mu.Unlock()
}

// SetSample loads accelerometer, gyroscope and magnetometer axes into the
// sensor data registers, high byte first.
func (m *SimMPU) SetSample(acc, gyr, mag [3]int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	put := func(base byte, v [3]int16) {
		for i, x := range v {
			m.regs[int(base)+2*i] = byte(uint16(x) >> 8)
			m.regs[int(base)+2*i+1] = byte(x)
		}
	}
	put(0x3B, acc)
	put(0x43, gyr)
	put(0x49, mag)
}
