// Package spibus drives register transactions over a chip-selected serial
// bus. Every transaction runs under the port mutex:
//
//	enable -> select -> exchange -> deselect -> disable
//
// Bytes never move synchronously. The task pushes outbound bytes onto the
// port's TX queue and arms the transmit interrupt; HandleTxIRQ feeds the
// data register and HandleRxIRQ relays every received byte onto the RX
// queue, where the task picks it up with the queue timeout.
package spibus

import (
	"time"

	"iocore-go/logger"
	"iocore-go/msgq"
	"iocore-go/report"
	"iocore-go/x/irq"
	"iocore-go/x/semx"
)

// ---------------- Identifiers ----------------

type PortID uint8

const (
	SPI1 PortID = iota
	SPI2

	PortCount // must be last
)

func (p PortID) Valid() bool { return p < PortCount }

func (p PortID) String() string {
	switch p {
	case SPI1:
		return "spi1"
	case SPI2:
		return "spi2"
	default:
		return "invalid"
	}
}

type SlaveID uint8

const (
	SlaveMPU SlaveID = iota
	// SlaveAux is the spare chip select on the IMU header.
	SlaveAux

	SlaveNone // no slave selected; also the slave count
)

func (s SlaveID) Valid() bool { return s < SlaveNone }

func (s SlaveID) String() string {
	switch s {
	case SlaveMPU:
		return "mpu"
	case SlaveAux:
		return "aux"
	case SlaveNone:
		return "none"
	default:
		return "invalid"
	}
}

const (
	readFlag  = 0x80
	writeMask = 0x7F

	DefaultSettleTicks = 10
	DefaultTick        = time.Millisecond
)

// ---------------- Hardware capabilities ----------------

// Peripheral is the register-level surface of one bus controller.
type Peripheral interface {
	Enable()
	Disable()
	SetRxInterrupt(on bool)
	SetTxInterrupt(on bool)
	TxInterruptEnabled() bool
	RxReady() bool // receive register holds a byte
	TxReady() bool // transmit register can take a byte
	ReadData() byte
	WriteData(b byte)
}

// ChipSelect drives an active-low select line.
type ChipSelect interface {
	Set(level bool)
}

// ---------------- Configuration ----------------

type PortConfig struct {
	Periph  Peripheral
	RxQueue msgq.QueueID
	TxQueue msgq.QueueID
	Active  bool // inactive ports reject every operation
}

type SlaveConfig struct {
	Port PortID
	CS   ChipSelect
}

type Config struct {
	Ports  [PortCount]PortConfig
	Slaves [SlaveNone]SlaveConfig
	Queues *msgq.Set
	Mask   irq.Mask // shared with the interrupt dispatcher

	// Wait bounds mutex acquisition; zero means semx.WaitForever.
	Wait        semx.Wait
	Tick        time.Duration
	SettleTicks int

	Logger   logger.Logger
	Reporter report.Reporter
}
