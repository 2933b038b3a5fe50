// Package platform holds the static board tables and the peripherals that
// back them: register-level simulators on the host, the RP2040 blocks on
// target.
package platform

import (
	"context"
	"time"

	"iocore-go/drivers/spibus"
	"iocore-go/drivers/uartline"
	"iocore-go/msgq"
	"iocore-go/report"
	"iocore-go/x/irq"
	"iocore-go/x/ringbuf"
	"iocore-go/x/semx"
)

type SPIPort struct {
	Active  bool
	RxQueue msgq.QueueID
	TxQueue msgq.QueueID
	Hz      uint32
	SCK     int
	SDO     int
	SDI     int
}

type Slave struct {
	Port  spibus.PortID
	CSPin int // -1: not fitted
}

type UARTPort struct {
	Active   bool
	Queue    msgq.QueueID
	RxBuffer ringbuf.BufferID
	TxBuffer ringbuf.BufferID
	Baud     uint32
	TX       int
	RX       int
}

// Board is immutable once built.
type Board struct {
	Name string

	Tick              time.Duration
	QueueTimeoutTicks int
	SettleTicks       int
	MutexWait         semx.Wait

	SPI    [spibus.PortCount]SPIPort
	Slaves [spibus.SlaveNone]Slave
	UART   [uartline.PortCount]UARTPort

	ConsolePort  uartline.PortID
	ErrorLED     int
	HeartbeatLED int

	// Service periods, published as retained config on the bus.
	HeartbeatPeriod time.Duration
	IMUPeriod       time.Duration
}

// Default is the Pico carrier with the IMU on SPI1 and the console on UART1.
func Default() Board {
	return Board{
		Name:              "pico-imu",
		Tick:              time.Millisecond,
		QueueTimeoutTicks: msgq.DefaultTimeoutTicks,
		SettleTicks:       spibus.DefaultSettleTicks,
		MutexWait:         semx.WaitForever,

		SPI: [spibus.PortCount]SPIPort{
			spibus.SPI1: {Active: true, RxQueue: msgq.Spi1Rx, TxQueue: msgq.Spi1Tx, Hz: 1_000_000, SCK: 18, SDO: 19, SDI: 16},
			spibus.SPI2: {RxQueue: msgq.Count, TxQueue: msgq.Count, SCK: -1, SDO: -1, SDI: -1},
		},
		Slaves: [spibus.SlaveNone]Slave{
			spibus.SlaveMPU: {Port: spibus.SPI1, CSPin: 17},
			spibus.SlaveAux: {Port: spibus.SPI1, CSPin: 20},
		},
		UART: [uartline.PortCount]UARTPort{
			uartline.UART1: {Active: true, Queue: msgq.Uart1, RxBuffer: ringbuf.Uart1Rx, TxBuffer: ringbuf.Uart1Tx, Baud: 115200, TX: 0, RX: 1},
			uartline.UART2: {Queue: msgq.Count, RxBuffer: ringbuf.Count, TxBuffer: ringbuf.Count, TX: -1, RX: -1},
			uartline.UART3: {Queue: msgq.Uart3, RxBuffer: ringbuf.Count, TxBuffer: ringbuf.Count, TX: -1, RX: -1},
		},

		ConsolePort:  uartline.UART1,
		ErrorLED:     25,
		HeartbeatLED: 15,

		HeartbeatPeriod: time.Second,
		IMUPeriod:       100 * time.Millisecond,
	}
}

// Handlers are the interrupt entry points peripherals dispatch into.
type Handlers struct {
	SPIRx  func(spibus.PortID)
	SPITx  func(spibus.PortID)
	UARTRx func(uartline.PortID)
	UARTTx func(uartline.PortID)
}

// Peripherals is what a board brings up for the drivers. Accessors return
// nil for ports or pins that are not fitted.
type Peripherals interface {
	Mask() irq.Mask
	SPI(id spibus.PortID) spibus.Peripheral
	ChipSelect(s spibus.SlaveID) spibus.ChipSelect
	UART(id uartline.PortID) uartline.Peripheral
	ErrorLED() report.Pin
	HeartbeatLED() report.Pin

	// Bind installs the handlers; call before Start.
	Bind(h Handlers)
	// Start begins interrupt delivery until ctx is done.
	Start(ctx context.Context)
}
