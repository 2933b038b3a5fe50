//go:build rp2040

package platform

import (
	"context"
	"device/rp"
	"machine"
	"runtime/interrupt"

	"iocore-go/drivers/spibus"
	"iocore-go/drivers/uartline"
	"iocore-go/errcode"
	"iocore-go/report"
	"iocore-go/x/irq"
)

// RP2040 is the target build of a Board. Board port numbers are logical:
// SPI1 is the chip's SPI0 block (GP16..19) and UART1 is its UART0 (GP0/1).
type RP2040 struct {
	board Board

	spi   [spibus.PortCount]*pl022
	cs    [spibus.SlaveNone]machine.Pin
	fit   [spibus.SlaveNone]bool
	uart  [uartline.PortCount]*rp2UART
	errL  machine.Pin
	heart machine.Pin
}

var _ Peripherals = (*RP2040)(nil)

// active is the board the SPI vector dispatches into; there is one.
var active *RP2040

func NewRP2040(b Board) (*RP2040, error) {
	const op = "platform.rp2040"
	if active != nil {
		return nil, &errcode.E{C: errcode.AlreadyInitialised, Op: op}
	}
	r := &RP2040{board: b}

	if p := b.SPI[spibus.SPI1]; p.Active {
		hw := machine.SPI0
		err := hw.Configure(machine.SPIConfig{
			Frequency: p.Hz,
			SCK:       machine.Pin(p.SCK),
			SDO:       machine.Pin(p.SDO),
			SDI:       machine.Pin(p.SDI),
			Mode:      0,
		})
		if err != nil {
			return nil, &errcode.E{C: errcode.Error, Op: op, Msg: "spi configure", Err: err}
		}
		r.spi[spibus.SPI1] = &pl022{bus: hw.Bus}
		// Configure leaves the block enabled; the driver enables it per
		// transaction.
		r.spi[spibus.SPI1].Disable()
	}
	for id, sl := range b.Slaves {
		if sl.CSPin < 0 || !sl.Port.Valid() || r.spi[sl.Port] == nil {
			continue
		}
		pin := machine.Pin(sl.CSPin)
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.High()
		r.cs[id], r.fit[id] = pin, true
	}

	if p := b.UART[uartline.UART1]; p.Active {
		u, err := newRP2UART(p)
		if err != nil {
			return nil, &errcode.E{C: errcode.Error, Op: op, Msg: "uart configure", Err: err}
		}
		r.uart[uartline.UART1] = u
	}

	r.errL = output(b.ErrorLED)
	r.heart = output(b.HeartbeatLED)
	active = r
	return r, nil
}

func output(n int) machine.Pin {
	pin := machine.Pin(n)
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return pin
}

func (r *RP2040) Board() Board   { return r.board }
func (r *RP2040) Mask() irq.Mask { return irq.CPU{} }

func (r *RP2040) SPI(id spibus.PortID) spibus.Peripheral {
	if !id.Valid() || r.spi[id] == nil {
		return nil
	}
	return r.spi[id]
}

func (r *RP2040) ChipSelect(id spibus.SlaveID) spibus.ChipSelect {
	if !id.Valid() || !r.fit[id] {
		return nil
	}
	return r.cs[id]
}

func (r *RP2040) UART(id uartline.PortID) uartline.Peripheral {
	if !id.Valid() || r.uart[id] == nil {
		return nil
	}
	return r.uart[id]
}

func (r *RP2040) ErrorLED() report.Pin     { return r.errL }
func (r *RP2040) HeartbeatLED() report.Pin { return r.heart }

func (r *RP2040) Bind(h Handlers) {
	if p := r.spi[spibus.SPI1]; p != nil {
		p.onRx = func() { h.SPIRx(spibus.SPI1) }
		p.onTx = func() { h.SPITx(spibus.SPI1) }
	}
	if u := r.uart[uartline.UART1]; u != nil {
		u.onRx = func() { h.UARTRx(uartline.UART1) }
		u.onTx = func() { h.UARTTx(uartline.UART1) }
	}
}

func (r *RP2040) Start(ctx context.Context) {
	if r.spi[spibus.SPI1] != nil {
		intr := interrupt.New(rp.IRQ_SPI0_IRQ, spi0Handler)
		intr.SetPriority(0x40)
		intr.Enable()
	}
	if u := r.uart[uartline.UART1]; u != nil {
		go u.rxPump(ctx)
		go u.txPump(ctx)
	}
}

func spi0Handler(interrupt.Interrupt) {
	if active == nil {
		return
	}
	if p := active.spi[spibus.SPI1]; p != nil {
		p.service()
	}
}
