package platform

import (
	"context"

	"iocore-go/drivers/spibus"
	"iocore-go/drivers/uartline"
	"iocore-go/report"
	"iocore-go/x/irq"
)

// Sim is the host build of a Board: one SimSPI per active bus port with the
// IMU attached behind its chip select, one SimUART per active UART, and
// SimPins for chip selects and LEDs.
type Sim struct {
	board Board
	mask  *irq.Host

	spi   [spibus.PortCount]*SimSPI
	cs    [spibus.SlaveNone]*SimPin
	uart  [uartline.PortCount]*SimUART
	errL  *SimPin
	heart *SimPin

	MPU *SimMPU
}

var _ Peripherals = (*Sim)(nil)

func NewSim(b Board) *Sim {
	s := &Sim{board: b, mask: irq.NewHost(), MPU: NewSimMPU()}
	for id, p := range b.SPI {
		if p.Active {
			s.spi[id] = NewSimSPI(s.mask)
		}
	}
	for id, sl := range b.Slaves {
		if sl.CSPin < 0 || !sl.Port.Valid() || s.spi[sl.Port] == nil {
			continue
		}
		s.cs[id] = NewSimPin(true)
	}
	if pin := s.cs[spibus.SlaveMPU]; pin != nil {
		pin.OnSet(s.MPU.ChipSelectHook())
		s.spi[b.Slaves[spibus.SlaveMPU].Port].Attach(s.MPU)
	}
	for id, u := range b.UART {
		if u.Active {
			s.uart[id] = NewSimUART(s.mask)
		}
	}
	s.errL = NewSimPin(false)
	s.heart = NewSimPin(false)
	return s
}

func (s *Sim) Board() Board    { return s.board }
func (s *Sim) Mask() irq.Mask  { return s.mask }
func (s *Sim) Host() *irq.Host { return s.mask }

func (s *Sim) SPI(id spibus.PortID) spibus.Peripheral {
	if !id.Valid() || s.spi[id] == nil {
		return nil
	}
	return s.spi[id]
}

func (s *Sim) ChipSelect(id spibus.SlaveID) spibus.ChipSelect {
	if !id.Valid() || s.cs[id] == nil {
		return nil
	}
	return s.cs[id]
}

func (s *Sim) UART(id uartline.PortID) uartline.Peripheral {
	if !id.Valid() || s.uart[id] == nil {
		return nil
	}
	return s.uart[id]
}

func (s *Sim) ErrorLED() report.Pin     { return s.errL }
func (s *Sim) HeartbeatLED() report.Pin { return s.heart }

// SimSPI, SimPin and SimUART give tests the concrete simulators.
func (s *Sim) SimSPI(id spibus.PortID) *SimSPI  { return s.spi[id] }
func (s *Sim) SimPin(id spibus.SlaveID) *SimPin { return s.cs[id] }
func (s *Sim) SimUART(id uartline.PortID) *SimUART {
	return s.uart[id]
}

func (s *Sim) Bind(h Handlers) {
	for id, p := range s.spi {
		if p == nil || h.SPIRx == nil || h.SPITx == nil {
			continue
		}
		port := spibus.PortID(id)
		p.Handlers(func() { h.SPIRx(port) }, func() { h.SPITx(port) })
	}
	for id, u := range s.uart {
		if u == nil || h.UARTRx == nil || h.UARTTx == nil {
			continue
		}
		port := uartline.PortID(id)
		u.Handlers(func() { h.UARTRx(port) }, func() { h.UARTTx(port) })
	}
}

func (s *Sim) Start(ctx context.Context) {
	for _, p := range s.spi {
		if p != nil {
			go p.Run(ctx)
		}
	}
	for _, u := range s.uart {
		if u != nil {
			go u.Run(ctx)
		}
	}
}
