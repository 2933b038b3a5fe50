package platform

import (
	"context"
	"sync"

	"iocore-go/x/irq"
)

// SPIDevice is a slave on a simulated bus. Exchange returns the byte the
// slave drives while b is clocked in.
type SPIDevice interface {
	Exchange(b byte) byte
}

// SimSPI is a controller with a single-byte data register. A write
// completes immediately: the clocked-in byte lands in the receive register
// and RXNE rises. An unread byte is overwritten and counted as an overrun.
type SimSPI struct {
	d dispatcher

	mu       sync.Mutex
	enabled  bool
	rxie     bool
	txie     bool
	rxne     bool
	rx       byte
	devs     []SPIDevice
	onRx     func()
	onTx     func()
	overruns int
	written  []byte
}

func NewSimSPI(mask *irq.Host) *SimSPI {
	return &SimSPI{d: newDispatcher(mask)}
}

// Attach adds a slave. Every attached slave sees the clock, as on a real
// bus; slaves that are not selected must idle their output low.
func (s *SimSPI) Attach(dev SPIDevice) {
	s.mu.Lock()
	s.devs = append(s.devs, dev)
	s.mu.Unlock()
}

// Handlers installs the receive and transmit interrupt handlers.
func (s *SimSPI) Handlers(rx, tx func()) {
	s.mu.Lock()
	s.onRx, s.onTx = rx, tx
	s.mu.Unlock()
}

func (s *SimSPI) Run(ctx context.Context) { s.d.run(ctx, s.next) }

func (s *SimSPI) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil
	}
	if s.rxie && s.rxne && s.onRx != nil {
		return s.onRx
	}
	if s.txie && s.onTx != nil {
		return s.onTx
	}
	return nil
}

func (s *SimSPI) set(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.d.wake()
}

func (s *SimSPI) Enable()  { s.set(func() { s.enabled = true }) }
func (s *SimSPI) Disable() { s.set(func() { s.enabled = false }) }

func (s *SimSPI) SetRxInterrupt(on bool) { s.set(func() { s.rxie = on }) }
func (s *SimSPI) SetTxInterrupt(on bool) { s.set(func() { s.txie = on }) }

func (s *SimSPI) TxInterruptEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txie
}

func (s *SimSPI) RxReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rxne
}

// TxReady is always true: transfers complete within WriteData.
func (s *SimSPI) TxReady() bool { return true }

func (s *SimSPI) ReadData() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rxne = false
	return s.rx
}

func (s *SimSPI) WriteData(b byte) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	var in byte
	for _, dev := range s.devs {
		in |= dev.Exchange(b)
	}
	if s.rxne {
		s.overruns++
	}
	s.rx, s.rxne = in, true
	s.written = append(s.written, b)
	s.mu.Unlock()
	s.d.wake()
}

// Overruns counts received bytes lost before they were read.
func (s *SimSPI) Overruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overruns
}

// Written returns a copy of every byte clocked out so far.
func (s *SimSPI) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written...)
}
