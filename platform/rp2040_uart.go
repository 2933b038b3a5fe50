//go:build rp2040

package platform

import (
	"context"
	"machine"
	"sync/atomic"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"iocore-go/x/irq"
)

// txBatch bounds how many transmit handler calls share one hardware write.
const txBatch = 32

// rp2UART presents a uartx port as a register-level line peripheral. uartx
// owns the UART vector, so two pump goroutines stand in for it: one feeds
// received bytes through the RX handler, the other drains the TX handler
// into the uartx transmit ring. Both call the handlers with interrupts
// masked.
type rp2UART struct {
	hw *uartx.UART

	enabled atomic.Bool
	rxie    atomic.Bool
	txie    atomic.Bool
	kick    chan struct{}

	// touched only with interrupts masked
	latch byte
	have  bool
	out   []byte

	onRx func()
	onTx func()
}

func newRP2UART(p UARTPort) (*rp2UART, error) {
	hw := uartx.UART0
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: p.Baud,
		TX:       machine.Pin(p.TX),
		RX:       machine.Pin(p.RX),
	}); err != nil {
		return nil, err
	}
	if err := hw.SetFormat(8, 1, uartx.ParityNone); err != nil {
		return nil, err
	}
	return &rp2UART{hw: hw, kick: make(chan struct{}, 1), out: make([]byte, 0, txBatch)}, nil
}

func (u *rp2UART) Enable() {
	u.enabled.Store(true)
	u.wake()
}

func (u *rp2UART) SetRxInterrupt(on bool) { u.rxie.Store(on) }
func (u *rp2UART) SetTxInterrupt(on bool) {
	u.txie.Store(on)
	if on {
		u.wake()
	}
}

func (u *rp2UART) TxInterruptEnabled() bool { return u.txie.Load() }
func (u *rp2UART) RxReady() bool            { return u.have }
func (u *rp2UART) TxReady() bool            { return len(u.out) < cap(u.out) }

func (u *rp2UART) ReadData() byte {
	u.have = false
	return u.latch
}

func (u *rp2UART) WriteData(b byte) { u.out = append(u.out, b) }

func (u *rp2UART) wake() {
	select {
	case u.kick <- struct{}{}:
	default:
	}
}

func (u *rp2UART) rxPump(ctx context.Context) {
	for {
		b, err := u.hw.RecvByteContext(ctx)
		if err != nil {
			return
		}
		if !u.enabled.Load() || !u.rxie.Load() || u.onRx == nil {
			continue
		}
		irq.CPU{}.Dispatch(func() {
			u.latch, u.have = b, true
			u.onRx()
		})
	}
}

func (u *rp2UART) txPump(ctx context.Context) {
	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.kick:
		}
		for u.enabled.Load() && u.txie.Load() && u.onTx != nil {
			irq.CPU{}.Dispatch(func() {
				for i := 0; i < txBatch && u.txie.Load(); i++ {
					u.onTx()
				}
				pending = append(pending[:0], u.out...)
				u.out = u.out[:0]
			})
			if len(pending) > 0 {
				if _, err := u.hw.Write(pending); err != nil {
					break
				}
			}
		}
	}
}
