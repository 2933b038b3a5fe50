package platform

import (
	"bytes"
	"context"
	"sync"

	"iocore-go/x/irq"
)

// SimUART is a UART whose wire is a byte slice in each direction. Inbound
// bytes raise RXNE one at a time; the transmit register is always empty.
type SimUART struct {
	d dispatcher

	mu      sync.Mutex
	enabled bool
	rxie    bool
	txie    bool
	rxq     []byte
	out     bytes.Buffer
	onRx    func()
	onTx    func()
	outCh   chan struct{}
}

func NewSimUART(mask *irq.Host) *SimUART {
	return &SimUART{d: newDispatcher(mask), outCh: make(chan struct{}, 1)}
}

func (u *SimUART) Handlers(rx, tx func()) {
	u.mu.Lock()
	u.onRx, u.onTx = rx, tx
	u.mu.Unlock()
}

func (u *SimUART) Run(ctx context.Context) { u.d.run(ctx, u.next) }

func (u *SimUART) next() func() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.enabled {
		return nil
	}
	if u.rxie && len(u.rxq) > 0 && u.onRx != nil {
		return u.onRx
	}
	if u.txie && u.onTx != nil {
		return u.onTx
	}
	return nil
}

func (u *SimUART) set(fn func()) {
	u.mu.Lock()
	fn()
	u.mu.Unlock()
	u.d.wake()
}

func (u *SimUART) Enable()                { u.set(func() { u.enabled = true }) }
func (u *SimUART) SetRxInterrupt(on bool) { u.set(func() { u.rxie = on }) }
func (u *SimUART) SetTxInterrupt(on bool) { u.set(func() { u.txie = on }) }

func (u *SimUART) TxInterruptEnabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.txie
}

func (u *SimUART) RxReady() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rxq) > 0
}

func (u *SimUART) TxReady() bool { return true }

func (u *SimUART) ReadData() byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.rxq) == 0 {
		return 0
	}
	b := u.rxq[0]
	u.rxq = u.rxq[1:]
	return b
}

func (u *SimUART) WriteData(b byte) {
	u.mu.Lock()
	u.out.WriteByte(b)
	u.mu.Unlock()
	select {
	case u.outCh <- struct{}{}:
	default:
	}
}

// Inject puts p on the inbound wire.
func (u *SimUART) Inject(p []byte) {
	u.set(func() { u.rxq = append(u.rxq, p...) })
}

// Output returns everything transmitted so far.
func (u *SimUART) Output() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]byte(nil), u.out.Bytes()...)
}

// TakeOutput returns and clears the transmitted bytes.
func (u *SimUART) TakeOutput() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	p := append([]byte(nil), u.out.Bytes()...)
	u.out.Reset()
	return p
}

// WaitOutput blocks until the transmitted bytes contain want or ctx ends.
func (u *SimUART) WaitOutput(ctx context.Context, want []byte) bool {
	for {
		if bytes.Contains(u.Output(), want) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-u.outCh:
		}
	}
}
