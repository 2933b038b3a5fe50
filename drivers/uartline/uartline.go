// Package uartline is the formatted line channel over a UART.
//
// Tasks append whole rendered messages to the outbound ring under the port
// mutex and arm the transmit interrupt; HandleTxIRQ drains one byte per
// trigger and masks itself when the ring runs dry. HandleRxIRQ stores
// inbound bytes in the inbound ring and posts a line descriptor to the
// port queue on every carriage return.
package uartline

import (
	"iocore-go/errcode"
	"iocore-go/logger"
	"iocore-go/msgq"
	"iocore-go/report"
	"iocore-go/x/fmtx"
	"iocore-go/x/irq"
	"iocore-go/x/ringbuf"
	"iocore-go/x/semx"
)

type PortID uint8

const (
	UART1 PortID = iota
	UART2
	UART3

	PortCount // must be last
)

func (p PortID) Valid() bool { return p < PortCount }

func (p PortID) String() string {
	switch p {
	case UART1:
		return "uart1"
	case UART2:
		return "uart2"
	case UART3:
		return "uart3"
	default:
		return "invalid"
	}
}

const (
	// MaxMessage bounds a rendered message, terminator slot included.
	MaxMessage = 255
	Terminator = '\r'
)

// Peripheral is the register-level surface of one UART.
type Peripheral interface {
	Enable()
	SetRxInterrupt(on bool)
	SetTxInterrupt(on bool)
	TxInterruptEnabled() bool
	RxReady() bool
	TxReady() bool
	ReadData() byte
	WriteData(b byte)
}

type PortConfig struct {
	Periph   Peripheral
	Queue    msgq.QueueID
	RxBuffer ringbuf.BufferID
	TxBuffer ringbuf.BufferID
	Active   bool
}

type Config struct {
	Ports   [PortCount]PortConfig
	Buffers *ringbuf.Table
	Queues  *msgq.Set
	Mask    irq.Mask

	// Wait bounds mutex acquisition; zero means semx.WaitForever.
	Wait   semx.Wait
	Logger logger.Logger
}

type port struct {
	id  PortID
	cfg PortConfig
	mu  *semx.Mutex

	rxIn  *ringbuf.Producer // interrupt side
	txOut *ringbuf.Producer // task side
	txIn  *ringbuf.Consumer // interrupt side
}

type Driver struct {
	ports [PortCount]port
	q     *msgq.Set
	mask  irq.Mask
	wait  semx.Wait
	log   logger.Logger
}

// New claims the ring capabilities of every active port and attaches the
// inbound consumer to the port's line queue.
func New(cfg Config) (*Driver, error) {
	const op = "uart.new"
	if cfg.Buffers == nil || cfg.Queues == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "nil buffers or queues"}
	}
	d := &Driver{
		q:    cfg.Queues,
		mask: cfg.Mask,
		wait: cfg.Wait,
		log:  logger.OrDefault(cfg.Logger).With("svc", "uartline"),
	}
	if d.mask == nil {
		d.mask = irq.NewHost()
	}
	if d.wait == semx.NoWait {
		d.wait = semx.WaitForever
	}
	for id := PortID(0); id < PortCount; id++ {
		p := &d.ports[id]
		p.id = id
		p.cfg = cfg.Ports[id]
		if !p.cfg.Active {
			continue
		}
		if err := d.claim(p, cfg.Buffers); err != nil {
			return nil, &errcode.E{C: errcode.Of(err), Op: op, Msg: id.String(), Err: err}
		}
		p.mu = semx.New()
	}
	return d, nil
}

func (d *Driver) claim(p *port, tab *ringbuf.Table) (err error) {
	if p.cfg.Periph == nil {
		return errcode.InvalidParams
	}
	if p.rxIn, err = tab.Producer(p.cfg.RxBuffer); err != nil {
		return err
	}
	rxOut, err := tab.Consumer(p.cfg.RxBuffer)
	if err != nil {
		return err
	}
	if err = d.q.AttachLineSource(p.cfg.RxBuffer, rxOut); err != nil {
		return err
	}
	if p.txOut, err = tab.Producer(p.cfg.TxBuffer); err != nil {
		return err
	}
	p.txIn, err = tab.Consumer(p.cfg.TxBuffer)
	return err
}

func (d *Driver) port(id PortID) (*port, error) {
	if !id.Valid() {
		return nil, errcode.InvalidID
	}
	p := &d.ports[id]
	if !p.cfg.Active {
		return nil, errcode.PortInactive
	}
	return p, nil
}

// Start arms both interrupts and enables every active port.
func (d *Driver) Start() {
	for id := PortID(0); id < PortCount; id++ {
		p := &d.ports[id]
		if !p.cfg.Active {
			continue
		}
		p.cfg.Periph.SetTxInterrupt(true)
		p.cfg.Periph.SetRxInterrupt(true)
		p.cfg.Periph.Enable()
		d.log.Info("port started", "port", id.String())
	}
}

// WriteFormatted renders format into a bounded buffer and queues it for
// transmission. Renders that overflow MaxMessage-1 bytes or come out empty
// are rejected before the mutex is taken.
func (d *Driver) WriteFormatted(id PortID, format string, args ...any) error {
	const op = "uart.write"
	p, err := d.port(id)
	if err != nil {
		return errcode.Wrap(op, errcode.Of(err))
	}
	var buf [MaxMessage]byte
	n, err := fmtx.Bprintf(buf[:], format, args...)
	if err != nil {
		return errcode.Wrap(op, errcode.Of(err))
	}

	if !p.mu.Take(d.wait) {
		return errcode.Wrap(op, errcode.Timeout)
	}
	defer p.mu.Give()

	if p.txOut.WriteMessage(buf[:n]) != n {
		return errcode.Wrap(op, errcode.Rejected)
	}
	st := d.mask.Disable()
	if !p.cfg.Periph.TxInterruptEnabled() {
		p.cfg.Periph.SetTxInterrupt(true)
	}
	d.mask.Restore(st)
	return nil
}

// Printer binds WriteFormatted to one port.
func (d *Driver) Printer(id PortID) report.Printer {
	return report.PrinterFunc(func(format string, args ...any) error {
		return d.WriteFormatted(id, format, args...)
	})
}

// ReceiveLine waits up to the queue timeout for a complete inbound line.
func (d *Driver) ReceiveLine(id PortID, out []byte) (int, bool) {
	p, err := d.port(id)
	if err != nil {
		return 0, false
	}
	return d.q.ReceiveLine(p.cfg.Queue, out)
}

// ---------------- Interrupt handlers ----------------

// HandleRxIRQ stores one received byte. The descriptor posted for a
// terminator carries the write cursor as it was before the terminator.
func (d *Driver) HandleRxIRQ(id PortID) {
	p, err := d.port(id)
	if err != nil || !p.cfg.Periph.RxReady() {
		return
	}
	b := p.cfg.Periph.ReadData()
	end := p.rxIn.Cursor()
	if p.rxIn.WriteByte(b) && b == Terminator {
		d.q.SendLineFromISR(p.cfg.Queue, p.cfg.RxBuffer, end)
	}
}

// HandleTxIRQ sends one byte per trigger, skipping NULs, and masks the
// transmit interrupt once the outbound ring is empty.
func (d *Driver) HandleTxIRQ(id PortID) {
	p, err := d.port(id)
	if err != nil || !p.cfg.Periph.TxReady() {
		return
	}
	if p.txIn.IsEmpty() {
		p.cfg.Periph.SetTxInterrupt(false)
		return
	}
	if b := p.txIn.ReadByte(); b != 0 {
		p.cfg.Periph.WriteData(b)
	}
}
