package spibus

import (
	"sync/atomic"
	"time"

	"iocore-go/errcode"
	"iocore-go/logger"
	"iocore-go/msgq"
	"iocore-go/report"
	"iocore-go/x/fmtx"
	"iocore-go/x/irq"
	"iocore-go/x/semx"
)

type port struct {
	id       PortID
	cfg      PortConfig
	mu       *semx.Mutex
	selected atomic.Uint32 // SlaveID
}

// Driver owns every bus port of the board.
type Driver struct {
	ports  [PortCount]port
	slaves [SlaveNone]SlaveConfig
	q      *msgq.Set
	mask   irq.Mask
	wait   semx.Wait
	settle time.Duration

	log      logger.Logger
	reporter report.Reporter
}

func New(cfg Config) (*Driver, error) {
	if cfg.Queues == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "spi.new", Msg: "nil queue set"}
	}
	d := &Driver{
		slaves:   cfg.Slaves,
		q:        cfg.Queues,
		mask:     cfg.Mask,
		wait:     cfg.Wait,
		log:      logger.OrDefault(cfg.Logger).With("svc", "spibus"),
		reporter: cfg.Reporter,
	}
	if d.mask == nil {
		d.mask = irq.NewHost()
	}
	if d.wait == semx.NoWait {
		d.wait = semx.WaitForever
	}
	if d.reporter == nil {
		d.reporter = report.Discard
	}
	tick := cfg.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	settle := cfg.SettleTicks
	if settle <= 0 {
		settle = DefaultSettleTicks
	}
	d.settle = tick * time.Duration(settle)

	for id := PortID(0); id < PortCount; id++ {
		p := &d.ports[id]
		p.id = id
		p.cfg = cfg.Ports[id]
		p.selected.Store(uint32(SlaveNone))
		if !p.cfg.Active {
			continue
		}
		if p.cfg.Periph == nil {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: "spi.new", Msg: id.String() + ": no peripheral"}
		}
		p.mu = semx.New()
	}
	for s := SlaveID(0); s < SlaveNone; s++ {
		sc := cfg.Slaves[s]
		if sc.CS == nil || !sc.Port.Valid() {
			continue
		}
		sc.CS.Set(true) // idle high
	}
	return d, nil
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

func (d *Driver) portOf(s SlaveID) (*port, error) {
	if !s.Valid() || d.slaves[s].CS == nil {
		return nil, errcode.InvalidID
	}
	return d.port(d.slaves[s].Port)
}

// Selected reports the slave currently selected on id.
func (d *Driver) Selected(id PortID) SlaveID {
	if !id.Valid() {
		return SlaveNone
	}
	return SlaveID(d.ports[id].selected.Load())
}

// ---------------- Chip select ----------------

// The select steps run only inside transact, with the port mutex held.

// selectSlave asserts s on p. It fails with SlaveBusy while another slave is
// selected and leaves that selection in place; SlaveNone deselects.
func (d *Driver) selectSlave(p *port, s SlaveID) error {
	if s == SlaveNone {
		d.deselect(p)
		return nil
	}
	if !s.Valid() || d.slaves[s].CS == nil || d.slaves[s].Port != p.id {
		return errcode.InvalidID
	}
	if !p.selected.CompareAndSwap(uint32(SlaveNone), uint32(s)) {
		return errcode.SlaveBusy
	}
	d.slaves[s].CS.Set(false)
	return nil
}

// deselect releases whatever slave is selected on p.
func (d *Driver) deselect(p *port) {
	if s := SlaveID(p.selected.Swap(uint32(SlaveNone))); s.Valid() {
		d.slaves[s].CS.Set(true)
	}
}

// reselect pulses the select line of the current slave with the settle
// delay in between, restarting the slave's framing.
func (d *Driver) reselect(p *port) error {
	s := SlaveID(p.selected.Load())
	if !s.Valid() {
		return errcode.InvalidParams
	}
	cs := d.slaves[s].CS
	cs.Set(true)
	time.Sleep(d.settle)
	cs.Set(false)
	return nil
}

// ---------------- Register entry points ----------------

// ReadRegister returns the value of register addr on slave s.
func (d *Driver) ReadRegister(addr byte, s SlaveID) (byte, error) {
	const op = "spi.read"
	p, err := d.portOf(s)
	if err != nil {
		return 0, errcode.Wrap(op, errcode.Of(err))
	}
	var v byte
	err = d.transact(p, s, func() (err error) {
		v, err = d.request(p, addr|readFlag)
		return err
	})
	if err != nil {
		d.log.Debug("read failed", "slave", s.String(), "addr", addr, "err", err)
		return 0, &errcode.E{C: errcode.Of(err), Op: op, Msg: fmtx.Sprintf("reg 0x%02X", addr)}
	}
	return v, nil
}

// WriteRegister writes value to register addr on slave s and verifies it by
// reading it back. A mismatch fails the call; there is no retry.
func (d *Driver) WriteRegister(value, addr byte, s SlaveID) error {
	const op = "spi.write"
	p, err := d.portOf(s)
	if err != nil {
		return errcode.Wrap(op, errcode.Of(err))
	}
	a := addr & writeMask
	var got byte
	err = d.transact(p, s, func() error {
		if _, err := d.exchange(p, a); err != nil {
			return err
		}
		if _, err := d.exchange(p, value); err != nil {
			return err
		}
		if err := d.reselect(p); err != nil {
			return err
		}
		v, err := d.request(p, a|readFlag)
		if err != nil {
			return err
		}
		if got = v; got != value {
			return errcode.VerifyMismatch
		}
		return nil
	})
	if err == nil {
		return nil
	}
	e := &errcode.E{C: errcode.Of(err), Op: op, Msg: fmtx.Sprintf("reg 0x%02X", a)}
	if e.C == errcode.VerifyMismatch {
		e.Msg = fmtx.Sprintf("reg 0x%02X wrote 0x%02X read 0x%02X", a, value, got)
		d.log.Warn("written value mismatch", "slave", s.String(), "addr", a, "want", value, "got", got)
		d.reporter.Report(op, e)
	}
	return e
}

// transact runs fn with the port locked, enabled and s selected. Every exit
// path deselects, disables and unlocks.
func (d *Driver) transact(p *port, s SlaveID, fn func() error) error {
	if !p.mu.Take(d.wait) {
		return errcode.Timeout
	}
	defer p.mu.Give()

	d.enable(p)
	defer d.disable(p)

	if err := d.selectSlave(p, s); err != nil {
		return err
	}
	defer d.deselect(p)

	if n := d.q.Flush(p.cfg.RxQueue) + d.q.Flush(p.cfg.TxQueue); n > 0 {
		d.log.Debug("flushed stale bytes", "port", p.id.String(), "n", n)
	}
	return fn()
}

func (d *Driver) enable(p *port) {
	p.cfg.Periph.Enable()
	p.cfg.Periph.SetRxInterrupt(true)
}

func (d *Driver) disable(p *port) {
	p.cfg.Periph.SetRxInterrupt(false)
	p.cfg.Periph.Disable()
}

// request sends req, discards the byte clocked in with it, then clocks a
// dummy byte to capture the response.
func (d *Driver) request(p *port, req byte) (byte, error) {
	if _, err := d.exchange(p, req); err != nil {
		return 0, err
	}
	return d.exchange(p, 0)
}

// exchange clocks one byte out and returns the byte clocked in with it.
func (d *Driver) exchange(p *port, b byte) (byte, error) {
	if err := d.send(p, b); err != nil {
		return 0, err
	}
	in, ok := d.q.ReceiveByte(p.cfg.RxQueue)
	if !ok {
		return 0, errcode.Timeout
	}
	return in, nil
}

func (d *Driver) send(p *port, b byte) error {
	if !d.q.SendByte(p.cfg.TxQueue, b) {
		return errcode.Timeout
	}
	st := d.mask.Disable()
	if !p.cfg.Periph.TxInterruptEnabled() {
		p.cfg.Periph.SetTxInterrupt(true)
	}
	d.mask.Restore(st)
	return nil
}

// ---------------- Interrupt handlers ----------------

// HandleRxIRQ relays a received byte onto the port's RX queue. A full queue
// drops the byte.
func (d *Driver) HandleRxIRQ(id PortID) {
	p, err := d.port(id)
	if err != nil || !p.cfg.Periph.RxReady() {
		return
	}
	d.q.SendByteFromISR(p.cfg.RxQueue, p.cfg.Periph.ReadData())
}

// HandleTxIRQ feeds one pending byte to the data register, or masks the
// transmit interrupt when nothing is pending.
func (d *Driver) HandleTxIRQ(id PortID) {
	p, err := d.port(id)
	if err != nil || !p.cfg.Periph.TxReady() {
		return
	}
	if d.q.PendingFromISR(p.cfg.TxQueue) == 0 {
		p.cfg.Periph.SetTxInterrupt(false)
		return
	}
	if b, ok := d.q.ReceiveByteFromISR(p.cfg.TxQueue); ok {
		p.cfg.Periph.WriteData(b)
	}
}
