// Package msgq is the set of bounded mailboxes between interrupt handlers
// and tasks. Each queue carries exactly one payload shape for its lifetime:
// a line descriptor pointing into a ring buffer, or a raw byte.
//
// *FromISR calls never block. Task-side calls wait at most the configured
// timeout and report a plain false when it elapses.
package msgq

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"iocore-go/errcode"
	"iocore-go/logger"
	"iocore-go/report"
	"iocore-go/x/ringbuf"
)

const (
	Capacity            = 16
	DefaultTimeoutTicks = 50
	DefaultTick         = time.Millisecond
)

type QueueID uint8

const (
	Uart1 QueueID = iota
	Uart3
	Spi1Rx
	Spi1Tx

	Count // must be last
)

func (q QueueID) Valid() bool { return q < Count }

func (q QueueID) String() string {
	switch q {
	case Uart1:
		return "uart1"
	case Uart3:
		return "uart3"
	case Spi1Rx:
		return "spi1_rx"
	case Spi1Tx:
		return "spi1_tx"
	default:
		return "invalid"
	}
}

type Shape uint8

const (
	ShapeLine Shape = iota + 1
	ShapeByte
)

// Line is a descriptor for a complete line waiting in a ring buffer.
type Line struct {
	Buf ringbuf.BufferID
	End uint8
}

// Binding is the static description of one queue.
type Binding struct {
	Shape  Shape
	Active bool // inactive queues are configured but never created
}

// Bindings is the queue table of the board.
var Bindings = [Count]Binding{
	Uart1:  {Shape: ShapeLine, Active: true},
	Uart3:  {Shape: ShapeLine},
	Spi1Rx: {Shape: ShapeByte, Active: true},
	Spi1Tx: {Shape: ShapeByte, Active: true},
}

type Config struct {
	Tick         time.Duration // scheduler tick; DefaultTick when zero
	TimeoutTicks int           // DefaultTimeoutTicks when zero
	Logger       logger.Logger
	Reporter     report.Reporter
}

type queue struct {
	shape Shape
	lines chan Line
	bytes chan byte
	drops *xsync.Counter
}

func newQueue(shape Shape) *queue {
	q := &queue{shape: shape, drops: xsync.NewCounter()}
	switch shape {
	case ShapeLine:
		q.lines = make(chan Line, Capacity)
	case ShapeByte:
		q.bytes = make(chan byte, Capacity)
	}
	return q
}

func (q *queue) len() int {
	if q.shape == ShapeLine {
		return len(q.lines)
	}
	return len(q.bytes)
}

// Set owns every queue of the image.
type Set struct {
	log      logger.Logger
	reporter report.Reporter
	timeout  time.Duration

	initMu  sync.Mutex
	queues  [Count]atomic.Pointer[queue]
	sources [ringbuf.Count]atomic.Pointer[ringbuf.Consumer]
}

func NewSet(cfg Config) *Set {
	tick := cfg.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	ticks := cfg.TimeoutTicks
	if ticks <= 0 {
		ticks = DefaultTimeoutTicks
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = report.Discard
	}
	return &Set{
		log:      logger.OrDefault(cfg.Logger).With("svc", "msgq"),
		reporter: rep,
		timeout:  tick * time.Duration(ticks),
	}
}

// Timeout is the task-side wait bound.
func (s *Set) Timeout() time.Duration { return s.timeout }

// InitAll creates every active queue. Queues that already exist are left
// untouched and reported; the first such error is returned.
func (s *Set) InitAll() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	var first error
	for id := QueueID(0); id < Count; id++ {
		b := Bindings[id]
		if !b.Active {
			continue
		}
		if s.queues[id].Load() != nil {
			err := &errcode.E{C: errcode.AlreadyInitialised, Op: "msgq.init", Msg: id.String()}
			s.reporter.Report("msgq.init", err)
			if first == nil {
				first = err
			}
			continue
		}
		s.queues[id].Store(newQueue(b.Shape))
		s.log.Debug("queue created", "queue", id.String(), "cap", Capacity)
	}
	return first
}

// AttachLineSource binds the task-side consumer that ReceiveLine drains for
// descriptors naming buf.
func (s *Set) AttachLineSource(buf ringbuf.BufferID, c *ringbuf.Consumer) error {
	if !buf.Valid() || c == nil {
		return errcode.InvalidID
	}
	if !s.sources[buf].CompareAndSwap(nil, c) {
		return errcode.AlreadyClaimed
	}
	return nil
}

func (s *Set) get(id QueueID, shape Shape) *queue {
	if !id.Valid() {
		return nil
	}
	q := s.queues[id].Load()
	if q == nil || q.shape != shape {
		return nil
	}
	return q
}

// -----------------------------------------------------------------------------
// Line descriptors
// -----------------------------------------------------------------------------

func (s *Set) SendLineFromISR(id QueueID, buf ringbuf.BufferID, end uint8) bool {
	q := s.get(id, ShapeLine)
	if q == nil || !buf.Valid() {
		return false
	}
	select {
	case q.lines <- Line{Buf: buf, End: end}:
		return true
	default:
		q.drops.Inc()
		return false
	}
}

// ReceiveLine waits for a descriptor and drains the referenced ring into out
// using its end marker. It reports true only when a descriptor arrived and
// at least one byte was drained.
func (s *Set) ReceiveLine(id QueueID, out []byte) (int, bool) {
	q := s.get(id, ShapeLine)
	if q == nil || len(out) == 0 {
		return 0, false
	}
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	var l Line
	select {
	case l = <-q.lines:
	case <-t.C:
		return 0, false
	}
	n := s.sources[l.Buf].Load().ReadMessage(l.End, out)
	return n, n > 0
}

// -----------------------------------------------------------------------------
// Raw bytes
// -----------------------------------------------------------------------------

func (s *Set) SendByte(id QueueID, b byte) bool {
	q := s.get(id, ShapeByte)
	if q == nil {
		return false
	}
	select {
	case q.bytes <- b:
		return true
	default:
	}
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	select {
	case q.bytes <- b:
		return true
	case <-t.C:
		return false
	}
}

func (s *Set) ReceiveByte(id QueueID) (byte, bool) {
	q := s.get(id, ShapeByte)
	if q == nil {
		return 0, false
	}
	select {
	case b := <-q.bytes:
		return b, true
	default:
	}
	t := time.NewTimer(s.timeout)
	defer t.Stop()
	select {
	case b := <-q.bytes:
		return b, true
	case <-t.C:
		return 0, false
	}
}

func (s *Set) SendByteFromISR(id QueueID, b byte) bool {
	q := s.get(id, ShapeByte)
	if q == nil {
		return false
	}
	select {
	case q.bytes <- b:
		return true
	default:
		q.drops.Inc()
		return false
	}
}

func (s *Set) ReceiveByteFromISR(id QueueID) (byte, bool) {
	q := s.get(id, ShapeByte)
	if q == nil {
		return 0, false
	}
	select {
	case b := <-q.bytes:
		return b, true
	default:
		return 0, false
	}
}

// Flush discards whatever is pending in a byte queue and returns the count.
func (s *Set) Flush(id QueueID) int {
	q := s.get(id, ShapeByte)
	if q == nil {
		return 0
	}
	n := 0
	for {
		select {
		case <-q.bytes:
			n++
		default:
			return n
		}
	}
}

// PendingFromISR is the queue depth, 0 for an invalid or absent queue.
func (s *Set) PendingFromISR(id QueueID) int {
	if !id.Valid() {
		return 0
	}
	q := s.queues[id].Load()
	if q == nil {
		return 0
	}
	return q.len()
}

// Drops counts interrupt-side enqueues rejected because the queue was full.
func (s *Set) Drops(id QueueID) int64 {
	if !id.Valid() {
		return 0
	}
	q := s.queues[id].Load()
	if q == nil {
		return 0
	}
	return q.drops.Value()
}
