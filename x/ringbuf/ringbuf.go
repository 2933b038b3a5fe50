// Package ringbuf is the single-producer, single-consumer byte ring used to
// decouple interrupt-time byte arrival/departure from task-time consumption.
//
// A Ring is never written or read directly. The producer context claims a
// *Producer and the consumer context claims a *Consumer; each claim succeeds
// once per ring, so a second producer cannot exist by construction.
//
// Cursors are 8-bit and wrap modulo Capacity on overflow. The ring does not
// distinguish "empty" from "Capacity bytes pending": both read as empty.
package ringbuf

import (
	"sync/atomic"

	"iocore-go/errcode"
)

// Capacity is the fixed store size. It must stay 256 so an 8-bit cursor
// wraps without explicit modulo arithmetic.
const Capacity = 256

// ignored bytes are accepted by WriteByte but never stored.
func ignored(b byte) bool {
	switch b {
	case '\n', ' ', '\t', 0:
		return true
	}
	return false
}

// cursor is an 8-bit index published with atomic load/store so the other
// context observes the bytes written before it. It carries no locking.
type cursor struct{ v atomic.Uint32 }

func (c *cursor) load() uint8   { return uint8(c.v.Load()) }
func (c *cursor) store(n uint8) { c.v.Store(uint32(n)) }

// Ring is a fixed-capacity byte store with independent read/write cursors.
type Ring struct {
	buf [Capacity]byte
	wr  cursor // owned by the producer
	rd  cursor // owned by the consumer

	producer atomic.Bool
	consumer atomic.Bool
}

// IsEmpty reports write cursor == read cursor.
func (r *Ring) IsEmpty() bool { return r.wr.load() == r.rd.load() }

// Watermarks returns the current read and write cursors.
func (r *Ring) Watermarks() (rd, wr uint8) { return r.rd.load(), r.wr.load() }

// ClaimProducer hands out the write capability. Only the first call succeeds.
func (r *Ring) ClaimProducer() (*Producer, error) {
	if !r.producer.CompareAndSwap(false, true) {
		return nil, errcode.AlreadyClaimed
	}
	return &Producer{r: r}, nil
}

// ClaimConsumer hands out the read capability. Only the first call succeeds.
func (r *Ring) ClaimConsumer() (*Consumer, error) {
	if !r.consumer.CompareAndSwap(false, true) {
		return nil, errcode.AlreadyClaimed
	}
	return &Consumer{r: r}, nil
}

// -----------------------------------------------------------------------------
// Producer side
// -----------------------------------------------------------------------------

// Producer is the write capability of one Ring. A nil *Producer stands in
// for an invalid buffer identifier: every call fails closed.
type Producer struct{ r *Ring }

// WriteByte stores b at the write cursor and advances it by one. The ignored
// set ('\n', ' ', '\t', 0) is accepted but not stored and does not advance
// the cursor, so stored count may differ from requested count.
func (p *Producer) WriteByte(b byte) bool {
	if p == nil {
		return false
	}
	if ignored(b) {
		return true
	}
	wr := p.r.wr.load()
	p.r.buf[wr] = b
	p.r.wr.store(wr + 1) // release
	return true
}

// WriteMessage copies src verbatim (no filtering) and advances the write
// cursor by len(src). Messages of Capacity-1 bytes or more are rejected
// whole: 0 is returned and nothing changes.
func (p *Producer) WriteMessage(src []byte) (n int) {
	if p == nil || len(src) >= Capacity-1 {
		return 0
	}
	wr := p.r.wr.load()
	for _, b := range src {
		p.r.buf[wr] = b
		wr++
	}
	p.r.wr.store(wr) // release
	return len(src)
}

// Cursor snapshots the write cursor.
func (p *Producer) Cursor() uint8 {
	if p == nil {
		return 0
	}
	return p.r.wr.load()
}

func (p *Producer) IsEmpty() bool { return p == nil || p.r.IsEmpty() }

// -----------------------------------------------------------------------------
// Consumer side
// -----------------------------------------------------------------------------

// Consumer is the read capability of one Ring. A nil *Consumer reads zero.
type Consumer struct{ r *Ring }

// ReadByte returns the byte at the read cursor and advances it, whether or
// not the ring is empty.
func (c *Consumer) ReadByte() byte {
	if c == nil {
		return 0
	}
	rd := c.r.rd.load()
	b := c.r.buf[rd]
	c.r.rd.store(rd + 1)
	return b
}

// ReadMessage copies from the read cursor into dst, advancing the cursor per
// byte, until the number of bytes copied equals end, dst is full, or
// Capacity bytes were copied.
//
// end is the absolute write cursor captured at the message boundary, not a
// length. Comparing it against the running count is only exact when the
// read cursor started at 0; the comparison is kept as-is until the intended
// semantics are confirmed.
func (c *Consumer) ReadMessage(end uint8, dst []byte) (n int) {
	if c == nil {
		return 0
	}
	rd := c.r.rd.load()
	for n != int(end) && n < len(dst) && n < Capacity {
		dst[n] = c.r.buf[rd]
		n++
		rd++
	}
	c.r.rd.store(rd)
	return n
}

func (c *Consumer) IsEmpty() bool { return c == nil || c.r.IsEmpty() }
