// x/ringbuf/registry.go
package ringbuf

import "iocore-go/errcode"

// BufferID is the closed enumeration of rings in the image.
type BufferID uint8

const (
	Uart1Rx BufferID = iota
	Uart1Tx

	Count // must be last
)

func (id BufferID) Valid() bool { return id < Count }

func (id BufferID) String() string {
	switch id {
	case Uart1Rx:
		return "uart1_rx"
	case Uart1Tx:
		return "uart1_tx"
	default:
		return "invalid"
	}
}

// Table owns one Ring per BufferID for the life of the process.
type Table struct {
	rings [Count]Ring
}

// Global is the process-wide table wired by main.
var Global = &Table{}

// NewTable returns a fresh table with zeroed cursors and no claims.
func NewTable() *Table { return &Table{} }

// Ring returns the ring for id, or nil for an invalid id.
func (t *Table) Ring(id BufferID) *Ring {
	if !id.Valid() {
		return nil
	}
	return &t.rings[id]
}

// Producer claims the write capability of id. An invalid id yields
// (nil, errcode.InvalidID); a nil *Producer still fails closed on use.
func (t *Table) Producer(id BufferID) (*Producer, error) {
	r := t.Ring(id)
	if r == nil {
		return nil, errcode.InvalidID
	}
	return r.ClaimProducer()
}

// Consumer claims the read capability of id.
func (t *Table) Consumer(id BufferID) (*Consumer, error) {
	r := t.Ring(id)
	if r == nil {
		return nil, errcode.InvalidID
	}
	return r.ClaimConsumer()
}

// IsEmpty reports true for invalid ids.
func (t *Table) IsEmpty(id BufferID) bool {
	r := t.Ring(id)
	return r == nil || r.IsEmpty()
}
