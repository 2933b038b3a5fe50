package msgq

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"iocore-go/errcode"
	"iocore-go/logger"
	"iocore-go/report"
	"iocore-go/x/ringbuf"
)

type recorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *recorder) Report(op string, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func quiet() logger.Logger {
	m := logger.NewMockLogger()
	m.On("Debug", "queue created", mock.Anything).Maybe()
	return m
}

func newSet(t *testing.T, rep report.Reporter) *Set {
	t.Helper()
	s := NewSet(Config{Tick: 100 * time.Microsecond, Logger: quiet(), Reporter: rep})
	if err := s.InitAll(); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	return s
}

func TestTimeoutIsFiftyTicks(t *testing.T) {
	s := NewSet(Config{Logger: quiet()})
	if s.Timeout() != 50*time.Millisecond {
		t.Fatalf("timeout = %v", s.Timeout())
	}
}

func TestSecondInitReportsAndKeepsQueues(t *testing.T) {
	rep := &recorder{}
	s := newSet(t, rep)
	if !s.SendByteFromISR(Spi1Rx, 0x42) {
		t.Fatal("enqueue failed")
	}

	err := s.InitAll()
	if !errors.Is(err, errcode.AlreadyInitialised) {
		t.Fatalf("second InitAll err = %v", err)
	}
	if len(rep.errs) != 3 { // uart1, spi1_rx, spi1_tx
		t.Fatalf("reported %d errors, want 3", len(rep.errs))
	}
	if b, ok := s.ReceiveByteFromISR(Spi1Rx); !ok || b != 0x42 {
		t.Fatalf("existing queue disturbed: %#x %v", b, ok)
	}
}

func TestShapeMismatchHasNoSideEffect(t *testing.T) {
	s := newSet(t, nil)
	s.SendLineFromISR(Uart1, ringbuf.Uart1Rx, 3)
	s.SendByteFromISR(Spi1Rx, 7)

	if s.SendByteFromISR(Uart1, 1) || s.SendByte(Uart1, 1) {
		t.Fatal("byte send on line queue accepted")
	}
	if _, ok := s.ReceiveByteFromISR(Uart1); ok {
		t.Fatal("byte receive on line queue accepted")
	}
	if s.SendLineFromISR(Spi1Rx, ringbuf.Uart1Rx, 1) {
		t.Fatal("line send on byte queue accepted")
	}
	if _, ok := s.ReceiveLine(Spi1Rx, make([]byte, 8)); ok {
		t.Fatal("line receive on byte queue accepted")
	}
	if s.Flush(Uart1) != 0 {
		t.Fatal("flush on line queue")
	}
	if s.PendingFromISR(Uart1) != 1 || s.PendingFromISR(Spi1Rx) != 1 {
		t.Fatalf("depths changed: %d %d", s.PendingFromISR(Uart1), s.PendingFromISR(Spi1Rx))
	}
}

func TestInvalidAndInactiveQueuesFailClosed(t *testing.T) {
	s := newSet(t, nil)
	if s.SendLineFromISR(Uart3, ringbuf.Uart1Rx, 1) {
		t.Fatal("inactive queue accepted a line")
	}
	if s.SendLineFromISR(Count, ringbuf.Uart1Rx, 1) || s.SendByteFromISR(Count, 1) {
		t.Fatal("invalid queue accepted")
	}
	if s.SendLineFromISR(Uart1, ringbuf.Count, 1) {
		t.Fatal("invalid buffer id accepted")
	}
	if s.PendingFromISR(Count) != 0 || s.PendingFromISR(Uart3) != 0 || s.Drops(Count) != 0 {
		t.Fatal("depth of absent queue")
	}
	if _, ok := NewSet(Config{Logger: quiet()}).ReceiveByteFromISR(Spi1Rx); ok {
		t.Fatal("uninitialised set returned a byte")
	}
}

// Interrupt side outruns the task: the 17th descriptor is rejected without
// blocking and the first 16 drain in order.
func TestISREnqueueBeyondCapacityFails(t *testing.T) {
	s := newSet(t, nil)
	done := make(chan bool, 1)
	go func() {
		for i := 0; i < Capacity; i++ {
			if !s.SendLineFromISR(Uart1, ringbuf.Uart1Rx, uint8(i)) {
				done <- false
				return
			}
		}
		done <- s.SendLineFromISR(Uart1, ringbuf.Uart1Rx, 99)
	}()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("17th enqueue succeeded")
		}
	case <-time.After(time.Second):
		t.Fatal("interrupt-side enqueue blocked")
	}
	if s.PendingFromISR(Uart1) != Capacity || s.Drops(Uart1) != 1 {
		t.Fatalf("pending=%d drops=%d", s.PendingFromISR(Uart1), s.Drops(Uart1))
	}
	q := s.queues[Uart1].Load()
	for i := 0; i < Capacity; i++ {
		if l := <-q.lines; l.End != uint8(i) || l.Buf != ringbuf.Uart1Rx {
			t.Fatalf("descriptor %d = %+v", i, l)
		}
	}
}

func TestReceiveLineDrainsAttachedRing(t *testing.T) {
	s := newSet(t, nil)
	tab := ringbuf.NewTable()
	p, _ := tab.Producer(ringbuf.Uart1Rx)
	c, _ := tab.Consumer(ringbuf.Uart1Rx)
	if err := s.AttachLineSource(ringbuf.Uart1Rx, c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := s.AttachLineSource(ringbuf.Uart1Rx, c); err != errcode.AlreadyClaimed {
		t.Fatalf("second attach err = %v", err)
	}

	for _, b := range []byte("ping") {
		p.WriteByte(b)
	}
	s.SendLineFromISR(Uart1, ringbuf.Uart1Rx, p.Cursor())

	out := make([]byte, 32)
	n, ok := s.ReceiveLine(Uart1, out)
	if !ok || string(out[:n]) != "ping" {
		t.Fatalf("ReceiveLine = %q %v", out[:n], ok)
	}
}

func TestReceiveLineWithoutSourceFails(t *testing.T) {
	s := newSet(t, nil)
	s.SendLineFromISR(Uart1, ringbuf.Uart1Tx, 4)
	if _, ok := s.ReceiveLine(Uart1, make([]byte, 8)); ok {
		t.Fatal("drain of unattached ring reported success")
	}
	if s.PendingFromISR(Uart1) != 0 {
		t.Fatal("descriptor not consumed")
	}
}

func TestTaskSideTimesOut(t *testing.T) {
	s := newSet(t, nil)
	start := time.Now()
	if _, ok := s.ReceiveByte(Spi1Rx); ok {
		t.Fatal("receive on empty queue succeeded")
	}
	if _, ok := s.ReceiveLine(Uart1, make([]byte, 4)); ok {
		t.Fatal("line receive on empty queue succeeded")
	}
	if el := time.Since(start); el < 2*s.Timeout() {
		t.Fatalf("returned after %v, before the timeout", el)
	}

	for i := 0; i < Capacity; i++ {
		s.SendByte(Spi1Tx, byte(i))
	}
	if s.SendByte(Spi1Tx, 0xFF) {
		t.Fatal("send on full queue succeeded")
	}
}

func TestByteRelayAcrossContexts(t *testing.T) {
	s := newSet(t, nil)
	s.timeout = time.Second
	go func() {
		for i := 0; i < 64; i++ {
			for !s.SendByteFromISR(Spi1Rx, byte(i)) {
				time.Sleep(10 * time.Microsecond)
			}
		}
	}()
	for i := 0; i < 64; i++ {
		b, ok := s.ReceiveByte(Spi1Rx)
		if !ok || b != byte(i) {
			t.Fatalf("byte %d = %#x %v", i, b, ok)
		}
	}
}

func TestFlushEmptiesByteQueue(t *testing.T) {
	s := newSet(t, nil)
	s.SendByteFromISR(Spi1Rx, 1)
	s.SendByteFromISR(Spi1Rx, 2)
	if n := s.Flush(Spi1Rx); n != 2 {
		t.Fatalf("flushed %d", n)
	}
	if s.PendingFromISR(Spi1Rx) != 0 {
		t.Fatal("queue not empty after flush")
	}
}
