package console

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"iocore-go/bus"
	"iocore-go/drivers/uartline"
	"iocore-go/errcode"
	"iocore-go/logger"
)

type fakeLines struct {
	in chan string

	mu      sync.Mutex
	written []string
	fail    error
}

func newFakeLines() *fakeLines { return &fakeLines{in: make(chan string, 4)} }

func (f *fakeLines) ReceiveLine(id uartline.PortID, out []byte) (int, bool) {
	select {
	case s := <-f.in:
		return copy(out, s), true
	case <-time.After(5 * time.Millisecond):
		return 0, false
	}
}

func (f *fakeLines) WriteFormatted(id uartline.PortID, format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.written = append(f.written, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeLines) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

type reports struct {
	mu  sync.Mutex
	ops []string
}

func (r *reports) Report(op string, err error) {
	r.mu.Lock()
	r.ops = append(r.ops, op+":"+string(errcode.Of(err)))
	r.mu.Unlock()
}

func start(t *testing.T, f *fakeLines, r *reports) (*bus.Bus, *bus.Connection) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := bus.NewBus(8)
	svc := &Service{UART: f, Port: uartline.UART1, Logger: logger.Nop(), Reporter: r}
	if err := svc.Start(ctx, b.NewConnection("console")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return b, b.NewConnection("test")
}

func TestReceivedLinesArePublished(t *testing.T) {
	f := newFakeLines()
	_, c := start(t, f, &reports{})
	sub := c.Subscribe(TopicRx)

	f.in <- "helloworld"
	select {
	case m := <-sub.Channel():
		if m.Payload != "helloworld" {
			t.Fatalf("payload = %#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no line published")
	}
}

func TestTxPayloadsAreWritten(t *testing.T) {
	f := newFakeLines()
	b, c := start(t, f, &reports{})
	// let the tx loop subscribe
	time.Sleep(20 * time.Millisecond)

	c.Publish(b.NewMessage(TopicTx, "ok 100%\r", false))
	c.Publish(b.NewMessage(TopicTx, 42, false))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(f.snapshot()) == 0 {
		time.Sleep(time.Millisecond)
	}
	got := f.snapshot()
	if len(got) != 1 || got[0] != "ok 100%\r" {
		t.Fatalf("written = %q", got)
	}
}

func TestWriteFailureIsReported(t *testing.T) {
	f := newFakeLines()
	f.fail = &errcode.E{C: errcode.Overflow, Op: "uart.write"}
	r := &reports{}
	b, c := start(t, f, r)
	time.Sleep(20 * time.Millisecond)

	c.Publish(b.NewMessage(TopicTx, "x", false))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.ops)
		r.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ops) != 1 || r.ops[0] != "console.tx:overflow" {
		t.Fatalf("reports = %v", r.ops)
	}
}
