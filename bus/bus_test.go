package bus

import (
	"sort"
	"testing"
	"time"
)

func TestTopic_BuildsMixedTokens(t *testing.T) {
	got := T("uart", 1, Wild, 3.5)
	want := Topic{S("uart"), I(1), Wild}
	if !topicsEqual(got, want) {
		t.Fatalf("T() = %v, want %v", got, want)
	}
}

func TestPublish_ExactMatch(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")

	rx := c.Subscribe(T("console", "rx"))
	tx := c.Subscribe(T("console", "tx"))

	c.Publish(c.NewMessage(T("console", "rx"), "hello", false))
	expectOneOf(t, rx, "hello")
	expectNoMessage(t, tx)
}

func TestPublish_SingleLevelWildcard(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	sAny := c.Subscribe(T("console", Wild))
	sErr := c.Subscribe(T(Wild, "error"))
	sNo := c.Subscribe(T("console", Wild, "x"))

	c.Publish(b.NewMessage(T("console", "rx"), "m1", false))
	expectOneOf(t, sAny, "m1")
	expectNoMessage(t, sErr)
	expectNoMessage(t, sNo)

	c.Publish(b.NewMessage(T("console", "error"), "m2", false))
	expectOneOf(t, sAny, "m2")
	expectOneOf(t, sErr, "m2")
	expectNoMessage(t, sNo)
}

func TestRetained_ReplayedToLateSubscriber(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("imu", "state"), "ready", true))
	c.Publish(b.NewMessage(T("console", "state"), "up", true))
	c.Publish(b.NewMessage(T("console", "rx"), "not kept", false))

	s := c.Subscribe(T(Wild, "state"))
	got := drainPayloads(t, s, 2)
	assertUnorderedEqual(t, got, []string{"ready", "up"})
	expectNoMessage(t, s)
}

func TestRetained_ClearedByNilPayload(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("test")

	c.Publish(b.NewMessage(T("imu", "state"), "ready", true))
	c.Publish(b.NewMessage(T("imu", "state"), nil, true))

	s := c.Subscribe(T("imu", "state"))
	expectNoMessage(t, s)
}

func TestDeliver_DropsOldestWhenFull(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("test")
	s := c.Subscribe(T("console", "rx"))

	for _, p := range []string{"a", "b", "c"} {
		c.Publish(b.NewMessage(T("console", "rx"), p, false))
	}
	got := drainPayloads(t, s, 2)
	if got[0] != "b" || got[1] != "c" {
		t.Fatalf("got %v, want [b c]", got)
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("test")
	s := c.Subscribe(T("console", "tx"))
	s.Unsubscribe()

	if _, ok := <-s.Channel(); ok {
		t.Fatal("channel still open after Unsubscribe")
	}
	// publishing afterwards must not panic on the closed channel
	c.Publish(b.NewMessage(T("console", "tx"), "late", false))
	// second unsubscribe is a no-op
	s.Unsubscribe()
}

func TestDisconnect_ClosesAll(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("console")
	if c.ID() != "console" {
		t.Fatalf("ID() = %q", c.ID())
	}
	s1 := c.Subscribe(T("console", "tx"))
	s2 := c.Subscribe(T("console", Wild))
	c.Disconnect()

	for _, s := range []*Subscription{s1, s2} {
		if _, ok := <-s.Channel(); ok {
			t.Fatalf("subscription %v still open", s.Topic())
		}
	}
	c.Publish(b.NewMessage(T("console", "tx"), "late", false))
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func topicsEqual(a, b Topic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func expectOneOf(t *testing.T, sub *Subscription, want string) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		s, ok := got.Payload.(string)
		if !ok || s != want {
			t.Fatalf("unexpected payload: %v (want %q)", got.Payload, want)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout waiting for %q", want)
	}
}

func expectNoMessage(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case got := <-sub.Channel():
		t.Fatalf("unexpected message: %#v", got)
	case <-time.After(60 * time.Millisecond):
	}
}

func drainPayloads(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	deadline := time.Now().Add(300 * time.Millisecond)
	for len(out) < n && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(string); ok {
				out = append(out, s)
			} else {
				t.Fatalf("non-string payload in drain: %#v", m.Payload)
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(out) != n {
		t.Fatalf("drainPayloads: expected %d messages, got %d (%v)", n, len(out), out)
	}
	return out
}

func assertUnorderedEqual(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d (%v vs %v)", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %q, want %q (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}
