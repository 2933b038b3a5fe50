// Package semx provides the binary mutex guarding multi-step peripheral
// transactions, with the wait policy made explicit at every Take.
//
// Go mutexes have no priority inheritance. With WaitForever a low-priority
// holder can stall a high-priority waiter indefinitely; boards that care
// should configure a bounded Wait instead.
package semx

import "time"

// Wait is how long Take may block. Negative means forever, zero means poll.
type Wait time.Duration

const (
	WaitForever Wait = -1
	NoWait      Wait = 0
)

// Mutex is a binary semaphore. The zero value is not usable; call New.
type Mutex struct {
	ch chan struct{}
}

func New() *Mutex { return &Mutex{ch: make(chan struct{}, 1)} }

// Take acquires the mutex within w and reports whether it did.
func (m *Mutex) Take(w Wait) bool {
	switch {
	case w < 0:
		m.ch <- struct{}{}
		return true
	case w == 0:
		select {
		case m.ch <- struct{}{}:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(time.Duration(w))
	defer t.Stop()
	select {
	case m.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

// Give releases the mutex. Giving an unheld mutex is a no-op.
func (m *Mutex) Give() {
	select {
	case <-m.ch:
	default:
	}
}

// Held reports whether some caller currently holds the mutex.
func (m *Mutex) Held() bool { return len(m.ch) == 1 }
