// Package irq models the interrupt-mask critical section shared by task code
// and interrupt handlers.
//
// Handlers run to completion and are never re-entered. A task that must make
// a check-then-act on interrupt-enable state atomic with respect to handlers
// wraps it in Disable/Restore.
package irq

import "sync"

// State is the saved mask returned by Disable.
type State uintptr

// Mask disables interrupt dispatch for the duration of a critical section.
type Mask interface {
	Disable() State
	Restore(State)
}

// Host stands in for the interrupt controller on host builds. Simulated
// peripherals run every handler through Dispatch, so a task holding Disable
// can never observe a handler half-way through. Sections do not nest.
type Host struct {
	mu sync.Mutex
}

func NewHost() *Host { return &Host{} }

func (h *Host) Disable() State { h.mu.Lock(); return 0 }
func (h *Host) Restore(State)  { h.mu.Unlock() }

// Dispatch runs fn as an interrupt handler.
func (h *Host) Dispatch(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}
