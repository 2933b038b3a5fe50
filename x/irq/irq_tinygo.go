//go:build tinygo

package irq

import "runtime/interrupt"

// CPU masks interrupts on the running core.
type CPU struct{}

func (CPU) Disable() State  { return State(interrupt.Disable()) }
func (CPU) Restore(s State) { interrupt.Restore(interrupt.State(s)) }

// Dispatch runs fn with interrupts masked, for handlers driven from a
// goroutine rather than the vector table.
func (CPU) Dispatch(fn func()) {
	s := interrupt.Disable()
	fn()
	interrupt.Restore(s)
}
