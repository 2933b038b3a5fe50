package platform

import (
	"context"

	"iocore-go/x/irq"
)

// dispatcher delivers simulated interrupts. It rescans the pending levels
// after every handler and sleeps on kick when none is raised.
type dispatcher struct {
	mask *irq.Host
	kick chan struct{}
}

func newDispatcher(mask *irq.Host) dispatcher {
	return dispatcher{mask: mask, kick: make(chan struct{}, 1)}
}

func (d dispatcher) wake() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// run calls next for the highest-priority pending handler, or nil.
func (d dispatcher) run(ctx context.Context, next func() func()) {
	for {
		if fn := next(); fn != nil {
			d.mask.Dispatch(fn)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-d.kick:
		}
	}
}
