package heartbeat

import (
	"context"
	"time"

	"iocore-go/bus"
	"iocore-go/logger"
	"iocore-go/x/mathx"
)

const (
	minInterval = 10 * time.Millisecond
	maxInterval = time.Minute
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicLED             = bus.T("heartbeat", "led")
)

// Toggler flips the heartbeat LED and returns its new level.
type Toggler interface {
	ToggleHeartbeat() bool
}

type Service struct {
	LED      Toggler
	Interval time.Duration // 1s when zero
	Logger   logger.Logger
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, log logger.Logger) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	interval := s.Interval
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			log.Info("heartbeat service stopping")
			return
		case <-tick.C:
			level := s.LED.ToggleHeartbeat()
			conn.Publish(conn.NewMessage(TopicLED, level, false))
		case msg := <-cfgSub.Channel():
			// Change tick interval if needed
			if m, ok := msg.Payload.(map[string]any); ok {
				if iv, ok := m["interval"].(float64); ok {
					d := mathx.Period(iv, time.Second, minInterval, maxInterval)
					tick.Reset(d)
					log.Info("heartbeat interval set", "interval", d)
				}
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	log := logger.OrDefault(s.Logger).With("svc", "heartbeat")
	go s.serviceLoop(ctx, conn, log)
	return nil
}
