// Package console bridges the console line port and the bus: received lines
// are published on {"console","rx"} and string payloads published on
// {"console","tx"} are written to the port.
package console

import (
	"context"

	"iocore-go/bus"
	"iocore-go/drivers/uartline"
	"iocore-go/logger"
	"iocore-go/report"
)

var (
	TopicRx = bus.T("console", "rx")
	TopicTx = bus.T("console", "tx")
)

// Lines is the line-port surface of the uartline driver.
type Lines interface {
	ReceiveLine(id uartline.PortID, out []byte) (int, bool)
	WriteFormatted(id uartline.PortID, format string, args ...any) error
}

type Service struct {
	UART     Lines
	Port     uartline.PortID
	Logger   logger.Logger
	Reporter report.Reporter
}

func (s *Service) rxLoop(ctx context.Context, conn *bus.Connection, log logger.Logger) {
	buf := make([]byte, uartline.MaxMessage)
	for ctx.Err() == nil {
		// ReceiveLine gives up after the queue timeout, so ctx is
		// re-checked at least that often.
		n, ok := s.UART.ReceiveLine(s.Port, buf)
		if !ok {
			continue
		}
		line := string(buf[:n])
		log.Debug("line received", "len", n)
		conn.Publish(conn.NewMessage(TopicRx, line, false))
	}
}

func (s *Service) txLoop(ctx context.Context, conn *bus.Connection, log logger.Logger) {
	sub := conn.Subscribe(TopicTx)
	defer conn.Unsubscribe(sub)

	rep := s.Reporter
	if rep == nil {
		rep = report.Discard
	}
	for {
		select {
		case <-ctx.Done():
			log.Info("console service stopping")
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			text, ok := msg.Payload.(string)
			if !ok {
				log.Warn("dropping non-string payload", "topic", msg.Topic)
				continue
			}
			if err := s.UART.WriteFormatted(s.Port, "%s", text); err != nil {
				log.Warn("console write failed", "err", err)
				rep.Report("console.tx", err)
			}
		}
	}
}

// Start the console service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	log := logger.OrDefault(s.Logger).With("svc", "console", "port", s.Port)
	go s.rxLoop(ctx, conn, log)
	go s.txLoop(ctx, conn, log)
	return nil
}
