package config

import (
	"context"
	"errors"

	"iocore-go/bus"
	"iocore-go/logger"
	"iocore-go/platform"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Settings flattens the tunable part of a board into one payload per
// service key. Periods are float64 so they read like decoded JSON.
func Settings(b platform.Board) map[string]any {
	return map[string]any{
		"heartbeat": map[string]any{"interval": b.HeartbeatPeriod.Seconds()},
		"imu":       map[string]any{"period": float64(b.IMUPeriod.Milliseconds())},
	}
}

// BoardLookup allows overriding how settings are resolved.
var BoardLookup = func(b platform.Board) (map[string]any, bool) {
	if b.Name == "" {
		return nil, false
	}
	return Settings(b), true
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name   string
	Board  platform.Board
	Logger logger.Logger
}

func NewConfigService(b platform.Board) *ConfigService {
	return &ConfigService{Name: serviceName, Board: b}
}

// publishConfig publishes each settings key as a retained message.
func (s *ConfigService) publishConfig(conn *bus.Connection) error {
	m, ok := BoardLookup(s.Board)
	if !ok {
		return errors.New("no settings for board: " + s.Board.Name)
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start publishes the board settings. Subscribers joining later get them
// from the retained store.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	log := logger.OrDefault(s.Logger).With("svc", s.Name)
	if err := s.publishConfig(conn); err != nil {
		log.Error("config publish failed", "err", err)
		return err
	}
	log.Info("config published", "board", s.Board.Name)
	return nil
}
