//go:build rp2040

package main

import (
	"time"

	"iocore-go/platform"
)

// USB CDC needs to enumerate before the first log line.
const bootDelay = 2 * time.Second

func newPeripherals(b platform.Board) (platform.Peripherals, error) {
	p, err := platform.NewRP2040(b)
	if err != nil {
		return nil, err
	}
	return p, nil
}
