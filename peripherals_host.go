//go:build !rp2040

package main

import "iocore-go/platform"

const bootDelay = 0

func newPeripherals(b platform.Board) (platform.Peripherals, error) {
	return platform.NewSim(b), nil
}
