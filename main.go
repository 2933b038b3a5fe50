package main

import (
	"context"
	"time"

	"iocore-go/bus"
	"iocore-go/logger"
	"iocore-go/platform"
	"iocore-go/system"
	"iocore-go/x/ringbuf"
)

func main() {
	// Allow the console to come up before we print.
	time.Sleep(bootDelay)
	log := logger.Default()
	board := platform.Default()

	periph, err := newPeripherals(board)
	if err != nil {
		log.Error("peripherals failed", "err", err)
		halt()
	}
	sys, err := system.New(system.Config{
		Board:   board,
		Periph:  periph,
		Buffers: ringbuf.Global,
		Logger:  log,
	})
	if err != nil {
		log.Error("core init failed", "err", err)
		halt()
	}

	ctx := context.Background()
	sys.Start(ctx)
	if err := sys.Printf("%s boot\r", board.Name); err != nil {
		sys.Report.Report("main.boot", err)
	}

	b := bus.NewBus(8)
	if err := sys.StartServices(ctx, b, true); err != nil {
		sys.Report.Report("main.services", err)
	}
	halt()
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
