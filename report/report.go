// Package report is the process-wide error reporter. Drivers hand it
// failures they cannot return to a caller (double initialisation, verify
// mismatches); it logs them, prints them on the console channel and raises
// the error LED.
package report

import (
	"sync/atomic"
	"time"

	"iocore-go/errcode"
	"iocore-go/logger"
)

// Reporter is what the core depends on.
type Reporter interface {
	Report(op string, err error)
}

// Func adapts a function to Reporter.
type Func func(op string, err error)

func (f Func) Report(op string, err error) { f(op, err) }

// Printer is the formatted-output entry point of the console channel.
type Printer interface {
	Printf(format string, args ...any) error
}

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(format string, args ...any) error

func (f PrinterFunc) Printf(format string, args ...any) error { return f(format, args...) }

// Pin is the GPIO subset used for the error and heartbeat LEDs.
type Pin interface {
	Set(level bool)
	Get() bool
}

type Config struct {
	Logger    logger.Logger
	Console   Printer // optional
	ErrorLED  Pin     // optional
	Heartbeat Pin     // optional
}

// Board is the Reporter wired to the board's console and LEDs.
type Board struct {
	log       logger.Logger
	console   Printer
	errLED    Pin
	heartbeat Pin
	start     time.Time
	count     atomic.Uint32
}

var _ Reporter = (*Board)(nil)

func New(cfg Config) *Board {
	return &Board{
		log:       logger.OrDefault(cfg.Logger).With("svc", "report"),
		console:   cfg.Console,
		errLED:    cfg.ErrorLED,
		heartbeat: cfg.Heartbeat,
		start:     time.Now(),
	}
}

// Report never blocks on the console longer than the console's own mutex
// wait, and never panics on nil err.
func (b *Board) Report(op string, err error) {
	code := errcode.Of(err)
	if code == errcode.OK {
		return
	}
	b.count.Add(1)
	if b.errLED != nil {
		b.errLED.Set(true)
	}
	b.log.Error("core error", "op", op, "code", string(code))
	if b.console != nil {
		up := time.Since(b.start).Truncate(time.Millisecond)
		if perr := b.console.Printf("%s\tERROR in %s: %s\r", up, op, code); perr != nil {
			b.log.Warn("console report failed", "err", perr)
		}
	}
}

// Count is the number of errors reported so far.
func (b *Board) Count() int { return int(b.count.Load()) }

func (b *Board) ClearLED() {
	if b.errLED != nil {
		b.errLED.Set(false)
	}
}

// ToggleHeartbeat flips the heartbeat LED and returns its new level.
func (b *Board) ToggleHeartbeat() bool {
	if b.heartbeat == nil {
		return false
	}
	lv := !b.heartbeat.Get()
	b.heartbeat.Set(lv)
	return lv
}

// Discard drops every report.
var Discard Reporter = Func(func(string, error) {})
