package report

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"iocore-go/errcode"
	"iocore-go/logger"
)

type pin struct{ level bool }

func (p *pin) Set(l bool) { p.level = l }
func (p *pin) Get() bool  { return p.level }

func TestReportLogsPrintsAndRaisesLED(t *testing.T) {
	log := logger.NewMockLogger()
	log.On("Error", "core error", mock.Anything).Once()

	var lines []string
	led := &pin{}
	b := New(Config{
		Logger: log,
		Console: PrinterFunc(func(format string, args ...any) error {
			lines = append(lines, fmt.Sprintf(format, args...))
			return nil
		}),
		ErrorLED: led,
	})

	b.Report("msgq.init", errcode.AlreadyInitialised)

	log.AssertExpectations(t)
	assert.True(t, led.level)
	assert.Equal(t, 1, b.Count())
	if assert.Len(t, lines, 1) {
		assert.True(t, strings.HasSuffix(lines[0], "\tERROR in msgq.init: already_initialised\r"), lines[0])
	}

	b.ClearLED()
	assert.False(t, led.level)
}

func TestReportIgnoresNil(t *testing.T) {
	b := New(Config{Logger: logger.NewMockLogger()})
	b.Report("noop", nil)
	assert.Zero(t, b.Count())
}

func TestConsoleFailureIsLogged(t *testing.T) {
	log := logger.NewMockLogger()
	log.On("Error", "core error", mock.Anything).Once()
	log.On("Warn", "console report failed", mock.Anything).Once()
	b := New(Config{
		Logger:  log,
		Console: PrinterFunc(func(string, ...any) error { return errors.New("port_inactive") }),
	})
	b.Report("spi.write", errcode.VerifyMismatch)
	log.AssertExpectations(t)
}

func TestHeartbeatToggles(t *testing.T) {
	hb := &pin{}
	b := New(Config{Logger: logger.NewMockLogger(), Heartbeat: hb})
	assert.True(t, b.ToggleHeartbeat())
	assert.False(t, b.ToggleHeartbeat())
	assert.False(t, New(Config{Logger: logger.NewMockLogger()}).ToggleHeartbeat())
}
