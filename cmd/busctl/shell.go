package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"iocore-go/bus"
	"iocore-go/drivers/spibus"
	"iocore-go/logger"
	"iocore-go/platform"
	"iocore-go/services/console"
	"iocore-go/system"
)

// Shell drives a simulated board from an ishell prompt.
type Shell struct {
	Shell *ishell.Shell
	Sys   *system.System
	Sim   *platform.Sim
	Bus   *bus.Bus

	conn   *bus.Connection
	cancel func()
}

const shellKey = "$shell"

var commands = []*ishell.Cmd{
	&ReadCmd,
	&WriteCmd,
	&StickCmd,
	&RxCmd,
	&TxCmd,
	&OutCmd,
	&IMUCmd,
	&ErrorsCmd,
}

// Boot assembles and starts a simulated board.
func Boot(b platform.Board, log logger.Logger) (*Shell, error) {
	sim := platform.NewSim(b)
	sys, err := system.New(system.Config{Board: b, Periph: sim, Logger: log})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	sys.Start(ctx)
	s := &Shell{Sys: sys, Sim: sim, Bus: bus.NewBus(16), cancel: cancel}
	s.conn = s.Bus.NewConnection("busctl")
	if err := sys.StartServices(ctx, s.Bus, false); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Close stops the simulated board.
func (s *Shell) Close() { s.cancel() }

// Attach binds an ishell instance and registers the commands.
func (s *Shell) Attach(sh *ishell.Shell) {
	s.Shell = sh
	sh.Set(shellKey, s)
	sh.SetPrompt(s.Sys.Board.Name + " > ")
	for _, cmd := range commands {
		sh.AddCmd(cmd)
	}
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad byte %q", s)
	}
	return byte(v), nil
}

func parseBytes(args []string, n int) ([]byte, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	out := make([]byte, n)
	for i, a := range args {
		v, err := parseByte(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Read reads one IMU register.
func (s *Shell) Read(addr byte) (byte, error) {
	return s.Sys.SPI.ReadRegister(addr, spibus.SlaveMPU)
}

// Write writes and verifies one IMU register.
func (s *Shell) Write(addr, value byte) error {
	return s.Sys.SPI.WriteRegister(value, addr, spibus.SlaveMPU)
}

// Rx puts text on the console wire, terminated.
func (s *Shell) Rx(text string) {
	s.Sim.SimUART(s.Sys.Board.ConsolePort).Inject([]byte(text + "\r"))
}

// Tx publishes text for the console service to write.
func (s *Shell) Tx(text string) {
	s.conn.Publish(s.conn.NewMessage(console.TopicTx, text+"\r", false))
}

// Out returns and clears what the console port has sent, one line per
// terminator.
func (s *Shell) Out() []string {
	p := s.Sim.SimUART(s.Sys.Board.ConsolePort).TakeOutput()
	if len(p) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(p), "\r"), "\r")
}

var (
	// ReadCmd reads an IMU register.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "ADDR",
		Func: func(c *ishell.Context) {
			a, err := parseBytes(c.Args, 1)
			if err != nil {
				c.Err(err)
				return
			}
			v, err := ShellFrom(c).Read(a[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%#02x = %#02x\n", a[0], v)
		},
	}

	// WriteCmd writes an IMU register with read-back.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "ADDR VALUE",
		Func: func(c *ishell.Context) {
			a, err := parseBytes(c.Args, 2)
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Write(a[0], a[1]); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// StickCmd forces bits of a simulated register.
	StickCmd = ishell.Cmd{
		Name: "stick",
		Help: "ADDR MASK VALUE",
		Func: func(c *ishell.Context) {
			a, err := parseBytes(c.Args, 3)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Sim.MPU.Stick(a[0], a[1], a[2])
		},
	}

	// RxCmd injects a console line.
	RxCmd = ishell.Cmd{
		Name: "rx",
		Help: "TEXT...",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Rx(strings.Join(c.Args, " "))
		},
	}

	// TxCmd sends a console line through the bus.
	TxCmd = ishell.Cmd{
		Name: "tx",
		Help: "TEXT...",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Tx(strings.Join(c.Args, " "))
		},
	}

	// OutCmd prints the console output captured so far.
	OutCmd = ishell.Cmd{
		Name:    "out",
		Aliases: []string{"o"},
		Func: func(c *ishell.Context) {
			for _, line := range ShellFrom(c).Out() {
				c.Println(line)
			}
		},
	}

	// IMUCmd initialises the IMU and prints one sample.
	IMUCmd = ishell.Cmd{
		Name: "imu",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Sys.IMU.Init(); err != nil {
				c.Err(err)
				return
			}
			smp, err := s.Sys.IMU.Read()
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("acc %v gyr %v mag %v\n", smp.Accel, smp.Gyro, smp.Mag)
		},
	}

	// ErrorsCmd prints the error count and clears the LED.
	ErrorsCmd = ishell.Cmd{
		Name: "errors",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Printf("%d reported, led %v\n", s.Sys.Report.Count(), s.Sim.ErrorLED().Get())
			s.Sys.Report.ClearLED()
		},
	}
)
