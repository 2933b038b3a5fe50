// Package system assembles the I/O core on a board: rings, queues, the bus
// and line drivers, the reporter and the IMU, in the order the drivers
// depend on each other.
package system

import (
	"context"

	"iocore-go/bus"
	"iocore-go/drivers/mpu9250"
	"iocore-go/drivers/spibus"
	"iocore-go/drivers/uartline"
	"iocore-go/errcode"
	"iocore-go/logger"
	"iocore-go/msgq"
	"iocore-go/platform"
	"iocore-go/report"
	"iocore-go/services/config"
	"iocore-go/services/console"
	"iocore-go/services/heartbeat"
	"iocore-go/services/imu"
	"iocore-go/x/ringbuf"
)

type Config struct {
	Board   platform.Board
	Periph  platform.Peripherals
	Buffers *ringbuf.Table // fresh table when nil
	Logger  logger.Logger
}

type System struct {
	Board   platform.Board
	Periph  platform.Peripherals
	Buffers *ringbuf.Table
	Queues  *msgq.Set
	SPI     *spibus.Driver
	UART    *uartline.Driver
	Report  *report.Board
	IMU     *mpu9250.Device

	log logger.Logger
}

func New(cfg Config) (*System, error) {
	const op = "system.new"
	if cfg.Periph == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "nil peripherals"}
	}
	log := logger.OrDefault(cfg.Logger)
	b := cfg.Board
	s := &System{
		Board:   b,
		Periph:  cfg.Periph,
		Buffers: cfg.Buffers,
		log:     log.With("svc", "system"),
	}
	if s.Buffers == nil {
		s.Buffers = ringbuf.NewTable()
	}

	// The console is bound once the line driver exists; reports raised
	// before that only log and light the LED.
	console := report.PrinterFunc(func(format string, args ...any) error {
		if s.UART == nil {
			return errcode.Uninitialised
		}
		return s.UART.WriteFormatted(b.ConsolePort, format, args...)
	})
	s.Report = report.New(report.Config{
		Logger:    log,
		Console:   console,
		ErrorLED:  cfg.Periph.ErrorLED(),
		Heartbeat: cfg.Periph.HeartbeatLED(),
	})

	s.Queues = msgq.NewSet(msgq.Config{
		Tick:         b.Tick,
		TimeoutTicks: b.QueueTimeoutTicks,
		Logger:       log,
		Reporter:     s.Report,
	})
	if err := s.Queues.InitAll(); err != nil {
		return nil, err
	}

	var err error
	if s.SPI, err = spibus.New(spiConfig(b, cfg.Periph, s.Queues, s.Report, log)); err != nil {
		return nil, err
	}
	if s.UART, err = uartline.New(uartConfig(b, cfg.Periph, s.Buffers, s.Queues, log)); err != nil {
		return nil, err
	}

	cfg.Periph.Bind(platform.Handlers{
		SPIRx:  s.SPI.HandleRxIRQ,
		SPITx:  s.SPI.HandleTxIRQ,
		UARTRx: s.UART.HandleRxIRQ,
		UARTTx: s.UART.HandleTxIRQ,
	})

	s.IMU = mpu9250.New(s.SPI, s.SPI.Device(spibus.SlaveMPU), mpu9250.Config{
		Slave:  spibus.SlaveMPU,
		Logger: log,
	})
	s.log.Info("core assembled", "board", b.Name)
	return s, nil
}

func spiConfig(b platform.Board, p platform.Peripherals, q *msgq.Set, r report.Reporter, log logger.Logger) spibus.Config {
	cfg := spibus.Config{
		Queues:      q,
		Mask:        p.Mask(),
		Wait:        b.MutexWait,
		Tick:        b.Tick,
		SettleTicks: b.SettleTicks,
		Logger:      log,
		Reporter:    r,
	}
	for id := spibus.PortID(0); id < spibus.PortCount; id++ {
		bp := b.SPI[id]
		cfg.Ports[id] = spibus.PortConfig{
			Periph:  p.SPI(id),
			RxQueue: bp.RxQueue,
			TxQueue: bp.TxQueue,
			Active:  bp.Active,
		}
	}
	for id := spibus.SlaveID(0); id < spibus.SlaveNone; id++ {
		cfg.Slaves[id] = spibus.SlaveConfig{
			Port: b.Slaves[id].Port,
			CS:   p.ChipSelect(id),
		}
	}
	return cfg
}

func uartConfig(b platform.Board, p platform.Peripherals, t *ringbuf.Table, q *msgq.Set, log logger.Logger) uartline.Config {
	cfg := uartline.Config{
		Buffers: t,
		Queues:  q,
		Mask:    p.Mask(),
		Wait:    b.MutexWait,
		Logger:  log,
	}
	for id := uartline.PortID(0); id < uartline.PortCount; id++ {
		bp := b.UART[id]
		cfg.Ports[id] = uartline.PortConfig{
			Periph:   p.UART(id),
			Queue:    bp.Queue,
			RxBuffer: bp.RxBuffer,
			TxBuffer: bp.TxBuffer,
			Active:   bp.Active,
		}
	}
	return cfg
}

// Start begins interrupt delivery and enables the line ports.
func (s *System) Start(ctx context.Context) {
	s.Periph.Start(ctx)
	s.UART.Start()
}

// Printf writes to the console port.
func (s *System) Printf(format string, args ...any) error {
	return s.UART.WriteFormatted(s.Board.ConsolePort, format, args...)
}

type service interface {
	Start(ctx context.Context, conn *bus.Connection) error
}

// StartServices runs the bus services over the assembled core. Config goes
// first so the others find their settings retained.
func (s *System) StartServices(ctx context.Context, b *bus.Bus, printIMU bool) error {
	cfg := config.NewConfigService(s.Board)
	cfg.Logger = s.log
	svcs := []struct {
		name string
		svc  service
	}{
		{"config", cfg},
		{"console", &console.Service{
			UART:     s.UART,
			Port:     s.Board.ConsolePort,
			Logger:   s.log,
			Reporter: s.Report,
		}},
		{"heartbeat", &heartbeat.Service{
			LED:      s.Report,
			Interval: s.Board.HeartbeatPeriod,
			Logger:   s.log,
		}},
		{"imu", &imu.Service{
			IMU:      s.IMU,
			Period:   s.Board.IMUPeriod,
			Print:    printIMU,
			Logger:   s.log,
			Reporter: s.Report,
		}},
	}
	for _, x := range svcs {
		if err := x.svc.Start(ctx, b.NewConnection(x.name)); err != nil {
			return &errcode.E{C: errcode.Of(err), Op: "system.services", Msg: x.name, Err: err}
		}
	}
	return nil
}
