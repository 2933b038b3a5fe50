// Package imu samples the IMU on a period or on data-ready, publishes each
// sample on {"imu","sample"} and optionally echoes it to the console.
package imu

import (
	"context"
	"time"

	"iocore-go/bus"
	"iocore-go/drivers/mpu9250"
	"iocore-go/logger"
	"iocore-go/report"
	"iocore-go/services/console"
	"iocore-go/x/fmtx"
	"iocore-go/x/mathx"
)

var (
	topicConfigIMU = bus.T("config", "imu")
	TopicState     = bus.T("imu", "state")
	TopicSample    = bus.T("imu", "sample")
)

const (
	minPeriod = 5 * time.Millisecond
	maxPeriod = 10 * time.Second
)

const printFormat = "IMU data:\r" +
	"\tAX\t%f\r\tAY\t%f\r\tAZ\t%f\r" +
	"\tGX\t%f\r\tGY\t%f\r\tGZ\t%f\r" +
	"\tMX\t%f\r\tMY\t%f\r\tMZ\t%f\r\r"

// Sensor is the part of mpu9250.Device the service drives.
type Sensor interface {
	Init() error
	Read() (mpu9250.Sample, error)
}

type Service struct {
	IMU      Sensor
	Period   time.Duration   // 100ms when zero
	Ready    <-chan struct{} // optional data-ready notifications
	Print    bool            // echo samples to the console
	Logger   logger.Logger
	Reporter report.Reporter
}

// Format renders a sample the way the console prints it.
func Format(s mpu9250.Sample) (string, []any) {
	return printFormat, []any{
		s.Accel[0], s.Accel[1], s.Accel[2],
		s.Gyro[0], s.Gyro[1], s.Gyro[2],
		s.Mag[0], s.Mag[1], s.Mag[2],
	}
}

func (s *Service) sample(conn *bus.Connection, rep report.Reporter) {
	smp, err := s.IMU.Read()
	if err != nil {
		rep.Report("imu.read", err)
		return
	}
	conn.Publish(conn.NewMessage(TopicSample, smp, false))
	if s.Print {
		format, args := Format(smp)
		conn.Publish(conn.NewMessage(console.TopicTx, fmtx.Sprintf(format, args...), false))
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, log logger.Logger) {
	rep := s.Reporter
	if rep == nil {
		rep = report.Discard
	}

	if err := s.IMU.Init(); err != nil {
		log.Error("imu init failed", "err", err)
		rep.Report("imu.init", err)
		conn.Publish(conn.NewMessage(TopicState, "absent", true))
		return
	}
	conn.Publish(conn.NewMessage(TopicState, "ready", true))

	cfgSub := conn.Subscribe(topicConfigIMU)
	defer conn.Unsubscribe(cfgSub)

	period := s.Period
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	tick := time.NewTicker(period)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("imu service stopping")
			return
		case <-tick.C:
			s.sample(conn, rep)
		case <-s.Ready:
			s.sample(conn, rep)
		case msg := <-cfgSub.Channel():
			if m, ok := msg.Payload.(map[string]any); ok {
				if ms, ok := m["period"].(float64); ok {
					d := mathx.Period(ms, time.Millisecond, minPeriod, maxPeriod)
					tick.Reset(d)
					log.Info("imu period set", "period", d)
				}
			}
		}
	}
}

// Start initialises the sensor and begins sampling. A sensor that fails to
// initialise is reported and left idle.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	log := logger.OrDefault(s.Logger).With("svc", "imu")
	go s.serviceLoop(ctx, conn, log)
	return nil
}
