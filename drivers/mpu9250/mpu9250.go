// Package mpu9250 is a thin driver for the MPU-9250 IMU over the register
// entry points of spibus. Register writes are verified by the bus driver;
// sample reads can also use a drivers.SPI burst.
package mpu9250

import (
	"errors"

	"tinygo.org/x/drivers"

	"iocore-go/drivers/spibus"
	"iocore-go/logger"
)

// Registers is the register-level surface of the bus driver.
type Registers interface {
	ReadRegister(addr byte, s spibus.SlaveID) (byte, error)
	WriteRegister(value, addr byte, s spibus.SlaveID) error
}

var ErrNotDetected = errors.New("mpu9250 not detected")

// Register addresses.
const (
	regGyroConfig   = 0x1B
	regAccelConfig  = 0x1C
	regFifoEnable   = 0x23
	regI2CMstCtrl   = 0x24
	regSlv0Addr     = 0x25
	regSlv0Reg      = 0x26
	regSlv0Ctrl     = 0x27
	regIntPinConfig = 0x37
	regIntEnable    = 0x38
	regAccelXH      = 0x3B
	regGyroXH       = 0x43
	regExtSensData  = 0x49 // magnetometer, via SLV0
	regUserCtrl     = 0x6A
	regWhoAmI       = 0x75

	readFlag  = 0x80
	whoAmIVal = 0x71
	burstLen  = 1 + 6 // address byte, then three 16-bit axes
)

// Fixed configuration.
const (
	gyroFS500dps = 0x10
	accelFS8g    = 0x10
	intAnyRead   = 0x10 // INT cleared by any read
	intRawReady  = 0x01
	i2cWaitExt   = 0x40 // delay data-ready until external sensor data is in
	akmAddrRead  = 0x48
	akmDataReg   = 0x03
	akmDataLen   = 6
)

// Conversion factors to g/1000, deg/s and uT.
const (
	AccelScale = 1 / 4.096
	GyroScale  = 1 / 32.8
	MagScale   = 1 / 0.6
)

type Vec3 struct{ X, Y, Z int16 }

type Raw struct {
	Accel, Gyro, Mag Vec3
}

type Sample struct {
	Accel, Gyro, Mag [3]float32
}

type Config struct {
	Slave  spibus.SlaveID
	Logger logger.Logger
}

type Device struct {
	regs  Registers
	spi   drivers.SPI // optional, for burst reads
	slave spibus.SlaveID
	log   logger.Logger
}

// New binds the device. spi may be nil, in which case reads go register by
// register.
func New(regs Registers, spi drivers.SPI, cfg Config) *Device {
	return &Device{
		regs:  regs,
		spi:   spi,
		slave: cfg.Slave,
		log:   logger.OrDefault(cfg.Logger).With("dev", "mpu9250"),
	}
}

func (d *Device) Detect() error {
	v, err := d.regs.ReadRegister(regWhoAmI, d.slave)
	if err != nil {
		return err
	}
	if v != whoAmIVal {
		d.log.Warn("unexpected WHO_AM_I", "got", v)
		return ErrNotDetected
	}
	return nil
}

type write struct{ reg, val byte }

var configSequence = [...]write{
	{regGyroConfig, gyroFS500dps},
	{regAccelConfig, accelFS8g},
	{regIntPinConfig, intAnyRead},
	{regIntEnable, intRawReady},
	{regFifoEnable, 0x00},
	{regUserCtrl, 0x00},
	{regI2CMstCtrl, i2cWaitExt},
	{regSlv0Addr, akmAddrRead},
	{regSlv0Reg, akmDataReg},
	{regSlv0Ctrl, akmDataLen},
}

// Configure applies the fixed configuration. Every write is attempted; the
// first failure is returned.
func (d *Device) Configure() error {
	var first error
	for _, w := range configSequence {
		if err := d.regs.WriteRegister(w.val, w.reg, d.slave); err != nil {
			d.log.Warn("config write failed", "reg", w.reg, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Init is Detect followed by Configure.
func (d *Device) Init() error {
	if err := d.Detect(); err != nil {
		return err
	}
	return d.Configure()
}

// ReadRaw reads all three sensors high byte first.
func (d *Device) ReadRaw() (Raw, error) {
	var raw Raw
	var err error
	if raw.Accel, err = d.readVec(regAccelXH); err != nil {
		return Raw{}, err
	}
	if raw.Gyro, err = d.readVec(regGyroXH); err != nil {
		return Raw{}, err
	}
	if raw.Mag, err = d.readVec(regExtSensData); err != nil {
		return Raw{}, err
	}
	return raw, nil
}

func (d *Device) readVec(base byte) (Vec3, error) {
	if d.spi != nil {
		return d.burstVec(base)
	}
	var b [6]byte
	for i := range b {
		v, err := d.regs.ReadRegister(base+byte(i), d.slave)
		if err != nil {
			return Vec3{}, err
		}
		b[i] = v
	}
	return vec(b[:]), nil
}

// burstVec reads six consecutive registers in one chip-select session; the
// first clocked-in byte answers the address and is dropped.
func (d *Device) burstVec(base byte) (Vec3, error) {
	w := [burstLen]byte{base | readFlag}
	var r [burstLen]byte
	if err := d.spi.Tx(w[:], r[:]); err != nil {
		return Vec3{}, err
	}
	return vec(r[1:]), nil
}

func vec(b []byte) Vec3 {
	return Vec3{
		X: int16(uint16(b[0])<<8 | uint16(b[1])),
		Y: int16(uint16(b[2])<<8 | uint16(b[3])),
		Z: int16(uint16(b[4])<<8 | uint16(b[5])),
	}
}

func (r Raw) Convert() Sample {
	scale := func(v Vec3, k float32) [3]float32 {
		return [3]float32{float32(v.X) * k, float32(v.Y) * k, float32(v.Z) * k}
	}
	return Sample{
		Accel: scale(r.Accel, AccelScale),
		Gyro:  scale(r.Gyro, GyroScale),
		Mag:   scale(r.Mag, MagScale),
	}
}

// Read returns a converted sample.
func (d *Device) Read() (Sample, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return Sample{}, err
	}
	return raw.Convert(), nil
}
