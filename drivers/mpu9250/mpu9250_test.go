package mpu9250

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"iocore-go/drivers/spibus"
	"iocore-go/logger"
)

type fakeRegs struct {
	regs   map[byte]byte
	fail   map[byte]error
	writes []byte
	reads  int
}

func newFake() *fakeRegs {
	return &fakeRegs{regs: map[byte]byte{regWhoAmI: whoAmIVal}, fail: map[byte]error{}}
}

func (f *fakeRegs) ReadRegister(addr byte, s spibus.SlaveID) (byte, error) {
	f.reads++
	if err := f.fail[addr]; err != nil {
		return 0, err
	}
	return f.regs[addr], nil
}

func (f *fakeRegs) WriteRegister(v, addr byte, s spibus.SlaveID) error {
	f.writes = append(f.writes, addr)
	if err := f.fail[addr]; err != nil {
		return err
	}
	f.regs[addr] = v
	return nil
}

func TestDetect(t *testing.T) {
	f := newFake()
	d := New(f, nil, Config{Logger: logger.Nop()})
	if err := d.Detect(); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	f.regs[regWhoAmI] = 0x70
	if err := d.Detect(); !errors.Is(err, ErrNotDetected) {
		t.Fatalf("Detect on wrong id = %v", err)
	}
}

func TestConfigureWritesEverything(t *testing.T) {
	f := newFake()
	boom := errors.New("boom")
	f.fail[regIntEnable] = boom
	d := New(f, nil, Config{Logger: logger.Nop()})

	if err := d.Configure(); err != boom {
		t.Fatalf("Configure err = %v", err)
	}
	if len(f.writes) != len(configSequence) {
		t.Fatalf("attempted %d writes, want %d", len(f.writes), len(configSequence))
	}
	want := map[byte]byte{
		0x1B: 0x10, 0x1C: 0x10, 0x37: 0x10, 0x23: 0x00, 0x6A: 0x00,
		0x24: 0x40, 0x25: 0x48, 0x26: 0x03, 0x27: 6,
	}
	for reg, v := range want {
		if f.regs[reg] != v {
			t.Fatalf("reg %#x = %#x, want %#x", reg, f.regs[reg], v)
		}
	}
}

func TestReadRawRegisterByRegister(t *testing.T) {
	f := newFake()
	for i, v := range []byte{0x00, 0x01, 0xFF, 0xFE, 0x10, 0x00} {
		f.regs[regAccelXH+byte(i)] = v
		f.regs[regGyroXH+byte(i)] = v
		f.regs[regExtSensData+byte(i)] = v
	}
	d := New(f, nil, Config{Logger: logger.Nop()})
	raw, err := d.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	want := Vec3{X: 1, Y: -2, Z: 0x1000}
	if raw.Accel != want || raw.Gyro != want || raw.Mag != want {
		t.Fatalf("raw = %+v", raw)
	}
	if f.reads != 18 {
		t.Fatalf("reads = %d", f.reads)
	}

	s := raw.Convert()
	if s.Accel[2] != float32(0x1000)*AccelScale || s.Gyro[1] != -2*float32(GyroScale) || s.Mag[0] != float32(MagScale) {
		t.Fatalf("converted = %+v", s)
	}
}

func TestReadStopsOnError(t *testing.T) {
	f := newFake()
	f.fail[regGyroXH+3] = errors.New("timeout")
	d := New(f, nil, Config{Logger: logger.Nop()})
	if _, err := d.Read(); err == nil {
		t.Fatal("expected error")
	}
	if f.reads != 6+4 {
		t.Fatalf("reads = %d", f.reads)
	}
}

type fakeSPI struct {
	regs [128]byte
	tx   atomic.Int32
}

func (s *fakeSPI) Tx(w, r []byte) error {
	s.tx.Add(1)
	addr := w[0] &^ readFlag
	for i := 1; i < len(r); i++ {
		r[i] = s.regs[int(addr)+i-1]
	}
	return nil
}

func (s *fakeSPI) Transfer(b byte) (byte, error) { return 0, nil }

func TestBurstRead(t *testing.T) {
	spi := &fakeSPI{}
	spi.regs[regAccelXH+1] = 5
	spi.regs[regGyroXH] = 0x80
	f := newFake()
	d := New(f, spi, Config{Logger: logger.Nop()})
	raw, err := d.ReadRaw()
	if err != nil {
		t.Fatal(err)
	}
	if spi.tx.Load() != 3 || f.reads != 0 {
		t.Fatalf("tx=%d reads=%d", spi.tx.Load(), f.reads)
	}
	if raw.Accel.X != 5 || raw.Gyro.X != -32768 {
		t.Fatalf("raw = %+v", raw)
	}
}

// Shell commands and the sampling service read the same device.
func TestConcurrentBurstReads(t *testing.T) {
	spi := &fakeSPI{}
	spi.regs[regAccelXH+1] = 1
	spi.regs[regAccelXH+3] = 2
	spi.regs[regAccelXH+5] = 3
	spi.regs[regGyroXH+1] = 7
	spi.regs[regGyroXH+3] = 8
	spi.regs[regGyroXH+5] = 9
	d := New(newFake(), spi, Config{Logger: logger.Nop()})

	want := Vec3{X: 1, Y: 2, Z: 3}
	wantGyro := Vec3{X: 7, Y: 8, Z: 9}
	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				raw, err := d.ReadRaw()
				if err != nil {
					errs <- err.Error()
					return
				}
				if raw.Accel != want || raw.Gyro != wantGyro {
					errs <- "mixed sample"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
	if n := spi.tx.Load(); n != 8*200*3 {
		t.Fatalf("tx = %d", n)
	}
}
