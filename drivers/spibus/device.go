package spibus

import (
	"tinygo.org/x/drivers"

	"iocore-go/errcode"
)

// Device exposes one slave as a tinygo drivers.SPI. Each Tx is a single
// chip-select session.
type Device struct {
	d     *Driver
	slave SlaveID
}

var _ drivers.SPI = (*Device)(nil)

func (d *Driver) Device(s SlaveID) *Device { return &Device{d: d, slave: s} }

// Tx clocks out w while clocking into r. When both are non-empty they must
// have the same length; a missing side is padded with zeros or discarded.
func (dev *Device) Tx(w, r []byte) error {
	const op = "spi.tx"
	if len(w) != 0 && len(r) != 0 && len(w) != len(r) {
		return errcode.Wrap(op, errcode.InvalidParams)
	}
	p, err := dev.d.portOf(dev.slave)
	if err != nil {
		return errcode.Wrap(op, errcode.Of(err))
	}
	n := max(len(w), len(r))
	err = dev.d.transact(p, dev.slave, func() error {
		for i := 0; i < n; i++ {
			var out byte
			if i < len(w) {
				out = w[i]
			}
			in, err := dev.d.exchange(p, out)
			if err != nil {
				return err
			}
			if i < len(r) {
				r[i] = in
			}
		}
		return nil
	})
	return errcode.Wrap(op, errcode.Of(err))
}

func (dev *Device) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := dev.Tx([]byte{b}, r[:])
	return r[0], err
}
