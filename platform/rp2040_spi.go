//go:build rp2040

package platform

import "device/rp"

// pl022 drives the SSP block directly. RX and TX share one vector; the
// masked status says which handler is due.
type pl022 struct {
	bus  *rp.SPI0_Type
	onRx func()
	onTx func()
}

func (p *pl022) Enable()  { p.bus.SSPCR1.SetBits(rp.SPI0_SSPCR1_SSE) }
func (p *pl022) Disable() { p.bus.SSPCR1.ClearBits(rp.SPI0_SSPCR1_SSE) }

func (p *pl022) SetRxInterrupt(on bool) { p.mask(rp.SPI0_SSPIMSC_RXIM, on) }
func (p *pl022) SetTxInterrupt(on bool) { p.mask(rp.SPI0_SSPIMSC_TXIM, on) }

func (p *pl022) mask(bit uint32, on bool) {
	if on {
		p.bus.SSPIMSC.SetBits(bit)
	} else {
		p.bus.SSPIMSC.ClearBits(bit)
	}
}

func (p *pl022) TxInterruptEnabled() bool { return p.bus.SSPIMSC.HasBits(rp.SPI0_SSPIMSC_TXIM) }
func (p *pl022) RxReady() bool            { return p.bus.SSPSR.HasBits(rp.SPI0_SSPSR_RNE) }
func (p *pl022) TxReady() bool            { return p.bus.SSPSR.HasBits(rp.SPI0_SSPSR_TNF) }
func (p *pl022) ReadData() byte           { return byte(p.bus.SSPDR.Get()) }
func (p *pl022) WriteData(b byte)         { p.bus.SSPDR.Set(uint32(b)) }

// service runs in the SPI0 vector.
func (p *pl022) service() {
	mis := p.bus.SSPMIS.Get()
	if mis&rp.SPI0_SSPMIS_RXMIS != 0 && p.onRx != nil {
		p.onRx()
	}
	if mis&rp.SPI0_SSPMIS_TXMIS != 0 && p.onTx != nil {
		p.onTx()
	}
}
