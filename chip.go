package glossy

import (
	"sync"
)

// Register/command layout grounded directly on the teacher's own
// nRF24L01 constants (nrf24.go) - Glossy's RadioChip talks to the same
// family of part over the same SPI command conventions, just driven by
// the slot state machine instead of a connection-oriented API.
const (
	regConfig     = 0x00
	regStatus     = 0x07
	regFIFOStatus = 0x17

	cmdWRegister  = 0x20
	cmdRRXPayload = 0x61
	cmdWTXPayload = 0xA0
	cmdFlushTX    = 0xE1
	cmdFlushRX    = 0xE2
	cmdNop        = 0xFF

	statusTXFull      = 1 << 0
	fifoStatusRXEmpty = 1 << 0

	configPwrUp = 1 << 1
	configPRX   = 1 << 0
)

// chipDriver implements RadioChip over an nRF24-family part reached
// through the teacher's SPI/Pin abstractions. It never touches Glossy's
// slot state - it is the thin register-level half radio.go wraps.
type chipDriver struct {
	conn SPI
	ce   Pin
	irq  Pin

	mu      sync.Mutex
	scratch [34]byte
}

func newChipDriver(conn SPI, ce, irq Pin) *chipDriver {
	return &chipDriver{conn: conn, ce: ce, irq: irq}
}

func (d *chipDriver) spiTransfer(n int) []byte {
	r := make([]byte, n)
	_ = d.conn.Tx(d.scratch[:n], r)
	return r
}

func (d *chipDriver) writeRegister(reg, val byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdWRegister | reg
	d.scratch[1] = val
	d.spiTransfer(2)
}

func (d *chipDriver) readRegister(reg byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = reg
	d.scratch[1] = cmdNop
	r := d.spiTransfer(2)
	return r[1]
}

// On powers the part up in RX mode and raises CE. It returns as soon as
// the configuration write is issued; it does not poll any status bit for
// oscillator start-up.
func (d *chipDriver) On() error {
	_ = d.ce.Out(Low)
	d.writeRegister(regConfig, configPwrUp|configPRX)
	_ = d.ce.Out(High)
	return nil
}

func (d *chipDriver) Off() {
	_ = d.ce.Out(Low)
	d.writeRegister(regConfig, 0)
}

func (d *chipDriver) FlushTX() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdFlushTX
	d.spiTransfer(1)
}

func (d *chipDriver) FlushRX() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdFlushRX
	d.spiTransfer(1)
}

// StartTX pulses CE to strobe whatever is already loaded into the TX
// FIFO out over the air - Glossy always preloads the FIFO with WriteTX
// before calling this, so no separate "load" step is needed here.
func (d *chipDriver) StartTX() {
	_ = d.ce.Out(Low)
	cfg := d.readRegister(regConfig)
	d.writeRegister(regConfig, cfg&^configPRX)
	_ = d.ce.Out(High)
}

func (d *chipDriver) WriteTX(payload []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdWTXPayload
	copy(d.scratch[1:], payload)
	d.spiTransfer(1 + len(payload))
}

func (d *chipDriver) AbortRX() {
	_ = d.ce.Out(Low)
	cfg := d.readRegister(regConfig)
	d.writeRegister(regConfig, cfg|configPRX)
	_ = d.ce.Out(High)
}

func (d *chipDriver) AbortTX() {
	_ = d.ce.Out(Low)
	cfg := d.readRegister(regConfig)
	d.writeRegister(regConfig, cfg|configPRX)
	_ = d.ce.Out(High)
	d.FlushRX()
}

func (d *chipDriver) FIFOByteAvailable() bool {
	return d.readRegister(regFIFOStatus)&fifoStatusRXEmpty == 0
}

// SFDLevel reads the IRQ pin directly, standing in for a dedicated SFD
// pin the nRF24 part family does not expose.
func (d *chipDriver) SFDLevel() Level {
	if d.irq == nil {
		return Low
	}
	return d.irq.Read()
}

func (d *chipDriver) ReadByte() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdRRXPayload
	d.scratch[1] = cmdNop
	r := d.spiTransfer(2)
	return r[1]
}

func (d *chipDriver) ReadRemaining(dst []byte) {
	if len(dst) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scratch[0] = cmdRRXPayload
	for i := range dst {
		d.scratch[1+i] = cmdNop
	}
	r := d.spiTransfer(1 + len(dst))
	copy(dst, r[1:])
}

func (d *chipDriver) Status() byte { return d.readRegister(regStatus) }
