//go:build tinygo

package glossy

import (
	"machine"
)

// tinygoPin wraps a machine.Pin to satisfy Pin, adapted from the
// teacher's adapter-tinygo.go.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

func (p *tinygoPin) In(pull Pull) error {
	var mPull machine.PinMode
	switch pull {
	case PullUp:
		mPull = machine.PinInputPullup
	case PullDown:
		mPull = machine.PinInputPulldown
	default:
		mPull = machine.PinInput
	}
	p.pin.Configure(machine.PinConfig{Mode: mPull})
	return nil
}

func (p *tinygoPin) Read() Level {
	return Level(p.pin.Get())
}

func (p *tinygoPin) Watch(edge Edge, handler func()) error {
	var mEdge machine.PinChange
	switch edge {
	case RisingEdge:
		mEdge = machine.PinRising
	case FallingEdge:
		mEdge = machine.PinFalling
	case BothEdges:
		mEdge = machine.PinToggle
	default:
		return nil
	}
	return p.pin.SetInterrupt(mEdge, func(machine.Pin) {
		handler()
	})
}

func (p *tinygoPin) Unwatch() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return nil
}

// tinygoSPI wraps a machine.SPI plus a chip-select pin to satisfy SPI.
type tinygoSPI struct {
	spi *machine.SPI
	cs  machine.Pin
}

func (s *tinygoSPI) Tx(w, r []byte) error {
	s.cs.Low()
	err := s.spi.Tx(w, r)
	s.cs.High()
	return err
}

// TinyGoConfig is the embedded backend's hardware binding.
type TinyGoConfig struct {
	SPI    *machine.SPI
	CSPin  machine.Pin
	CEPin  machine.Pin
	IRQPin machine.Pin // machine.NoPin disables interrupt-driven SFD capture
}

// NewTinyGoRadio wires a RadioChip plus a SoftwareTimer fed by the IRQ
// pin's interrupt, mirroring NewLinuxRadio for the embedded backend.
func NewTinyGoRadio(c TinyGoConfig) (RadioChip, *SoftwareTimer, error) {
	c.CSPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	c.CSPin.High()

	ce := &tinygoPin{pin: c.CEPin}
	spiWrap := &tinygoSPI{spi: c.SPI, cs: c.CSPin}
	chip := newChipDriver(spiWrap, ce, nil)
	timer := NewSoftwareTimer()

	if c.IRQPin != machine.NoPin {
		irq := &tinygoPin{pin: c.IRQPin}
		chip.irq = irq
		prevLevel := Low
		if err := irq.Watch(BothEdges, func() {
			lvl := irq.Read()
			if lvl == prevLevel {
				return
			}
			prevLevel = lvl
			timer.pushSFD(lvl)
		}); err != nil {
			return nil, nil, err
		}
	}

	return chip, timer, nil
}
