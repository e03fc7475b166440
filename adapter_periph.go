//go:build !tinygo

package glossy

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// realPin wraps a gpio.PinIO to satisfy Pin, adapted directly from the
// teacher's adapter-periph.go.
type realPin struct {
	gpio.PinIO
	stopWatch chan struct{}
}

func (p *realPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

func (p *realPin) In(pull Pull) error {
	var pPull gpio.Pull
	switch pull {
	case PullFloat:
		pPull = gpio.Float
	case PullDown:
		pPull = gpio.PullDown
	case PullUp:
		pPull = gpio.PullUp
	default:
		pPull = gpio.PullNoChange
	}
	return p.PinIO.In(pPull, gpio.NoEdge)
}

func (p *realPin) Read() Level {
	if p.PinIO.Read() == gpio.High {
		return High
	}
	return Low
}

func (p *realPin) Watch(edge Edge, handler func()) error {
	var pEdge gpio.Edge
	switch edge {
	case RisingEdge:
		pEdge = gpio.RisingEdge
	case FallingEdge:
		pEdge = gpio.FallingEdge
	case BothEdges:
		pEdge = gpio.BothEdges
	default:
		pEdge = gpio.NoEdge
	}
	if err := p.PinIO.In(gpio.PullUp, pEdge); err != nil {
		return err
	}
	p.stopWatch = make(chan struct{})
	go func() {
		for {
			if p.PinIO.WaitForEdge(-1) {
				select {
				case <-p.stopWatch:
					return
				default:
					handler()
				}
			} else {
				select {
				case <-p.stopWatch:
					return
				default:
				}
			}
		}
	}()
	return nil
}

func (p *realPin) Unwatch() error {
	if p.stopWatch != nil {
		close(p.stopWatch)
		p.stopWatch = nil
	}
	return p.PinIO.In(gpio.PullUp, gpio.NoEdge)
}

// LinuxConfig is the periph.io backend's hardware binding - the Glossy
// analogue of the teacher's Config.
type LinuxConfig struct {
	SpiBusPath string
	SpiClockHz int
	CEPin      int
	IRQPin     int
}

// linuxRadio bundles the opened SPI port with the chip driver so Close
// can release the port, matching the teacher's Device.nrfPort pattern.
type linuxRadio struct {
	*chipDriver
	port spi.PortCloser
	irq  *realPin
}

func (r *linuxRadio) Close() error {
	if r.irq != nil {
		r.irq.Unwatch()
	}
	return r.port.Close()
}

// NewLinuxRadio opens the SPI bus and GPIO pins via periph.io and
// returns a RadioChip plus a SoftwareTimer already wired to the IRQ
// pin's edges, so a caller only needs to plug both into NewController.
func NewLinuxRadio(c LinuxConfig) (RadioChip, *SoftwareTimer, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("glossy: periph.io host init: %w", err)
	}
	if c.SpiBusPath == "" {
		c.SpiBusPath = "/dev/spidev0.0"
	}
	p, err := spireg.Open(c.SpiBusPath)
	if err != nil {
		return nil, nil, fmt.Errorf("glossy: opening SPI port: %w", err)
	}
	if c.SpiClockHz == 0 {
		c.SpiClockHz = 8_000_000
	}
	conn, err := p.Connect(physic.Frequency(c.SpiClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("glossy: connecting SPI: %w", err)
	}

	if c.CEPin == 0 {
		c.CEPin = 25
	}
	realCe := gpioreg.ByName(fmt.Sprintf("GPIO%d", c.CEPin))
	if realCe == nil {
		p.Close()
		return nil, nil, fmt.Errorf("glossy: opening CE pin GPIO%d", c.CEPin)
	}
	ce := &realPin{PinIO: realCe}

	var irq *realPin
	if c.IRQPin != 0 {
		realIrq := gpioreg.ByName(fmt.Sprintf("GPIO%d", c.IRQPin))
		if realIrq == nil {
			p.Close()
			return nil, nil, fmt.Errorf("glossy: opening IRQ pin GPIO%d", c.IRQPin)
		}
		irq = &realPin{PinIO: realIrq}
	}

	var irqPin Pin
	if irq != nil {
		irqPin = irq
	}
	chip := newChipDriver(conn, ce, irqPin)
	timer := NewSoftwareTimer()
	if irq != nil {
		prevLevel := Low
		if err := irq.Watch(BothEdges, func() {
			lvl := irq.Read()
			if lvl == prevLevel {
				return
			}
			prevLevel = lvl
			timer.pushSFD(lvl)
		}); err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("glossy: watching IRQ pin: %w", err)
		}
	}

	return &linuxRadio{chipDriver: chip, port: p, irq: irq}, timer, nil
}
