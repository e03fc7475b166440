package glossy

// radioGateway is component A (§4.A): "thin typed wrapper over chip
// strobes / FIFO I/O / energy accounting." It never holds radio state of
// its own beyond the EnergyObserver hook - all I/O is delegated straight
// through to the RadioChip external collaborator.
type radioGateway struct {
	chip   RadioChip
	energy EnergyObserver
}

func newRadioGateway(chip RadioChip, energy EnergyObserver) *radioGateway {
	if energy == nil {
		energy = noopEnergyObserver{}
	}
	return &radioGateway{chip: chip, energy: energy}
}

func (g *radioGateway) on() error {
	if err := g.chip.On(); err != nil {
		return err
	}
	g.energy.OnListen()
	return nil
}

func (g *radioGateway) off() {
	g.chip.Off()
	g.energy.OnIdle()
}

func (g *radioGateway) flushTX() { g.chip.FlushTX() }
func (g *radioGateway) flushRX() { g.chip.FlushRX() }

func (g *radioGateway) startTX() {
	g.chip.StartTX()
	g.energy.OnTransmit()
}

func (g *radioGateway) writeTX(payload []byte) { g.chip.WriteTX(payload) }

// abortRX sets state=ABORTED and flushes RX (§4.A).
func (g *radioGateway) abortRX(s *Session) {
	s.setState(StateAborted)
	g.chip.AbortRX()
	g.chip.FlushRX()
}

// abortTX issues an RX-on strobe and flushes RX; adjusts energy
// accounting back to listening (§4.A).
func (g *radioGateway) abortTX() {
	g.chip.AbortTX()
	g.chip.FlushRX()
	g.energy.OnListen()
}

// listening records the TX→RX turnaround at the end of a transmission
// for the energy accounting; the chip itself drops back to RX on its
// own after the frame clocks out.
func (g *radioGateway) listening() { g.energy.OnListen() }

func (g *radioGateway) fifoIs1() bool  { return g.chip.FIFOByteAvailable() }
func (g *radioGateway) sfdIs1() bool   { return g.chip.SFDLevel() == High }
func (g *radioGateway) readByte() byte { return g.chip.ReadByte() }
func (g *radioGateway) status() byte   { return g.chip.Status() }

func (g *radioGateway) readRemaining(dst []byte) { g.chip.ReadRemaining(dst) }
