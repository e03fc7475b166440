package glossy

import "context"

// Level represents the logical level of a pin (Low or High).
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Pull represents the internal pull-up/down resistor state.
type Pull uint8

const (
	PullNoChange Pull = iota
	PullFloat
	PullDown
	PullUp
)

// Edge represents the signal edge to trigger an interrupt.
type Edge uint8

const (
	NoEdge Edge = iota
	RisingEdge
	FallingEdge
	BothEdges
)

// SPI represents a generic SPI connection, reused from the teacher's
// radio driver: Glossy's RadioChip backends talk to the chip over the
// same kind of full-duplex transaction a register-based radio driver
// uses.
type SPI interface {
	// Tx sends w and reads into r. len(r) must be >= len(w).
	Tx(w, r []byte) error
}

// Pin represents a generic GPIO pin, reused from the teacher.
type Pin interface {
	Out(l Level) error
	In(pull Pull) error
	Read() Level
	Watch(edge Edge, handler func()) error
	Unwatch() error
}

// RadioChip is the external radio-chip collaborator of §6: strobes, FIFO
// I/O and status polling. It deliberately knows nothing about Glossy's
// slot state machine - the Radio gateway (radio.go) is the thin typed
// wrapper the core talks to.
type RadioChip interface {
	// On powers the radio into RX and blocks until the crystal-stable
	// status bit asserts.
	On() error
	// Off disables the radio (TX and RX).
	Off()
	FlushTX()
	FlushRX()
	// StartTX issues the strobe that begins an over-the-air transmission
	// of whatever is currently loaded into the TX FIFO.
	StartTX()
	// WriteTX loads payload into the TX FIFO.
	WriteTX(payload []byte)
	// AbortRX puts the chip back into RX mode after an abandoned
	// reception; the radio gateway flushes the RX FIFO right after it and
	// sets the slot state machine to ABORTED.
	AbortRX()
	// AbortTX issues an RX-on strobe and flushes RX, undoing a TX that
	// was queued but should not go out (§4.D glossy_end_rx on bad CRC).
	AbortTX()
	// FIFOByteAvailable reports whether at least one more byte can be
	// read from the RX FIFO right now.
	FIFOByteAvailable() bool
	// SFDLevel reads the current level of the start-of-frame-delimiter
	// pin directly.
	SFDLevel() Level
	// ReadByte consumes one byte from the RX FIFO.
	ReadByte() byte
	// ReadRemaining drains dst from the RX FIFO without blocking.
	ReadRemaining(dst []byte)
	// Status returns the raw status register, including the CRC-OK
	// footer bit once a frame has been fully clocked in.
	Status() byte
}

// EnergyObserver is an optional [EXPANSION] collaborator restoring the
// original source's ENERGEST_* accounting hooks. Passive accounting, not
// dynamic power control, so it does not trip the §1 Non-goals.
type EnergyObserver interface {
	OnListen()
	OnTransmit()
	OnIdle()
}

type noopEnergyObserver struct{}

func (noopEnergyObserver) OnListen()   {}
func (noopEnergyObserver) OnTransmit() {}
func (noopEnergyObserver) OnIdle()     {}

// TimerEventKind distinguishes the capture-compare causes the interrupt
// dispatcher demultiplexes on (§4.C).
type TimerEventKind int

const (
	// EventSFDCapture is channel 1: the SFD pin changed level.
	EventSFDCapture TimerEventKind = iota
	// EventInitiatorTimeout is channel 4's compare match.
	EventInitiatorTimeout
	// EventRxTimeout is channel 5's compare match.
	EventRxTimeout
)

// TimerEvent is what the single-vector interrupt dispatcher (§4.C)
// consumes. Capture is only meaningful for EventSFDCapture.
type TimerEvent struct {
	Kind    TimerEventKind
	Level   Level
	Capture Ticks
}

// TimerGateway is the external timer collaborator of §6: capture-compare
// channels for SFD capture (channel 1) and the initiator/rx timeouts
// (channels 4 and 5). §4.B.
type TimerGateway interface {
	// NowDCO reads the free-running DCO-resolution counter.
	NowDCO() Ticks
	// ArmRxTimeout arms channel 5 for deadline (absolute, DCO ticks).
	ArmRxTimeout(deadline Ticks)
	DisarmRxTimeout()
	// ArmInitiatorTimeout arms channel 4 for deadline; k is the retry
	// index, carried through only for observability/logging.
	ArmInitiatorTimeout(k int, deadline Ticks)
	DisarmInitiatorTimeout()
	// Events delivers capture/compare notifications to the dispatcher.
	// Exactly one goroutine (the dispatcher) ever reads it, matching the
	// single interrupt vector of §4.C. The channel belongs to the flood
	// begun by the preceding SwitchToDCO; callers read it after that
	// call so events armed by an earlier flood cannot reach them.
	Events() <-chan TimerEvent
	// SwitchToDCO / SwitchToLF model "Timer B runs off DCO during a
	// flood... and off 32 kHz otherwise" (§4.B). SwitchToDCO also opens
	// a fresh flood epoch: implementations stop both compare channels
	// and isolate any not-yet-delivered events of the previous flood.
	SwitchToDCO()
	SwitchToLF()
}

// LFClock is the external low-frequency clock collaborator of §6, used
// for reference-time reconstruction (§4.E), the first-reception
// timestamp and the hard t_stop deadline (§4.F).
type LFClock interface {
	NowLF() LFTicks
	// CaptureNextTick blocks until the next LF edge and returns the
	// paired (DCO, LF) timestamps of that edge.
	CaptureNextTick(ctx context.Context) (dco Ticks, lf LFTicks)
}

// Scheduler models the external cooperative-scheduler collaborator of
// §6: interrupt mask save/restore and watchdog stop/start around a
// flood. A nil Scheduler is valid - FloodController then skips the
// interrupt and watchdog bracketing.
type Scheduler interface {
	DisableOtherInterrupts()
	EnableOtherInterrupts()
	StopWatchdog()
	StartWatchdog()
}
