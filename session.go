package glossy

import (
	"context"
	"sync"
	"sync/atomic"
)

// Session holds everything spec.md §3 calls "process-wide variables" for
// one flood (initiator ∈ {true,false}, sync, tx_max, counters, timing
// state, and the single 128-byte packet buffer). The original C source
// keeps these as file-scope statics; per the Design Notes "Global mutable
// session state" re-architecture suggestion, Glossy encapsulates them as
// a resource owned by the Start/Stop scope instead - re-entrancy across
// flood sessions stays forbidden by construction (a *Session is used for
// exactly one Start…Stop lifetime, see FloodController.Start).
type Session struct {
	// --- immutable for the session (§3) ---
	initiator bool
	sync      bool
	txMax     byte
	headerTag byte // 2-bit application tag (unshifted); endRx replaces it with each received frame's tag
	id        uint16

	dataLen byte // 0 until learned, for receivers configured without it

	// --- wire-format state, mutated only by the dispatcher goroutine ---
	packetLen    byte // 0 until known (receiver with dataLen==0)
	packetLenTmp byte
	bytesRead    int
	buf          [bufferLen]byte // I6: the single fixed-size packet buffer

	// data is the caller-owned buffer handed to Start; the dispatcher
	// copies into/out of it only at the state-machine edges §4.D names.
	data []byte

	// --- counters (§3) ---
	txCnt    byte
	rxCnt    byte
	relayCnt byte

	// state is the sole synchronization token (I1, §5).
	state atomic.Uint32

	// --- timing pipeline state, sync only (§3, §4.E) ---
	tSlotH         Ticks
	tRefL          LFTicks
	tRefLUpdated   atomic.Bool
	tFirstRxL      LFTicks
	tSlotHSum      uint64
	winCnt         int
	syncWindow     int // GLOSSY_SYNC_WINDOW; 0 disables windowed averaging
	txRelayCntLast byte

	// --- timeouts (§4.G) ---
	nTimeouts  int
	tRxTimeout Ticks
	tStart     Ticks

	// --- per-edge timestamps used by the pipeline (§4.E) ---
	tRxStart, tRxStop, tTxStart, tTxStop Ticks

	// --- collaborators (§6) ---
	radio *radioGateway
	timer TimerGateway
	lf    LFClock
	sched Scheduler

	// --- bookkeeping for Start/Stop (§4.F) ---
	tStop    LFTicks
	cb       func(ctx any)
	cbCtx    any
	done     chan struct{} // closed exactly once, when state reaches OFF
	events   <-chan TimerEvent
	stopDisp chan struct{} // closed to ask the dispatcher to exit
	dispGone chan struct{} // closed by the dispatcher on exit
	stopOnce sync.Once
	cbOnce   sync.Once

	floodCtx    context.Context
	floodCancel context.CancelFunc

	stats Stats
}

func (s *Session) getState() State { return State(s.state.Load()) }

func (s *Session) setState(v State) { s.state.Store(uint32(v)) }

// markOff transitions to OFF and signals the foreground gate exactly
// once. Per I3, no further radio I/O may occur after this point until
// the next Start. Both compare channels are disarmed here so that no
// path into OFF can leave a timer running into a later flood.
func (s *Session) markOff() {
	s.setState(StateOff)
	if s.timer != nil {
		s.timer.DisarmRxTimeout()
		s.timer.DisarmInitiatorTimeout()
	}
	if s.done == nil {
		return
	}
	select {
	case <-s.done:
		// already closed (Stop raced us); nothing to do.
	default:
		close(s.done)
	}
}

// signalStop asks the dispatcher goroutine to exit. Idempotent.
func (s *Session) signalStop() {
	s.stopOnce.Do(func() {
		if s.stopDisp != nil {
			close(s.stopDisp)
		}
	})
}

func (s *Session) stopRequested() bool {
	if s.stopDisp == nil {
		return false
	}
	select {
	case <-s.stopDisp:
		return true
	default:
		return false
	}
}

// fireCallback invokes the post-flood user callback at most once,
// whichever of {dispatcher reaching OFF, hard stop, Stop} gets there
// first (§4.F foreground gate).
func (s *Session) fireCallback() {
	if s.cb == nil {
		return
	}
	s.cbOnce.Do(func() { s.cb(s.cbCtx) })
}
