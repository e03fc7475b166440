package glossy

import (
	"context"
	"sync"
)

// FloodController is the public handle to one Glossy engine instance
// (§4.F, §6). It owns the hardware collaborators across however many
// sequential Start/Stop flood sessions the caller runs; each Start
// creates a fresh *Session for the lifetime of that one flood, matching
// the "Session ... used for exactly one Start…Stop lifetime" rule
// session.go documents.
type FloodController struct {
	chip   RadioChip
	timer  TimerGateway
	lf     LFClock
	sched  Scheduler
	energy EnergyObserver
	id     uint16

	// SyncWindow enables windowed averaging of the slot-length estimate
	// when > 0 (§4.E). Set before the first Start.
	SyncWindow int

	mu      sync.Mutex
	current *Session
}

// NewController wires the external collaborators of §6 (radio chip,
// timer gateway, LF clock, optional scheduler and energy observer) into
// one FloodController. A nil sched is valid; Start/Stop fall back to
// no-op interrupt/watchdog bracketing.
func NewController(chip RadioChip, timer TimerGateway, lf LFClock, sched Scheduler, energy EnergyObserver, id uint16) *FloodController {
	return &FloodController{chip: chip, timer: timer, lf: lf, sched: sched, energy: energy, id: id}
}

// Start begins a flood (§4.F). data is the caller-owned payload buffer:
// for an initiator it is the seed payload to send; for a receiver it is
// filled in as the flood progresses and is valid to read once cb fires
// or Stop returns. dataLen may be 0 for a receiver that has not yet
// learned the frame's length. tStop is an absolute LF-clock deadline
// (0 disables the hard stop); cb, if non-nil, fires exactly once when
// the session reaches OFF.
func (fc *FloodController) Start(data []byte, dataLen byte, initiator, sync bool, txMax byte, headerTag byte, tStop LFTicks, cb func(ctx any), cbCtx any) (*Session, error) {
	if txMax == 0 {
		return nil, ErrBadTxMax
	}
	if headerTag > 3 {
		return nil, ErrBadHeaderTag
	}
	if int(dataLen) > BufferCapacity() || int(dataLen) > len(data) {
		return nil, ErrBadDataLen
	}
	if initiator && dataLen == 0 {
		return nil, ErrBadDataLen
	}

	fc.mu.Lock()
	if fc.current != nil && fc.current.getState() != StateOff {
		fc.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	prev := fc.current
	fc.mu.Unlock()

	s := &Session{
		initiator:  initiator,
		sync:       sync,
		txMax:      txMax,
		headerTag:  headerTag,
		id:         fc.id,
		dataLen:    dataLen,
		data:       data,
		syncWindow: fc.SyncWindow,
		radio:      newRadioGateway(fc.chip, fc.energy),
		timer:      fc.timer,
		lf:         fc.lf,
		sched:      fc.sched,
		tStop:      tStop,
		cb:         cb,
		cbCtx:      cbCtx,
		done:       make(chan struct{}),
		stopDisp:   make(chan struct{}),
		dispGone:   make(chan struct{}),
	}
	if prev != nil {
		// The slot-length estimate survives across floods, the way the
		// reference implementation's statics do: a fresh flood can time
		// its first slots from the previous one's measurement.
		s.tSlotH = prev.tSlotH
		s.tSlotHSum = prev.tSlotHSum
		s.winCnt = prev.winCnt
	}
	s.floodCtx, s.floodCancel = context.WithCancel(context.Background())

	if fc.sched != nil {
		fc.sched.DisableOtherInterrupts()
		fc.sched.StopWatchdog()
	}
	// SwitchToDCO begins the new flood's timer epoch; the events channel
	// must be read after it so a stale event from a previous flood can
	// never reach this session's dispatcher.
	fc.timer.SwitchToDCO()
	s.events = fc.timer.Events()
	if err := s.radio.on(); err != nil {
		globalLogger.Error("glossy: radio failed to power on: " + err.Error())
		fc.timer.SwitchToLF()
		if fc.sched != nil {
			fc.sched.EnableOtherInterrupts()
			fc.sched.StartWatchdog()
		}
		s.floodCancel()
		return nil, err
	}
	s.tStart = fc.timer.NowDCO()

	if dataLen != 0 {
		s.packetLen = s.packetLenValue()
		s.packetLenTmp = s.packetLen
		s.buf[lengthFieldIdx] = s.packetLen
		s.buf[headerFieldIdx] = encodeHeader(headerTag)
		// Receivers seed the data field too, even though a successful
		// reception overwrites it.
		copy(s.buf[dataFieldIdx:], data[:dataLen])
		if sync {
			s.setRelayCnt(0)
		}
	}

	s.radio.flushRX()
	s.radio.flushTX()
	globalLogger.Debug("glossy: flood started")

	if initiator {
		s.radio.writeTX(s.buf[:s.frameLen()])
		s.radio.startTX()
		s.setState(StateReceived)
		if !sync || s.tSlotH > 0 {
			s.nTimeouts = 0
			s.armInitiatorTimeout()
		}
	} else {
		if dataLen != 0 {
			s.radio.writeTX(s.buf[:s.frameLen()])
		}
		s.setState(StateWaiting)
	}

	fc.mu.Lock()
	fc.current = s
	fc.mu.Unlock()

	go s.runDispatcher()
	if tStop != 0 {
		go s.watchHardStop()
	}
	return s, nil
}

// watchHardStop is the t_stop half of §4.F's foreground gate: once the
// LF clock passes the deadline the flood is forced OFF and the callback
// fires regardless of what the dispatcher was doing.
func (s *Session) watchHardStop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.floodCtx.Done():
			return
		default:
		}
		if s.lf.NowLF() >= s.tStop {
			s.stats.count(ErrHardStop)
			s.signalStop()
			s.radio.off()
			s.markOff()
			s.fireCallback()
			return
		}
		_, _ = s.lf.CaptureNextTick(s.floodCtx)
	}
}

// Stop ends the flood early (§4.F) and returns the number of frames
// received during it. Safe to call more than once.
func (fc *FloodController) Stop() byte {
	fc.mu.Lock()
	s := fc.current
	fc.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.Stop()
}

// Stop is the per-session half of FloodController.Stop, exposed so a
// caller holding a *Session from Start can end that specific flood
// without going back through the controller.
func (s *Session) Stop() byte {
	s.signalStop()
	s.radio.off()
	s.radio.flushRX()
	s.radio.flushTX()
	s.floodCancel()
	s.markOff()
	if s.sched != nil {
		s.sched.EnableOtherInterrupts()
		s.sched.StartWatchdog()
	}
	s.timer.SwitchToLF()
	<-s.dispGone
	s.fireCallback()
	return s.rxCnt
}

// Done reports the channel that closes once the session reaches OFF,
// whether by tx_max exhaustion, t_stop, or an explicit Stop.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) RxCnt() byte        { return s.rxCnt }
func (s *Session) TxCnt() byte        { return s.txCnt }
func (s *Session) RelayCnt() byte     { return s.relayCnt }
func (s *Session) TSlotH() Ticks      { return s.tSlotH }
func (s *Session) TRefL() LFTicks     { return s.tRefL }
func (s *Session) TRefLUpdated() bool { return s.tRefLUpdated.Load() }
func (s *Session) TFirstRxL() LFTicks { return s.tFirstRxL }
func (s *Session) State() State       { return s.getState() }
func (s *Session) Stats() Stats       { return s.stats }

// HeaderTag is the 2-bit application tag carried by the last frame this
// session sent or successfully received.
func (s *Session) HeaderTag() byte { return s.headerTag }

// SetTRefL and SetTRefLUpdated let a caller seed reference time across
// floods (§6): e.g. carrying the last flood's t_ref_l forward as a
// coarse estimate before the new flood's own reconstruction completes.
func (s *Session) SetTRefL(v LFTicks)     { s.tRefL = v }
func (s *Session) SetTRefLUpdated(v bool) { s.tRefLUpdated.Store(v) }
