package glossy

// Component C (§4.C): the single-goroutine interrupt dispatcher. The
// original source funnels three hardware causes (SFD edge, channel 4
// compare, channel 5 compare) through one ISR vector that demultiplexes
// on (state, SFD level, cause); this goroutine is that vector, and
// TimerGateway.Events() is the single channel standing in for "only one
// interrupt can fire at a time" of §5 - nothing else ever calls a
// state-transition method.
func (s *Session) runDispatcher() {
	defer close(s.dispGone)
	for {
		select {
		case <-s.stopDisp:
			return
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.dispatch(ev)
			if s.getState() == StateOff {
				s.fireCallback()
				return
			}
		}
	}
}

// dispatch implements §4.C's table. SFD captures are split on the
// observed level (rising = frame start, falling = frame end) and on
// which transient state was active when the edge arrived; an edge seen
// in a state it has no meaning for is an anomaly.
func (s *Session) dispatch(ev TimerEvent) {
	switch ev.Kind {
	case EventSFDCapture:
		s.dispatchSFD(ev)
	case EventInitiatorTimeout:
		s.onInitiatorTimeoutFired()
	case EventRxTimeout:
		s.onRxTimeoutFired()
	}
}

func (s *Session) dispatchSFD(ev TimerEvent) {
	state := s.getState()
	switch {
	case ev.Level == Low && state == StateReceiving:
		// End of reception. The relay must leave for the air at a
		// node-invariant offset from this edge, so the TX strobe goes
		// out before the frame is even validated - endRx aborts it
		// again if the CRC turns out bad.
		if s.irqLatency(ev.Capture) <= irqLatencyBudget {
			s.radio.startTX()
			s.endRx(ev.Capture)
		} else {
			// Served too late to relay in step with the other nodes.
			s.stats.count(ErrLatencyExceeded)
			s.radio.flushRX()
			s.setState(StateWaiting)
		}
	case ev.Level == High && state == StateWaiting:
		s.beginRx(ev.Capture)
	case ev.Level == High && state == StateReceived:
		s.beginTx(ev.Capture)
	case ev.Level == Low && state == StateTransmitting:
		s.endTx(ev.Capture)
	case state == StateAborted:
		// The edge closing out a reception that was already aborted.
		s.setState(StateWaiting)
	case state == StateOff:
		// The session is over; whatever is still toggling the SFD line
		// is not ours to handle (I3).
	default:
		// An edge with no meaning in the current state (spurious
		// retrigger, glitch on the SFD line). Flush and fall back to
		// WAITING per §7.
		globalLogger.Warn("glossy: SFD edge in unexpected state")
		s.stats.count(ErrUnexpectedState)
		s.radio.flushRX()
		s.setState(StateWaiting)
	}
}

// irqLatency measures the variable part of the dispatch latency in DCO
// half-ticks: how long after the captured edge this handler actually
// ran, minus the constant prologue cost (§4.C.1). On the reference MCU
// this value drives a staircase of NOP padding; here it gates whether
// the relay is still worth strobing at all, using the same two named
// calibration constants.
func (s *Session) irqLatency(capture Ticks) Ticks {
	d := int32(s.timer.NowDCO()-capture) - int32(irqPrologueTicks)
	if d < 0 {
		return 0
	}
	return Ticks(d) << 1
}
