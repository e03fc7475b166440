package glossy

// Component D (§4.D): the slot state machine's four transition
// functions. Each is called exclusively from the dispatcher goroutine
// (dispatch.go) - never concurrently with itself or with another
// transition - matching the non-preemptible single interrupt vector of
// §4.C/§5.

// beginRx transitions WAITING→RECEIVING. capture is the SFD-rising
// timestamp latched by the timer gateway.
func (s *Session) beginRx(capture Ticks) {
	s.tRxStart = capture
	s.setState(StateReceiving)
	s.bytesRead = 0

	if s.packetKnown() {
		s.tRxTimeout = s.tRxStart + rxTimeoutDuration(s.packetLenTmp)
	}

	// Spin on the FIFO pin until the length byte lands. Before the
	// length is known there is no deadline to honor yet.
	for !s.radio.fifoIs1() {
		if s.packetKnown() && !ticksBefore(s.timer.NowDCO(), s.tRxTimeout) {
			s.abortRx(ErrRxTimeout)
			return
		}
		if s.stopRequested() {
			s.radio.abortRX(s)
			return
		}
	}

	lengthByte := s.radio.readByte()
	if (s.packetKnown() && lengthByte != s.packetLenTmp) ||
		lengthByte < footerLen || lengthByte > maxFrameLen {
		s.abortRx(ErrLengthMismatch)
		return
	}
	s.buf[lengthFieldIdx] = lengthByte
	s.bytesRead = 1

	if !s.packetKnown() {
		s.packetLenTmp = lengthByte
		s.tRxTimeout = s.tRxStart + rxTimeoutDuration(s.packetLenTmp)
	}

	for !s.radio.fifoIs1() {
		if !ticksBefore(s.timer.NowDCO(), s.tRxTimeout) {
			s.abortRx(ErrRxTimeout)
			return
		}
		if s.stopRequested() {
			s.radio.abortRX(s)
			return
		}
	}
	headerByte := s.radio.readByte()
	if !headerValid(headerByte) {
		s.abortRx(ErrHeaderMismatch)
		return
	}
	s.buf[headerFieldIdx] = headerByte
	s.bytesRead = 2

	// Read all but the last 8 bytes during flight - the tail-8 margin is
	// a pipelining constant tied to the radio's FIFO depth, preserved
	// per §9's Open Questions.
	for s.bytesRead <= int(s.packetLenTmp)-rxTailMargin {
		for !s.radio.fifoIs1() {
			if !ticksBefore(s.timer.NowDCO(), s.tRxTimeout) {
				s.abortRx(ErrRxTimeout)
				return
			}
			if s.stopRequested() {
				s.radio.abortRX(s)
				return
			}
		}
		s.buf[s.bytesRead] = s.radio.readByte()
		s.bytesRead++
	}

	s.scheduleRxTimeout()
}

// abortRx centralizes the "abort this reception" edge (§7): count the
// failure and drop into ABORTED, which the next SFD edge clears back to
// WAITING.
func (s *Session) abortRx(kind ErrorKind) {
	s.stats.count(kind)
	s.radio.abortRX(s)
}

// endRx transitions RECEIVING→{RECEIVED,OFF}, or back to WAITING on a
// bad CRC. capture is the SFD-falling timestamp. The relay's TX strobe
// has already been issued by the dispatcher at this point; the bad-CRC
// branch revokes it.
func (s *Session) endRx(capture Ticks) {
	tRxStopTmp := capture
	// The reception finished before its watchdog; cancel it so it
	// cannot fire into a later phase.
	s.timer.DisarmRxTimeout()
	tail := s.buf[s.bytesRead : int(s.packetLenTmp)+1]
	s.radio.readRemaining(tail)
	s.bytesRead = int(s.packetLenTmp) + 1

	if !s.crcOKTmp() {
		s.stats.count(ErrBadCRC)
		s.radio.abortTX()
		s.setState(StateWaiting)
		return
	}
	s.headerTag = headerAppTag(s.buf[headerFieldIdx])

	if !s.packetKnown() {
		s.packetLen = s.packetLenTmp
		s.dataLen = s.lengthToDataLen(s.packetLenTmp)
	}
	if s.sync {
		s.setRelayCnt(s.getRelayCnt() + 1)
		s.appendIDLog()
	}
	if s.txCnt == s.txMax {
		// No transmissions left: the strobe already out is moot, the
		// radio goes dark.
		s.radio.off()
		s.markOff()
	} else {
		s.radio.writeTX(s.buf[:s.frameLen()])
		s.setState(StateReceived)
	}
	if s.rxCnt == 0 {
		// First successful reception: record when, and the hop distance
		// the frame arrived with (prior to our own increment).
		s.tFirstRxL = s.lf.NowLF()
		if s.sync {
			s.relayCnt = s.getRelayCnt() - 1
		}
	}
	s.rxCnt++
	if s.sync {
		s.estimateSlotLength(tRxStopTmp)
	}
	s.tRxStop = tRxStopTmp
	if s.initiator {
		// An echo was heard; the retransmission watchdog is obsolete.
		s.disarmInitiatorTimeout()
	}
}

func (s *Session) packetKnown() bool { return s.packetLen != 0 }

// crcOKTmp reads the CRC_OK bit of the frame just drained, located via
// the frame's own length byte rather than the session's layout (the two
// agree once dataLen is known, but endRx runs before a first-reception
// receiver has learned it).
func (s *Session) crcOKTmp() bool {
	return s.buf[s.packetLenTmp]&footer1CRCOk != 0
}

func (s *Session) lengthToDataLen(packetLenTmp byte) byte {
	n := int(packetLenTmp) - footerLen - headerLen
	if s.sync {
		n -= relayCntLen
	}
	if n < 0 {
		n = 0
	}
	return byte(n)
}

// beginTx transitions RECEIVED→TRANSMITTING. capture is the SFD-rising
// timestamp observed on the relay's own air start.
func (s *Session) beginTx(capture Ticks) {
	s.tTxStart = capture
	s.setState(StateTransmitting)
	s.txRelayCntLast = s.getRelayCnt()

	if !s.initiator && s.rxCnt == 1 {
		copy(s.data, s.payload())
	}
	if s.sync && s.tSlotH > 0 && !s.tRefLUpdated.Load() && s.rxCnt > 0 {
		s.computeReferenceTime(s.floodCtx)
	}
}

// endTx transitions TRANSMITTING→{WAITING,OFF}. capture is the
// SFD-falling timestamp.
func (s *Session) endTx(capture Ticks) {
	s.tTxStop = capture
	s.txCnt++
	initiatorBit := byte(0)
	if s.initiator {
		initiatorBit = 1
	}
	if s.txCnt == s.txMax && int(s.txMax)-int(initiatorBit) > 0 {
		s.radio.off()
		s.markOff()
	} else {
		s.setState(StateWaiting)
		s.radio.listening()
	}
	s.radio.flushTX()
}
