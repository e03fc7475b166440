package glossy

import "testing"

func newStateTestSession(dataLen byte, sync bool) (*Session, *fakeRadioChip, *fakeTimerGateway) {
	chip := &fakeRadioChip{}
	tg := newFakeTimerGateway()
	s := &Session{
		sync:    sync,
		dataLen: dataLen,
		txMax:   3,
		radio:   newRadioGateway(chip, nil),
		timer:   tg,
		lf:      fakeLFClock{dco: 1000, lf: 5},
	}
	return s, chip, tg
}

func TestBeginRxReadsLengthAndHeaderThenArmsWatchdog(t *testing.T) {
	s, chip, tg := newStateTestSession(5, false)
	frame := []byte{8, encodeHeader(0), 1, 2, 3, 4, 5, 0, footer1CRCOk}
	chip.rxFIFO = append([]byte(nil), frame...)

	s.beginRx(100)

	if s.getState() != StateReceiving {
		t.Fatalf("state = %v, want RECEIVING", s.getState())
	}
	if s.bytesRead != 2 {
		t.Fatalf("bytesRead = %d, want 2 (length + header only)", s.bytesRead)
	}
	if !tg.armedRx {
		t.Fatal("RX watchdog was not armed")
	}
	if s.buf[lengthFieldIdx] != 8 || s.buf[headerFieldIdx] != encodeHeader(0) {
		t.Fatalf("buf = %v, length/header not captured", s.buf[:2])
	}
}

func TestBeginRxAbortsOnBadHeader(t *testing.T) {
	s, chip, _ := newStateTestSession(5, false)
	chip.rxFIFO = []byte{8, 0xFF, 1, 2, 3, 4, 5, 0, footer1CRCOk}

	s.beginRx(100)

	if s.getState() != StateAborted {
		t.Fatalf("state = %v, want ABORTED after a header mismatch", s.getState())
	}
	if s.stats.HeaderMismatch != 1 {
		t.Fatalf("HeaderMismatch = %d, want 1", s.stats.HeaderMismatch)
	}
}

func TestBeginRxAbortsOnLengthMismatch(t *testing.T) {
	s, chip, _ := newStateTestSession(5, false)
	s.packetLen = s.packetLenValue() // 8
	s.packetLenTmp = s.packetLen
	chip.rxFIFO = []byte{9, encodeHeader(0), 1, 2, 3, 4, 5, 6, 0, footer1CRCOk}

	s.beginRx(100)

	if s.getState() != StateAborted {
		t.Fatalf("state = %v, want ABORTED after a length mismatch", s.getState())
	}
	if s.stats.LengthMismatch != 1 {
		t.Fatalf("LengthMismatch = %d, want 1", s.stats.LengthMismatch)
	}
}

func TestEndRxRelaysOnGoodCRC(t *testing.T) {
	s, chip, _ := newStateTestSession(5, false)
	frame := []byte{8, encodeHeader(0), 1, 2, 3, 4, 5, 0, footer1CRCOk}
	chip.rxFIFO = append([]byte(nil), frame...)
	s.beginRx(100)

	s.endRx(150)

	if s.getState() != StateReceived {
		t.Fatalf("state = %v, want RECEIVED", s.getState())
	}
	if s.rxCnt != 1 {
		t.Fatalf("rxCnt = %d, want 1", s.rxCnt)
	}
	if chip.txWritten == nil {
		t.Fatal("relay did not reload the TX FIFO")
	}
}

func TestEndRxDropsOnBadCRC(t *testing.T) {
	s, chip, _ := newStateTestSession(5, false)
	frame := []byte{8, encodeHeader(0), 1, 2, 3, 4, 5, 0, 0} // CRC_OK bit clear
	chip.rxFIFO = append([]byte(nil), frame...)
	s.beginRx(100)

	s.endRx(150)

	if s.getState() != StateWaiting {
		t.Fatalf("state = %v, want WAITING after a bad CRC", s.getState())
	}
	if s.stats.BadCRC != 1 {
		t.Fatalf("BadCRC = %d, want 1", s.stats.BadCRC)
	}
	if s.rxCnt != 0 {
		t.Fatalf("rxCnt = %d, want 0 when CRC fails", s.rxCnt)
	}
	if !chip.abortTXCalled {
		t.Fatal("the already-strobed relay must be aborted on a bad CRC")
	}
}

func TestEndRxTurnsOffOnceTxMaxReached(t *testing.T) {
	s, chip, _ := newStateTestSession(5, false)
	s.txMax = 1
	s.txCnt = 1
	frame := []byte{8, encodeHeader(0), 1, 2, 3, 4, 5, 0, footer1CRCOk}
	chip.rxFIFO = append([]byte(nil), frame...)
	s.beginRx(100)

	s.endRx(150)

	if s.getState() != StateOff {
		t.Fatalf("state = %v, want OFF once tx_max is reached", s.getState())
	}
	if !chip.offCalled {
		t.Fatal("chip.Off was not called")
	}
}

func TestEndRxLearnsFrameLayoutOnFirstReception(t *testing.T) {
	s, chip, _ := newStateTestSession(0, true)
	frame := []byte{8, encodeHeader(1), 1, 2, 3, 4, 2, 0, footer1CRCOk}
	chip.rxFIFO = append([]byte(nil), frame...)
	s.beginRx(100)

	s.endRx(150)

	if s.packetLen != 8 {
		t.Fatalf("packetLen = %d, want 8 learned from the frame", s.packetLen)
	}
	if s.dataLen != 4 {
		t.Fatalf("dataLen = %d, want 4 after subtracting header/relay/footer", s.dataLen)
	}
	if got := s.getRelayCnt(); got != 3 {
		t.Fatalf("relay field = %d, want the received 2 incremented to 3", got)
	}
	if s.relayCnt != 2 {
		t.Fatalf("relayCnt = %d, want the received value 2 recorded", s.relayCnt)
	}
}

func TestBeginTxCopiesPayloadOutOnFirstReception(t *testing.T) {
	s, _, _ := newStateTestSession(3, false)
	s.data = make([]byte, 3)
	copy(s.buf[dataFieldIdx:], []byte{9, 8, 7})
	s.rxCnt = 1

	s.beginTx(200)

	if s.getState() != StateTransmitting {
		t.Fatalf("state = %v, want TRANSMITTING", s.getState())
	}
	if s.data[0] != 9 || s.data[2] != 7 {
		t.Fatalf("data = %v, want the decoded payload copied out", s.data)
	}
}

func TestEndTxReturnsToWaitingBeforeTxMax(t *testing.T) {
	s, chip, _ := newStateTestSession(3, false)
	s.txMax = 3
	s.setState(StateTransmitting)

	s.endTx(250)

	if s.getState() != StateWaiting {
		t.Fatalf("state = %v, want WAITING", s.getState())
	}
	if s.txCnt != 1 {
		t.Fatalf("txCnt = %d, want 1", s.txCnt)
	}
	if chip.offCalled {
		t.Fatal("radio should stay on before tx_max is exhausted")
	}
}

func TestEndTxTurnsOffAtTxMax(t *testing.T) {
	s, chip, _ := newStateTestSession(3, false)
	s.txMax = 1
	s.setState(StateTransmitting)

	s.endTx(250)

	if s.getState() != StateOff {
		t.Fatalf("state = %v, want OFF", s.getState())
	}
	if !chip.offCalled {
		t.Fatal("chip.Off was not called at tx_max")
	}
}
