package glossy

import "testing"

func TestHeaderEncodeDecode(t *testing.T) {
	for tag := byte(0); tag < 4; tag++ {
		h := encodeHeader(tag)
		if !headerValid(h) {
			t.Fatalf("tag %d: header %#x not valid", tag, h)
		}
		if got := headerAppTag(h); got != tag {
			t.Fatalf("tag %d: headerAppTag returned %d", tag, got)
		}
	}
}

func TestHeaderValidRejectsCorruptMagic(t *testing.T) {
	h := encodeHeader(2) ^ 0x01
	if headerValid(h) {
		t.Fatalf("corrupted header %#x reported valid", h)
	}
}

func TestPacketLenValueSync(t *testing.T) {
	s := &Session{sync: true, dataLen: 10}
	if got, want := s.packetLenValue(), byte(10+headerLen+footerLen+relayCntLen); got != want {
		t.Fatalf("packetLenValue() = %d, want %d", got, want)
	}
}

func TestPacketLenValueNonSync(t *testing.T) {
	s := &Session{sync: false, dataLen: 10}
	if got, want := s.packetLenValue(), byte(10+headerLen+footerLen); got != want {
		t.Fatalf("packetLenValue() = %d, want %d", got, want)
	}
}

func TestFrameLenIncludesLengthByte(t *testing.T) {
	s := &Session{sync: true, dataLen: 5}
	if got, want := s.frameLen(), lengthFieldLen+int(s.packetLenValue()); got != want {
		t.Fatalf("frameLen() = %d, want %d", got, want)
	}
}

func TestRelayCntRoundTrip(t *testing.T) {
	s := &Session{sync: true, dataLen: 4}
	s.setRelayCnt(7)
	if got := s.getRelayCnt(); got != 7 {
		t.Fatalf("getRelayCnt() = %d, want 7", got)
	}
}

func TestRelayCntNoopWhenNotSync(t *testing.T) {
	s := &Session{sync: false, dataLen: 4}
	s.setRelayCnt(7)
	if got := s.getRelayCnt(); got != 0 {
		t.Fatalf("getRelayCnt() = %d, want 0 for a non-sync session", got)
	}
}

func TestCRCBitLivesInSecondFooterByte(t *testing.T) {
	s := &Session{sync: false, dataLen: 2}
	s.packetLenTmp = s.packetLenValue()
	if got, want := s.crcFieldIdx(), int(s.packetLenTmp); got != want {
		t.Fatalf("crcFieldIdx() = %d, want %d (the frame's last byte)", got, want)
	}
	s.buf[s.crcFieldIdx()] = footer1CRCOk
	if !s.crcOKTmp() {
		t.Fatal("crcOKTmp() = false, want true")
	}
	s.buf[s.crcFieldIdx()] = 0
	if s.crcOKTmp() {
		t.Fatal("crcOKTmp() = true, want false")
	}
}

func TestPayloadSlice(t *testing.T) {
	s := &Session{dataLen: 3}
	copy(s.buf[dataFieldIdx:], []byte{1, 2, 3})
	got := s.payload()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("payload() = %v", got)
	}
}
