package glossy

import (
	"context"
	"testing"
)

func TestAirtimeTicks(t *testing.T) {
	got := airtimeTicks(250, 4_000_000)
	want := Ticks(250 * 4_000_000 / 31250)
	if got != want {
		t.Fatalf("airtimeTicks = %d, want %d", got, want)
	}
}

func TestEstimateSlotLengthIgnoredBeforeSecondRx(t *testing.T) {
	s := &Session{sync: true, rxCnt: 1}
	s.estimateSlotLength(100)
	if s.tSlotH != 0 {
		t.Fatalf("tSlotH = %d, want 0 before a second reception", s.tSlotH)
	}
}

func TestEstimateSlotLengthIgnoredOnRelayCntMismatch(t *testing.T) {
	s := &Session{sync: true, rxCnt: 2, txRelayCntLast: 5}
	s.setRelayCnt(9) // != txRelayCntLast+2
	s.estimateSlotLength(100)
	if s.tSlotH != 0 {
		t.Fatalf("tSlotH = %d, want 0 when relay_cnt skipped a hop", s.tSlotH)
	}
}

func TestEstimateSlotLengthComputesOnMatchingRelayCnt(t *testing.T) {
	s := &Session{sync: true, dataLen: 4, rxCnt: 2, txRelayCntLast: 5}
	s.setRelayCnt(7)
	s.tRxStop = 100
	s.tTxStart = 150
	s.tTxStop = 200
	s.tRxStart = 250
	s.estimateSlotLength(300)
	if s.tSlotH == 0 {
		t.Fatal("tSlotH left at 0 though the trigger condition held")
	}
}

func TestEstimateSlotLengthWindowedAveraging(t *testing.T) {
	s := &Session{sync: true, dataLen: 4, rxCnt: 2, txRelayCntLast: 5, syncWindow: 4}
	s.setRelayCnt(7)
	s.tRxStop, s.tTxStart, s.tTxStop, s.tRxStart = 100, 150, 200, 250
	s.estimateSlotLength(300)
	first := s.tSlotH
	if first == 0 {
		t.Fatal("first windowed sample should be usable immediately")
	}
	for i := 0; i < 3; i++ {
		s.estimateSlotLength(300)
	}
	if s.winCnt != 2 {
		t.Fatalf("winCnt = %d, want the halved 2 after the window rolled over", s.winCnt)
	}
}

type fakeLFClock struct {
	dco Ticks
	lf  LFTicks
}

func (f fakeLFClock) NowLF() LFTicks { return f.lf }
func (f fakeLFClock) CaptureNextTick(ctx context.Context) (Ticks, LFTicks) {
	return f.dco, f.lf
}

func TestComputeReferenceTimeSetsUpdatedFlag(t *testing.T) {
	s := &Session{sync: true, dataLen: 4, tSlotH: 1000}
	s.setRelayCnt(3)
	s.tRxStart = 500
	s.lf = fakeLFClock{dco: 10000, lf: 42}
	s.computeReferenceTime(context.Background())
	if !s.tRefLUpdated.Load() {
		t.Fatal("tRefLUpdated not set after computeReferenceTime")
	}
}
