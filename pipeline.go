package glossy

import "context"

// Component E (§4.E): the fixed-delay relay pipeline's two estimators -
// slot length and reference time. Both only run for sync sessions.

// airtimeTicks converts the on-wire packet length to DCO ticks at the
// fixed 250 kb/s air rate: bytes/sec at 250kb/s is 250000/8 = 31250, so
// packet_len*F_CPU/31250 ticks (§4.E).
func airtimeTicks(packetLen byte, fcpu int64) Ticks {
	return Ticks(int64(packetLen) * fcpu / 31250)
}

// estimateSlotLength updates T_slot_h. Triggered only when rx_cnt > 1 and
// the just-received frame's relay counter is exactly
// tx_relay_cnt_last + 2 (we transmitted, then heard the immediate next
// hop) - §4.E.
func (s *Session) estimateSlotLength(tRxStopTmp Ticks) {
	if s.rxCnt <= 1 {
		return
	}
	if s.getRelayCnt() != s.txRelayCntLast+2 {
		return
	}
	tWrt := s.tTxStart - s.tRxStop
	tTx := s.tTxStop - s.tTxStart
	tWtr := s.tRxStart - s.tTxStop
	tRx := tRxStopTmp - s.tRxStart
	slot := Ticks((int64(tTx) + int64(tWtr) + int64(tRx) + int64(tWrt)) / 2)
	slot -= airtimeTicks(s.packetLenValue(), dcoTicksPerSecond)

	if s.syncWindow <= 0 {
		s.tSlotH = slot
		return
	}
	s.tSlotHSum += uint64(slot)
	s.winCnt++
	if s.winCnt == s.syncWindow {
		s.tSlotH = Ticks(s.tSlotHSum / uint64(s.syncWindow))
		s.tSlotHSum /= 2
		s.winCnt /= 2
	} else if s.winCnt == 1 {
		// First sample: usable immediately so the very next slot can be
		// timed (§4.E).
		s.tSlotH = slot
	}
}

// computeReferenceTime reconstructs t_ref_l from the current relay
// counter, the slot-length estimate and a captured (DCO, LF) tick pair
// (§4.E). Called at most once per session (I5).
func (s *Session) computeReferenceTime(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	tCapH, tCapL := s.lf.CaptureNextTick(ctx)

	relayCnt := int64(s.getRelayCnt())
	tRefToRxH := (relayCnt - 1) * (int64(s.tSlotH) + int64(airtimeTicks(s.packetLenValue(), dcoTicksPerSecond)))
	tRefToCapH := tRefToRxH + int64(tCapH-s.tRxStart)
	tRefToCapL := 1 + tRefToCapH/int64(clockPhi)
	s.tRefL = tCapL - LFTicks(tRefToCapL)
	s.tRefLUpdated.Store(true)
}
