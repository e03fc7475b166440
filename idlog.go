package glossy

import "encoding/binary"

// Component H (§4.H): before retransmitting a sync frame, append this
// node's ID into the first empty slot that follows an occupied one in a
// fixed-width path log carried in the payload. An all-zero log is left
// untouched.
//
// The payload is interpreted as a sequence of little-endian uint16 IDs.
// Scanning is bounded to i ∈ [0,9] even though the log itself reserves
// idLogCapacity (20) slots - §9's Open Questions call this "not
// documented" in the original but preserve it verbatim, so Glossy does
// the same rather than "fixing" an apparent asymmetry.
func (s *Session) appendIDLog() {
	p := s.payload()
	need := 2 * (idLogSlots + 2)
	if len(p) < need {
		// Payload too small to carry a log; relay unmodified (§4.H).
		return
	}
	for i := 0; i < idLogSlots; i++ {
		cur := binary.LittleEndian.Uint16(p[2*i:])
		next := binary.LittleEndian.Uint16(p[2*(i+1):])
		if cur != 0 && next == 0 {
			binary.LittleEndian.PutUint16(p[2*(i+1):], s.id)
			return
		}
	}
	// Log full: relay unmodified.
}
