package glossy

import "fmt"

// State is the sole synchronization token shared between the foreground
// and the interrupt dispatcher (§3 I1, §5). Only one transient state
// (RECEIVING/RECEIVED/TRANSMITTING/ABORTED) holds at a time; OFF and
// WAITING are the two "parked" states.
type State uint32

const (
	StateOff State = iota
	StateWaiting
	StateReceiving
	StateReceived
	StateTransmitting
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateWaiting:
		return "WAITING"
	case StateReceiving:
		return "RECEIVING"
	case StateReceived:
		return "RECEIVED"
	case StateTransmitting:
		return "TRANSMITTING"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Ticks is a DCO-resolution timestamp or duration (~4 MHz class, §3).
type Ticks uint32

// LFTicks is a low-frequency (32 kHz class) timestamp or duration.
type LFTicks uint32

// Wire format constants (§6).
const (
	// headerMagicMask isolates the fixed magic bits of the header byte.
	headerMagicMask byte = 0x3F // lower 6 bits
	// headerMagic is the fixed value the lower 6 bits of a valid header
	// byte must carry (GLOSSY_HEADER in the original source).
	headerMagic byte = 0x2A
	// headerAppShift is where the 2 caller-supplied header bits live.
	headerAppShift = 6

	// footerLen is the length, in bytes, of the CRC footer appended to
	// every frame.
	footerLen = 2
	// footer1CRCOk is the CRC-valid bit of FOOTER1, the second footer
	// byte.
	footer1CRCOk = 1 << 7

	// relayCntLen is the width, in bytes, of the on-wire relay counter
	// field, present only when a session runs with sync enabled.
	relayCntLen = 1
	// headerLen is the width, in bytes, of the header field.
	headerLen = 1
	// lengthFieldLen is the width, in bytes, of the length field.
	lengthFieldLen = 1

	// maxFrameLen is the hardware MTU (§3).
	maxFrameLen = 127
	// bufferLen is the single fixed-size packet buffer (I6): length byte
	// + header + up to maxFrameLen-1 remaining bytes, rounded up to a
	// comfortable power-of-two scratch size exactly as the teacher's
	// Device.scratch sizes itself to the hardware's max payload plus one
	// status/length byte.
	bufferLen = 128

	// idLogSlots is the number of observable ID-log slots a sync session
	// scans when piggybacking this node's ID (§4.H); the backing array is
	// wider (idLogCapacity) - the spec's Open Questions note this as an
	// apparently intentional, undocumented reserved tail we preserve as-is.
	idLogSlots    = 10
	idLogCapacity = 20
)

// Errors returned from the synchronous, non-dispatcher call paths only
// (Start/config validation). Mid-flood failures are dropped or recovered
// per §7 and never surface as an error - see Stats for observability.
var (
	ErrPkg                  = fmt.Errorf("glossy")
	ErrBadTxMax             = fmt.Errorf("%w: tx_max must be in [1,255]", ErrPkg)
	ErrBadDataLen           = fmt.Errorf("%w: data_len is zero for an initiator or does not fit the buffer or data", ErrPkg)
	ErrBadHeaderTag         = fmt.Errorf("%w: header tag must fit in 2 bits", ErrPkg)
	ErrAlreadyActive        = fmt.Errorf("%w: flood already active", ErrPkg)
	ErrConcurrentInitiators = fmt.Errorf("%w: concurrent initiators are a configuration error", ErrPkg)
)

// ErrorKind enumerates the dropped/recovered failure kinds of §7. None of
// these are ever returned as a Go error from a running flood; they are
// counted in Stats so a caller can observe what happened.
type ErrorKind int

const (
	ErrLengthMismatch ErrorKind = iota
	ErrHeaderMismatch
	ErrBadCRC
	ErrRxTimeout
	ErrLatencyExceeded
	ErrInitiatorStuck
	ErrUnexpectedState
	ErrHardStop
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLengthMismatch:
		return "LengthMismatch"
	case ErrHeaderMismatch:
		return "HeaderMismatch"
	case ErrBadCRC:
		return "BadCRC"
	case ErrRxTimeout:
		return "RxTimeout"
	case ErrLatencyExceeded:
		return "LatencyExceeded"
	case ErrInitiatorStuck:
		return "InitiatorStuck"
	case ErrUnexpectedState:
		return "UnexpectedState"
	case ErrHardStop:
		return "HardStop"
	default:
		return "Unknown"
	}
}

// Stats counts every dropped/recovered failure kind; the diagnostic
// counters the original source gates behind GLOSSY_DEBUG are among them.
// [EXPANSION] generalizes the teacher's GetRetransmissionCounters-style
// visibility into the hardware ARQ to Glossy's own bounded-retry engine.
type Stats struct {
	LengthMismatch  int
	HeaderMismatch  int
	BadCRC          int
	RxTimeout       int
	LatencyExceeded int
	InitiatorStuck  int
	UnexpectedState int
	HardStop        int
}

// BufferCapacity is the largest data_len a caller may pass to
// FloodController.Start: the fixed packet buffer (I6) minus the
// length byte, header, relay-counter and CRC footer overhead.
func BufferCapacity() int {
	return bufferLen - headerLen - footerLen - relayCntLen - lengthFieldLen
}

func (s *Stats) count(k ErrorKind) {
	switch k {
	case ErrLengthMismatch:
		s.LengthMismatch++
	case ErrHeaderMismatch:
		s.HeaderMismatch++
	case ErrBadCRC:
		s.BadCRC++
	case ErrRxTimeout:
		s.RxTimeout++
	case ErrLatencyExceeded:
		s.LatencyExceeded++
	case ErrInitiatorStuck:
		s.InitiatorStuck++
	case ErrUnexpectedState:
		s.UnexpectedState++
	case ErrHardStop:
		s.HardStop++
	}
}
