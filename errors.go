package svtav1

import (
	"errors"
	"fmt"
)

// Status is a return code of the SVT-AV1 library (EbErrorType).
//
// StatusNone is the only success value. Every other value is an error,
// including the two termination signals StatusEmptyQueue and
// StatusFifoShutdown, which callers normally use to end a polling loop.
type Status int32

const (
	StatusNone Status = 0

	// Decoder-only codes. The encoder path never returns them.
	StatusDecUnsupportedBitstream Status = 0x40001000
	StatusDecNoOutputPicture      Status = 0x40001004
	StatusDecDecodingError        Status = 0x40001008
	StatusCorruptFrame            Status = 0x4000100C

	StatusInsufficientResources  Status = -0x7FFFF000 // 0x80001000
	StatusUndefined              Status = -0x7FFFEFFF // 0x80001001
	StatusInvalidComponent       Status = -0x7FFFEFFC // 0x80001004
	StatusBadParameter           Status = -0x7FFFEFFB // 0x80001005
	StatusDestroyThreadFailed    Status = -0x7FFFDFEE // 0x80002012
	StatusSemaphoreUnresponsive  Status = -0x7FFFDFDF // 0x80002021
	StatusDestroySemaphoreFailed Status = -0x7FFFDFDE // 0x80002022
	StatusCreateMutexFailed      Status = -0x7FFFDFD0 // 0x80002030
	StatusMutexUnresponsive      Status = -0x7FFFDFCF // 0x80002031
	StatusDestroyMutexFailed     Status = -0x7FFFDFCE // 0x80002032
	StatusEmptyQueue             Status = -0x7FFFDFCD // 0x80002033
	StatusFifoShutdown           Status = -0x7FFFDFCC // 0x80002034

	StatusMax Status = 0x7FFFFFFF
)

// StatusKind groups statuses by how a caller should react to them.
type StatusKind int

const (
	KindSuccess     StatusKind = iota
	KindUsage                  // bad parameter, invalid component
	KindResource               // allocation or threading primitive failure
	KindTermination            // empty queue or shutdown; ends a polling loop
	KindDecoderOnly            // not produced by the encoder
	KindUnknown
)

func (k StatusKind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindUsage:
		return "Usage"
	case KindResource:
		return "Resource"
	case KindTermination:
		return "Termination"
	case KindDecoderOnly:
		return "DecoderOnly"
	default:
		return "Unknown"
	}
}

// Kind classifies the status. Values outside the known set map to KindUnknown.
func (s Status) Kind() StatusKind {
	switch s {
	case StatusNone:
		return KindSuccess
	case StatusBadParameter, StatusInvalidComponent, StatusUndefined:
		return KindUsage
	case StatusInsufficientResources,
		StatusDestroyThreadFailed,
		StatusSemaphoreUnresponsive,
		StatusDestroySemaphoreFailed,
		StatusCreateMutexFailed,
		StatusMutexUnresponsive,
		StatusDestroyMutexFailed:
		return KindResource
	case StatusEmptyQueue, StatusFifoShutdown:
		return KindTermination
	case StatusDecUnsupportedBitstream,
		StatusDecNoOutputPicture,
		StatusDecDecodingError,
		StatusCorruptFrame:
		return KindDecoderOnly
	default:
		return KindUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "ErrorNone"
	case StatusDecUnsupportedBitstream:
		return "DecUnsupportedBitstream"
	case StatusDecNoOutputPicture:
		return "DecNoOutputPicture"
	case StatusDecDecodingError:
		return "DecDecodingError"
	case StatusCorruptFrame:
		return "CorruptFrame"
	case StatusInsufficientResources:
		return "ErrorInsufficientResources"
	case StatusUndefined:
		return "ErrorUndefined"
	case StatusInvalidComponent:
		return "ErrorInvalidComponent"
	case StatusBadParameter:
		return "ErrorBadParameter"
	case StatusDestroyThreadFailed:
		return "ErrorDestroyThreadFailed"
	case StatusSemaphoreUnresponsive:
		return "ErrorSemaphoreUnresponsive"
	case StatusDestroySemaphoreFailed:
		return "ErrorDestroySemaphoreFailed"
	case StatusCreateMutexFailed:
		return "ErrorCreateMutexFailed"
	case StatusMutexUnresponsive:
		return "ErrorMutexUnresponsive"
	case StatusDestroyMutexFailed:
		return "ErrorDestroyMutexFailed"
	case StatusEmptyQueue:
		return "NoErrorEmptyQueue"
	case StatusFifoShutdown:
		return "NoErrorFifoShutdown"
	case StatusMax:
		return "ErrorMax"
	default:
		return fmt.Sprintf("Status(0x%08X)", uint32(s))
	}
}

// Error implements error.
func (s Status) Error() string {
	return "svtav1: " + s.String()
}

// Err returns nil for StatusNone and s otherwise.
func (s Status) Err() error {
	if s == StatusNone {
		return nil
	}
	return s
}

// Common errors
var (
	ErrInvalidWidth   = errors.New("svtav1: width must be in [64, 16384]")
	ErrInvalidHeight  = errors.New("svtav1: height must be in [64, 8704]")
	ErrInvalidPreset  = errors.New("svtav1: preset must be in [-2, 13]")
	ErrInvalidString  = errors.New("svtav1: string contains NUL byte")
	ErrEncoderClosed  = errors.New("svtav1: encoder closed")
	ErrConfigConsumed = errors.New("svtav1: configuration already finalized")
	ErrPacketReleased = errors.New("svtav1: packet already released")
	ErrEmptyFrame     = errors.New("svtav1: frame has no luma data")
	ErrNotAvailable   = errors.New("svtav1: SvtAv1Enc library not available")
	ErrLayoutMismatch = errors.New("svtav1: native struct layout does not match bindings")
)

// CallError reports a non-success status returned by a native call.
type CallError struct {
	Op     string
	Status Status
}

func (e *CallError) Error() string {
	return fmt.Sprintf("svtav1: %s: %s", e.Op, e.Status.String())
}

func (e *CallError) Unwrap() error { return e.Status }

// ParameterError reports a name/value pair rejected by the parameter parser.
type ParameterError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("svtav1: parameter %q=%q rejected: %v", e.Name, e.Value, e.Err)
}

func (e *ParameterError) Unwrap() error { return e.Err }

// FatalError is the panic value raised when the native handle cannot be
// constructed. It indicates a broken environment (missing library, ABI
// mismatch, out of memory), not a usage error.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("svtav1: fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func statusErr(op string, s Status) error {
	if s == StatusNone {
		return nil
	}
	return &CallError{Op: op, Status: s}
}

// IsEmptyQueue reports whether err carries StatusEmptyQueue: nothing is ready
// yet on a non-blocking receive.
func IsEmptyQueue(err error) bool {
	return errors.Is(err, StatusEmptyQueue)
}

// IsShutdown reports whether err carries StatusFifoShutdown: the encoder has
// emitted every packet after end of stream.
func IsShutdown(err error) bool {
	return errors.Is(err, StatusFifoShutdown)
}

// IsTermination reports whether err is one of the two loop-ending statuses.
func IsTermination(err error) bool {
	var s Status
	if !errors.As(err, &s) {
		return false
	}
	return s.Kind() == KindTermination
}
