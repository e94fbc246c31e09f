package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/ascmdctl/internal/protocol/frame"
	"github.com/danmuck/ascmdctl/internal/protocol/tlv"
)

// ErrProtocol is the root of every well-formed but out-of-sequence reply.
var ErrProtocol = errors.New("session: protocol error")

var (
	ErrHandshake          = fmt.Errorf("%w: handshake", ErrProtocol)
	ErrUnexpectedResult   = fmt.Errorf("%w: unexpected result", ErrProtocol)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrProtocol)
	ErrTerminated         = fmt.Errorf("%w: session terminated", ErrProtocol)
	ErrSessionFailed      = errors.New("session: failed")
)

// OperationError is the agent refusing one command. The session stays usable.
type OperationError struct {
	Verb   string
	Errno  uint32
	Errstr string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("session: %s failed: %s (errno %d)", e.Verb, e.Errstr, e.Errno)
}

type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindFraming   ErrorKind = "framing"
	KindDecoding  ErrorKind = "decoding"
	KindProtocol  ErrorKind = "protocol"
	KindOperation ErrorKind = "operation"
	KindTransport ErrorKind = "transport"
)

// Classify maps err onto the error taxonomy. Anything not produced by the
// protocol layers is a transport error.
func Classify(err error) ErrorKind {
	var opErr *OperationError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &opErr):
		return KindOperation
	case errors.Is(err, frame.ErrFraming):
		return KindFraming
	case errors.Is(err, tlv.ErrDecoding):
		return KindDecoding
	case errors.Is(err, ErrProtocol):
		return KindProtocol
	default:
		return KindTransport
	}
}

// IsFatal reports whether the session that returned err can no longer be
// used.
func IsFatal(err error) bool {
	kind := Classify(err)
	return kind != KindNone && kind != KindOperation
}
