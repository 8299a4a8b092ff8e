// Package gvcp implements the GigE Vision Control Protocol (GVCP)
// session core: packet codec, control channel, block I/O, privilege
// lease/heartbeat and MTU probe. It speaks to a single device over a
// single UDP socket; everything above the wire (GenICam feature
// evaluation, stream reassembly, discovery) is out of scope and
// reached only through interfaces owned by the caller.
package gvcp

import (
	"errors"
	"fmt"
)

// Kind classifies the error returned by a control-channel operation.
type Kind int

const (
	// Unknown covers construction-time failures (socket bind, buffer
	// allocation) that don't fit any other kind.
	Unknown Kind = iota
	// InvalidParameter marks a bad address family, an unparsable
	// string, or a required output that would be nil.
	InvalidParameter
	// Timeout marks an exchange that never received a conclusive ack
	// within N*(T_ms + pending extensions).
	Timeout
	// ProtocolError marks a device-returned error ack.
	ProtocolError
	// NoStreamChannel marks a device reporting zero stream channels.
	NoStreamChannel
	// NotController marks a stream-creation attempt without control
	// privilege.
	NotController
	// GenICamNotFound marks exhaustion of both XML URL slots, or a
	// decompression that yielded nothing.
	GenICamNotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "invalid-parameter"
	case Timeout:
		return "timeout"
	case ProtocolError:
		return "protocol-error"
	case NoStreamChannel:
		return "no-stream-channel"
	case NotController:
		return "not-controller"
	case GenICamNotFound:
		return "genicam-not-found"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every exported gvcp operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gvcp: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("gvcp: %s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, gvcp.ErrTimeout) style sentinels built from
// the Kind alone, without requiring the same underlying cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) && t.Err == nil {
		return e.Kind == t.Kind
	}
	return false
}

func newErr(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// NewError lets callers outside this package (the aravis facade,
// bootstrap glue) build errors of the same shape this package returns.
func NewError(kind Kind, op string, cause error) *Error {
	return newErr(kind, op, cause)
}

// Sentinels usable with errors.Is for callers that only care about the
// kind, e.g. errors.Is(err, gvcp.ErrTimeout).
var (
	ErrInvalidParameter = &Error{Kind: InvalidParameter}
	ErrTimeout          = &Error{Kind: Timeout}
	ErrProtocolError    = &Error{Kind: ProtocolError}
	ErrNoStreamChannel  = &Error{Kind: NoStreamChannel}
	ErrNotController    = &Error{Kind: NotController}
	ErrGenICamNotFound  = &Error{Kind: GenICamNotFound}
)

// gvcpErrorText decodes the protocol-defined error-flags value carried
// by an error ack into a short human-readable message.
func gvcpErrorText(flags uint16) string {
	if text, ok := gvcpErrorStrings[flags]; ok {
		return text
	}
	return fmt.Sprintf("unknown GVCP error 0x%04x", flags)
}

// Protocol-defined error-flags values (ARV_GVCP_ERROR_*).
const (
	ErrFlagNotImplemented     uint16 = 0x8001
	ErrFlagInvalidParameter   uint16 = 0x8002
	ErrFlagInvalidAddress     uint16 = 0x8003
	ErrFlagWriteProtect       uint16 = 0x8004
	ErrFlagBadAlignment       uint16 = 0x8005
	ErrFlagAccessDenied       uint16 = 0x8006
	ErrFlagBusy               uint16 = 0x8007
	ErrFlagLocalProblem       uint16 = 0x8008
	ErrFlagMsgMismatch        uint16 = 0x8009
	ErrFlagInvalidProtocol    uint16 = 0x800a
	ErrFlagNoMsgTimeout       uint16 = 0x800b
	ErrFlagPacketUnavailable  uint16 = 0x800c
	ErrFlagDataOverrun        uint16 = 0x800d
	ErrFlagInvalidHeader      uint16 = 0x800e
	ErrFlagWrongConfig        uint16 = 0x800f
	ErrFlagPacketNotYetAvail  uint16 = 0x8010
	ErrFlagPacketAndPrevRemv  uint16 = 0x8011
	ErrFlagPacketRemoved      uint16 = 0x8012
	ErrFlagNoRefTime          uint16 = 0x8013
	ErrFlagPacketTemp         uint16 = 0x8014
	ErrFlagIPUnreachable      uint16 = 0x8015
	ErrFlagBandwidthExceeded  uint16 = 0x8016
	ErrFlagTooManyUnits       uint16 = 0x8017
)

var gvcpErrorStrings = map[uint16]string{
	ErrFlagNotImplemented:    "not implemented",
	ErrFlagInvalidParameter:  "invalid parameter",
	ErrFlagInvalidAddress:    "invalid address",
	ErrFlagWriteProtect:      "write protect",
	ErrFlagBadAlignment:      "bad alignment",
	ErrFlagAccessDenied:      "access denied",
	ErrFlagBusy:              "busy",
	ErrFlagLocalProblem:      "local problem",
	ErrFlagMsgMismatch:       "message mismatch",
	ErrFlagInvalidProtocol:   "invalid protocol",
	ErrFlagNoMsgTimeout:      "no message timeout",
	ErrFlagPacketUnavailable: "packet unavailable",
	ErrFlagDataOverrun:       "data overrun",
	ErrFlagInvalidHeader:     "invalid header",
	ErrFlagWrongConfig:       "wrong config",
	ErrFlagPacketNotYetAvail: "packet not yet available",
	ErrFlagPacketAndPrevRemv: "packet and previous removed",
	ErrFlagPacketRemoved:     "packet removed",
	ErrFlagNoRefTime:         "no reference time",
	ErrFlagPacketTemp:        "packet temporarily unavailable",
	ErrFlagIPUnreachable:     "IP unreachable",
	ErrFlagBandwidthExceeded: "bandwidth exceeded",
	ErrFlagTooManyUnits:      "too many open stream channels",
}
