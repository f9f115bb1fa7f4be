package multistream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a negotiation-related operation failed.
type ErrorKind int

const (
	// KindUnknown is the zero value; never returned by this package.
	KindUnknown ErrorKind = iota

	// KindVersionMismatch: the first token exchanged was not PROTOCOL_ID.
	KindVersionMismatch

	// KindMessageTooLarge: a declared varint length exceeded MaxTokenPayload.
	KindMessageTooLarge

	// KindMissingDelimiter: a token's final byte was not DELIMITER.
	KindMissingDelimiter

	// KindBadEncoding: a token's payload was not valid UTF-8.
	KindBadEncoding

	// KindProtocolNotSupported: the peer rejected every offered protocol.
	KindProtocolNotSupported

	// KindUnexpectedToken: a trySelect response was neither the requested
	// protocol nor "na".
	KindUnexpectedToken

	// KindCancelled: a context was cancelled mid-operation.
	KindCancelled

	// KindTransportClosed: EOF observed mid-frame, where the protocol
	// requires more bytes, or any other read/write failure of the
	// underlying stream.
	KindTransportClosed

	// KindHandlerError: reserved for handler-propagated failures.
	KindHandlerError
)

func (k ErrorKind) String() string {
	switch k {
	case KindVersionMismatch:
		return "version_mismatch"
	case KindMessageTooLarge:
		return "message_too_large"
	case KindMissingDelimiter:
		return "missing_delimiter"
	case KindBadEncoding:
		return "bad_encoding"
	case KindProtocolNotSupported:
		return "protocol_not_supported"
	case KindUnexpectedToken:
		return "unexpected_token"
	case KindCancelled:
		return "cancelled"
	case KindTransportClosed:
		return "transport_closed"
	case KindHandlerError:
		return "handler_error"
	default:
		return "unknown"
	}
}

// NegotiationError is the concrete error type returned by every
// negotiation and token operation in this package. LazyStream's
// pass-through Read/Write after a successful handshake, and its Close,
// return the underlying stream's own errors (Close joins them with any
// stored NegotiationError). Callers that only care about the failure
// class should use errors.As and inspect Kind.
type NegotiationError struct {
	Kind ErrorKind

	// Op names the operation that failed (e.g. "read_token", "try_select").
	Op string

	// Token is the offending token, when known.
	Token string

	// Protocols is the attempted candidate set, for select_one_of failures.
	Protocols []string

	// Length is the declared varint length, for KindMessageTooLarge.
	Length uint64

	// Err is the underlying cause, if any (e.g. an io error).
	Err error
}

func (e *NegotiationError) Error() string {
	msg := fmt.Sprintf("multistream: %s: %s", e.Op, e.Kind)
	if e.Token != "" {
		msg += fmt.Sprintf(" (token=%q)", e.Token)
	}
	if len(e.Protocols) > 0 {
		msg += fmt.Sprintf(" (tried=%v)", e.Protocols)
	}
	if e.Length > 0 {
		msg += fmt.Sprintf(" (length=%d)", e.Length)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap supports errors.Is/errors.As over the underlying cause.
func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *NegotiationError with the same Kind.
func (e *NegotiationError) Is(target error) bool {
	t, ok := target.(*NegotiationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(op string, kind ErrorKind) *NegotiationError {
	return &NegotiationError{Op: op, Kind: kind}
}

func wrapErr(op string, kind ErrorKind, err error) *NegotiationError {
	return &NegotiationError{Op: op, Kind: kind, Err: err}
}

// Sentinel errors for kinds callers commonly check with errors.Is, using
// the zero-context form of NegotiationError (no Op/Token/Err).
var (
	// ErrProtocolNotSupported marks every protocol-not-supported failure.
	ErrProtocolNotSupported = &NegotiationError{Kind: KindProtocolNotSupported}

	// ErrVersionMismatch marks every handshake version-mismatch failure.
	ErrVersionMismatch = &NegotiationError{Kind: KindVersionMismatch}

	// ErrCancelled marks every cancellation failure.
	ErrCancelled = &NegotiationError{Kind: KindCancelled}
)

// IsKind reports whether err is, or wraps, a *NegotiationError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var ne *NegotiationError
	if !errors.As(err, &ne) {
		return false
	}
	return ne.Kind == k
}
