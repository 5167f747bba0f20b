// Package doginals holds the shared identity and error types used across
// the decoder/resolver and builder/broadcaster subsystems.
package doginals

import (
	"errors"
	"fmt"
)

// Kind is a closed enumeration of the error categories this system
// surfaces, per the error handling design.
type Kind int

const (
	// KindInvalidInput covers malformed inscription ids, oversized
	// content types, and non-hex payloads.
	KindInvalidInput Kind = iota

	// KindNotDoginal covers a first input assembly lacking the genesis
	// sentinel.
	KindNotDoginal

	// KindTruncated covers a chain walk that ran out of hops or reached
	// the tip without an end-of-data signal.
	KindTruncated

	// KindRPCUnavailable covers a node connection failure.
	KindRPCUnavailable

	// KindRPCError covers a node-reported error unrelated to
	// availability.
	KindRPCError

	// KindInsufficientFunds covers a builder unable to satisfy an output
	// plus fee from the wallet's UTXOs.
	KindInsufficientFunds

	// KindMempoolChainLimit covers the node's too-long-mempool-chain
	// broadcast rejection.
	KindMempoolChainLimit

	// KindIOError covers disk failures on content or master writes.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid-input"
	case KindNotDoginal:
		return "not-doginal"
	case KindTruncated:
		return "truncated"
	case KindRPCUnavailable:
		return "rpc-unavailable"
	case KindRPCError:
		return "rpc-error"
	case KindInsufficientFunds:
		return "insufficient-funds"
	case KindMempoolChainLimit:
		return "mempool-chain-limit"
	case KindIOError:
		return "io-error"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with a message and optional underlying cause, so
// callers can branch with errors.Is/errors.As on either the Kind sentinel
// or the original cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, doginals.KindSentinel(k)) style comparisons by
// matching on Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindSentinel returns a bare *Error carrying only a Kind, suitable for use
// as a comparison target with errors.Is.
func KindSentinel(k Kind) error {
	return &Error{Kind: k}
}

// Newf builds an *Error of the given kind with a formatted message.
func Newf(k Kind, cause error, format string, args ...any) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Cause: cause}
}
