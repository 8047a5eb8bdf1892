package oscmanager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrAlreadyRunning is returned by Start when the listener is already bound.
var ErrAlreadyRunning = errors.New("osc listener already running")

var (
	ErrTruncated = errors.New("truncated osc packet")
	ErrMalformed = errors.New("malformed osc packet")
)

// BindError reports that the UDP socket could not be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DecodeKind classifies a DecodeError.
type DecodeKind int

const (
	Truncated DecodeKind = iota
	Malformed
)

func (k DecodeKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// DecodeError describes why a datagram could not be read as an OSC message.
// Offset is the read position at which decoding gave up.
type DecodeError struct {
	Kind   DecodeKind
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("osc decode: %s at offset %d: %s", e.Kind, e.Offset, e.Reason)
}

// Is matches ErrTruncated or ErrMalformed according to Kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrTruncated:
		return e.Kind == Truncated
	case ErrMalformed:
		return e.Kind == Malformed
	}
	return false
}

func truncated(offset int, reason string) error {
	return &DecodeError{Kind: Truncated, Offset: offset, Reason: reason}
}

func malformed(offset int, reason string) error {
	return &DecodeError{Kind: Malformed, Offset: offset, Reason: reason}
}

// TransportError is a receive failure that was not caused by Stop. It ends
// the receive loop.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("osc receive: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// isExpectedCloseError reports whether err is the result of the socket
// being closed underneath a pending read.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled)
}
