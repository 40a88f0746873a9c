package regio

import (
	"errors"
	"fmt"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

var (
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("SPI transport error")
	// ErrFrame is returned when the device flags the frame it received as
	// malformed. The accompanying data is discarded.
	ErrFrame = errors.New("SPI frame error detected in response")
	// ErrNotSupported is a local precondition failure: the requested feature or
	// mode is not implemented for this device. Nothing is sent on the wire.
	ErrNotSupported = errors.New("feature or mode not supported")
	// ErrVerify is returned by verified writes when the read-back differs.
	ErrVerify = errors.New("register read-back mismatch")
)

// TransportError wraps a failure of the underlying exchange.
type TransportError struct {
	Op      string // "read" or "write"
	Address frame.Address
	Cause   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s register %s: %v: %v", e.Op, e.Address, ErrTransport, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// NotSupported returns an ErrNotSupported carrying what was requested.
func NotSupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotSupported, fmt.Sprintf(format, args...))
}
