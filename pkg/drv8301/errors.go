package drv8301

import (
	"github.com/yunginnanet/drv8301/pkg/regio"
)

// Errors returned by the driver. The command layer passes them through from
// the register access engine unchanged; match with errors.Is / errors.As.
var (
	ErrTransport    = regio.ErrTransport
	ErrFrame        = regio.ErrFrame
	ErrNotSupported = regio.ErrNotSupported
	ErrVerify       = regio.ErrVerify
)

// TransportError is the concrete type behind ErrTransport.
type TransportError = regio.TransportError

func notSupported(format string, args ...any) error {
	return regio.NotSupported(format, args...)
}
