// Package spibus adapts concrete SPI controllers to the frame exchange the
// DRV8301 driver consumes. Every adapter asserts chip select around exactly one
// 16-bit frame; the device latches a frame on the rising edge of nSCS.
package spibus

import (
	"errors"
	"fmt"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// ErrShortTransfer is returned when a controller clocks fewer bytes than a frame.
var ErrShortTransfer = errors.New("short SPI transfer")

// Func adapts a full-duplex byte transfer, in the shape most SPI controllers
// expose (w and r of equal length), to a frame exchanger.
type Func func(w, r []byte) error

func (f Func) Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error) {
	err = f(tx[:], rx[:])
	return rx, err
}

// ChipSelect drives a chip select line. high=false selects the device.
type ChipSelect func(high bool) error

// framed runs xfer between asserting and releasing cs. A failure to release is
// reported together with any transfer error.
func framed(cs ChipSelect, xfer func() error) error {
	if cs == nil {
		return xfer()
	}
	if err := cs(false); err != nil {
		return fmt.Errorf("assert chip select: %w", err)
	}
	err := xfer()
	if cerr := cs(true); cerr != nil {
		err = errors.Join(err, fmt.Errorf("release chip select: %w", cerr))
	}
	return err
}
