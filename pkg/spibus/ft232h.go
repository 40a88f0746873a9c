package spibus

import (
	"fmt"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// MPSSE is the full-duplex transfer of an FTDI bridge's SPI engine, as
// (*ft232h.SPI).Swap from github.com/yunginnanet/ft232h. start asserts and stop
// releases the chip select configured on the engine.
type MPSSE interface {
	Swap(data []uint8, start bool, stop bool) ([]uint8, error)
}

// FT232H exchanges frames through an FTDI MPSSE engine. Each frame is one
// transfer with start and stop set, so the engine frames chip select. cs, when
// not nil, is driven around the transfer as well, for a select line the engine
// does not own.
type FT232H struct {
	spi MPSSE
	cs  ChipSelect
}

func NewFT232H(spi MPSSE, cs ChipSelect) *FT232H {
	return &FT232H{spi: spi, cs: cs}
}

func (f *FT232H) Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error) {
	err = framed(f.cs, func() error {
		out, xerr := f.spi.Swap(tx[:], true, true)
		if xerr != nil {
			return xerr
		}
		if len(out) < frame.Size {
			return fmt.Errorf("%w: got %d bytes", ErrShortTransfer, len(out))
		}
		copy(rx[:], out)
		return nil
	})
	return rx, err
}
