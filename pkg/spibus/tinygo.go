package spibus

import (
	"tinygo.org/x/drivers"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// TinyGo exchanges frames over a TinyGo SPI peripheral. The peripheral must be
// configured for mode 1 (CPOL=0, CPHA=1), MSB first, at most 10MHz.
type TinyGo struct {
	bus drivers.SPI
	cs  ChipSelect
}

// NewTinyGo wraps bus. cs may be nil when chip select is handled in hardware.
// On a board, pass a closure over machine.Pin.Set.
func NewTinyGo(bus drivers.SPI, cs ChipSelect) *TinyGo {
	return &TinyGo{bus: bus, cs: cs}
}

func (t *TinyGo) Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error) {
	err = framed(t.cs, func() error {
		return t.bus.Tx(tx[:], rx[:])
	})
	return rx, err
}
