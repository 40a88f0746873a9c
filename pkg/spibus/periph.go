package spibus

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// MaxClock is the fastest SCLK the DRV8301 accepts.
const MaxClock = 10 * physic.MegaHertz

// Periph exchanges frames over a periph.io connection. The connection handles
// chip select itself.
type Periph struct {
	c conn.Conn
}

// NewPeriph wraps an established connection. Half duplex connections cannot
// carry the reply that arrives during a command frame and are refused.
func NewPeriph(c conn.Conn) (*Periph, error) {
	if c.Duplex() == conn.Half {
		return nil, fmt.Errorf("%s: DRV8301 needs a full duplex connection", c)
	}
	return &Periph{c: c}, nil
}

// ConnectPeriph opens a connection on port in SPI mode 1. Frames go out as
// two 8-bit words, most significant first.
// freq is clamped to MaxClock; zero selects 1MHz.
func ConnectPeriph(port spi.Port, freq physic.Frequency) (*Periph, error) {
	switch {
	case freq == 0:
		freq = physic.MegaHertz
	case freq > MaxClock:
		freq = MaxClock
	}
	c, err := port.Connect(freq, spi.Mode1, 8)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", port, err)
	}
	return NewPeriph(c)
}

func (p *Periph) Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error) {
	err = p.c.Tx(tx[:], rx[:])
	return rx, err
}

func (p *Periph) String() string {
	return p.c.String()
}
