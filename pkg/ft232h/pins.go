package ft232h

import (
	"errors"
	"fmt"

	"github.com/yunginnanet/ft232h"
)

var (
	ErrPinNotSet = errors.New("pin not set")
	ErrBadPin    = errors.New("pin mask must select exactly one C bus line")
)

// cpin converts a C bus pin mask (0x01 = C0 ... 0x80 = C7).
func cpin(mask uint) (ft232h.CPin, error) {
	p := ft232h.CPin(mask)
	if mask > 0xFF || !p.Valid() {
		return 0, fmt.Errorf("%w: 0x%X", ErrBadPin, mask)
	}
	return p, nil
}

// SetCSPin configures the GPIO driving nSCS and releases it (high). pin is a
// C bus mask, 0x10 for C4.
func (b *Bridge) SetCSPin(pin uint) error {
	p, err := cpin(pin)
	if err != nil {
		return fmt.Errorf("chip select: %w", err)
	}
	b.csPin = p
	b.log.Debug().Str("pin", b.csPin.String()).Int("pos", int(b.csPin.Pos())).Msg("chip select")
	return b.GPIO.ConfigPin(b.csPin, ft232h.Output, true)
}

func (b *Bridge) CSPin() ft232h.CPin {
	return b.csPin
}

// SetCS drives nSCS. high=false selects the DRV8301.
func (b *Bridge) SetCS(high bool) error {
	if b.csPin == 0 {
		return fmt.Errorf("chip select: %w", ErrPinNotSet)
	}
	return b.GPIO.Set(b.csPin, high)
}

// SetEnableGatePin configures the GPIO driving EN_GATE, leaving the gate
// driver disabled.
func (b *Bridge) SetEnableGatePin(pin uint) error {
	p, err := cpin(pin)
	if err != nil {
		return fmt.Errorf("EN_GATE: %w", err)
	}
	b.enPin = p
	b.log.Debug().Str("pin", b.enPin.String()).Int("pos", int(b.enPin.Pos())).Msg("EN_GATE")
	return b.GPIO.ConfigPin(b.enPin, ft232h.Output, false)
}

// EnableGate drives EN_GATE. SPI registers are only reachable while it is
// high; pulling it low resets the device and every control register.
func (b *Bridge) EnableGate(on bool) error {
	if b.enPin == 0 {
		return fmt.Errorf("EN_GATE: %w", ErrPinNotSet)
	}
	if err := b.GPIO.Set(b.enPin, on); err != nil {
		return fmt.Errorf("failed to set EN_GATE pin: %w", err)
	}
	return nil
}

// SetFaultPin configures the GPIO reading the open-drain nFAULT output.
func (b *Bridge) SetFaultPin(pin uint) error {
	p, err := cpin(pin)
	if err != nil {
		return fmt.Errorf("nFAULT: %w", err)
	}
	b.faultPin = p
	b.log.Debug().Str("pin", b.faultPin.String()).Int("pos", int(b.faultPin.Pos())).Msg("nFAULT")
	return b.GPIO.ConfigPin(b.faultPin, ft232h.Input, true)
}

// Fault reports whether nFAULT is asserted (low). Read the status registers
// to learn which fault it is.
func (b *Bridge) Fault() (bool, error) {
	if b.faultPin == 0 {
		return false, fmt.Errorf("nFAULT: %w", ErrPinNotSet)
	}
	hl, err := b.GPIO.Get(b.faultPin)
	if err != nil {
		return false, fmt.Errorf("failed to read nFAULT pin: %w", err)
	}
	return !hl, nil
}
