// Package ft232h connects a DRV8301 to a host through an FTDI FT232H USB
// bridge: MPSSE SPI for the register frames, GPIO for chip select, EN_GATE and
// nFAULT.
package ft232h

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/spibus"
)

// DeviceInfo represents a snapshot of the device information for the [Bridge].
type DeviceInfo struct {
	Index       int    `json:"index"`
	Serial      string `json:"serial"`
	Description string `json:"description"`
	ProductID   string `json:"product_id"`
	VendorID    string `json:"vendor_id"`
	IsOpen      bool   `json:"is_open"`
	IsHighSpeed bool   `json:"is_high_speed"`
}

func (di DeviceInfo) String() string {
	return fmt.Sprintf("%s:%s %q serial=%s index=%d", di.VendorID, di.ProductID, di.Description, di.Serial, di.Index)
}

// Bridge is an FT232H wired to one DRV8301. It implements the frame exchange
// consumed by drv8301.New.
type Bridge struct {
	*ft232h.FT232H

	csPin    ft232h.CPin
	enPin    ft232h.CPin
	faultPin ft232h.CPin

	frames *spibus.FT232H
	log    zerolog.Logger
}

// Connect opens the bridge matching choice, or the first one found when no
// descriptor is given.
func Connect(choice ...Descriptor) (*Bridge, error) {
	var (
		dev *ft232h.FT232H
		err error
	)
	switch len(choice) {
	case 0:
		dev, err = ft232h.New()
	case 1:
		if err = choice[0].Validate(); err != nil {
			return nil, err
		}
		dev, err = ft232h.OpenMask(choice[0].Mask())
	default:
		return nil, fmt.Errorf("%w: expected at most one descriptor, got %d", ErrBadDescriptor, len(choice))
	}
	if err != nil {
		return nil, fmt.Errorf("open FT232H: %w", err)
	}
	b := &Bridge{FT232H: dev, log: zerolog.Nop()}
	// Swap drives the chip select pin once Init has configured it
	b.frames = spibus.NewFT232H(dev.SPI, nil)
	return b, nil
}

var _ spibus.MPSSE = (*ft232h.SPI)(nil)

// WithLogger sets the logger used for pin setup.
func (b *Bridge) WithLogger(l zerolog.Logger) *Bridge {
	b.log = l.With().Str("caller", "ft232h").Logger()
	return b
}

// Info returns a snapshot of the device information. Read-only.
func (b *Bridge) Info() DeviceInfo {
	return DeviceInfo{
		Index:       b.Index(),
		Serial:      b.Serial(),
		Description: b.Desc(),
		ProductID:   fmt.Sprintf("%04x", b.PID()),
		VendorID:    fmt.Sprintf("%04x", b.VID()),
		IsOpen:      b.IsOpen(),
		IsHighSpeed: b.IsHiSpeed(),
	}
}

func (b *Bridge) String() string {
	info := b.Info()
	return fmt.Sprintf("FT232H[%s:%s]: %s", info.VendorID, info.ProductID, info.Description)
}

// Clock is the SCLK rate used by Init. The DRV8301 accepts up to 10MHz.
const Clock = 1000000

// spiMode1 is CPOL=0, CPHA=1: the DRV8301 latches SDI on the falling edge.
const spiMode1 = 0x01

// spiConfig fills cfg for the DRV8301. nSCS is active low and is the GPIO pin
// given to SetCSPin, so Swap pulls it low for exactly one frame.
func (b *Bridge) spiConfig(cfg *ft232h.SPIConfig) *ft232h.SPIConfig {
	if cfg.SPIOption == nil {
		cfg.SPIOption = &ft232h.SPIOption{}
	}
	cfg.Clock = Clock
	cfg.CS = b.csPin
	cfg.Mode = spiMode1
	cfg.ActiveLow = true
	return cfg
}

// Init configures the MPSSE SPI engine for the DRV8301: mode 1, chip select on
// the pin given to SetCSPin. Configure pins first.
func (b *Bridge) Init() error {
	if !b.csPin.Valid() {
		return fmt.Errorf("chip select: %w", ErrPinNotSet)
	}
	cfg := b.spiConfig(b.SPI.GetConfig())

	b.log.Debug().Stringer("cs", b.csPin).Uint32("clock", cfg.Clock).Msg("initializing SPI")
	if err := b.SPI.Config(cfg); err != nil {
		return fmt.Errorf("failed to initialize SPI: %w", err)
	}
	return nil
}

// Exchange clocks one frame to the DRV8301 and returns its reply.
func (b *Bridge) Exchange(tx [frame.Size]byte) ([frame.Size]byte, error) {
	return b.frames.Exchange(tx)
}

// Close releases chip select, disables the gate driver when its pin is
// configured, then closes the SPI engine.
func (b *Bridge) Close() error {
	var err error
	if b.csPin != 0 {
		err = errors.Join(err, b.SetCS(true))
	}
	if b.enPin != 0 {
		err = errors.Join(err, b.EnableGate(false))
	}
	return errors.Join(err, b.SPI.Close())
}
