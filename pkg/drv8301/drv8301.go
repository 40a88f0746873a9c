// Package drv8301 controls a TI DRV8301 three-phase gate driver over SPI.
//
// Every operation exists twice. X blocks the calling goroutine until the
// transport is done; XContext hands ctx to the transport so a suspended
// exchange can be abandoned. Both run the same body, so the frames on the wire
// are identical.
package drv8301

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regio"
)

// DRV8301 provides high-level control over one gate driver.
//
// The driver owns its transport for its whole lifetime. It keeps no copy of
// device state: every query reads the device.
type DRV8301 struct {
	eng *regio.Engine
	bus any
	log zerolog.Logger
}

type options struct {
	log    zerolog.Logger
	verify bool
}

type Option func(*options)

// WithLogger routes driver and frame logging to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithVerifyWrites reads every written control register back and fails with
// ErrVerify on mismatch. Self-clearing bits are excluded from the comparison.
func WithVerifyWrites() Option {
	return func(o *options) {
		o.verify = true
	}
}

// New returns a driver over a blocking transport. Transports that also
// implement regio.ContextExchanger get the context of XContext calls.
func New(bus regio.Exchanger, opts ...Option) *DRV8301 {
	return newDriver(regio.Direct(bus), bus, opts)
}

// NewContext returns a driver over a suspension-aware transport.
func NewContext(bus regio.ContextExchanger, opts ...Option) *DRV8301 {
	return newDriver(bus, bus, opts)
}

func newDriver(x regio.ContextExchanger, raw any, opts []Option) *DRV8301 {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	eopts := []regio.Option{regio.WithLogger(o.log)}
	if o.verify {
		eopts = append(eopts, regio.WithVerifyWrites(volatileBits))
	}
	return &DRV8301{
		eng: regio.New(x, eopts...),
		bus: raw,
		log: o.log.With().Str("caller", "drv8301").Logger(),
	}
}

// Close releases the transport if it can be closed.
func (d *DRV8301) Close() error {
	if c, ok := d.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Config is the complete writable device configuration.
type Config struct {
	GateCurrent GateCurrent        `json:"gate_current"`
	PWMMode     PWMMode            `json:"pwm_mode"`
	OCPMode     OCPMode            `json:"ocp_mode"`
	OCThreshold OCAdjSet           `json:"oc_adj_set"`
	OCTWMode    OCTWMode           `json:"octw_mode"`
	Gain        ShuntAmplifierGain `json:"gain"`
	DCCalCh1    bool               `json:"dc_cal_ch1"`
	DCCalCh2    bool               `json:"dc_cal_ch2"`
	OCTOff      bool               `json:"oc_toff"`
}

// DefaultConfig returns the device's power-on register values.
func DefaultConfig() Config {
	return Config{
		GateCurrent: GateCurrent1700mA,
		PWMMode:     PWM6,
		OCPMode:     OCPCurrentLimit,
		OCThreshold: Vds60mV,
		OCTWMode:    OCTWBoth,
		Gain:        Gain10,
	}
}

// Validate reports every field the device cannot accept.
func (c Config) Validate() error {
	_, _, err := c.registers()
	return err
}

func (c Config) registers() (Control1, Control2, error) {
	var (
		c1  Control1
		c2  Control2
		err error
	)
	err = errors.Join(err, c1.SetGateCurrent(c.GateCurrent))
	err = errors.Join(err, c1.SetPWMMode(c.PWMMode))
	err = errors.Join(err, c1.SetOCPMode(c.OCPMode))
	err = errors.Join(err, c1.SetOCAdjSet(c.OCThreshold))
	err = errors.Join(err, c2.SetOCTWMode(c.OCTWMode))
	err = errors.Join(err, c2.SetGain(c.Gain))
	c2.SetDCCalCh1(c.DCCalCh1)
	c2.SetDCCalCh2(c.DCCalCh2)
	c2.SetOCTOff(c.OCTOff)
	return c1, c2, err
}

// ConfigFromRegisters decodes a configuration from the two control registers.
func ConfigFromRegisters(c1 Control1, c2 Control2) Config {
	return Config{
		GateCurrent: c1.GateCurrent(),
		PWMMode:     c1.PWMMode(),
		OCPMode:     c1.OCPMode(),
		OCThreshold: c1.OCAdjSet(),
		OCTWMode:    c2.OCTWMode(),
		Gain:        c2.Gain(),
		DCCalCh1:    c2.DCCalCh1(),
		DCCalCh2:    c2.DCCalCh2(),
		OCTOff:      c2.OCTOff(),
	}
}

// Configure writes cfg to both control registers. Nothing is written unless
// every field is valid. Reserved bits of Control Register 2 are preserved.
func (d *DRV8301) Configure(cfg Config) error {
	return d.ConfigureContext(context.Background(), cfg)
}

func (d *DRV8301) ConfigureContext(ctx context.Context, cfg Config) error {
	c1, c2, err := cfg.registers()
	if err != nil {
		return err
	}
	d.log.Debug().Interface("config", cfg).Msg("configure")
	if err = d.eng.WriteRegister(ctx, AddrControl1, frame.Value(c1)); err != nil {
		return err
	}
	_, err = d.eng.Modify(ctx, AddrControl2, func(cur frame.Value) (frame.Value, error) {
		reserved := cur &^ RegControl2.Mask()
		return reserved | frame.Value(c2), nil
	})
	return err
}
