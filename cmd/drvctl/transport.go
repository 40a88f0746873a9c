package main

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/yunginnanet/drv8301/pkg/drv8301"
	"github.com/yunginnanet/drv8301/pkg/drvsim"
	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/ft232h"
	"github.com/yunginnanet/drv8301/pkg/spibus"
)

func (a *app) openBridge() (*ft232h.Bridge, error) {
	desc := ft232h.FromFlags(a.ftIndex, a.ftSerial)
	b, err := ft232h.Connect(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FT232H (%s): %w", desc, err)
	}
	b.WithLogger(a.log)
	a.log.Info().Any("info", b.Info()).Msgf("connected to FT232H: %s", b)

	fail := func(err error) (*ft232h.Bridge, error) {
		_ = b.Close()
		return nil, err
	}
	if err = b.SetCSPin(a.csPin); err != nil {
		return fail(fmt.Errorf("failed to configure chip select: %w", err))
	}
	if a.enPin != 0 {
		if err = b.SetEnableGatePin(a.enPin); err != nil {
			return fail(fmt.Errorf("failed to configure EN_GATE: %w", err))
		}
	}
	if err = b.Init(); err != nil {
		return fail(err)
	}
	if a.enPin != 0 {
		if err = b.EnableGate(true); err != nil {
			return fail(err)
		}
	}
	return b, nil
}

// periphBus owns the port its connection was made on.
type periphBus struct {
	*spibus.Periph
	port spi.PortCloser
}

func (p *periphBus) Close() error {
	return p.port.Close()
}

func openPeriph(name string, hz int64) (*periphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open SPI port %q: %w", name, err)
	}
	p, err := spibus.ConnectPeriph(port, physic.Frequency(hz)*physic.Hertz)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return &periphBus{Periph: p, port: port}, nil
}

// newSimulator returns a simulated DRV8301 at its power-on state.
func newSimulator() *drvsim.Device {
	dev := drvsim.New(0)
	dev.SetReadOnly(drv8301.AddrStatus1, drv8301.AddrStatus2)
	dev.SetRegister(drv8301.AddrStatus2, 0x001)
	dev.OnWrite = func(addr frame.Address, v frame.Value) frame.Value {
		if addr == drv8301.AddrControl1 {
			return v &^ drv8301.FieldGateReset.Mask()
		}
		return v
	}
	return dev
}
