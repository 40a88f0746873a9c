package main

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yunginnanet/drv8301/pkg/drv8301"
	"github.com/yunginnanet/drv8301/pkg/drvsim"
	"github.com/yunginnanet/drv8301/pkg/ft232h"
)

type app struct {
	log zerolog.Logger

	// FT232H bridge flags
	ftIndex  int
	ftSerial string
	csPin    uint
	enPin    uint

	// periph.io flags
	spiPort string
	spiHz   int64

	sim    bool
	verify bool
	debug  bool
	trace  bool

	drv *drv8301.DRV8301
	dev *drvsim.Device // set with --sim
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "drvctl",
		Short: "DRV8301 gate driver register tool",
		Long: `drvctl reads and writes the SPI registers of a TI DRV8301 three-phase gate driver.

Transports:
  FT232H bridge: [--ft232h-index 0 | --ft232h-serial SERIAL] [--cs 0x10] [--en-gate 0x40]
  periph.io:     --spi /dev/spidev0.0 [--spi-hz 1000000]
  simulator:     --sim`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
	}

	pf := root.PersistentFlags()
	pf.IntVar(&a.ftIndex, "ft232h-index", 0, "FT232H index")
	pf.StringVar(&a.ftSerial, "ft232h-serial", "", "FT232H serial number (overrides index)")
	pf.UintVar(&a.csPin, "cs", 0x10, "Chip Select, C bus pin mask (0x10 = C4)")
	pf.UintVar(&a.enPin, "en-gate", 0, "EN_GATE, C bus pin mask, 0 to leave alone")
	pf.StringVar(&a.spiPort, "spi", "", "periph.io SPI port name")
	pf.Int64Var(&a.spiHz, "spi-hz", 1000000, "SPI clock (periph.io only)")
	pf.BoolVar(&a.sim, "sim", false, "Use a simulated DRV8301")
	pf.BoolVar(&a.verify, "verify", false, "Read back every register write")
	pf.BoolVar(&a.debug, "debug", false, "Debug logging")
	pf.BoolVar(&a.trace, "trace", false, "Log every SPI frame")

	root.AddCommand(
		a.statusCmd(),
		a.idCmd(),
		a.dumpCmd(),
		a.setCmd(),
		a.resetFaultsCmd(),
		a.readCmd(),
		a.writeCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	switch {
	case a.trace:
		a.log = a.log.Level(zerolog.TraceLevel)
	case a.debug:
		a.log = a.log.Level(zerolog.DebugLevel)
	default:
		a.log = a.log.Level(zerolog.InfoLevel)
	}

	if a.sim && a.spiPort != "" {
		return errors.New("--sim and --spi are mutually exclusive")
	}

	opts := []drv8301.Option{drv8301.WithLogger(a.log)}
	if a.verify {
		opts = append(opts, drv8301.WithVerifyWrites())
	}

	var err error
	switch {
	case a.sim:
		a.dev = newSimulator()
		a.drv = drv8301.NewContext(a.dev, opts...)
	case a.spiPort != "":
		var p *periphBus
		if p, err = openPeriph(a.spiPort, a.spiHz); err == nil {
			a.drv = drv8301.New(p, opts...)
		}
	default:
		var b *ft232h.Bridge
		if b, err = a.openBridge(); err == nil {
			a.drv = drv8301.New(b, opts...)
		}
	}
	if err != nil {
		a.log.Error().Err(err).Msg("failed to open transport")
		return err
	}
	a.log.Debug().Str("command", cmd.Name()).Msg("transport ready")
	return nil
}

func (a *app) close() error {
	if a.drv == nil {
		return nil
	}
	return a.drv.Close()
}
