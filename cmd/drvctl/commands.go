package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yunginnanet/drv8301/pkg/drv8301"
	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regmap"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCBOR = "cbor"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) statusCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show fault status and device ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.drv.StatusContext(cmd.Context())
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "device id: %d\n", st.DeviceID)
			if st.OK() {
				fmt.Fprintln(w, "fault:     none")
			} else {
				fmt.Fprintln(w, "fault:     FAULT")
			}
			if active := st.Active(); len(active) > 0 {
				fmt.Fprintf(w, "flags:     %s\n", strings.Join(active, " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text or json")
	return cmd
}

func (a *app) idCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print the 4-bit device ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.drv.DeviceIDContext(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", id)
			return nil
		},
	}
}

func (a *app) dumpCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Read and decode every register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.drv.SnapshotContext(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch format {
			case formatText:
				_, err = io.WriteString(w, s.String())
			case formatJSON:
				err = writeJSON(w, s)
			case formatCBOR:
				var b []byte
				if b, err = s.CBOR(); err == nil {
					_, err = w.Write(b)
				}
			default:
				err = fmt.Errorf("unknown format %q", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or cbor")
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change one control register field",
		Long: `Change one control register field with a read-modify-write.

Values are integers (0x.. accepted), on/off for single bit fields, or a
voltage such as 0.25V for oc_adj_set, rounded to the nearest threshold
between 0.060V and 2.400V.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, f, err := drv8301.FindField(args[0])
			if err != nil {
				return err
			}
			x, err := parseFieldValue(f, args[1])
			if err != nil {
				return err
			}
			if err = a.drv.ModifyFieldContext(cmd.Context(), f.Name, x); err != nil {
				return err
			}
			a.log.Info().Str("field", f.Name).Uint16("value", x).Msg("set")
			return nil
		},
	}
}

func parseFieldValue(f regmap.Field, s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if f.Name == drv8301.FieldOCAdjSet.Name && strings.HasSuffix(strings.ToUpper(s), "V") {
		v, err := strconv.ParseFloat(strings.TrimRight(s, "vV"), 64)
		if err != nil {
			return 0, fmt.Errorf("bad voltage %q: %w", s, err)
		}
		lo, hi := drv8301.Vds60mV.Volts(), drv8301.Vds2400mV.Volts()
		if v < lo || v > hi {
			return 0, fmt.Errorf("%w: %s is outside %.3fV to %.3fV", regmap.ErrFieldRange, s, lo, hi)
		}
		return uint16(drv8301.OCAdjSetForVolts(v)), nil
	}
	if f.Width == 1 {
		switch strings.ToLower(s) {
		case "on", "true", "yes":
			return 1, nil
		case "off", "false", "no":
			return 0, nil
		}
	}
	x, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad value %q for %s: %w", s, f, err)
	}
	return uint16(x), nil
}

func (a *app) resetFaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-faults",
		Short: "Clear latched gate driver faults (GATE_RESET)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.drv.ResetGateFaultsContext(cmd.Context())
		},
	}
}

// lookupRegister accepts a register name or an address.
func lookupRegister(s string) (frame.Address, *regmap.Register, error) {
	if reg, err := drv8301.Registers.Lookup(s); err == nil {
		return reg.Address, &reg, nil
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil || !frame.Address(n).Valid() {
		return 0, nil, fmt.Errorf("%w: %s", regmap.ErrUnknownRegister, s)
	}
	addr := frame.Address(n)
	if reg, err := drv8301.Registers.ByAddress(addr); err == nil {
		return addr, &reg, nil
	}
	return addr, nil, nil
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <register>",
		Short: "Read one register by name or address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, reg, err := lookupRegister(args[0])
			if err != nil {
				return err
			}
			v, err := a.drv.ReadRegisterContext(cmd.Context(), addr)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if reg == nil {
				fmt.Fprintf(w, "%s = %s\n", addr, v)
				return nil
			}
			fmt.Fprintf(w, "%s %s = %s\n", addr, reg.Name, v)
			for _, f := range reg.Fields {
				fmt.Fprintf(w, "    %-12s %d\n", f.Name, f.Get(v))
			}
			return nil
		},
	}
}

func (a *app) writeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write <register> <value>",
		Short: "Write a raw 11-bit value to one register",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _, err := lookupRegister(args[0])
			if err != nil {
				return err
			}
			n, err := strconv.ParseUint(args[1], 0, 16)
			if err != nil {
				return fmt.Errorf("bad value %q: %w", args[1], err)
			}
			return a.drv.WriteRegisterContext(cmd.Context(), addr, frame.Value(n))
		},
	}
}
