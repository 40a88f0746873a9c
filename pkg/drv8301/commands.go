package drv8301

import (
	"context"
	"fmt"

	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regmap"
)

// HasFault reports the master FAULT flag of Status Register 1.
func (d *DRV8301) HasFault() (bool, error) {
	return d.HasFaultContext(context.Background())
}

func (d *DRV8301) HasFaultContext(ctx context.Context) (bool, error) {
	s1, err := d.ReadStatus1Context(ctx)
	if err != nil {
		return false, err
	}
	return s1.Fault(), nil
}

// DeviceID returns the 4-bit identifier from Status Register 2.
func (d *DRV8301) DeviceID() (uint8, error) {
	return d.DeviceIDContext(context.Background())
}

func (d *DRV8301) DeviceIDContext(ctx context.Context) (uint8, error) {
	s2, err := d.ReadStatus2Context(ctx)
	if err != nil {
		return 0, err
	}
	return s2.DeviceID(), nil
}

// FaultStatus reads both status registers and combines every fault flag.
func (d *DRV8301) FaultStatus() (FaultStatus, error) {
	return d.FaultStatusContext(context.Background())
}

func (d *DRV8301) FaultStatusContext(ctx context.Context) (FaultStatus, error) {
	st, err := d.StatusContext(ctx)
	return st.FaultStatus, err
}

// Status is FaultStatus plus the device ID, from the same two register reads.
func (d *DRV8301) Status() (Status, error) {
	return d.StatusContext(context.Background())
}

func (d *DRV8301) StatusContext(ctx context.Context) (Status, error) {
	s1, err := d.ReadStatus1Context(ctx)
	if err != nil {
		return Status{}, err
	}
	s2, err := d.ReadStatus2Context(ctx)
	if err != nil {
		return Status{}, err
	}
	fs := NewFaultStatus(s1, s2)
	if !fs.Consistent() {
		d.log.Warn().Bool("fault", fs.Fault).Strs("active", fs.Active()).
			Msg("master fault flag disagrees with detailed fault flags")
	}
	return Status{FaultStatus: fs, DeviceID: s2.DeviceID()}, nil
}

func (d *DRV8301) ReadStatus1() (Status1, error) {
	return d.ReadStatus1Context(context.Background())
}

func (d *DRV8301) ReadStatus1Context(ctx context.Context) (Status1, error) {
	v, err := d.eng.ReadRegister(ctx, AddrStatus1)
	return Status1(v), err
}

func (d *DRV8301) ReadStatus2() (Status2, error) {
	return d.ReadStatus2Context(context.Background())
}

func (d *DRV8301) ReadStatus2Context(ctx context.Context) (Status2, error) {
	v, err := d.eng.ReadRegister(ctx, AddrStatus2)
	return Status2(v), err
}

func (d *DRV8301) ReadControl1() (Control1, error) {
	return d.ReadControl1Context(context.Background())
}

func (d *DRV8301) ReadControl1Context(ctx context.Context) (Control1, error) {
	v, err := d.eng.ReadRegister(ctx, AddrControl1)
	return Control1(v), err
}

func (d *DRV8301) ReadControl2() (Control2, error) {
	return d.ReadControl2Context(context.Background())
}

func (d *DRV8301) ReadControl2Context(ctx context.Context) (Control2, error) {
	v, err := d.eng.ReadRegister(ctx, AddrControl2)
	return Control2(v), err
}

// SetOCThreshold sets the VDS overcurrent trip voltage.
func (d *DRV8301) SetOCThreshold(o OCAdjSet) error {
	return d.SetOCThresholdContext(context.Background(), o)
}

func (d *DRV8301) SetOCThresholdContext(ctx context.Context, o OCAdjSet) error {
	if !o.Valid() {
		return notSupported("overcurrent threshold %d", uint8(o))
	}
	return d.ModifyControl1Context(ctx, func(c *Control1) error { return c.SetOCAdjSet(o) })
}

func (d *DRV8301) SetOCPMode(m OCPMode) error {
	return d.SetOCPModeContext(context.Background(), m)
}

func (d *DRV8301) SetOCPModeContext(ctx context.Context, m OCPMode) error {
	if !m.Valid() {
		return notSupported("OCP mode %d", uint8(m))
	}
	return d.ModifyControl1Context(ctx, func(c *Control1) error { return c.SetOCPMode(m) })
}

func (d *DRV8301) SetPWMMode(m PWMMode) error {
	return d.SetPWMModeContext(context.Background(), m)
}

func (d *DRV8301) SetPWMModeContext(ctx context.Context, m PWMMode) error {
	if !m.Valid() {
		return notSupported("PWM mode %d", uint8(m))
	}
	return d.ModifyControl1Context(ctx, func(c *Control1) error { return c.SetPWMMode(m) })
}

// ResetGateFaults sets GATE_RESET, which clears latched gate driver faults.
// The device clears the bit again on its own.
func (d *DRV8301) ResetGateFaults() error {
	return d.ResetGateFaultsContext(context.Background())
}

func (d *DRV8301) ResetGateFaultsContext(ctx context.Context) error {
	return d.ModifyControl1Context(ctx, func(c *Control1) error {
		c.SetGateReset(true)
		return nil
	})
}

// SetGateCurrent sets the peak gate drive current. The reserved encoding is
// rejected with ErrNotSupported before anything is sent.
func (d *DRV8301) SetGateCurrent(g GateCurrent) error {
	return d.SetGateCurrentContext(context.Background(), g)
}

func (d *DRV8301) SetGateCurrentContext(ctx context.Context, g GateCurrent) error {
	if !g.Valid() {
		return notSupported("gate current %s", g)
	}
	return d.ModifyControl1Context(ctx, func(c *Control1) error { return c.SetGateCurrent(g) })
}

func (d *DRV8301) SetShuntAmplifierGain(g ShuntAmplifierGain) error {
	return d.SetShuntAmplifierGainContext(context.Background(), g)
}

func (d *DRV8301) SetShuntAmplifierGainContext(ctx context.Context, g ShuntAmplifierGain) error {
	if !g.Valid() {
		return notSupported("amplifier gain %d", uint8(g))
	}
	return d.ModifyControl2Context(ctx, func(c *Control2) error { return c.SetGain(g) })
}

// SetOCTWMode selects what nOCTW reports. The reserved encoding is rejected
// with ErrNotSupported before anything is sent.
func (d *DRV8301) SetOCTWMode(m OCTWMode) error {
	return d.SetOCTWModeContext(context.Background(), m)
}

func (d *DRV8301) SetOCTWModeContext(ctx context.Context, m OCTWMode) error {
	if !m.Valid() {
		return notSupported("nOCTW mode %s", m)
	}
	return d.ModifyControl2Context(ctx, func(c *Control2) error { return c.SetOCTWMode(m) })
}

// SetDCCalCh1 shorts the inputs of shunt amplifier 1 for offset calibration.
func (d *DRV8301) SetDCCalCh1(on bool) error {
	return d.SetDCCalCh1Context(context.Background(), on)
}

func (d *DRV8301) SetDCCalCh1Context(ctx context.Context, on bool) error {
	return d.ModifyControl2Context(ctx, func(c *Control2) error {
		c.SetDCCalCh1(on)
		return nil
	})
}

func (d *DRV8301) SetDCCalCh2(on bool) error {
	return d.SetDCCalCh2Context(context.Background(), on)
}

func (d *DRV8301) SetDCCalCh2Context(ctx context.Context, on bool) error {
	return d.ModifyControl2Context(ctx, func(c *Control2) error {
		c.SetDCCalCh2(on)
		return nil
	})
}

// SetOCTOff selects off-time control instead of cycle-by-cycle for current limiting.
func (d *DRV8301) SetOCTOff(on bool) error {
	return d.SetOCTOffContext(context.Background(), on)
}

func (d *DRV8301) SetOCTOffContext(ctx context.Context, on bool) error {
	return d.ModifyControl2Context(ctx, func(c *Control2) error {
		c.SetOCTOff(on)
		return nil
	})
}

// ModifyControl1 reads Control Register 1, applies fn and writes the result
// under one bus acquisition. An error from fn aborts before the write.
func (d *DRV8301) ModifyControl1(fn func(*Control1) error) error {
	return d.ModifyControl1Context(context.Background(), fn)
}

func (d *DRV8301) ModifyControl1Context(ctx context.Context, fn func(*Control1) error) error {
	_, err := d.eng.Modify(ctx, AddrControl1, func(v frame.Value) (frame.Value, error) {
		c := Control1(v)
		if err := fn(&c); err != nil {
			return v, err
		}
		return frame.Value(c), nil
	})
	return err
}

func (d *DRV8301) ModifyControl2(fn func(*Control2) error) error {
	return d.ModifyControl2Context(context.Background(), fn)
}

func (d *DRV8301) ModifyControl2Context(ctx context.Context, fn func(*Control2) error) error {
	_, err := d.eng.Modify(ctx, AddrControl2, func(v frame.Value) (frame.Value, error) {
		c := Control2(v)
		if err := fn(&c); err != nil {
			return v, err
		}
		return frame.Value(c), nil
	})
	return err
}

// ReadRegister returns the raw 11-bit content of the register at addr.
func (d *DRV8301) ReadRegister(addr frame.Address) (frame.Value, error) {
	return d.ReadRegisterContext(context.Background(), addr)
}

func (d *DRV8301) ReadRegisterContext(ctx context.Context, addr frame.Address) (frame.Value, error) {
	return d.eng.ReadRegister(ctx, addr)
}

// WriteRegister stores a raw value. Writes to a catalogued read-only register
// fail with ErrNotSupported; unknown addresses are passed through.
func (d *DRV8301) WriteRegister(addr frame.Address, v frame.Value) error {
	return d.WriteRegisterContext(context.Background(), addr, v)
}

func (d *DRV8301) WriteRegisterContext(ctx context.Context, addr frame.Address, v frame.Value) error {
	if reg, err := Registers.ByAddress(addr); err == nil && !reg.Writable() {
		return notSupported("write to read-only %s", reg)
	}
	return d.eng.WriteRegister(ctx, addr, v)
}

// ModifyRegister runs a raw read-modify-write on reg.
func (d *DRV8301) ModifyRegister(reg regmap.Register, fn func(frame.Value) (frame.Value, error)) (frame.Value, error) {
	return d.ModifyRegisterContext(context.Background(), reg, fn)
}

func (d *DRV8301) ModifyRegisterContext(ctx context.Context, reg regmap.Register, fn func(frame.Value) (frame.Value, error)) (frame.Value, error) {
	if !reg.Writable() {
		return 0, notSupported("modify read-only %s", reg)
	}
	return d.eng.Modify(ctx, reg.Address, fn)
}

// fieldChecks reject encodings the device reserves.
var fieldChecks = map[string]func(uint16) bool{
	FieldGateCurrent.Name: func(x uint16) bool { return GateCurrent(x).Valid() },
	FieldOCTWMode.Name:    func(x uint16) bool { return OCTWMode(x).Valid() },
}

// FindField locates a writable field by name across the control registers.
func FindField(name string) (regmap.Register, regmap.Field, error) {
	for _, reg := range Registers.Registers() {
		f, err := reg.Field(name)
		if err != nil {
			continue
		}
		if !reg.Writable() {
			return reg, f, notSupported("field %s of read-only %s", name, reg)
		}
		return reg, f, nil
	}
	return regmap.Register{}, regmap.Field{}, fmt.Errorf("%w: %s", regmap.ErrUnknownField, name)
}

// ModifyField sets one named field to x and leaves the rest of its register alone.
func (d *DRV8301) ModifyField(name string, x uint16) error {
	return d.ModifyFieldContext(context.Background(), name, x)
}

func (d *DRV8301) ModifyFieldContext(ctx context.Context, name string, x uint16) error {
	reg, f, err := FindField(name)
	if err != nil {
		return err
	}
	if x > f.Max() {
		return fmt.Errorf("%s: %w: %d > %d", f, regmap.ErrFieldRange, x, f.Max())
	}
	if valid, known := fieldChecks[name]; known && !valid(x) {
		return notSupported("%s value %d is reserved", name, x)
	}
	_, err = d.eng.Modify(ctx, reg.Address, func(v frame.Value) (frame.Value, error) {
		return f.Set(v, x)
	})
	return err
}
