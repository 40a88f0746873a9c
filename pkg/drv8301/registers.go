package drv8301

import (
	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regmap"
)

// Register addresses
const (
	AddrStatus1  frame.Address = 0x0
	AddrStatus2  frame.Address = 0x1
	AddrControl1 frame.Address = 0x2
	AddrControl2 frame.Address = 0x3
)

// Status Register 1 fields (read only)
var (
	FieldFETLCOC = regmap.Field{Name: "fetlc_oc", Offset: 0, Width: 1}
	FieldFETHCOC = regmap.Field{Name: "fethc_oc", Offset: 1, Width: 1}
	FieldFETLBOC = regmap.Field{Name: "fetlb_oc", Offset: 2, Width: 1}
	FieldFETHBOC = regmap.Field{Name: "fethb_oc", Offset: 3, Width: 1}
	FieldFETLAOC = regmap.Field{Name: "fetla_oc", Offset: 4, Width: 1}
	FieldFETHAOC = regmap.Field{Name: "fetha_oc", Offset: 5, Width: 1}
	FieldOTW     = regmap.Field{Name: "otw", Offset: 6, Width: 1}
	FieldOTSD    = regmap.Field{Name: "otsd", Offset: 7, Width: 1}
	FieldPVDDUV  = regmap.Field{Name: "pvdd_uv", Offset: 8, Width: 1}
	FieldGVDDUV  = regmap.Field{Name: "gvdd_uv", Offset: 9, Width: 1}
	FieldFault   = regmap.Field{Name: "fault", Offset: 10, Width: 1}
)

// Status Register 2 fields (read only)
var (
	FieldDeviceID = regmap.Field{Name: "device_id", Offset: 0, Width: 4}
	FieldGVDDOV   = regmap.Field{Name: "gvdd_ov", Offset: 7, Width: 1}
)

// Control Register 1 fields
var (
	FieldGateCurrent = regmap.Field{Name: "gate_current", Offset: 0, Width: 2}
	FieldGateReset   = regmap.Field{Name: "gate_reset", Offset: 2, Width: 1}
	FieldPWMMode     = regmap.Field{Name: "pwm_mode", Offset: 3, Width: 1}
	FieldOCPMode     = regmap.Field{Name: "ocp_mode", Offset: 4, Width: 2}
	FieldOCAdjSet    = regmap.Field{Name: "oc_adj_set", Offset: 6, Width: 5}
)

// Control Register 2 fields. Bits 10-7 are reserved.
var (
	FieldOCTWMode = regmap.Field{Name: "octw_mode", Offset: 0, Width: 2}
	FieldGain     = regmap.Field{Name: "gain", Offset: 2, Width: 2}
	FieldDCCalCh1 = regmap.Field{Name: "dc_cal_ch1", Offset: 4, Width: 1}
	FieldDCCalCh2 = regmap.Field{Name: "dc_cal_ch2", Offset: 5, Width: 1}
	FieldOCTOff   = regmap.Field{Name: "oc_toff", Offset: 6, Width: 1}
)

var (
	RegStatus1 = regmap.Register{
		Name: "status_register_1", Address: AddrStatus1, Access: regmap.ReadOnly,
		Fields: []regmap.Field{
			FieldFETLCOC, FieldFETHCOC, FieldFETLBOC, FieldFETHBOC, FieldFETLAOC, FieldFETHAOC,
			FieldOTW, FieldOTSD, FieldPVDDUV, FieldGVDDUV, FieldFault,
		},
	}
	RegStatus2 = regmap.Register{
		Name: "status_register_2", Address: AddrStatus2, Access: regmap.ReadOnly,
		Fields: []regmap.Field{FieldDeviceID, FieldGVDDOV},
	}
	RegControl1 = regmap.Register{
		Name: "control_register_1", Address: AddrControl1, Access: regmap.ReadWrite,
		Fields: []regmap.Field{FieldGateCurrent, FieldGateReset, FieldPWMMode, FieldOCPMode, FieldOCAdjSet},
	}
	RegControl2 = regmap.Register{
		Name: "control_register_2", Address: AddrControl2, Access: regmap.ReadWrite,
		Fields: []regmap.Field{FieldOCTWMode, FieldGain, FieldDCCalCh1, FieldDCCalCh2, FieldOCTOff},
	}

	// Registers is the DRV8301 register catalogue.
	Registers = regmap.MustMap(RegStatus1, RegStatus2, RegControl1, RegControl2)
)

// volatileBits reports bits a verified write must not compare: GATE_RESET
// clears itself, status registers change under our feet.
func volatileBits(addr frame.Address) frame.Value {
	switch addr {
	case AddrControl1:
		return FieldGateReset.Mask()
	case AddrStatus1, AddrStatus2:
		return frame.ValueMask
	default:
		return 0
	}
}

// Status1 is a decoded Status Register 1.
type Status1 frame.Value

func (s Status1) Fault() bool   { return FieldFault.Bool(frame.Value(s)) }
func (s Status1) GVDDUV() bool  { return FieldGVDDUV.Bool(frame.Value(s)) }
func (s Status1) PVDDUV() bool  { return FieldPVDDUV.Bool(frame.Value(s)) }
func (s Status1) OTSD() bool    { return FieldOTSD.Bool(frame.Value(s)) }
func (s Status1) OTW() bool     { return FieldOTW.Bool(frame.Value(s)) }
func (s Status1) FETHAOC() bool { return FieldFETHAOC.Bool(frame.Value(s)) }
func (s Status1) FETLAOC() bool { return FieldFETLAOC.Bool(frame.Value(s)) }
func (s Status1) FETHBOC() bool { return FieldFETHBOC.Bool(frame.Value(s)) }
func (s Status1) FETLBOC() bool { return FieldFETLBOC.Bool(frame.Value(s)) }
func (s Status1) FETHCOC() bool { return FieldFETHCOC.Bool(frame.Value(s)) }
func (s Status1) FETLCOC() bool { return FieldFETLCOC.Bool(frame.Value(s)) }

// Status2 is a decoded Status Register 2.
type Status2 frame.Value

func (s Status2) DeviceID() uint8 { return uint8(FieldDeviceID.Get(frame.Value(s))) }
func (s Status2) GVDDOV() bool    { return FieldGVDDOV.Bool(frame.Value(s)) }

// Control1 is a decoded Control Register 1. Setters change only their own field.
type Control1 frame.Value

func (c Control1) GateCurrent() GateCurrent { return GateCurrent(FieldGateCurrent.Get(frame.Value(c))) }
func (c Control1) GateReset() bool          { return FieldGateReset.Bool(frame.Value(c)) }
func (c Control1) PWMMode() PWMMode         { return PWMMode(FieldPWMMode.Get(frame.Value(c))) }
func (c Control1) OCPMode() OCPMode         { return OCPMode(FieldOCPMode.Get(frame.Value(c))) }
func (c Control1) OCAdjSet() OCAdjSet       { return OCAdjSet(FieldOCAdjSet.Get(frame.Value(c))) }

func (c *Control1) SetGateCurrent(g GateCurrent) error {
	if !g.Valid() {
		return notSupported("gate current %s", g)
	}
	return c.set(FieldGateCurrent, uint16(g))
}

func (c *Control1) SetGateReset(on bool) {
	*c = Control1(FieldGateReset.SetBool(frame.Value(*c), on))
}

func (c *Control1) SetPWMMode(m PWMMode) error {
	if !m.Valid() {
		return notSupported("PWM mode %d", uint8(m))
	}
	return c.set(FieldPWMMode, uint16(m))
}

func (c *Control1) SetOCPMode(m OCPMode) error {
	if !m.Valid() {
		return notSupported("OCP mode %d", uint8(m))
	}
	return c.set(FieldOCPMode, uint16(m))
}

func (c *Control1) SetOCAdjSet(o OCAdjSet) error {
	if !o.Valid() {
		return notSupported("overcurrent threshold %d", uint8(o))
	}
	return c.set(FieldOCAdjSet, uint16(o))
}

func (c *Control1) set(f regmap.Field, x uint16) error {
	v, err := f.Set(frame.Value(*c), x)
	if err != nil {
		return err
	}
	*c = Control1(v)
	return nil
}

// Control2 is a decoded Control Register 2. Setters change only their own field.
type Control2 frame.Value

func (c Control2) OCTWMode() OCTWMode       { return OCTWMode(FieldOCTWMode.Get(frame.Value(c))) }
func (c Control2) Gain() ShuntAmplifierGain { return ShuntAmplifierGain(FieldGain.Get(frame.Value(c))) }
func (c Control2) DCCalCh1() bool           { return FieldDCCalCh1.Bool(frame.Value(c)) }
func (c Control2) DCCalCh2() bool           { return FieldDCCalCh2.Bool(frame.Value(c)) }
func (c Control2) OCTOff() bool             { return FieldOCTOff.Bool(frame.Value(c)) }

func (c *Control2) SetOCTWMode(m OCTWMode) error {
	if !m.Valid() {
		return notSupported("nOCTW mode %s", m)
	}
	return c.set(FieldOCTWMode, uint16(m))
}

func (c *Control2) SetGain(g ShuntAmplifierGain) error {
	if !g.Valid() {
		return notSupported("amplifier gain %d", uint8(g))
	}
	return c.set(FieldGain, uint16(g))
}

func (c *Control2) SetDCCalCh1(on bool) {
	*c = Control2(FieldDCCalCh1.SetBool(frame.Value(*c), on))
}

func (c *Control2) SetDCCalCh2(on bool) {
	*c = Control2(FieldDCCalCh2.SetBool(frame.Value(*c), on))
}

func (c *Control2) SetOCTOff(on bool) {
	*c = Control2(FieldOCTOff.SetBool(frame.Value(*c), on))
}

func (c *Control2) set(f regmap.Field, x uint16) error {
	v, err := f.Set(frame.Value(*c), x)
	if err != nil {
		return err
	}
	*c = Control2(v)
	return nil
}
