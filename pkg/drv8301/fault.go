package drv8301

// FaultStatus is the complete fault state from both status registers. It is
// built from a fresh read on every query; the device's fault state changes
// between polls.
type FaultStatus struct {
	Fault  bool `json:"fault" cbor:"fault"`     // master fault indicator
	GVDDUV bool `json:"gvdd_uv" cbor:"gvdd_uv"` // GVDD below ~8V
	GVDDOV bool `json:"gvdd_ov" cbor:"gvdd_ov"` // GVDD above ~16V
	PVDDUV bool `json:"pvdd_uv" cbor:"pvdd_uv"` // PVDD below ~5.9V
	OTSD   bool `json:"otsd" cbor:"otsd"`       // overtemperature shutdown, die above ~150°C
	OTW    bool `json:"otw" cbor:"otw"`         // overtemperature warning, die above ~130°C

	FETHAOC bool `json:"fetha_oc" cbor:"fetha_oc"`
	FETLAOC bool `json:"fetla_oc" cbor:"fetla_oc"`
	FETHBOC bool `json:"fethb_oc" cbor:"fethb_oc"`
	FETLBOC bool `json:"fetlb_oc" cbor:"fetlb_oc"`
	FETHCOC bool `json:"fethc_oc" cbor:"fethc_oc"`
	FETLCOC bool `json:"fetlc_oc" cbor:"fetlc_oc"`
}

// NewFaultStatus combines decoded status registers.
func NewFaultStatus(s1 Status1, s2 Status2) FaultStatus {
	return FaultStatus{
		Fault:   s1.Fault(),
		GVDDUV:  s1.GVDDUV(),
		GVDDOV:  s2.GVDDOV(),
		PVDDUV:  s1.PVDDUV(),
		OTSD:    s1.OTSD(),
		OTW:     s1.OTW(),
		FETHAOC: s1.FETHAOC(),
		FETLAOC: s1.FETLAOC(),
		FETHBOC: s1.FETHBOC(),
		FETLBOC: s1.FETLBOC(),
		FETHCOC: s1.FETHCOC(),
		FETLCOC: s1.FETLCOC(),
	}
}

// HasOvercurrent reports an overcurrent on any FET.
func (f FaultStatus) HasOvercurrent() bool {
	return f.FETHAOC || f.FETLAOC || f.FETHBOC || f.FETLBOC || f.FETHCOC || f.FETLCOC
}

// HasThermal reports an overtemperature warning or shutdown.
func (f FaultStatus) HasThermal() bool {
	return f.OTSD || f.OTW
}

// HasVoltageFault reports any supply under- or overvoltage.
func (f FaultStatus) HasVoltageFault() bool {
	return f.GVDDUV || f.GVDDOV || f.PVDDUV
}

// OK reports that the master fault flag is clear.
func (f FaultStatus) OK() bool {
	return !f.Fault
}

func (f FaultStatus) PhaseAOvercurrent() bool { return f.FETHAOC || f.FETLAOC }
func (f FaultStatus) PhaseBOvercurrent() bool { return f.FETHBOC || f.FETLBOC }
func (f FaultStatus) PhaseCOvercurrent() bool { return f.FETHCOC || f.FETLCOC }

// Consistent reports whether the master fault flag agrees with the detailed
// fault flags. OTW is a warning and does not raise FAULT, so it is not counted.
// The device does not guarantee this; a mismatch is logged, not returned.
func (f FaultStatus) Consistent() bool {
	detail := f.HasOvercurrent() || f.HasVoltageFault() || f.OTSD
	return f.Fault == detail
}

// Active lists the names of the flags that are set, in register order.
func (f FaultStatus) Active() []string {
	flags := []struct {
		name string
		set  bool
	}{
		{FieldFault.Name, f.Fault},
		{FieldGVDDUV.Name, f.GVDDUV},
		{FieldGVDDOV.Name, f.GVDDOV},
		{FieldPVDDUV.Name, f.PVDDUV},
		{FieldOTSD.Name, f.OTSD},
		{FieldOTW.Name, f.OTW},
		{FieldFETHAOC.Name, f.FETHAOC},
		{FieldFETLAOC.Name, f.FETLAOC},
		{FieldFETHBOC.Name, f.FETHBOC},
		{FieldFETLBOC.Name, f.FETLBOC},
		{FieldFETHCOC.Name, f.FETHCOC},
		{FieldFETLCOC.Name, f.FETLCOC},
	}
	var active []string
	for _, fl := range flags {
		if fl.set {
			active = append(active, fl.name)
		}
	}
	return active
}

// Status is a fault status together with the device identity.
type Status struct {
	FaultStatus
	DeviceID uint8 `json:"device_id" cbor:"device_id"`
}
