package drv8301

import (
	"context"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// Snapshot is a decoded image of all four registers taken in one pass.
type Snapshot struct {
	Status1  frame.Value `json:"status1" cbor:"1,keyasint"`
	Status2  frame.Value `json:"status2" cbor:"2,keyasint"`
	Control1 frame.Value `json:"control1" cbor:"3,keyasint"`
	Control2 frame.Value `json:"control2" cbor:"4,keyasint"`

	Status Status `json:"status" cbor:"5,keyasint"`
	Config Config `json:"config" cbor:"6,keyasint"`
}

// Snapshot reads every register. The registers are read one after another; a
// fault that latches in between shows up in one status register only.
func (d *DRV8301) Snapshot() (Snapshot, error) {
	return d.SnapshotContext(context.Background())
}

func (d *DRV8301) SnapshotContext(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	for _, r := range []struct {
		addr frame.Address
		dst  *frame.Value
	}{
		{AddrStatus1, &s.Status1},
		{AddrStatus2, &s.Status2},
		{AddrControl1, &s.Control1},
		{AddrControl2, &s.Control2},
	} {
		if *r.dst, err = d.eng.ReadRegister(ctx, r.addr); err != nil {
			return Snapshot{}, err
		}
	}
	fs := NewFaultStatus(Status1(s.Status1), Status2(s.Status2))
	if !fs.Consistent() {
		d.log.Warn().Bool("fault", fs.Fault).Strs("active", fs.Active()).
			Msg("master fault flag disagrees with detailed fault flags")
	}
	s.Status = Status{FaultStatus: fs, DeviceID: Status2(s.Status2).DeviceID()}
	s.Config = ConfigFromRegisters(Control1(s.Control1), Control2(s.Control2))
	return s, nil
}

// CBOR encodes the snapshot with core deterministic encoding so equal
// snapshots produce equal bytes.
func (s Snapshot) CBOR() ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(s)
}

// SnapshotFromCBOR decodes the output of Snapshot.CBOR.
func SnapshotFromCBOR(b []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// String renders the snapshot one field per line, as drvctl dump prints it.
func (s Snapshot) String() string {
	var sb strings.Builder
	raw := map[frame.Address]frame.Value{
		AddrStatus1:  s.Status1,
		AddrStatus2:  s.Status2,
		AddrControl1: s.Control1,
		AddrControl2: s.Control2,
	}
	for _, reg := range Registers.Registers() {
		v := raw[reg.Address]
		fmt.Fprintf(&sb, "%s %s = %s\n", reg.Address, reg.Name, v)
		for _, f := range reg.Fields {
			fmt.Fprintf(&sb, "    %-12s %d\n", f.Name, f.Get(v))
		}
	}
	return sb.String()
}
