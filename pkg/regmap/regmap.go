// Package regmap describes register layouts as data: each register is a fixed
// set of named bit-fields with an offset and a width inside the 11-bit value.
// Accessors for concrete devices are derived from these tables, so adding a
// register never touches the access engine.
package regmap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

var (
	// ErrFieldRange is returned when a value does not fit the field's width.
	ErrFieldRange = errors.New("regmap: value does not fit field")
	// ErrUnknownField is returned by lookups of field names a register does not define.
	ErrUnknownField = errors.New("regmap: unknown field")
	// ErrUnknownRegister is returned by lookups of register names or addresses a map does not define.
	ErrUnknownRegister = errors.New("regmap: unknown register")
)

// Field is a named run of Width bits starting at bit Offset.
type Field struct {
	Name   string
	Offset uint8
	Width  uint8
}

// Mask returns the field's bits in register position.
func (f Field) Mask() frame.Value {
	return frame.Value((1<<f.Width)-1) << f.Offset
}

// Max is the largest value the field holds.
func (f Field) Max() uint16 {
	return 1<<f.Width - 1
}

// Get extracts the field from v.
func (f Field) Get(v frame.Value) uint16 {
	return uint16(v&f.Mask()) >> f.Offset
}

// Set returns v with the field replaced by x. Bits outside the field are untouched.
func (f Field) Set(v frame.Value, x uint16) (frame.Value, error) {
	if x > f.Max() {
		return v, fmt.Errorf("%w: %s=%d (max %d)", ErrFieldRange, f.Name, x, f.Max())
	}
	return v&^f.Mask() | frame.Value(x)<<f.Offset, nil
}

func (f Field) Bool(v frame.Value) bool {
	return f.Get(v) != 0
}

// SetBool sets or clears a single-bit field.
func (f Field) SetBool(v frame.Value, on bool) frame.Value {
	if on {
		return v | f.Mask()
	}
	return v &^ f.Mask()
}

func (f Field) String() string {
	if f.Width == 1 {
		return fmt.Sprintf("%s[%d]", f.Name, f.Offset)
	}
	return fmt.Sprintf("%s[%d:%d]", f.Name, f.Offset+f.Width-1, f.Offset)
}

// Access describes whether a register may be written.
type Access uint8

const (
	ReadOnly Access = iota
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "RO"
	case ReadWrite:
		return "RW"
	default:
		return "(invalid access)"
	}
}

// Register is the static description of one addressable register.
type Register struct {
	Name    string
	Address frame.Address
	Access  Access
	Fields  []Field
}

func (r Register) Writable() bool {
	return r.Access == ReadWrite
}

// Mask covers every bit that belongs to a field. The rest are reserved.
func (r Register) Mask() frame.Value {
	var m frame.Value
	for _, f := range r.Fields {
		m |= f.Mask()
	}
	return m
}

// Field returns the field called name.
func (r Register) Field(name string) (Field, error) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, r.Name, name)
}

// Decode splits v into its named fields.
func (r Register) Decode(v frame.Value) map[string]uint16 {
	out := make(map[string]uint16, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.Get(v)
	}
	return out
}

// Validate checks that the register's address is encodable and that its fields
// fit in 11 bits without overlapping.
func (r Register) Validate() error {
	if !r.Address.Valid() {
		return fmt.Errorf("register %s: %w: address %s", r.Name, frame.ErrOutOfRange, r.Address)
	}
	var used frame.Value
	for _, f := range r.Fields {
		if f.Width == 0 || int(f.Offset)+int(f.Width) > 11 {
			return fmt.Errorf("register %s: field %s does not fit in 11 bits", r.Name, f)
		}
		if used&f.Mask() != 0 {
			return fmt.Errorf("register %s: field %s overlaps another field", r.Name, f)
		}
		used |= f.Mask()
	}
	return nil
}

func (r Register) String() string {
	return fmt.Sprintf("%s@%s(%s)", r.Name, r.Address, r.Access)
}

// Map is an immutable catalogue of registers.
type Map struct {
	byName map[string]Register
	byAddr map[frame.Address]Register
}

// NewMap builds a catalogue, rejecting invalid registers and duplicate names or addresses.
func NewMap(regs ...Register) (*Map, error) {
	m := &Map{
		byName: make(map[string]Register, len(regs)),
		byAddr: make(map[frame.Address]Register, len(regs)),
	}
	for _, r := range regs {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.byName[r.Name]; dup {
			return nil, fmt.Errorf("register %s defined twice", r.Name)
		}
		if prev, dup := m.byAddr[r.Address]; dup {
			return nil, fmt.Errorf("registers %s and %s share address %s", prev.Name, r.Name, r.Address)
		}
		m.byName[r.Name] = r
		m.byAddr[r.Address] = r
	}
	return m, nil
}

// MustMap is NewMap for package-level catalogues; it panics on an invalid table.
func MustMap(regs ...Register) *Map {
	m, err := NewMap(regs...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Map) Lookup(name string) (Register, error) {
	r, ok := m.byName[name]
	if !ok {
		return Register{}, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return r, nil
}

func (m *Map) ByAddress(addr frame.Address) (Register, error) {
	r, ok := m.byAddr[addr]
	if !ok {
		return Register{}, fmt.Errorf("%w: address %s", ErrUnknownRegister, addr)
	}
	return r, nil
}

// Registers lists the catalogue ordered by address.
func (m *Map) Registers() []Register {
	out := make([]Register, 0, len(m.byAddr))
	for _, r := range m.byAddr {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}
