package ft232h

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/yunginnanet/ft232h"
)

var ErrBadDescriptor = errors.New("invalid FT232H descriptor provided")

// Descriptor picks one FT232H out of those attached. It is used to uniquely
// identify the bridge a DRV8301 hangs off.
type Descriptor struct {
	Index  int
	Serial string
	mask   *ft232h.Mask
}

// Validate checks if [Descriptor] identifies anything at all.
func (ftd Descriptor) Validate() error {
	if ftd.Index < 0 && ftd.Serial == "" && emptyMask(ftd.mask) {
		return ErrBadDescriptor
	}
	return nil
}

// Mask returns the [ft232h.Mask] the library matches devices against. Serial
// and index, when set, override the corresponding fields of a supplied mask.
func (ftd Descriptor) Mask() *ft232h.Mask {
	m := new(ft232h.Mask)
	if ftd.mask != nil {
		*m = *ftd.mask
	}
	if ftd.Serial != "" {
		m.Serial = ftd.Serial
	}
	if ftd.Index >= 0 {
		m.Index = strconv.Itoa(ftd.Index)
	}
	return m
}

func (ftd Descriptor) String() string {
	switch {
	case ftd.Serial != "":
		return "serial " + ftd.Serial
	case ftd.Index >= 0:
		return "index " + strconv.Itoa(ftd.Index)
	case !emptyMask(ftd.mask):
		return fmt.Sprintf("mask %+v", *ftd.mask)
	default:
		return "(no descriptor)"
	}
}

func ByIndex(index int) Descriptor {
	return Descriptor{Index: index}
}

func BySerial(serial string) Descriptor {
	return Descriptor{Serial: serial, Index: -1}
}

func ByMask(mask *ft232h.Mask) Descriptor {
	return Descriptor{mask: mask, Index: -1}
}

// FromFlags builds a descriptor from command line values. A serial wins over
// an index; a negative index with no serial selects the first device.
func FromFlags(index int, serial string) Descriptor {
	if serial != "" {
		return BySerial(serial)
	}
	if index < 0 {
		index = 0
	}
	return ByIndex(index)
}

func emptyMask(mask *ft232h.Mask) bool {
	return mask == nil ||
		(mask.Serial == "" && mask.PID == "" && mask.VID == "" && mask.Desc == "" && mask.Index == "")
}
