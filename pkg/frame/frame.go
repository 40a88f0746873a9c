// Package frame packs and unpacks the 16-bit SPI frames spoken by the DRV8301.
//
// Command frames carry the operation in bit 15 (1 = read), the register
// address in bits 14-11 and an 11-bit payload in bits 10-0. Response frames
// carry the device's frame-error flag in bit 15 and 11 bits of data. Frames are
// transmitted most significant byte first.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is the number of bytes exchanged per frame.
const Size = 2

const (
	// MaxAddress is the highest addressable register.
	MaxAddress Address = 0x0F
	// ValueMask covers the 11 data bits of a frame.
	ValueMask Value = 0x07FF

	readBit       = 0x8000
	frameErrorBit = 0x8000
	addressShift  = 11
)

// ErrOutOfRange is returned when an address or value does not fit its field.
var ErrOutOfRange = errors.New("frame: value out of range")

// Address is a 4-bit register address.
type Address uint8

func (a Address) String() string {
	return fmt.Sprintf("0x%X", uint8(a))
}

// Valid reports whether a fits in the 4 address bits.
func (a Address) Valid() bool {
	return a <= MaxAddress
}

// Value is an 11-bit register value.
type Value uint16

func (v Value) String() string {
	return fmt.Sprintf("0x%03X", uint16(v))
}

// Valid reports whether v fits in the 11 data bits.
func (v Value) Valid() bool {
	return v&^ValueMask == 0
}

// Command is an encoded command frame, host to device.
type Command uint16

// EncodeWrite builds a write command for addr carrying v.
func EncodeWrite(addr Address, v Value) (Command, error) {
	if !addr.Valid() {
		return 0, fmt.Errorf("%w: address %s", ErrOutOfRange, addr)
	}
	if !v.Valid() {
		return 0, fmt.Errorf("%w: value 0x%X exceeds 11 bits", ErrOutOfRange, uint16(v))
	}
	return Command(uint16(addr)<<addressShift | uint16(v)), nil
}

// EncodeRead builds a read command for addr. The payload bits are zero.
func EncodeRead(addr Address) (Command, error) {
	if !addr.Valid() {
		return 0, fmt.Errorf("%w: address %s", ErrOutOfRange, addr)
	}
	return Command(readBit | uint16(addr)<<addressShift), nil
}

// ParseCommand decodes the wire bytes of a command frame.
func ParseCommand(b [Size]byte) Command {
	return Command(binary.BigEndian.Uint16(b[:]))
}

// Bytes returns the wire representation of c, MSB first.
func (c Command) Bytes() [Size]byte {
	var b [Size]byte
	binary.BigEndian.PutUint16(b[:], uint16(c))
	return b
}

func (c Command) IsRead() bool {
	return uint16(c)&readBit != 0
}

func (c Command) Address() Address {
	return Address(uint16(c) >> addressShift & uint16(MaxAddress))
}

func (c Command) Payload() Value {
	return Value(c) & ValueMask
}

func (c Command) String() string {
	op := "W"
	if c.IsRead() {
		op = "R"
	}
	return fmt.Sprintf("%s[%s]=%s", op, c.Address(), c.Payload())
}

// Response is a raw response frame, device to host.
type Response uint16

// ResponseFromBytes decodes the wire bytes of a response frame.
func ResponseFromBytes(b [Size]byte) Response {
	return Response(binary.BigEndian.Uint16(b[:]))
}

// NewResponse builds the response a device would clock out for data, flagging
// a frame error when frameErr is set. Bits of data above the 11-bit field are
// dropped.
func NewResponse(frameErr bool, data Value) Response {
	r := Response(data & ValueMask)
	if frameErr {
		r |= frameErrorBit
	}
	return r
}

// Bytes returns the wire representation of r, MSB first.
func (r Response) Bytes() [Size]byte {
	var b [Size]byte
	binary.BigEndian.PutUint16(b[:], uint16(r))
	return b
}

func (r Response) FrameError() bool {
	return uint16(r)&frameErrorBit != 0
}

func (r Response) Data() Value {
	return Value(r) & ValueMask
}

// DecodeResponse splits r into its frame-error flag and data field. Bits 14-11
// are unused by the device and ignored.
func DecodeResponse(r Response) (frameErr bool, data Value) {
	return r.FrameError(), r.Data()
}
