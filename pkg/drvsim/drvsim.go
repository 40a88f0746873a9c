// Package drvsim is an in-memory DRV8301 that speaks the 16-bit SPI frame
// protocol, including the one-frame reply delay of reads. It is used by tests
// and by drvctl --sim to exercise the driver without hardware.
package drvsim

import (
	"context"
	"fmt"
	"sync"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// Exchange records one frame seen by the simulator.
type Exchange struct {
	TX frame.Command
	RX frame.Response
}

// Device simulates a register file behind the N+1 read pipeline.
//
// Every exchange clocks out the reply prepared by the previous frame, then
// decodes the incoming command: a read prepares the addressed register's data
// for the next frame; a write stores the payload (unless the register is read
// only) and prepares the stored value.
type Device struct {
	mu sync.Mutex

	regs     [frame.MaxAddress + 1]frame.Value
	readOnly [frame.MaxAddress + 1]bool
	pending  frame.Response
	history  []Exchange

	// FlagFrame, when set, decides whether the reply prepared for cmd carries
	// the frame-error bit.
	FlagFrame func(cmd frame.Command) bool
	// Fail, when set, is consulted before each exchange with its zero-based
	// index; a non-nil error aborts the exchange without touching the device.
	Fail func(n int) error
	// OnWrite, when set, transforms a written value before it is stored, for
	// self-clearing bits.
	OnWrite func(addr frame.Address, v frame.Value) frame.Value
}

// New returns a simulator whose first reply is pending, e.g. 0xFFFF for
// power-up garbage on MISO.
func New(pending frame.Response) *Device {
	return &Device{pending: pending}
}

// SetRegister forces a register value, bypassing the wire and read-only protection.
func (d *Device) SetRegister(addr frame.Address, v frame.Value) {
	d.mu.Lock()
	d.regs[addr&frame.MaxAddress] = v & frame.ValueMask
	d.mu.Unlock()
}

func (d *Device) Register(addr frame.Address) frame.Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr&frame.MaxAddress]
}

// SetReadOnly makes writes to addr leave the stored value unchanged.
func (d *Device) SetReadOnly(addrs ...frame.Address) {
	d.mu.Lock()
	for _, a := range addrs {
		d.readOnly[a&frame.MaxAddress] = true
	}
	d.mu.Unlock()
}

// History returns a copy of every exchange so far.
func (d *Device) History() []Exchange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Exchange(nil), d.history...)
}

// Reset clears the recorded history.
func (d *Device) Reset() {
	d.mu.Lock()
	d.history = nil
	d.mu.Unlock()
}

func (d *Device) Exchange(tx [frame.Size]byte) ([frame.Size]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.Fail != nil {
		if err := d.Fail(len(d.history)); err != nil {
			return [frame.Size]byte{}, err
		}
	}

	cmd := frame.ParseCommand(tx)
	rx := d.pending
	addr := cmd.Address()

	if !cmd.IsRead() && !d.readOnly[addr] {
		v := cmd.Payload()
		if d.OnWrite != nil {
			v = d.OnWrite(addr, v) & frame.ValueMask
		}
		d.regs[addr] = v
	}

	flag := d.FlagFrame != nil && d.FlagFrame(cmd)
	d.pending = frame.NewResponse(flag, d.regs[addr])
	d.history = append(d.history, Exchange{TX: cmd, RX: rx})
	return rx.Bytes(), nil
}

// ExchangeContext is Exchange, refusing to start once ctx is done.
func (d *Device) ExchangeContext(ctx context.Context, tx [frame.Size]byte) ([frame.Size]byte, error) {
	if err := ctx.Err(); err != nil {
		return [frame.Size]byte{}, err
	}
	return d.Exchange(tx)
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("drvsim{regs:%v frames:%d}", d.regs[:4], len(d.history))
}
