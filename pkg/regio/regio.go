// Package regio implements the DRV8301 register access protocol on top of a
// full-duplex frame exchanger.
//
// A write is one exchange whose reply is discarded. A read needs two identical
// read exchanges: the device latches the address on the first and returns the
// data on the second (N+1 timing). Both exchanges of a read run under one bus
// acquisition; a frame from anyone else in between pairs the latched address
// with the wrong reply.
package regio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// VolatileBits reports, per register, bits that the device changes on its own
// (self-clearing commands, live status) and that a verified write must not compare.
type VolatileBits func(addr frame.Address) frame.Value

// Engine performs logical register operations. It holds the transport for its
// whole lifetime and serializes its own operations; it does not protect
// against a different bus master talking to the same device.
type Engine struct {
	mu  sync.Mutex
	bus ContextExchanger
	log zerolog.Logger

	verify   bool
	volatile VolatileBits
}

type Option func(*Engine)

// WithLogger sets the logger used for frame tracing. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithVerifyWrites makes every write read the register back and fail with
// ErrVerify when the bits outside volatile differ. volatile may be nil.
func WithVerifyWrites(volatile VolatileBits) Option {
	return func(e *Engine) {
		e.verify = true
		e.volatile = volatile
	}
}

// New returns an engine that owns bus exclusively.
func New(bus ContextExchanger, opts ...Option) *Engine {
	e := &Engine{
		bus: bus,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// acquire takes the engine lock and, when the transport guards a shared bus,
// the bus lock. The returned func releases both.
func (e *Engine) acquire() func() {
	e.mu.Lock()
	l, shared := e.bus.(locker)
	if shared {
		l.Lock()
	}
	return func() {
		if shared {
			l.Unlock()
		}
		e.mu.Unlock()
	}
}

// ReadRegister returns the 11-bit value of the register at addr.
func (e *Engine) ReadRegister(ctx context.Context, addr frame.Address) (frame.Value, error) {
	release := e.acquire()
	defer release()
	return e.read(ctx, addr)
}

// WriteRegister stores v in the register at addr.
func (e *Engine) WriteRegister(ctx context.Context, addr frame.Address, v frame.Value) error {
	release := e.acquire()
	defer release()
	return e.write(ctx, addr, v)
}

// Modify reads the register at addr, passes the value to fn and writes back
// whatever fn returns, all under one bus acquisition. An error from fn aborts
// the operation before anything is written. The written value is returned.
func (e *Engine) Modify(ctx context.Context, addr frame.Address, fn func(frame.Value) (frame.Value, error)) (frame.Value, error) {
	release := e.acquire()
	defer release()

	cur, err := e.read(ctx, addr)
	if err != nil {
		return 0, err
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	e.log.Debug().Stringer("addr", addr).Stringer("old", cur).Stringer("new", next).Msg("modify")
	if err = e.write(ctx, addr, next); err != nil {
		return cur, err
	}
	return next, nil
}

func (e *Engine) read(ctx context.Context, addr frame.Address) (frame.Value, error) {
	cmd, err := frame.EncodeRead(addr)
	if err != nil {
		return 0, err
	}

	// First exchange latches the address; its reply belongs to the previous access.
	if _, err = e.exchange(ctx, "read", cmd); err != nil {
		return 0, err
	}
	resp, err := e.exchange(ctx, "read", cmd)
	if err != nil {
		return 0, err
	}

	frameErr, data := frame.DecodeResponse(resp)
	if frameErr {
		e.log.Warn().Stringer("addr", addr).Stringer("rx", resp.Data()).Msg("device reported frame error")
		return 0, fmt.Errorf("read register %s: %w", addr, ErrFrame)
	}
	return data, nil
}

func (e *Engine) write(ctx context.Context, addr frame.Address, v frame.Value) error {
	cmd, err := frame.EncodeWrite(addr, v)
	if err != nil {
		return err
	}

	// The reply reflects the previous access, not this write.
	if _, err = e.exchange(ctx, "write", cmd); err != nil {
		return err
	}
	if !e.verify {
		return nil
	}

	got, err := e.read(ctx, addr)
	if err != nil {
		return err
	}
	ignore := frame.Value(0)
	if e.volatile != nil {
		ignore = e.volatile(addr)
	}
	if (got^v)&^ignore != 0 {
		return fmt.Errorf("write register %s: %w: wrote %s, read %s", addr, ErrVerify, v, got)
	}
	return nil
}

func (e *Engine) exchange(ctx context.Context, op string, cmd frame.Command) (frame.Response, error) {
	if err := ctx.Err(); err != nil {
		return 0, &TransportError{Op: op, Address: cmd.Address(), Cause: err}
	}
	rx, err := e.bus.ExchangeContext(ctx, cmd.Bytes())
	if err != nil {
		e.log.Debug().Err(err).Stringer("tx", cmd).Msg("exchange failed")
		return 0, &TransportError{Op: op, Address: cmd.Address(), Cause: err}
	}
	resp := frame.ResponseFromBytes(rx)
	e.log.Trace().Stringer("tx", cmd).Hex("rx", rx[:]).Msg("frame")
	return resp, nil
}
