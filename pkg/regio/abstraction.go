package regio

import (
	"context"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

// Exchanger performs one full-duplex frame exchange, blocking the caller until
// both bytes have been clocked out and in. Chip select must be asserted for the
// duration of the exchange and released afterwards.
type Exchanger interface {
	Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error)
}

// ContextExchanger is the suspension-aware form of Exchanger. Implementations
// may abandon the exchange when ctx is done; the engine never retries it.
type ContextExchanger interface {
	ExchangeContext(ctx context.Context, tx [frame.Size]byte) (rx [frame.Size]byte, err error)
}

// ExchangeFunc adapts a plain function to Exchanger.
type ExchangeFunc func(tx [frame.Size]byte) ([frame.Size]byte, error)

func (f ExchangeFunc) Exchange(tx [frame.Size]byte) ([frame.Size]byte, error) {
	return f(tx)
}

type direct struct {
	Exchanger
}

func (d direct) ExchangeContext(_ context.Context, tx [frame.Size]byte) ([frame.Size]byte, error) {
	return d.Exchange(tx)
}

// Lock and Unlock forward to the wrapped exchanger when it guards a shared bus.
func (d direct) Lock() {
	if l, ok := d.Exchanger.(locker); ok {
		l.Lock()
	}
}

func (d direct) Unlock() {
	if l, ok := d.Exchanger.(locker); ok {
		l.Unlock()
	}
}

// Direct lifts a blocking Exchanger into a ContextExchanger that ignores the
// context. Exchangers that already implement ContextExchanger are returned as is.
func Direct(x Exchanger) ContextExchanger {
	if cx, ok := x.(ContextExchanger); ok {
		return cx
	}
	return direct{x}
}

// locker is satisfied by transports that guard a bus shared with other
// devices. The engine holds the lock for a whole logical operation.
type locker interface {
	Lock()
	Unlock()
}
