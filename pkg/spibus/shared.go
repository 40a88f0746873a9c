package spibus

import (
	"sync"

	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regio"
)

// SharedBus lets several devices with their own chip selects use one
// controller. A register operation holds the bus for all of its frames, so a
// read on one device cannot be split by a frame to another.
type SharedBus struct {
	mu  sync.Mutex
	bus regio.Exchanger
}

func NewSharedBus(bus regio.Exchanger) *SharedBus {
	return &SharedBus{bus: bus}
}

// Device returns the handle for the device selected by cs. The controller
// passed to NewSharedBus must not drive chip select itself.
func (b *SharedBus) Device(cs ChipSelect) *SharedDevice {
	return &SharedDevice{bus: b, cs: cs}
}

// SharedDevice is one device on a SharedBus. The register engine locks it for
// each logical operation; anything else calling Exchange must hold the lock.
type SharedDevice struct {
	bus *SharedBus
	cs  ChipSelect
}

func (d *SharedDevice) Lock() {
	d.bus.mu.Lock()
}

func (d *SharedDevice) Unlock() {
	d.bus.mu.Unlock()
}

func (d *SharedDevice) Exchange(tx [frame.Size]byte) (rx [frame.Size]byte, err error) {
	err = framed(d.cs, func() error {
		var xerr error
		rx, xerr = d.bus.bus.Exchange(tx)
		return xerr
	})
	return rx, err
}
