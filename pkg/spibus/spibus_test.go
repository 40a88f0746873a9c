package spibus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/yunginnanet/drv8301/pkg/drv8301"
	"github.com/yunginnanet/drv8301/pkg/drvsim"
	"github.com/yunginnanet/drv8301/pkg/frame"
)

// csLog records chip select transitions.
type csLog struct {
	levels []bool
	fail   error
}

func (c *csLog) set(high bool) error {
	c.levels = append(c.levels, high)
	if c.fail != nil && high {
		return c.fail
	}
	return nil
}

// simTx answers byte transfers from a simulated device.
func simTx(dev *drvsim.Device) func(w, r []byte) error {
	return func(w, r []byte) error {
		if len(w) != frame.Size || len(r) != frame.Size {
			return fmt.Errorf("unexpected transfer size %d/%d", len(w), len(r))
		}
		rx, err := dev.Exchange([frame.Size]byte(w))
		copy(r, rx[:])
		return err
	}
}

func TestFunc(t *testing.T) {
	dev := drvsim.New(0x0123)
	rx, err := Func(simTx(dev)).Exchange([frame.Size]byte{0x88, 0x00})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rx != [frame.Size]byte{0x01, 0x23} {
		t.Errorf("expected pending reply, got %#v", rx)
	}
}

type tinySPI struct {
	tx func(w, r []byte) error
}

func (s tinySPI) Tx(w, r []byte) error { return s.tx(w, r) }

func (s tinySPI) Transfer(b byte) (byte, error) {
	return 0, errors.New("single byte transfers not used")
}

func TestTinyGo(t *testing.T) {
	t.Run("Framing", func(t *testing.T) {
		dev := drvsim.New(0)
		dev.SetRegister(0x1, 0x001)
		cs := &csLog{}
		d := drv8301.New(NewTinyGo(tinySPI{tx: simTx(dev)}, cs.set))

		id, err := d.DeviceID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != 1 {
			t.Errorf("expected device ID 1, got %d", id)
		}
		want := []bool{false, true, false, true}
		if fmt.Sprint(cs.levels) != fmt.Sprint(want) {
			t.Errorf("expected chip select %v, got %v", want, cs.levels)
		}
	})

	t.Run("ReleaseFailureReported", func(t *testing.T) {
		cause := errors.New("pin stuck")
		cs := &csLog{fail: cause}
		_, err := NewTinyGo(tinySPI{tx: simTx(drvsim.New(0))}, cs.set).Exchange([frame.Size]byte{})
		if !errors.Is(err, cause) {
			t.Errorf("expected release error, got %v", err)
		}
	})

	t.Run("TransferErrorStillReleases", func(t *testing.T) {
		cause := errors.New("bus fault")
		cs := &csLog{}
		_, err := NewTinyGo(tinySPI{tx: func(w, r []byte) error { return cause }}, cs.set).Exchange([frame.Size]byte{})
		if !errors.Is(err, cause) {
			t.Errorf("expected transfer error, got %v", err)
		}
		if len(cs.levels) != 2 || !cs.levels[1] {
			t.Errorf("chip select not released: %v", cs.levels)
		}
	})
}

type periphConn struct {
	duplex conn.Duplex
	tx     func(w, r []byte) error
}

func (c *periphConn) String() string                 { return "fakespi" }
func (c *periphConn) Duplex() conn.Duplex            { return c.duplex }
func (c *periphConn) Tx(w, r []byte) error           { return c.tx(w, r) }
func (c *periphConn) TxPackets(p []spi.Packet) error { return errors.New("packets not used") }

type periphPort struct {
	c     *periphConn
	freq  physic.Frequency
	mode  spi.Mode
	bits  int
	limit physic.Frequency
}

func (p *periphPort) String() string { return "fakeport" }

func (p *periphPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.freq, p.mode, p.bits = f, mode, bits
	return p.c, nil
}

func (p *periphPort) LimitSpeed(f physic.Frequency) error {
	p.limit = f
	return nil
}

func TestPeriph(t *testing.T) {
	t.Run("HalfDuplexRefused", func(t *testing.T) {
		if _, err := NewPeriph(&periphConn{duplex: conn.Half}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("Connect", func(t *testing.T) {
		dev := drvsim.New(0)
		port := &periphPort{c: &periphConn{duplex: conn.Full, tx: simTx(dev)}}
		p, err := ConnectPeriph(port, 20*physic.MegaHertz)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if port.mode != spi.Mode1 || port.freq != MaxClock || port.bits != 8 {
			t.Errorf("unexpected connection parameters: %s mode %d, %d bits", port.freq, port.mode, port.bits)
		}

		d := drv8301.New(p)
		if err = d.SetShuntAmplifierGain(drv8301.Gain40); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := dev.Register(drv8301.AddrControl2); got != 0x008 {
			t.Errorf("expected 0x008, got %s", got)
		}
	})
}

// mpsse mirrors (*ft232h.SPI).Swap.
type mpsse struct {
	short bool
	dev   *drvsim.Device
}

func (m *mpsse) Swap(data []uint8, start bool, stop bool) ([]uint8, error) {
	if !start || !stop {
		return nil, errors.New("frame split across transfers")
	}
	rx, err := m.dev.Exchange([frame.Size]byte(data))
	if m.short {
		return rx[:1], err
	}
	return rx[:], err
}

func TestFT232H(t *testing.T) {
	t.Run("Exchange", func(t *testing.T) {
		dev := drvsim.New(0x7FF)
		cs := &csLog{}
		rx, err := NewFT232H(&mpsse{dev: dev}, cs.set).Exchange([frame.Size]byte{0x90, 0x00})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rx != [frame.Size]byte{0x07, 0xFF} {
			t.Errorf("unexpected reply %#v", rx)
		}
		if len(cs.levels) != 2 {
			t.Errorf("expected one chip select cycle, got %v", cs.levels)
		}
	})

	t.Run("Short", func(t *testing.T) {
		_, err := NewFT232H(&mpsse{dev: drvsim.New(0), short: true}, nil).Exchange([frame.Size]byte{})
		if !errors.Is(err, ErrShortTransfer) {
			t.Errorf("expected ErrShortTransfer, got %v", err)
		}
	})
}

// router hands each frame to whichever simulated device is selected, and
// fails when none or several are.
type router struct {
	mu       sync.Mutex
	selected map[int]bool
	devs     map[int]*drvsim.Device
}

func (r *router) cs(id int) ChipSelect {
	return func(high bool) error {
		r.mu.Lock()
		r.selected[id] = !high
		r.mu.Unlock()
		return nil
	}
}

func (r *router) Exchange(tx [frame.Size]byte) ([frame.Size]byte, error) {
	r.mu.Lock()
	var active []int
	for id, on := range r.selected {
		if on {
			active = append(active, id)
		}
	}
	r.mu.Unlock()
	if len(active) != 1 {
		return [frame.Size]byte{}, fmt.Errorf("%d devices selected", len(active))
	}
	return r.devs[active[0]].Exchange(tx)
}

func TestSharedBus(t *testing.T) {
	r := &router{selected: map[int]bool{}, devs: map[int]*drvsim.Device{}}
	bus := NewSharedBus(r)

	drivers := make([]*drv8301.DRV8301, 2)
	for id := range drivers {
		dev := drvsim.New(0)
		dev.SetRegister(drv8301.AddrStatus2, frame.Value(id+1))
		r.devs[id] = dev
		drivers[id] = drv8301.New(bus.Device(r.cs(id)))
	}

	var wg sync.WaitGroup
	for id, d := range drivers {
		wg.Add(1)
		go func(id int, d *drv8301.DRV8301) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				got, err := d.DeviceIDContext(context.Background())
				if err != nil {
					t.Errorf("device %d: unexpected error: %v", id, err)
					return
				}
				if int(got) != id+1 {
					t.Errorf("device %d: read %d, frames interleaved", id, got)
					return
				}
			}
		}(id, d)
	}
	wg.Wait()
}
