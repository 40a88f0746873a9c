package ft232h

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/l0nax/go-spew/spew"
	"github.com/rs/zerolog"
	"github.com/yunginnanet/ft232h"

	"github.com/yunginnanet/drv8301/pkg/drv8301"
	"github.com/yunginnanet/drv8301/pkg/drvsim"
	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/spibus"
)

var pprint = spew.ConfigState{
	Indent:                  "\t",
	DisablePointerAddresses: true,
	SortKeys:                true,
}

func TestDescriptor(t *testing.T) {
	t.Run("ByIndex", func(t *testing.T) {
		desc := ByIndex(0)
		if err := desc.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		t.Run("Invalid", func(t *testing.T) {
			desc = ByIndex(-1)
			if err := desc.Validate(); !errors.Is(err, ErrBadDescriptor) {
				t.Errorf("expected ErrBadDescriptor, got %v", err)
			}
		})
	})
	t.Run("BySerial", func(t *testing.T) {
		desc := BySerial("FT5X9Q0B")
		if err := desc.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if desc.Mask().Index != "" {
			t.Errorf("serial descriptor leaked an index: %s", pprint.Sdump(desc.Mask()))
		}
		t.Run("Invalid", func(t *testing.T) {
			desc = BySerial("")
			if err := desc.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	})
	t.Run("ByMask", func(t *testing.T) {
		mask := &ft232h.Mask{Index: "0"}
		desc := ByMask(mask)
		if err := desc.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		desc.Mask().Serial = "changed"
		if mask.Serial != "" {
			t.Error("Mask handed out the caller's mask")
		}
		t.Run("Invalid", func(t *testing.T) {
			desc = ByMask(nil)
			if err := desc.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	})
	t.Run("FromFlags", func(t *testing.T) {
		if d := FromFlags(3, ""); d.Mask().Index != "3" {
			t.Errorf("unexpected descriptor %s", d)
		}
		if d := FromFlags(3, "ABC"); d.Mask().Serial != "ABC" || d.Mask().Index != "" {
			t.Errorf("serial should win: %s", pprint.Sdump(d.Mask()))
		}
		if d := FromFlags(-1, ""); d.Mask().Index != "0" {
			t.Errorf("expected first device, got %s", d)
		}
	})
	t.Run("Connect", func(t *testing.T) {
		if _, err := Connect(ByIndex(0), ByIndex(1)); !errors.Is(err, ErrBadDescriptor) {
			t.Errorf("expected ErrBadDescriptor, got %v", err)
		}
		if _, err := Connect(ByIndex(-1)); !errors.Is(err, ErrBadDescriptor) {
			t.Errorf("expected ErrBadDescriptor, got %v", err)
		}
	})
}

func TestCPin(t *testing.T) {
	p, err := cpin(0x10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != ft232h.C(4) {
		t.Errorf("expected C4, got %s", p)
	}
	for _, bad := range []uint{0, 16, 0x30, 0x100} {
		if _, err = cpin(bad); !errors.Is(err, ErrBadPin) {
			t.Errorf("0x%X: expected ErrBadPin, got %v", bad, err)
		}
	}
}

func TestSPIConfig(t *testing.T) {
	b := &Bridge{csPin: ft232h.C(4), log: zerolog.Nop()}
	check := func(t *testing.T, cfg *ft232h.SPIConfig) {
		t.Helper()
		if cfg.CS == nil || !ft232h.C(4).Equals(cfg.CS) {
			t.Errorf("expected chip select on C4, got %s", pprint.Sdump(cfg.CS))
		}
		if !cfg.ActiveLow {
			t.Error("nSCS must be active low")
		}
		if cfg.Mode != spiMode1 {
			t.Errorf("expected SPI mode 1, got %d", cfg.Mode)
		}
		if cfg.Clock != Clock {
			t.Errorf("expected %d Hz, got %d", Clock, cfg.Clock)
		}
	}
	t.Run("Default", func(t *testing.T) {
		check(t, b.spiConfig(ft232h.SPIConfigDefault()))
	})
	t.Run("Empty", func(t *testing.T) {
		check(t, b.spiConfig(&ft232h.SPIConfig{}))
	})
}

// swapper behaves like (*ft232h.SPI).Swap with chip select on a GPIO pin,
// recording every level driven on it.
type swapper struct {
	cfg    *ft232h.SPIConfig
	dev    *drvsim.Device
	levels []bool
}

func (s *swapper) Swap(data []uint8, start bool, stop bool) ([]uint8, error) {
	assert := !s.cfg.ActiveLow
	if start {
		s.levels = append(s.levels, assert)
	}
	if stop {
		defer func() { s.levels = append(s.levels, !assert) }()
	}
	rx, err := s.dev.Exchange([frame.Size]byte(data))
	return rx[:], err
}

func TestBridgeFraming(t *testing.T) {
	b := &Bridge{csPin: ft232h.C(4), log: zerolog.Nop()}
	dev := drvsim.New(0)
	dev.SetRegister(drv8301.AddrStatus2, 0x001)
	sw := &swapper{cfg: b.spiConfig(ft232h.SPIConfigDefault()), dev: dev}
	b.frames = spibus.NewFT232H(sw, nil)

	id, err := drv8301.New(b).DeviceID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1 {
		t.Errorf("expected device id 1, got %d", id)
	}

	// nSCS low for each frame, released after it: a rising edge per frame
	want := []bool{false, true, false, true}
	if len(sw.levels) != len(want) {
		t.Fatalf("expected chip select levels %v, got %v", want, sw.levels)
	}
	for i := range want {
		if sw.levels[i] != want[i] {
			t.Errorf("expected chip select levels %v, got %v", want, sw.levels)
			break
		}
	}
}

func envPin(t *testing.T, name string, def uint) uint {
	t.Helper()
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	p, err := strconv.ParseUint(v, 0, 8)
	if err != nil {
		t.Fatalf("bad '%s' environment variable: %v\nvalue: %s", name, err, v)
	}
	return uint(p)
}

func testBridge(t *testing.T) *Bridge {
	t.Helper()

	desc := ByIndex(0)
	if idx := strings.TrimSpace(os.Getenv("TEST_FT232H_INDEX")); idx != "" {
		i, err := strconv.Atoi(idx)
		if err != nil {
			t.Fatalf("bad 'TEST_FT232H_INDEX' environment variable: %v\nvalue: %s", err, idx)
		}
		desc = ByIndex(i)
	}
	if serial := strings.TrimSpace(os.Getenv("TEST_FT232H_SERIAL")); serial != "" {
		desc = BySerial(serial)
	}

	b, err := Connect(desc)
	if err != nil {
		t.Fatalf("failed to connect to FT232H: %v", err)
	}
	t.Logf("connected to %s", b.Info())

	if err = b.SetCSPin(envPin(t, "TEST_FT232H_CS", 0x10)); err != nil {
		t.Fatalf("failed to configure chip select: %v", err)
	}
	if err = b.SetEnableGatePin(envPin(t, "TEST_FT232H_EN_GATE", 0x40)); err != nil {
		t.Fatalf("failed to configure EN_GATE: %v", err)
	}
	if err = b.Init(); err != nil {
		t.Fatalf("failed to init SPI: %v", err)
	}
	if err = b.EnableGate(true); err != nil {
		t.Fatalf("failed to enable gate driver: %v", err)
	}
	return b
}

func TestBridgeDRV8301(t *testing.T) {
	if os.Getenv("TEST_FT232H") == "" {
		t.Skip("set 'TEST_FT232H' in environment to run this test")
	}

	d := drv8301.New(testBridge(t))
	defer func() {
		if err := d.Close(); err != nil {
			t.Errorf("failed to close bridge: %v", err)
		}
	}()

	t.Run("Status", func(t *testing.T) {
		st, err := d.Status()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Logf("status: %s", pprint.Sdump(st))
	})

	t.Run("SetGain", func(t *testing.T) {
		before, err := d.ReadControl2()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := drv8301.Gain40
		if before.Gain() == want {
			want = drv8301.Gain20
		}
		if err = d.SetShuntAmplifierGain(want); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		after, err := d.ReadControl2()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.Gain() != want {
			t.Errorf("expected %s, got %s", want, after.Gain())
		}
		if err = d.SetShuntAmplifierGain(before.Gain()); err != nil {
			t.Errorf("failed to restore gain: %v", err)
		}
	})
}
