package drvsim

import (
	"context"
	"errors"
	"testing"

	"github.com/yunginnanet/drv8301/pkg/frame"
)

func exchange(t *testing.T, d *Device, c frame.Command) frame.Response {
	t.Helper()
	rx, err := d.Exchange(c.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return frame.ResponseFromBytes(rx)
}

func TestPipeline(t *testing.T) {
	d := New(0xFFFF)
	d.SetRegister(0x1, 0x0401)

	rd, _ := frame.EncodeRead(0x1)
	if r := exchange(t, d, rd); r != 0xFFFF {
		t.Errorf("first reply should be the power-up pending frame, got 0x%04X", uint16(r))
	}
	if r := exchange(t, d, rd); r.Data() != 0x401 || r.FrameError() {
		t.Errorf("expected 0x401, got 0x%04X", uint16(r))
	}

	wr, _ := frame.EncodeWrite(0x3, 0x2A)
	exchange(t, d, wr)
	if d.Register(0x3) != 0x2A {
		t.Errorf("write not applied: %s", d)
	}
	if r := exchange(t, d, rd); r.Data() != 0x2A {
		t.Errorf("reply after a write should carry the written value, got 0x%04X", uint16(r))
	}
}

func TestReadOnly(t *testing.T) {
	d := New(0)
	d.SetRegister(0x0, 0x400)
	d.SetReadOnly(0x0)
	wr, _ := frame.EncodeWrite(0x0, 0x001)
	exchange(t, d, wr)
	if d.Register(0x0) != 0x400 {
		t.Errorf("read-only register changed: %s", d.Register(0x0))
	}
}

func TestHooks(t *testing.T) {
	t.Run("FlagFrame", func(t *testing.T) {
		d := New(0)
		d.FlagFrame = func(c frame.Command) bool { return c.Address() == 0x2 }
		rd, _ := frame.EncodeRead(0x2)
		exchange(t, d, rd)
		if r := exchange(t, d, rd); !r.FrameError() {
			t.Error("expected frame error bit")
		}
	})

	t.Run("Fail", func(t *testing.T) {
		cause := errors.New("glitch")
		d := New(0)
		d.Fail = func(n int) error {
			if n == 0 {
				return cause
			}
			return nil
		}
		if _, err := d.Exchange([frame.Size]byte{}); !errors.Is(err, cause) {
			t.Errorf("expected cause, got %v", err)
		}
		if len(d.History()) != 0 {
			t.Error("failed exchange recorded")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := New(0)
		if _, err := d.ExchangeContext(ctx, [frame.Size]byte{}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		d := New(0)
		exchange(t, d, 0x8000)
		d.Reset()
		if len(d.History()) != 0 {
			t.Error("history not cleared")
		}
	})
}
