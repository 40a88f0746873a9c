package drv8301

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/yunginnanet/drv8301/pkg/drvsim"
	"github.com/yunginnanet/drv8301/pkg/frame"
	"github.com/yunginnanet/drv8301/pkg/regmap"
)

// getFuzzRounds returns the number of rounds from FUZZ_ROUNDS, default 500
func getFuzzRounds() int {
	if env := os.Getenv("FUZZ_ROUNDS"); env != "" {
		if rounds, err := strconv.Atoi(env); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 500
}

// getFuzzSeed returns the seed from FUZZ_SEED, or one from the current time
func getFuzzSeed() int64 {
	if env := os.Getenv("FUZZ_SEED"); env != "" {
		if seed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

type fuzzSetter struct {
	field regmap.Field
	n     int // number of valid encodings
	set   func(d *DRV8301, x uint16) error
}

var fuzzSetters = []fuzzSetter{
	{FieldOCAdjSet, numOCAdjSet, func(d *DRV8301, x uint16) error { return d.SetOCThreshold(OCAdjSet(x)) }},
	{FieldOCPMode, 4, func(d *DRV8301, x uint16) error { return d.SetOCPMode(OCPMode(x)) }},
	{FieldPWMMode, 2, func(d *DRV8301, x uint16) error { return d.SetPWMMode(PWMMode(x)) }},
	{FieldGateCurrent, 3, func(d *DRV8301, x uint16) error { return d.SetGateCurrent(GateCurrent(x)) }},
	{FieldGain, 4, func(d *DRV8301, x uint16) error { return d.SetShuntAmplifierGain(ShuntAmplifierGain(x)) }},
	{FieldOCTWMode, 3, func(d *DRV8301, x uint16) error { return d.SetOCTWMode(OCTWMode(x)) }},
	{FieldDCCalCh1, 2, func(d *DRV8301, x uint16) error { return d.SetDCCalCh1(x == 1) }},
	{FieldDCCalCh2, 2, func(d *DRV8301, x uint16) error { return d.SetDCCalCh2(x == 1) }},
	{FieldOCTOff, 2, func(d *DRV8301, x uint16) error { return d.SetOCTOff(x == 1) }},
}

// TestFuzzSetters applies random setters to random register images and checks
// that only the targeted field changes and that a repeat is a no-op.
func TestFuzzSetters(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		s := fuzzSetters[rng.Intn(len(fuzzSetters))]
		reg, _, err := FindField(s.field.Name)
		if err != nil {
			t.Fatalf("field %s: %v", s.field, err)
		}
		before := frame.Value(rng.Intn(int(frame.ValueMask) + 1))
		x := uint16(rng.Intn(s.n))

		dev := drvsim.New(frame.Response(rng.Intn(0x10000)))
		dev.SetRegister(reg.Address, before)
		d := New(dev)

		if err = s.set(d, x); err != nil {
			t.Fatalf("round %d: %s=%d: unexpected error: %v", i, s.field, x, err)
		}
		after := dev.Register(reg.Address)
		if (after^before)&^s.field.Mask() != 0 {
			t.Fatalf("round %d: %s=%d changed other bits: %s -> %s", i, s.field, x, before, after)
		}
		if s.field.Get(after) != x {
			t.Fatalf("round %d: %s: expected %d, got %d", i, s.field, x, s.field.Get(after))
		}

		if err = s.set(d, x); err != nil {
			t.Fatalf("round %d: repeat: unexpected error: %v", i, err)
		}
		if again := dev.Register(reg.Address); again != after {
			t.Fatalf("round %d: repeat changed register: %s -> %s", i, after, again)
		}
	}
}

// TestFuzzReservedEncodings checks that every invalid enum value is refused
// locally, whatever the register holds.
func TestFuzzReservedEncodings(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		dev := drvsim.New(0)
		dev.SetRegister(AddrControl1, frame.Value(rng.Intn(0x800)))
		dev.SetRegister(AddrControl2, frame.Value(rng.Intn(0x800)))
		d := New(dev)

		var err error
		switch rng.Intn(3) {
		case 0:
			err = d.SetGateCurrent(gateCurrentReserved)
		case 1:
			err = d.SetOCTWMode(octwReserved)
		case 2:
			err = d.SetOCThreshold(OCAdjSet(numOCAdjSet + rng.Intn(256-numOCAdjSet)))
		}
		if err == nil || len(dev.History()) != 0 {
			t.Fatalf("round %d: expected local refusal, got %v after %d frames", i, err, len(dev.History()))
		}
	}
}
