package drv8301

import (
	"fmt"
	"math"
)

// Constants from the datasheet

// OCAdjSet selects the VDS overcurrent threshold (Control Register 1, OC_ADJ_SET).
type OCAdjSet uint8

const (
	Vds60mV OCAdjSet = iota
	Vds68mV
	Vds76mV
	Vds86mV
	Vds97mV
	Vds109mV
	Vds123mV
	Vds138mV
	Vds155mV
	Vds175mV
	Vds197mV
	Vds222mV
	Vds250mV
	Vds282mV
	Vds317mV
	Vds358mV
	Vds403mV
	Vds454mV
	Vds511mV
	Vds576mV
	Vds648mV
	Vds730mV
	Vds822mV
	Vds926mV
	Vds1043mV
	Vds1175mV
	Vds1324mV
	Vds1491mV
	Vds1679mV
	Vds1892mV
	Vds2131mV
	Vds2400mV

	numOCAdjSet = iota
)

// threshold voltages in millivolts, indexed by OCAdjSet
var ocAdjMillivolts = [numOCAdjSet]uint16{
	60, 68, 76, 86, 97, 109, 123, 138,
	155, 175, 197, 222, 250, 282, 317, 358,
	403, 454, 511, 576, 648, 730, 822, 926,
	1043, 1175, 1324, 1491, 1679, 1892, 2131, 2400,
}

func (o OCAdjSet) Valid() bool {
	return int(o) < numOCAdjSet
}

// Millivolts returns the nominal VDS trip voltage.
func (o OCAdjSet) Millivolts() uint16 {
	if !o.Valid() {
		return 0
	}
	return ocAdjMillivolts[o]
}

func (o OCAdjSet) Volts() float64 {
	return float64(o.Millivolts()) / 1000
}

func (o OCAdjSet) String() string {
	if !o.Valid() {
		return "(invalid threshold)"
	}
	return fmt.Sprintf("%.3fV", o.Volts())
}

// OCAdjSetForVolts returns the threshold whose nominal voltage is nearest to v.
func OCAdjSetForVolts(v float64) OCAdjSet {
	best, bestDiff := Vds60mV, math.Inf(1)
	for i, mv := range ocAdjMillivolts {
		if d := math.Abs(float64(mv)/1000 - v); d < bestDiff {
			best, bestDiff = OCAdjSet(i), d
		}
	}
	return best
}

// OCPMode is the overcurrent protection behaviour (Control Register 1, OCP_MODE).
type OCPMode uint8

const (
	OCPCurrentLimit  OCPMode = 0x0 // cycle-by-cycle current limit
	OCPLatchShutdown OCPMode = 0x1 // latch the gate driver off
	OCPReportOnly    OCPMode = 0x2 // report on nOCTW, no action
	OCPDisabled      OCPMode = 0x3 // overcurrent detection off
)

func (m OCPMode) Valid() bool {
	return m <= OCPDisabled
}

func (m OCPMode) String() string {
	switch m {
	case OCPCurrentLimit:
		return "current-limit"
	case OCPLatchShutdown:
		return "latch-shutdown"
	case OCPReportOnly:
		return "report-only"
	case OCPDisabled:
		return "disabled"
	default:
		return "(invalid OCP mode)"
	}
}

// PWMMode selects how many PWM inputs drive the three half bridges (Control Register 1, PWM_MODE).
type PWMMode uint8

const (
	PWM6 PWMMode = 0x0 // six independent inputs
	PWM3 PWMMode = 0x1 // three inputs, complementary outputs
)

func (m PWMMode) Valid() bool {
	return m <= PWM3
}

func (m PWMMode) String() string {
	switch m {
	case PWM6:
		return "6-pwm"
	case PWM3:
		return "3-pwm"
	default:
		return "(invalid PWM mode)"
	}
}

// GateCurrent is the peak gate drive current (Control Register 1, GATE_CURRENT).
type GateCurrent uint8

const (
	GateCurrent1700mA GateCurrent = 0x0
	GateCurrent700mA  GateCurrent = 0x1
	GateCurrent250mA  GateCurrent = 0x2

	// gateCurrentReserved is encodable but undefined by the device.
	gateCurrentReserved GateCurrent = 0x3
)

func (g GateCurrent) Valid() bool {
	return g < gateCurrentReserved
}

func (g GateCurrent) String() string {
	switch g {
	case GateCurrent1700mA:
		return "1.7A"
	case GateCurrent700mA:
		return "0.7A"
	case GateCurrent250mA:
		return "0.25A"
	default:
		return "(reserved gate current)"
	}
}

// ShuntAmplifierGain is the current sense amplifier gain (Control Register 2, GAIN).
type ShuntAmplifierGain uint8

const (
	Gain10 ShuntAmplifierGain = 0x0
	Gain20 ShuntAmplifierGain = 0x1
	Gain40 ShuntAmplifierGain = 0x2
	Gain80 ShuntAmplifierGain = 0x3
)

func (g ShuntAmplifierGain) Valid() bool {
	return g <= Gain80
}

// VoltsPerVolt returns the amplifier gain factor.
func (g ShuntAmplifierGain) VoltsPerVolt() int {
	if !g.Valid() {
		return 0
	}
	return 10 << g
}

// PhaseCurrent converts a shunt amplifier output voltage so into amperes
// through a sense resistor of rsense ohms. The amplifier output sits at
// vref/2 for zero current and falls as current flows into the phase.
func (g ShuntAmplifierGain) PhaseCurrent(so, vref, rsense float64) float64 {
	gain := float64(g.VoltsPerVolt())
	if gain == 0 || rsense == 0 {
		return 0
	}
	return (vref/2 - so) / (gain * rsense)
}

func (g ShuntAmplifierGain) String() string {
	if !g.Valid() {
		return "(invalid gain)"
	}
	return fmt.Sprintf("%dV/V", g.VoltsPerVolt())
}

// OCTWMode selects what the nOCTW pin reports (Control Register 2, OCTW_MODE).
type OCTWMode uint8

const (
	OCTWBoth     OCTWMode = 0x0 // overtemperature and overcurrent
	OCTWOTOnly   OCTWMode = 0x1
	OCTWOCOnly   OCTWMode = 0x2
	octwReserved OCTWMode = 0x3
)

func (m OCTWMode) Valid() bool {
	return m < octwReserved
}

func (m OCTWMode) String() string {
	switch m {
	case OCTWBoth:
		return "ot-and-oc"
	case OCTWOTOnly:
		return "ot-only"
	case OCTWOCOnly:
		return "oc-only"
	default:
		return "(reserved OCTW mode)"
	}
}
