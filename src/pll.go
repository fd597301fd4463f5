package mpx

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Type-II second-order phase-locked loop, shared by the
 *		19 kHz pilot tracker and the 57 kHz fallback tracker.
 *
 * Description:	Loop gains are derived from a target loop bandwidth and
 *		damping factor using the standard discrete-time type-II
 *		formulas, phase detector gain Kd=0.5 and VCO gain K0=1
 *		assumed. The loop only integrates error while "locked" is
 *		asserted by the caller; otherwise it free-runs at its
 *		nominal angular step. This lets one PLL type serve both
 *		the pilot tracker, which corrects only while the pilot is
 *		present, and the 57 kHz tracker, which is held in
 *		alignment rather than corrected while the pilot is
 *		present.
 *
 *----------------------------------------------------------------*/

const twoPi = 2.0 * math.Pi

// PLL is a type-II second-order discrete phase-locked loop.
type PLL struct {
	Phase      float64 // radians, kept in [0, 2*Pi)
	w0         float64 // nominal angular step per sample
	integrator float64
	kp, ki     float64
	maxPull    float64 // radians/sample
	errLP      float64
	errAlpha   float64
}

// computeLoopGains derives Kp/Ki for a type-II loop targeting loopBwHz
// bandwidth and damping zeta, at the given sample rate.
func computeLoopGains(sampleRate, loopBwHz, zeta float64) (kp, ki float64) {
	const kd = 0.5
	const k0 = 1.0

	var t = 1.0 / sampleRate
	var theta = (loopBwHz * t) / (zeta + 0.25/zeta)
	var d = 1.0 + 2.0*zeta*theta + theta*theta

	kp = (4.0 * zeta * theta) / d
	ki = (4.0 * theta * theta) / d

	kp /= kd * k0
	ki /= kd * k0
	return kp, ki
}

// NewPLL builds a PLL nominally tracking centerFreq, with the given
// loop bandwidth, damping, maximum pull range (Hz), and error-lowpass
// time constant (seconds).
func NewPLL(sampleRate, centerFreq, loopBwHz, zeta, maxPullHz, errTauSec float64) *PLL {
	var p = new(PLL)
	p.w0 = twoPi * centerFreq / sampleRate
	p.kp, p.ki = computeLoopGains(sampleRate, loopBwHz, zeta)
	p.maxPull = maxPullHz * twoPi / sampleRate
	p.errAlpha = expAlphaFromTau(sampleRate, errTauSec)
	return p
}

// Reset clears the integrator and the smoothed phase-error estimate,
// leaving Phase untouched.
func (p *PLL) Reset() {
	p.integrator = 0
	p.errLP = 0
}

// Step advances the loop by one sample. errNorm is the normalized,
// instantaneous phase-detector output. When locked is false the loop
// free-runs at its nominal rate and the error estimate still smooths
// (so it doesn't re-trigger a stale correction on relock) but never
// drives the integrator.
func (p *PLL) Step(errNorm float64, locked bool) {
	p.errLP += (errNorm - p.errLP) * p.errAlpha

	if locked {
		p.integrator += p.ki * p.errLP
		p.integrator = clampf(p.integrator, -p.maxPull, p.maxPull)

		var freqOffset = p.kp*p.errLP + p.integrator
		p.Phase += p.w0 + freqOffset
	} else {
		p.Phase += p.w0
	}

	p.wrap()
}

// AlignTo forces the loop to a given phase and clears its integrator,
// used when handing the 57 kHz PLL phase-continuously off the pilot
// reference (and back).
func (p *PLL) AlignTo(phase float64) {
	p.Phase = math.Mod(phase, twoPi)
	if p.Phase < 0 {
		p.Phase += twoPi
	}
	p.Reset()
}

func (p *PLL) wrap() {
	if p.Phase >= twoPi {
		p.Phase -= twoPi
	}
	if p.Phase < 0 {
		p.Phase += twoPi
	}
}
