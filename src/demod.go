package mpx

import (
	"math"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Pilot (19 kHz) and RDS (57 kHz) demodulation.
 *
 * Description:	Two coupled PLLs: one tracking the 19 kHz pilot (it
 *		corrects only while the presence gate is asserted and
 *		free-runs at 19 kHz otherwise), one that locks directly
 *		onto 57 kHz only while the pilot is absent. While the pilot is present the 57 kHz PLL is
 *		held in phase alignment to 3x the pilot phase every
 *		sample rather than only at the absent->present
 *		transition, which avoids any race between the gate and
 *		the PLL (see DESIGN.md's Open Questions).
 *
 *		IQ demodulation recovers pilot and RDS magnitude. The RDS
 *		reference is a phase-continuous crossfade between the
 *		pilot-derived 3x reference and the fallback PLL's own
 *		phase, so a pilot presence transition never pops the RDS
 *		carrier.
 *
 *----------------------------------------------------------------*/

const (
	pilotRelThresh      = 0.01
	presentHoldSamples  = 2000
	absentHoldSamples   = 8000
	pilotLoopBandwidth  = 2.0
	rdsLoopBandwidth    = 2.0
	loopZeta            = 0.707
	pilotMaxPullHz      = 50.0
	rdsMaxPullHz        = 100.0
	meanSqPilotDecay    = 0.9995
	pilotErrTauSeconds  = 0.010
	rdsErrTauSeconds    = 0.010
	pilotPowTauSeconds  = 0.050
	mpxPowTauSeconds    = 0.100
	rdsPowTauSeconds    = 0.050
	magnitudeTauSeconds = 0.100
	blendTauSeconds     = 0.050
)

// Demodulator tracks the 19 kHz pilot and the 57 kHz RDS subcarrier
// and reports their instantaneous magnitudes.
type Demodulator struct {
	bpf19 *Biquad
	bpf57 *Biquad

	lpfIPilot *Biquad
	lpfQPilot *Biquad
	lpfIRds   *Biquad
	lpfQRds   *Biquad

	pilotPLL *PLL
	rdsPLL   *PLL

	pilotPow, pilotPowAlpha float64
	mpxPow, mpxPowAlpha     float64
	rdsPow, rdsPowAlpha     float64

	meanSqPilot float64
	meanSqRds   float64
	rmsAlpha    float64

	pilotPresent  bool
	presentCount  int
	absentCount   int

	rdsRefBlend float64
	blendAlpha  float64

	pilotMag float64
	rdsMag   float64
}

// NewDemodulator builds a demodulator for the given sample rate and
// logs its derived PLL loop gains, mirroring the original tool's
// startup diagnostics.
func NewDemodulator(sampleRate float64, logger *log.Logger) *Demodulator {
	var d = new(Demodulator)

	d.bpf19 = NewBandpass(sampleRate, 19000.0, 20.0)
	d.bpf57 = NewBandpass(sampleRate, 57000.0, 20.0)

	d.lpfIPilot = NewLowpass(sampleRate, 50.0, 0.707)
	d.lpfQPilot = NewLowpass(sampleRate, 50.0, 0.707)
	d.lpfIRds = NewLowpass(sampleRate, 2400.0, 0.707)
	d.lpfQRds = NewLowpass(sampleRate, 2400.0, 0.707)

	d.pilotPLL = NewPLL(sampleRate, 19000.0, pilotLoopBandwidth, loopZeta, pilotMaxPullHz, pilotErrTauSeconds)
	d.rdsPLL = NewPLL(sampleRate, 57000.0, rdsLoopBandwidth, loopZeta, rdsMaxPullHz, rdsErrTauSeconds)

	d.pilotPowAlpha = expAlphaFromTau(sampleRate, pilotPowTauSeconds)
	d.mpxPowAlpha = expAlphaFromTau(sampleRate, mpxPowTauSeconds)
	d.rdsPowAlpha = expAlphaFromTau(sampleRate, rdsPowTauSeconds)
	d.rmsAlpha = expAlphaFromTau(sampleRate, magnitudeTauSeconds)
	d.blendAlpha = expAlphaFromTau(sampleRate, blendTauSeconds)

	d.pilotPow = 1e-6
	d.mpxPow = 1e-6
	d.rdsPow = 1e-6
	d.rdsRefBlend = 1.0

	if logger != nil {
		logger.Infof("pll pilot: bw=%.2fHz kp=%.10f ki=%.10f", pilotLoopBandwidth, d.pilotPLL.kp, d.pilotPLL.ki)
		logger.Infof("pll rds57: bw=%.2fHz kp=%.10f ki=%.10f", rdsLoopBandwidth, d.rdsPLL.kp, d.rdsPLL.ki)
	}

	return d
}

// Process advances the demodulator by one raw MPX sample (after gain,
// before any further measurement-path processing).
func (d *Demodulator) Process(raw float64) {
	d.mpxPow += (raw*raw - d.mpxPow) * d.mpxPowAlpha
	var mpxRms = math.Sqrt(math.Max(d.mpxPow, 1e-12))

	var pilotFiltered = d.bpf19.Process(raw)
	d.pilotPow += (pilotFiltered*pilotFiltered - d.pilotPow) * d.pilotPowAlpha
	var pilotRms = math.Sqrt(math.Max(d.pilotPow, 1e-12))

	var presentNow = mpxRms > 1e-9 && (pilotRms/(mpxRms+1e-9) > pilotRelThresh)

	if presentNow {
		d.presentCount++
		d.absentCount = 0
		if !d.pilotPresent && d.presentCount > presentHoldSamples {
			d.pilotPresent = true
			d.pilotPLL.Reset()
			d.rdsPLL.AlignTo(3.0 * d.pilotPLL.Phase)
		}
	} else {
		d.absentCount++
		d.presentCount = 0
		if d.pilotPresent && d.absentCount > absentHoldSamples {
			d.pilotPresent = false
			d.pilotPLL.Reset()
			d.rdsPLL.Reset()
		}
	}

	// --- pilot PLL: phase detector is pilotFiltered * (-sin(phase)) ---
	var pSin = math.Sin(d.pilotPLL.Phase)
	var pErr = pilotFiltered * (-pSin)
	var pErrNorm = pErr / (pilotRms + 1e-9)

	d.pilotPLL.Step(pErrNorm, d.pilotPresent)
	if !d.pilotPresent {
		d.meanSqPilot *= meanSqPilotDecay
	}

	// --- pilot IQ amplitude on raw MPX, using the (just advanced) pilot phase ---
	var pCos = math.Cos(d.pilotPLL.Phase)
	var iP = d.lpfIPilot.Process(raw * pCos)
	var qP = d.lpfQPilot.Process(raw * math.Sin(d.pilotPLL.Phase))
	var magSqPilot = iP*iP + qP*qP
	d.meanSqPilot += (magSqPilot - d.meanSqPilot) * d.rmsAlpha
	if d.pilotPresent {
		d.pilotMag = math.Sqrt(math.Max(d.meanSqPilot, 0))
	} else {
		d.pilotMag = 0
	}

	// --- RDS reference blend between pilot-derived 3x and 57 kHz fallback PLL ---
	var targetBlend = 0.0
	if d.pilotPresent {
		targetBlend = 1.0
	}
	d.rdsRefBlend += (targetBlend - d.rdsRefBlend) * d.blendAlpha

	var phase57Pilot = math.Mod(3.0*d.pilotPLL.Phase, twoPi)
	if phase57Pilot < 0 {
		phase57Pilot += twoPi
	}
	var c57P = math.Cos(phase57Pilot)
	var s57P = math.Sin(phase57Pilot)

	var rdsFiltered57 = d.bpf57.Process(raw)
	d.rdsPow += (rdsFiltered57*rdsFiltered57 - d.rdsPow) * d.rdsPowAlpha
	var rdsRms = math.Sqrt(math.Max(d.rdsPow, 1e-12))

	if !d.pilotPresent {
		var rSin = math.Sin(d.rdsPLL.Phase)
		var rErr = rdsFiltered57 * (-rSin)
		var rErrNorm = rErr / (rdsRms + 1e-9)
		d.rdsPLL.Step(rErrNorm, true)
	} else {
		d.rdsPLL.AlignTo(phase57Pilot)
	}

	var c57R = math.Cos(d.rdsPLL.Phase)
	var s57R = math.Sin(d.rdsPLL.Phase)

	var b = d.rdsRefBlend
	var c57 = b*c57P + (1-b)*c57R
	var s57 = b*s57P + (1-b)*s57R

	var iR = d.lpfIRds.Process(raw * c57)
	var qR = d.lpfQRds.Process(raw * s57)
	var magSqRds = iR*iR + qR*qR
	d.meanSqRds += (magSqRds - d.meanSqRds) * d.rmsAlpha
	d.rdsMag = math.Sqrt(math.Max(d.meanSqRds, 0))
}

// PilotMag returns the most recently computed pilot magnitude.
func (d *Demodulator) PilotMag() float64 { return d.pilotMag }

// RDSMag returns the most recently computed RDS magnitude.
func (d *Demodulator) RDSMag() float64 { return d.rdsMag }

// PilotPresent reports the current state of the presence gate.
func (d *Demodulator) PilotPresent() bool { return d.pilotPresent }

// RDSBlend returns the current pilot/57-PLL reference blend factor.
func (d *Demodulator) RDSBlend() float64 { return d.rdsRefBlend }

// RDSBlendAlpha returns the blend smoothing coefficient, exposed for
// testing the continuity invariant in spec §8.
func (d *Demodulator) RDSBlendAlpha() float64 { return d.blendAlpha }
