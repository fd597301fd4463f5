package mpx

import (
	"math"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Owns every piece of per-sample DSP state and runs the
 *		per-sample pipeline: channel select -> DC block -> gain
 *		split -> BS.412 -> true-peak path -> demodulator ->
 *		spectrum accumulate -> cadence-gated emit.
 *
 * Description:	Per spec §3/§9, the main loop is the sole owner of all
 *		DSP state; Engine is that owner. Configuration reload is
 *		driven externally (every 50 outer blocks, per §4.13) via
 *		ReloadConfig, never from inside ProcessSample.
 *
 *----------------------------------------------------------------*/

// basePreamp is the fixed linear gain applied before the DC blocker,
// ahead of either configurable gain stage. See SPEC_FULL.md §4.
const basePreamp = 3.0

const (
	peakLpfTargetHz = 100000.0
	peakLpfMaxFrac  = 0.45 // fraction of sample rate the LPF corner is clamped to
	envelopeHoldMs  = 200.0
	envelopeRelMs   = 1500.0

	// Outer display smoothing, applied on top of the demodulator's own
	// internal magnitude smoothing -- see SPEC_FULL.md §4.
	pilotRdsDisplayRetain = 0.90
	bs412DisplayRetain    = 0.98
)

// Engine drives the whole per-sample DSP chain for one channel of MPX.
type Engine struct {
	sampleRate float64
	logger     *log.Logger

	reloader *ConfigReloader
	cfg      Config

	channel   ChannelSelector
	dcBlocker DCBlocker
	demod     *Demodulator
	peakLpf   *Biquad
	truePeak  TruePeak
	envelope  *Envelope
	bs412     *BS412
	spectrum  *Spectrum

	counter         int
	outputThreshold int

	smoothP, smoothR, smoothB          float64
	smoothPSet, smoothRSet, smoothBSet bool
}

// NewEngine builds an engine for the given sample rate, FFT size and
// optional config file path, logging its startup parameters.
func NewEngine(sampleRate float64, fftSize int, configPath string, logger *log.Logger) *Engine {
	var e = new(Engine)
	e.sampleRate = sampleRate
	e.logger = logger

	e.reloader = NewConfigReloader(configPath, logger)
	e.cfg, _ = e.reloader.MaybeReload()

	e.demod = NewDemodulator(sampleRate, logger)

	var cutoff = math.Min(peakLpfTargetHz, peakLpfMaxFrac*sampleRate)
	e.peakLpf = NewLowpass(sampleRate, cutoff, 0.707)

	e.envelope = NewEnvelope(sampleRate, envelopeHoldMs, envelopeRelMs)
	e.bs412 = NewBS412(sampleRate)
	e.spectrum = NewSpectrum(fftSize)

	e.recomputeOutputThreshold()

	if logger != nil {
		logger.Infof("init sample-rate=%d fft=%d peak-lpf=%.1fHz", int(sampleRate), fftSize, cutoff)
	}

	return e
}

func (e *Engine) recomputeOutputThreshold() {
	e.outputThreshold = int(e.sampleRate * float64(e.cfg.SpectrumSendIntervalMs) / 1000.0)
	if e.outputThreshold < 1 {
		e.outputThreshold = 1
	}
}

// ReloadConfig checks the config file and, if it changed, swaps in the
// new snapshot. Intended to be called once every 50 outer blocks by
// the caller, per spec §4.13 -- never from the per-sample hot path.
func (e *Engine) ReloadConfig() {
	var cfg, changed = e.reloader.MaybeReload()
	if changed {
		e.cfg = cfg
		e.recomputeOutputThreshold()
	}
}

// ProcessSample advances every DSP component by one stereo frame and
// returns a Record (and true) when the output cadence and the FFT
// frame both land on this sample.
func (e *Engine) ProcessSample(left, right float64) (Record, bool) {
	var sample, justLocked = e.channel.Select(left, right)
	if justLocked && e.logger != nil {
		var which = "LEFT"
		if e.channel.Right() {
			which = "RIGHT"
		}
		e.logger.Infof("channel locked: %s", which)
	}

	var vRaw = sample * basePreamp
	var v = e.dcBlocker.Process(vRaw)

	var vMeters = v * e.cfg.MeterGain
	var vSpec = v * e.cfg.SpectrumGain

	var vScaledForPower = vMeters * e.cfg.MeterMPXScale
	e.bs412.Process(vScaledForPower * vScaledForPower)

	var vPeak = vMeters
	if e.cfg.EnableMpxLpf {
		vPeak = e.peakLpf.Process(vPeak)
	}
	var tp = e.truePeak.Process(vPeak, e.cfg.TruePeakFactor)
	var envPeak = e.envelope.Process(tp)

	e.demod.Process(vMeters)

	e.spectrum.AddSample(vSpec)

	e.counter++
	if e.counter < e.outputThreshold {
		return Record{}, false
	}
	e.counter = 0

	var pScaled = e.demod.PilotMag() * e.cfg.MeterPilotScale
	var rScaled = e.demod.RDSMag() * e.cfg.MeterRDSScale

	if !e.smoothPSet {
		e.smoothP, e.smoothPSet = pScaled, true
	} else {
		e.smoothP = e.smoothP*pilotRdsDisplayRetain + pScaled*(1-pilotRdsDisplayRetain)
	}
	if !e.smoothRSet {
		e.smoothR, e.smoothRSet = rScaled, true
	} else {
		e.smoothR = e.smoothR*pilotRdsDisplayRetain + rScaled*(1-pilotRdsDisplayRetain)
	}

	var bs412dBr = e.bs412.DBr()
	if !e.smoothBSet {
		e.smoothB, e.smoothBSet = bs412dBr, true
	} else {
		e.smoothB = e.smoothB*bs412DisplayRetain + bs412dBr*(1-bs412DisplayRetain)
	}

	var mFinal = envPeak * e.cfg.MeterMPXScale

	if !e.spectrum.Full() {
		return Record{}, false
	}

	var spec = e.spectrum.Compute(e.cfg.SpectrumAttack, e.cfg.SpectrumDecay)
	return NewRecord(e.smoothP, e.smoothR, mFinal, e.smoothB, spec), true
}
