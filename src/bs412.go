package mpx

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	ITU-R BS.412 MPX power measurement: a 60-second leaky
 *		integration of instantaneous power, reported in dB
 *		relative to the power of a +/-19 kHz deviation sinusoid.
 *
 * Note:	bs412RefPower assumes the input has been pre-scaled to
 *		kHz-of-deviation units (the default MeterMPXScale of 100
 *		maps a full-scale 1.0 input to 100 kHz deviation). If the
 *		operator's scale calibration doesn't
 *		match that assumption, the reported value is offset by a
 *		constant -- a calibration responsibility, not a bug here.
 *
 *----------------------------------------------------------------*/

// bs412RefPower is (19 kHz)^2/2, the power of a +/-19 kHz deviation sinusoid.
const bs412RefPower = 180.5

// BS412 integrates instantaneous MPX power with a 60 s time constant.
type BS412 struct {
	power float64
	alpha float64
}

// NewBS412 builds an integrator for the given sample rate.
func NewBS412(sampleRate float64) *BS412 {
	var b = new(BS412)
	b.alpha = expAlphaFromTau(sampleRate, 60.0)
	return b
}

// Process folds in one instantaneous power sample (already squared and
// scaled to kHz-of-deviation units).
func (b *BS412) Process(instantaneousPower float64) {
	b.power += (instantaneousPower - b.power) * b.alpha
}

// DBr returns the current integrated power relative to bs412RefPower.
func (b *BS412) DBr() float64 {
	return 10.0 * math.Log10((b.power+1e-12)/bs412RefPower)
}
