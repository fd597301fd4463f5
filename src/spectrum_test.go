package mpx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A pure sinusoid at an FFT bin-center frequency produces a spectrum
// peak at the corresponding bin, within 1% of the analytically
// expected Hann-windowed amplitude (spec §8 invariant 6, scenario 6).
func Test_Spectrum_BinCenterSineProducesExpectedPeak(t *testing.T) {
	const n = 4096
	const bin = 100
	const amplitude = 0.7

	var s = NewSpectrum(n)
	for i := 0; i < n; i++ {
		s.AddSample(amplitude * math.Sin(2.0*math.Pi*float64(bin)*float64(i)/float64(n)))
	}
	assert.True(t, s.Full())

	var out = s.Compute(1.0, 1.0)

	var expected = amplitude / 2.0 * displayScalar
	assert.InEpsilon(t, expected, out[bin], 0.01)
}

// Bins far from the excited frequency stay near zero.
func Test_Spectrum_OffBinStaysLow(t *testing.T) {
	const n = 4096
	const bin = 100

	var s = NewSpectrum(n)
	for i := 0; i < n; i++ {
		s.AddSample(math.Sin(2.0 * math.Pi * float64(bin) * float64(i) / float64(n)))
	}

	var out = s.Compute(1.0, 1.0)
	assert.Less(t, out[bin+50], out[bin]*0.05)
}
