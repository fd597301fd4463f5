package mpx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

const testSampleRate = 48000.0

// Scenario: a clean 19 kHz pilot tone locks the gate after warm-up and
// the pilot magnitude tracks it (spec §8 scenario "pure pilot lock").
func Test_Demod_PurePilotLocks(t *testing.T) {
	var d = NewDemodulator(testSampleRate, nil)

	for i := 0; i < presentHoldSamples+500; i++ {
		var x = 0.5 * math.Sin(2*math.Pi*19000.0*float64(i)/testSampleRate)
		d.Process(x)
	}

	assert.True(t, d.PilotPresent())
	assert.Greater(t, d.PilotMag(), 0.0)
}

// Scenario: once the pilot disappears, the gate drops after its hold
// window and the reported pilot magnitude is forced to zero in the
// same step (spec §8 invariant 2, scenario "pilot drop").
func Test_Demod_PilotDropZeroesMagnitude(t *testing.T) {
	var d = NewDemodulator(testSampleRate, nil)

	for i := 0; i < presentHoldSamples+500; i++ {
		var x = 0.5 * math.Sin(2*math.Pi*19000.0*float64(i)/testSampleRate)
		d.Process(x)
	}
	assert.True(t, d.PilotPresent())

	for i := 0; i < absentHoldSamples+500; i++ {
		d.Process(0.0)
	}

	assert.False(t, d.PilotPresent())
	assert.Equal(t, 0.0, d.PilotMag())
}

// Scenario: an RDS subcarrier with no pilot present locks the fallback
// 57 kHz PLL directly and reports nonzero RDS magnitude (spec §8
// scenario "RDS without pilot").
func Test_Demod_RDSWithoutPilotLocksFallback(t *testing.T) {
	var d = NewDemodulator(testSampleRate, nil)

	for i := 0; i < 20000; i++ {
		var x = 0.2 * math.Sin(2*math.Pi*57000.0*float64(i)/testSampleRate)
		d.Process(x)
	}

	assert.False(t, d.PilotPresent())
	assert.Greater(t, d.RDSMag(), 0.0)
}

// Property: the RDS reference blend factor never jumps by more than
// its own smoothing coefficient in a single sample (spec §8 invariant 3).
func Test_Demod_RDSBlendHasNoDiscontinuity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var d = NewDemodulator(testSampleRate, nil)
		var prev = d.RDSBlend()

		var steps = rapid.IntRange(1, 3000).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			var x = rapid.Float64Range(-1, 1).Draw(t, "x")
			d.Process(x)

			var cur = d.RDSBlend()
			assert.LessOrEqualf(t, math.Abs(cur-prev), d.RDSBlendAlpha()+1e-9,
				"blend jumped from %.6f to %.6f, alpha=%.6f", prev, cur, d.RDSBlendAlpha())
			prev = cur
		}
	})
}
