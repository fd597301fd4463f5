package mpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Property: the PLL phase always stays in [0, 2*Pi), for any sequence
// of normalized phase errors and lock states (spec §8 invariant 1).
func Test_PLL_PhaseAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var p = NewPLL(192000.0, 19000.0, 2.0, 0.707, 50.0, 0.010)

		var steps = rapid.IntRange(1, 500).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			var errNorm = rapid.Float64Range(-10, 10).Draw(t, "errNorm")
			var locked = rapid.Bool().Draw(t, "locked")
			p.Step(errNorm, locked)

			assert.GreaterOrEqual(t, p.Phase, 0.0)
			assert.Less(t, p.Phase, twoPi)
		}
	})
}

func Test_PLL_ComputeLoopGains_PositiveForTypicalInputs(t *testing.T) {
	var kp, ki = computeLoopGains(192000.0, 2.0, 0.707)
	assert.Greater(t, kp, 0.0)
	assert.Greater(t, ki, 0.0)
}

func Test_PLL_AlignTo_ResetsIntegratorAndWraps(t *testing.T) {
	var p = NewPLL(192000.0, 19000.0, 2.0, 0.707, 50.0, 0.010)
	p.integrator = 0.01
	p.errLP = 0.02

	p.AlignTo(3 * twoPi)

	assert.InDelta(t, 0.0, p.Phase, 1e-9)
	assert.Equal(t, 0.0, p.integrator)
	assert.Equal(t, 0.0, p.errLP)
}

func Test_PLL_FreeRunAdvancesAtNominalRate(t *testing.T) {
	var p = NewPLL(192000.0, 19000.0, 2.0, 0.707, 50.0, 0.010)
	var w0 = p.w0

	p.Step(0, false)

	assert.InDelta(t, w0, p.Phase, 1e-9)
	assert.Equal(t, 0.0, p.integrator)
}
