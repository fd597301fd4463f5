package mpx

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Peak hold-and-release envelope for the true-peak path.
 *		Runs continuously across output intervals; never reset
 *		at an emit boundary.
 *
 *----------------------------------------------------------------*/

// Envelope is a hold-then-exponential-release peak follower.
type Envelope struct {
	holdSamples int
	holdCounter int
	releaseCoef float64
	value       float64
}

// NewEnvelope builds an envelope for the given sample rate, hold time
// and release time constant (both in milliseconds).
func NewEnvelope(sampleRate float64, holdMs, releaseMs float64) *Envelope {
	var e = new(Envelope)
	e.holdSamples = int(math.Max(1.0, sampleRate*(holdMs/1000.0)))
	var tau = math.Max(0.001, releaseMs/1000.0)
	e.releaseCoef = math.Exp(-1.0 / (sampleRate * tau))
	return e
}

// Process pushes one input sample and returns the held/released value.
func (e *Envelope) Process(x float64) float64 {
	if x >= e.value {
		e.value = x
		e.holdCounter = e.holdSamples
		return e.value
	}
	if e.holdCounter > 0 {
		e.holdCounter--
		return e.value
	}
	e.value *= e.releaseCoef
	if x > e.value {
		e.value = x
		e.holdCounter = e.holdSamples
	}
	return e.value
}
