package mpx

import "math"

/*------------------------------------------------------------------
 *
 * Purpose:	Inter-sample true-peak estimate via oversampled
 *		Catmull-Rom interpolation of the last four samples.
 *
 *----------------------------------------------------------------*/

// TruePeak maintains a 4-sample history and reports the oversampled
// peak absolute value once warm.
type TruePeak struct {
	x0, x1, x2, x3 float64
	warm           int
}

// Process pushes one sample and returns the estimated true peak.
// factor must be 4 or 8; any other value coerces to 4.
func (t *TruePeak) Process(x float64, factor int) float64 {
	if factor != 8 {
		factor = 4
	}

	if t.warm < 4 {
		switch t.warm {
		case 0:
			t.x0, t.x1, t.x2, t.x3 = x, x, x, x
		case 1:
			t.x1, t.x2, t.x3 = x, x, x
		case 2:
			t.x2, t.x3 = x, x
		default:
			t.x3 = x
		}
		t.warm++
		return math.Abs(x)
	}

	t.x0, t.x1, t.x2, t.x3 = t.x1, t.x2, t.x3, x

	var maxAbs = 0.0
	for k := 0; k <= factor; k++ {
		var step = float64(k) / float64(factor)
		var y = catmullRom(t.x0, t.x1, t.x2, t.x3, step)
		if a := math.Abs(y); a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	var t2 = t * t
	var t3 = t2 * t
	return 0.5 * ((2.0 * p1) +
		(-p0+p2)*t +
		(2.0*p0-5.0*p1+4.0*p2-p3)*t2 +
		(-p0+3.0*p1-3.0*p2+p3)*t3)
}
