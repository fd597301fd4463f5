package mpx

import (
	"encoding/json"
	"io"
	"math"
)

/*------------------------------------------------------------------
 *
 * Purpose:	One output record: pilot, RDS, MPX true-peak, BS.412 and
 *		spectrum, in that field order.
 *
 *---------------------------------------------------------------*/

// Record is one newline-delimited JSON output line. Field order
// matches spec §6: p, r, m, b, s.
type Record struct {
	Pilot     float64   `json:"p"`
	RDS       float64   `json:"r"`
	MPXPeak   float64   `json:"m"`
	BS412dBr  float64   `json:"b"`
	Spectrum  []float64 `json:"s"`
}

// NewRecord rounds every scalar and spectrum bin to 4 decimal places,
// matching the reference tool's "%.4f" formatting.
func NewRecord(pilot, rds, mpxPeak, bs412dBr float64, spectrum []float64) Record {
	var s = make([]float64, len(spectrum))
	for i, v := range spectrum {
		s[i] = round4(v)
	}
	return Record{
		Pilot:    round4(pilot),
		RDS:      round4(rds),
		MPXPeak:  round4(mpxPeak),
		BS412dBr: round4(bs412dBr),
		Spectrum: s,
	}
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// Write encodes the record as one JSON line.
func (r Record) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}
