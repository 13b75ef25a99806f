package models

import (
	"math"
)

// LossReport is the per-batch loss summary assembled after each optimization
// pass. R1, Path, PathLengthMean and MeanPathLength hold the values from the
// most recent regularization pass; between cadence firings the previous
// values are deliberately reported again.
type LossReport struct {
	DAdv           float64 `json:"d_adv"`
	R1             float64 `json:"r1"`
	GAdv           float64 `json:"g_adv"`
	Path           float64 `json:"path"`
	PathLengthMean float64 `json:"path_length_mean"`
	MeanPathLength float64 `json:"mean_path_length"`
}

// Add accumulates another report elementwise.
func (r *LossReport) Add(other LossReport) {
	r.DAdv += other.DAdv
	r.R1 += other.R1
	r.GAdv += other.GAdv
	r.Path += other.Path
	r.PathLengthMean += other.PathLengthMean
	r.MeanPathLength += other.MeanPathLength
}

// Scale multiplies every field by f.
func (r *LossReport) Scale(f float64) {
	r.DAdv *= f
	r.R1 *= f
	r.GAdv *= f
	r.Path *= f
	r.PathLengthMean *= f
	r.MeanPathLength *= f
}

// Values returns the report as an ordered slice.
func (r LossReport) Values() [6]float64 {
	return [6]float64{r.DAdv, r.R1, r.GAdv, r.Path, r.PathLengthMean, r.MeanPathLength}
}

// Finite reports whether every field is a finite number.
func (r LossReport) Finite() bool {
	for _, v := range r.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
