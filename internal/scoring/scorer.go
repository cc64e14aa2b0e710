package scoring

import (
	"fmt"

	"metacog/internal/features"
)

// Scorer converts feature vectors into subprocess score sets using a
// validated dimension table. It holds no mutable state; one Scorer can be
// shared across evaluations and goroutines.
type Scorer struct {
	dims []Dimension
}

// NewScorer validates the dimension table and builds a scorer.
func NewScorer(dims []Dimension) (*Scorer, error) {
	if len(dims) == 0 {
		dims = DefaultDimensions()
	}
	if err := ValidateDimensions(dims); err != nil {
		return nil, fmt.Errorf("invalid dimension table: %w", err)
	}
	cp := make([]Dimension, len(dims))
	copy(cp, dims)
	return &Scorer{dims: cp}, nil
}

// Score maps the feature vector onto the 12 subprocess scores.
// Pure and total: every output lies in [0,3] regardless of input values.
func (s *Scorer) Score(fv features.FeatureVector) ScoreSet {
	out := make(ScoreSet, len(s.dims))
	for _, d := range s.dims {
		raw, ok := fv.Get(d.Feature)
		if !ok {
			// Unknown feature name in an overridden table scores zero
			// rather than failing mid-pipeline; ValidateDimensions only
			// checks codes, feature names are the caller's contract.
			out[d.Code] = 0
			continue
		}
		out[d.Code] = rescale(raw, d.InMin, d.InMax, 0, ScoreMax)
	}
	return out
}

// rescale clamps v into [inMin,inMax] first so out-of-range inputs
// saturate, then linearly maps onto [outMin,outMax].
func rescale(v, inMin, inMax, outMin, outMax float64) float64 {
	if v < inMin {
		v = inMin
	}
	if v > inMax {
		v = inMax
	}
	return (v-inMin)/(inMax-inMin)*(outMax-outMin) + outMin
}
