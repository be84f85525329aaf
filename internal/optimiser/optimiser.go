package optimiser

import (
	"time"

	"allocator/internal/domain"
)

// Optimiser reshapes an initial weight vector into the target weight vector
// handed to an order sizer. Implementations are pure: they never mutate the
// input and carry no per-call state.
type Optimiser interface {
	Optimise(date time.Time, initialWeights map[string]float64) map[string]float64
}

// FixedWeightOptimiser passes the provided weights through unchanged. Used
// when weight generation is delegated entirely to the upstream alpha/risk
// models.
type FixedWeightOptimiser struct{}

func NewFixedWeightOptimiser() FixedWeightOptimiser {
	return FixedWeightOptimiser{}
}

func (FixedWeightOptimiser) Optimise(date time.Time, initialWeights map[string]float64) map[string]float64 {
	return domain.CopyWeights(initialWeights)
}

// EqualWeightOptimiser assigns scale/N to every asset present in the input
// weight vector, discarding the input values. With the default scale of 1.0
// the output sums to unity.
type EqualWeightOptimiser struct {
	scale float64
}

func NewEqualWeightOptimiser(scale float64) EqualWeightOptimiser {
	return EqualWeightOptimiser{scale: scale}
}

func (o EqualWeightOptimiser) Optimise(date time.Time, initialWeights map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(initialWeights))
	if len(initialWeights) == 0 {
		// An empty input means no allocatable assets, not a divide-by-zero.
		return weights
	}
	equalWeight := o.scale / float64(len(initialWeights))
	for symbol := range initialWeights {
		weights[symbol] = equalWeight
	}
	return weights
}
