package alpha

import (
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"
)

// Model forecasts a raw weight vector for the construction pipeline. Raw
// weights may be unnormalized and, for long/short postures, negative; the
// optimiser and order sizer own normalization.
type Model interface {
	Weights(date time.Time) map[string]float64
}

// RiskModel adjusts or overrides an alpha weight vector, e.g. to cap
// exposures. The input must not be mutated.
type RiskModel interface {
	Adjust(date time.Time, weights map[string]float64) map[string]float64
}

// FixedSignals emits the same weight vector on every call.
type FixedSignals struct {
	signalWeights map[string]float64
}

func NewFixedSignals(signalWeights map[string]float64) FixedSignals {
	return FixedSignals{signalWeights: domain.CopyWeights(signalWeights)}
}

func (m FixedSignals) Weights(date time.Time) map[string]float64 {
	return domain.CopyWeights(m.signalWeights)
}

// SingleSignal assigns one fixed scalar to every asset in the universe at
// the queried date.
type SingleSignal struct {
	universe repository.UniverseRepository
	signal   float64
}

func NewSingleSignal(universe repository.UniverseRepository, signal float64) SingleSignal {
	return SingleSignal{universe: universe, signal: signal}
}

func (m SingleSignal) Weights(date time.Time) map[string]float64 {
	assets := m.universe.GetAssets(date)
	weights := make(map[string]float64, len(assets))
	for _, symbol := range assets {
		weights[symbol] = m.signal
	}
	return weights
}
