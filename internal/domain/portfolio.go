package domain

import "sort"

// TargetPosition is an integral desired holding for a single asset.
// Negative quantities denote short positions.
type TargetPosition struct {
	Quantity int64
}

// TargetPortfolio maps asset symbols to integral target quantities. It is
// rebuilt from scratch on every rebalance cycle by an order sizer and is
// never persisted.
type TargetPortfolio map[string]TargetPosition

// Symbols returns the sorted asset symbols of the portfolio.
func (p TargetPortfolio) Symbols() []string {
	symbols := make([]string, 0, len(p))
	for symbol := range p {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// SortedSymbols returns the keys of a weight vector in ascending order.
// Sizing and order emission iterate in this order so that identical inputs
// always produce identically-ordered output.
func SortedSymbols(weights map[string]float64) []string {
	symbols := make([]string, 0, len(weights))
	for symbol := range weights {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// CopyWeights returns a fresh copy of a weight vector so that callers can
// hand the same map through multiple cycles without aliasing surprises.
func CopyWeights(weights map[string]float64) map[string]float64 {
	copied := make(map[string]float64, len(weights))
	for symbol, weight := range weights {
		copied[symbol] = weight
	}
	return copied
}

// ZeroWeights builds a weight vector with a zero entry for every symbol.
func ZeroWeights(symbols []string) map[string]float64 {
	weights := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		weights[symbol] = 0.0
	}
	return weights
}

// MergeWeights overlays override onto base, returning a new map. Entries in
// override win where keys intersect; neither input is mutated.
func MergeWeights(base, override map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(base)+len(override))
	for symbol, weight := range base {
		merged[symbol] = weight
	}
	for symbol, weight := range override {
		merged[symbol] = weight
	}
	return merged
}
