package sizer

import (
	"time"

	"allocator/internal/domain"

	"github.com/shopspring/decimal"
)

// OrderSizer converts a normalized target weight vector plus the current
// account equity into integral target share quantities per asset.
type OrderSizer interface {
	Size(date time.Time, weights map[string]float64) (domain.TargetPortfolio, error)
}

// weightSumEpsilon guards the normalization step in both sizers: a weight
// sum (or gross exposure) closer to zero than this is treated as degenerate
// and the weights pass through unscaled.
const weightSumEpsilon = 1e-8

// truncateTowardZero floors non-negative values and ceils negative ones,
// matching integer truncation. Shorts must not be rounded further negative.
func truncateTowardZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return d.Ceil()
	}
	return d.Floor()
}
