package sizer

import (
	"fmt"
	"math"
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"

	"github.com/shopspring/decimal"
)

// LongShortLeveragedSizer produces a target portfolio that may hold both
// long and short positions, scaling weights so the gross exposure equals
// the configured gross leverage. The full leverage-scaled equity is
// deployable; there is no cash buffer.
type LongShortLeveragedSizer struct {
	brokerage            repository.Brokerage
	brokeragePortfolioID string
	prices               repository.PriceRepository
	grossLeverage        float64
}

func NewLongShortLeveragedSizer(
	brokerage repository.Brokerage,
	brokeragePortfolioID string,
	prices repository.PriceRepository,
	grossLeverage float64,
) (*LongShortLeveragedSizer, error) {
	if grossLeverage <= 0.0 {
		return nil, fmt.Errorf(
			"gross leverage %v provided to long-short leveraged order sizer is non-positive",
			grossLeverage,
		)
	}
	return &LongShortLeveragedSizer{
		brokerage:            brokerage,
		brokeragePortfolioID: brokeragePortfolioID,
		prices:               prices,
		grossLeverage:        grossLeverage,
	}, nil
}

// normaliseWeights rescales the weight vector, sign-preserving, so that the
// sum of absolute weights equals the gross leverage. A near-zero gross
// exposure cannot be rescaled and passes through unchanged.
func (s *LongShortLeveragedSizer) normaliseWeights(weights map[string]float64) map[string]float64 {
	grossExposure := 0.0
	for _, weight := range weights {
		grossExposure += math.Abs(weight)
	}

	if math.Abs(grossExposure) < weightSumEpsilon {
		return domain.CopyWeights(weights)
	}

	grossRatio := s.grossLeverage / grossExposure
	normalised := make(map[string]float64, len(weights))
	for symbol, weight := range weights {
		normalised[symbol] = weight * grossRatio
	}
	return normalised
}

func (s *LongShortLeveragedSizer) Size(date time.Time, weights map[string]float64) (domain.TargetPortfolio, error) {
	if len(weights) == 0 {
		// No forecasts: the portfolio stays in cash or is fully liquidated.
		return domain.TargetPortfolio{}, nil
	}

	normalised := s.normaliseWeights(weights)

	totalEquity, err := s.brokerage.GetPortfolioTotalEquity(s.brokeragePortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain total equity for portfolio %q: %w", s.brokeragePortfolioID, err)
	}

	feeModel := s.brokerage.FeeModel()
	target := make(domain.TargetPortfolio, len(normalised))
	for _, symbol := range domain.SortedSymbols(normalised) {
		preCostAllocation := totalEquity.Mul(decimal.NewFromFloat(normalised[symbol]))

		// Fees estimated against a zero trial quantity, as for the
		// dollar-weighted sizer.
		estimatedCosts := feeModel.CalcTotalCost(symbol, 0, preCostAllocation)
		afterCostAllocation := preCostAllocation.Sub(estimatedCosts)

		askPrice := s.prices.GetLatestAskPrice(date, symbol)
		if math.IsNaN(askPrice) {
			return nil, fmt.Errorf(
				"latest ask price for %s at %s is not available; the backtest start date may precede the first price bar for this asset",
				symbol, date,
			)
		}

		// Truncate the dollar allocation toward zero before dividing, then
		// truncate the quotient toward zero. Floor alone would round short
		// allocations further negative.
		truncatedAllocation := truncateTowardZero(afterCostAllocation)
		quantity := truncateTowardZero(
			truncatedAllocation.Div(decimal.NewFromFloat(askPrice)),
		).IntPart()
		target[symbol] = domain.TargetPosition{Quantity: quantity}
	}
	return target, nil
}
