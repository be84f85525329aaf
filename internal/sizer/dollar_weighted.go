package sizer

import (
	"fmt"
	"math"
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"

	"github.com/shopspring/decimal"
)

// DollarWeightedCashBufferedSizer produces a long-only target portfolio
// from unit-normalized weights, deploying total portfolio equity less a
// cash buffer. The buffer absorbs integer share truncation and fee
// slippage so generated orders do not exceed account equity.
type DollarWeightedCashBufferedSizer struct {
	brokerage            repository.Brokerage
	brokeragePortfolioID string
	prices               repository.PriceRepository
	cashBufferPercentage float64
}

func NewDollarWeightedCashBufferedSizer(
	brokerage repository.Brokerage,
	brokeragePortfolioID string,
	prices repository.PriceRepository,
	cashBufferPercentage float64,
) (*DollarWeightedCashBufferedSizer, error) {
	if cashBufferPercentage < 0.0 || cashBufferPercentage > 1.0 {
		return nil, fmt.Errorf(
			"cash buffer percentage %v provided to dollar-weighted order sizer is negative or exceeds 100%%",
			cashBufferPercentage,
		)
	}
	return &DollarWeightedCashBufferedSizer{
		brokerage:            brokerage,
		brokeragePortfolioID: brokeragePortfolioID,
		prices:               prices,
		cashBufferPercentage: cashBufferPercentage,
	}, nil
}

// normaliseWeights rescales the weight vector to sum to unity. Negative
// weights are rejected: this sizer is long-only. A near-zero weight sum
// cannot be rescaled and passes through unchanged.
func (s *DollarWeightedCashBufferedSizer) normaliseWeights(weights map[string]float64) (map[string]float64, error) {
	weightSum := 0.0
	for symbol, weight := range weights {
		if weight < 0.0 {
			return nil, fmt.Errorf(
				"dollar-weighted cash-buffered order sizing does not support negative weights: %s has weight %v; all positions must be long-only",
				symbol, weight,
			)
		}
		weightSum += weight
	}

	if math.Abs(weightSum) < weightSumEpsilon {
		return domain.CopyWeights(weights), nil
	}

	normalised := make(map[string]float64, len(weights))
	for symbol, weight := range weights {
		normalised[symbol] = weight / weightSum
	}
	return normalised, nil
}

func (s *DollarWeightedCashBufferedSizer) Size(date time.Time, weights map[string]float64) (domain.TargetPortfolio, error) {
	if len(weights) == 0 {
		// No forecasts: the portfolio stays in cash or is fully liquidated.
		return domain.TargetPortfolio{}, nil
	}

	normalised, err := s.normaliseWeights(weights)
	if err != nil {
		return nil, err
	}

	totalEquity, err := s.brokerage.GetPortfolioTotalEquity(s.brokeragePortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain total equity for portfolio %q: %w", s.brokeragePortfolioID, err)
	}
	bufferedEquity := totalEquity.Mul(decimal.NewFromFloat(1.0 - s.cashBufferPercentage))

	feeModel := s.brokerage.FeeModel()
	target := make(domain.TargetPortfolio, len(normalised))
	for _, symbol := range domain.SortedSymbols(normalised) {
		preCostAllocation := bufferedEquity.Mul(decimal.NewFromFloat(normalised[symbol]))

		// The final order quantity is unknown until after sizing, so fees
		// are estimated against a zero trial quantity.
		estimatedCosts := feeModel.CalcTotalCost(symbol, 0, preCostAllocation)
		afterCostAllocation := preCostAllocation.Sub(estimatedCosts)

		askPrice := s.prices.GetLatestAskPrice(date, symbol)
		if math.IsNaN(askPrice) {
			return nil, fmt.Errorf(
				"latest ask price for %s at %s is not available; the backtest start date may precede the first price bar for this asset",
				symbol, date,
			)
		}

		quantity := afterCostAllocation.Div(decimal.NewFromFloat(askPrice)).Floor().IntPart()
		target[symbol] = domain.TargetPosition{Quantity: quantity}
	}
	return target, nil
}
