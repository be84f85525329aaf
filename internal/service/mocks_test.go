package service

import (
	"math"
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"

	"github.com/shopspring/decimal"
)

type recordingBrokerage struct {
	totalEquity decimal.Decimal
	holdings    domain.TargetPortfolio
	feeModel    repository.FeeModel
	submitted   []domain.Order
	submitErr   error
}

func (b *recordingBrokerage) GetPortfolioTotalEquity(portfolioID string) (decimal.Decimal, error) {
	return b.totalEquity, nil
}

func (b *recordingBrokerage) GetPortfolioHoldings(portfolioID string) (domain.TargetPortfolio, error) {
	if b.holdings == nil {
		return domain.TargetPortfolio{}, nil
	}
	return b.holdings, nil
}

func (b *recordingBrokerage) SubmitOrder(portfolioID string, order domain.Order) error {
	if b.submitErr != nil {
		return b.submitErr
	}
	b.submitted = append(b.submitted, order)
	return nil
}

func (b *recordingBrokerage) FeeModel() repository.FeeModel {
	if b.feeModel == nil {
		return repository.ZeroFeeModel{}
	}
	return b.feeModel
}

type stubPrices struct {
	asks map[string]float64
}

func (p stubPrices) GetLatestAskPrice(date time.Time, symbol string) float64 {
	if price, ok := p.asks[symbol]; ok {
		return price
	}
	return math.NaN()
}

func (p stubPrices) GetLatestBidPrice(date time.Time, symbol string) float64 {
	return p.GetLatestAskPrice(date, symbol)
}

type capturingRecorder struct {
	dates   []time.Time
	weights []map[string]float64
}

func (r *capturingRecorder) RecordTargetAllocations(date time.Time, weights map[string]float64) {
	r.dates = append(r.dates, date)
	r.weights = append(r.weights, weights)
}
