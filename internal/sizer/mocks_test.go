package sizer

import (
	"math"
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"

	"github.com/shopspring/decimal"
)

type stubBrokerage struct {
	totalEquity decimal.Decimal
	feeModel    repository.FeeModel
}

func (b stubBrokerage) GetPortfolioTotalEquity(portfolioID string) (decimal.Decimal, error) {
	return b.totalEquity, nil
}

func (b stubBrokerage) GetPortfolioHoldings(portfolioID string) (domain.TargetPortfolio, error) {
	return domain.TargetPortfolio{}, nil
}

func (b stubBrokerage) SubmitOrder(portfolioID string, order domain.Order) error {
	return nil
}

func (b stubBrokerage) FeeModel() repository.FeeModel {
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
