package repository

import (
	"fmt"
	"math"
	"time"

	"allocator/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Brokerage is the account-state collaborator of the construction and
// execution services. Implementations own cash, positions and fee policy;
// the construction pipeline only reads equity and holdings and submits
// orders.
type Brokerage interface {
	GetPortfolioTotalEquity(portfolioID string) (decimal.Decimal, error)
	GetPortfolioHoldings(portfolioID string) (domain.TargetPortfolio, error)
	SubmitOrder(portfolioID string, order domain.Order) error
	FeeModel() FeeModel
}

type brokeragePortfolio struct {
	cash      decimal.Decimal
	positions map[string]int64
}

// SimulatedBrokerage is an in-memory brokerage account for backtests. It
// keeps a base cash balance plus any number of named portfolios, each with
// its own cash and integral positions, and fills submitted orders
// immediately at the latest bid/ask with fees from the configured model.
// Single-writer access per backtest run; no locking.
type SimulatedBrokerage struct {
	prices      PriceRepository
	feeModel    FeeModel
	currentTime time.Time
	cash        decimal.Decimal
	portfolios  map[string]*brokeragePortfolio
	log         *zap.SugaredLogger
}

func NewSimulatedBrokerage(
	startTime time.Time,
	initialFunds decimal.Decimal,
	prices PriceRepository,
	feeModel FeeModel,
	log *zap.SugaredLogger,
) (*SimulatedBrokerage, error) {
	if initialFunds.IsNegative() {
		return nil, fmt.Errorf("initial funds must be non-negative, got %s", initialFunds)
	}
	if prices == nil {
		return nil, fmt.Errorf("simulated brokerage requires a price repository")
	}
	if feeModel == nil {
		feeModel = ZeroFeeModel{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SimulatedBrokerage{
		prices:      prices,
		feeModel:    feeModel,
		currentTime: startTime,
		cash:        initialFunds,
		portfolios:  map[string]*brokeragePortfolio{},
		log:         log,
	}, nil
}

// SetCurrentTime advances the brokerage clock. Valuations and fills use
// prices as of this time.
func (b *SimulatedBrokerage) SetCurrentTime(date time.Time) {
	b.currentTime = date
}

func (b *SimulatedBrokerage) FeeModel() FeeModel {
	return b.feeModel
}

// AccountCashBalance returns cash held at the account level, outside any
// portfolio.
func (b *SimulatedBrokerage) AccountCashBalance() decimal.Decimal {
	return b.cash
}

func (b *SimulatedBrokerage) CreatePortfolio(portfolioID string) error {
	if _, ok := b.portfolios[portfolioID]; ok {
		return fmt.Errorf("portfolio %q already exists", portfolioID)
	}
	b.portfolios[portfolioID] = &brokeragePortfolio{
		cash:      decimal.Zero,
		positions: map[string]int64{},
	}
	return nil
}

// SubscribeFundsToPortfolio moves cash from the account balance into a
// portfolio.
func (b *SimulatedBrokerage) SubscribeFundsToPortfolio(portfolioID string, amount decimal.Decimal) error {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("cannot subscribe negative amount %s to portfolio %q", amount, portfolioID)
	}
	if amount.GreaterThan(b.cash) {
		return fmt.Errorf("cannot subscribe %s to portfolio %q: only %s available at account level", amount, portfolioID, b.cash)
	}
	b.cash = b.cash.Sub(amount)
	portfolio.cash = portfolio.cash.Add(amount)
	return nil
}

// WithdrawFundsFromPortfolio moves cash from a portfolio back to the
// account balance.
func (b *SimulatedBrokerage) WithdrawFundsFromPortfolio(portfolioID string, amount decimal.Decimal) error {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("cannot withdraw negative amount %s from portfolio %q", amount, portfolioID)
	}
	if amount.GreaterThan(portfolio.cash) {
		return fmt.Errorf("cannot withdraw %s from portfolio %q: only %s held", amount, portfolioID, portfolio.cash)
	}
	portfolio.cash = portfolio.cash.Sub(amount)
	b.cash = b.cash.Add(amount)
	return nil
}

func (b *SimulatedBrokerage) GetPortfolioCashBalance(portfolioID string) (decimal.Decimal, error) {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return portfolio.cash, nil
}

func (b *SimulatedBrokerage) GetPortfolioTotalEquity(portfolioID string) (decimal.Decimal, error) {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	equity := portfolio.cash
	for symbol, quantity := range portfolio.positions {
		price := b.prices.GetLatestBidPrice(b.currentTime, symbol)
		if math.IsNaN(price) {
			return decimal.Zero, fmt.Errorf("no price available to value %s holding in portfolio %q at %s", symbol, portfolioID, b.currentTime)
		}
		marketValue := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(quantity))
		equity = equity.Add(marketValue)
	}
	return equity, nil
}

func (b *SimulatedBrokerage) GetPortfolioHoldings(portfolioID string) (domain.TargetPortfolio, error) {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}
	holdings := make(domain.TargetPortfolio, len(portfolio.positions))
	for symbol, quantity := range portfolio.positions {
		holdings[symbol] = domain.TargetPosition{Quantity: quantity}
	}
	return holdings, nil
}

// SubmitOrder fills the order immediately at the latest ask (buys) or bid
// (sells), deducting the fill consideration and fees from portfolio cash.
func (b *SimulatedBrokerage) SubmitOrder(portfolioID string, order domain.Order) error {
	portfolio, err := b.getPortfolio(portfolioID)
	if err != nil {
		return err
	}
	if order.Quantity == 0 {
		return fmt.Errorf("cannot execute zero-quantity order for %s", order.Symbol)
	}

	var price float64
	if order.Quantity > 0 {
		price = b.prices.GetLatestAskPrice(b.currentTime, order.Symbol)
	} else {
		price = b.prices.GetLatestBidPrice(b.currentTime, order.Symbol)
	}
	if math.IsNaN(price) {
		return fmt.Errorf("no fill price available for %s at %s", order.Symbol, b.currentTime)
	}

	consideration := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(order.Quantity))
	fee := order.Commission
	if fee.IsZero() {
		fee = b.feeModel.CalcTotalCost(order.Symbol, order.Quantity, consideration)
	}

	portfolio.cash = portfolio.cash.Sub(consideration).Sub(fee)
	if portfolio.cash.IsNegative() {
		b.log.Warnw("portfolio cash went negative after fill",
			"portfolioID", portfolioID,
			"symbol", order.Symbol,
			"quantity", order.Quantity,
			"cash", portfolio.cash,
		)
	}

	portfolio.positions[order.Symbol] += order.Quantity
	if portfolio.positions[order.Symbol] == 0 {
		delete(portfolio.positions, order.Symbol)
	}

	b.log.Debugw("order filled",
		"portfolioID", portfolioID,
		"symbol", order.Symbol,
		"quantity", order.Quantity,
		"fillPrice", price,
		"fee", fee,
	)
	return nil
}

func (b *SimulatedBrokerage) getPortfolio(portfolioID string) (*brokeragePortfolio, error) {
	portfolio, ok := b.portfolios[portfolioID]
	if !ok {
		return nil, fmt.Errorf("portfolio %q does not exist", portfolioID)
	}
	return portfolio, nil
}
