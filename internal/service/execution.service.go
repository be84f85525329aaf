package service

import (
	"fmt"
	"time"

	"allocator/internal/domain"
	"allocator/internal/repository"

	"go.uber.org/zap"
)

// ExecutionAlgo transforms a proposed order batch before submission, e.g.
// to slice large orders. The input must not be mutated.
type ExecutionAlgo interface {
	Transform(date time.Time, orders []domain.Order) []domain.Order
}

// MarketOrderExecutionAlgo forwards the batch unchanged: every rebalance
// order becomes a single market order.
type MarketOrderExecutionAlgo struct{}

func (MarketOrderExecutionAlgo) Transform(date time.Time, orders []domain.Order) []domain.Order {
	return orders
}

// ExecutionService applies the execution algorithm to a rebalance order
// batch and forwards the result to the brokerage. With submission disabled
// orders are computed but discarded, which gives a dry-run/audit mode.
type ExecutionService interface {
	Execute(date time.Time, rebalanceOrders []domain.Order) error
}

type executionHandler struct {
	Brokerage            repository.Brokerage
	BrokeragePortfolioID string
	ExecutionAlgo        ExecutionAlgo
	SubmitOrders         bool
	Log                  *zap.SugaredLogger
}

type NewExecutionServiceInput struct {
	Brokerage            repository.Brokerage
	BrokeragePortfolioID string
	ExecutionAlgo        ExecutionAlgo // defaults to MarketOrderExecutionAlgo
	SubmitOrders         bool
	Log                  *zap.SugaredLogger
}

func NewExecutionService(in NewExecutionServiceInput) ExecutionService {
	algo := in.ExecutionAlgo
	if algo == nil {
		algo = MarketOrderExecutionAlgo{}
	}
	return executionHandler{
		Brokerage:            in.Brokerage,
		BrokeragePortfolioID: in.BrokeragePortfolioID,
		ExecutionAlgo:        algo,
		SubmitOrders:         in.SubmitOrders,
		Log:                  in.Log,
	}
}

func (h executionHandler) Execute(date time.Time, rebalanceOrders []domain.Order) error {
	finalOrders := h.ExecutionAlgo.Transform(date, rebalanceOrders)

	if !h.SubmitOrders {
		if h.Log != nil && len(finalOrders) > 0 {
			h.Log.Infow("order submission disabled; discarding orders",
				"date", date,
				"numOrders", len(finalOrders),
			)
		}
		return nil
	}

	for _, order := range finalOrders {
		if err := h.Brokerage.SubmitOrder(h.BrokeragePortfolioID, order); err != nil {
			return fmt.Errorf("failed to submit order for %s (quantity %d): %w", order.Symbol, order.Quantity, err)
		}
	}
	return nil
}
