package service

import (
	"fmt"
	"sort"
	"time"

	"allocator/internal/alpha"
	"allocator/internal/domain"
	"allocator/internal/optimiser"
	"allocator/internal/repository"
	"allocator/internal/sizer"

	"go.uber.org/zap"
)

// AllocationsRecorder receives a snapshot of the full target weight vector
// at each rebalance, for observability. Recording is best-effort: the
// construction cycle never fails because of it.
type AllocationsRecorder interface {
	RecordTargetAllocations(date time.Time, weights map[string]float64)
}

// PortfolioConstructionService turns alpha/risk model forecasts into a list
// of rebalancing orders against the current brokerage holdings. It does not
// submit the orders; that is the execution service's job.
type PortfolioConstructionService interface {
	Construct(date time.Time) ([]domain.Order, error)
}

type portfolioConstructionHandler struct {
	Brokerage            repository.Brokerage
	BrokeragePortfolioID string
	Universe             repository.UniverseRepository
	Optimiser            optimiser.Optimiser
	OrderSizer           sizer.OrderSizer
	AlphaModel           alpha.Model         // optional
	RiskModel            alpha.RiskModel     // optional
	Recorder             AllocationsRecorder // optional
	Log                  *zap.SugaredLogger
}

type NewPortfolioConstructionServiceInput struct {
	Brokerage            repository.Brokerage
	BrokeragePortfolioID string
	Universe             repository.UniverseRepository
	Optimiser            optimiser.Optimiser
	OrderSizer           sizer.OrderSizer
	AlphaModel           alpha.Model
	RiskModel            alpha.RiskModel
	Recorder             AllocationsRecorder
	Log                  *zap.SugaredLogger
}

func NewPortfolioConstructionService(in NewPortfolioConstructionServiceInput) PortfolioConstructionService {
	return portfolioConstructionHandler{
		Brokerage:            in.Brokerage,
		BrokeragePortfolioID: in.BrokeragePortfolioID,
		Universe:             in.Universe,
		Optimiser:            in.Optimiser,
		OrderSizer:           in.OrderSizer,
		AlphaModel:           in.AlphaModel,
		RiskModel:            in.RiskModel,
		Recorder:             in.Recorder,
		Log:                  in.Log,
	}
}

func (h portfolioConstructionHandler) Construct(date time.Time) ([]domain.Order, error) {
	// Without an alpha model every universe asset starts at zero weight,
	// which liquidates anything currently held.
	var weights map[string]float64
	if h.AlphaModel != nil {
		weights = h.AlphaModel.Weights(date)
	} else {
		weights = domain.ZeroWeights(h.Universe.GetAssets(date))
	}

	if h.RiskModel != nil {
		weights = h.RiskModel.Adjust(date, weights)
	}

	optimisedWeights := h.Optimiser.Optimise(date, weights)

	// Any asset held at the brokerage but absent from the optimised weights
	// must carry an explicit zero weight so it is sold out rather than
	// silently ignored.
	fullAssets, err := h.obtainFullAssetList(date)
	if err != nil {
		return nil, err
	}
	fullWeights := domain.MergeWeights(domain.ZeroWeights(fullAssets), optimisedWeights)

	if h.Recorder != nil {
		h.Recorder.RecordTargetAllocations(date, domain.CopyWeights(fullWeights))
	}

	targetPortfolio, err := h.OrderSizer.Size(date, fullWeights)
	if err != nil {
		return nil, fmt.Errorf("failed to size target portfolio: %w", err)
	}

	currentPortfolio, err := h.Brokerage.GetPortfolioHoldings(h.BrokeragePortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain holdings for portfolio %q: %w", h.BrokeragePortfolioID, err)
	}

	orders := generateRebalanceOrders(date, targetPortfolio, currentPortfolio)
	if h.Log != nil {
		h.Log.Debugw("constructed rebalance orders",
			"date", date,
			"numAssets", len(fullAssets),
			"numOrders", len(orders),
		)
	}
	return orders, nil
}

// obtainFullAssetList returns the sorted, duplicate-free union of assets
// currently held at the brokerage and assets in the current universe, so
// held-but-delisted assets are still represented for liquidation.
func (h portfolioConstructionHandler) obtainFullAssetList(date time.Time) ([]string, error) {
	holdings, err := h.Brokerage.GetPortfolioHoldings(h.BrokeragePortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain holdings for portfolio %q: %w", h.BrokeragePortfolioID, err)
	}

	seen := map[string]bool{}
	assets := []string{}
	for symbol := range holdings {
		if !seen[symbol] {
			seen[symbol] = true
			assets = append(assets, symbol)
		}
	}
	for _, symbol := range h.Universe.GetAssets(date) {
		if !seen[symbol] {
			seen[symbol] = true
			assets = append(assets, symbol)
		}
	}
	sort.Strings(assets)
	return assets, nil
}

// generateRebalanceOrders diffs the target against the current portfolio
// and emits one order per asset with a non-zero quantity delta, sorted by
// symbol. Assets missing from either side are treated as zero quantity on
// that side.
func generateRebalanceOrders(date time.Time, target, current domain.TargetPortfolio) []domain.Order {
	deltas := make(map[string]int64, len(target)+len(current))
	for symbol, position := range target {
		deltas[symbol] = position.Quantity - current[symbol].Quantity
	}
	for symbol, position := range current {
		if _, ok := target[symbol]; !ok {
			deltas[symbol] = -position.Quantity
		}
	}

	symbols := make([]string, 0, len(deltas))
	for symbol := range deltas {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	orders := []domain.Order{}
	for _, symbol := range symbols {
		if deltas[symbol] == 0 {
			continue
		}
		orders = append(orders, domain.NewOrder(date, symbol, deltas[symbol]))
	}
	return orders
}
