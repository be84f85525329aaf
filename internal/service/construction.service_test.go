package service

import (
	"testing"
	"time"

	"allocator/internal/alpha"
	"allocator/internal/domain"
	"allocator/internal/optimiser"
	"allocator/internal/repository"
	"allocator/internal/sizer"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var sentinelDate = time.Date(2019, 1, 1, 15, 0, 0, 0, time.UTC)

var orderDiffOpts = []cmp.Option{
	cmpopts.IgnoreFields(domain.Order{}, "OrderID"),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func Test_generateRebalanceOrders(t *testing.T) {
	tests := []struct {
		name     string
		target   domain.TargetPortfolio
		current  domain.TargetPortfolio
		expected []domain.Order
	}{
		{
			name:     "empty target and current portfolios",
			target:   domain.TargetPortfolio{},
			current:  domain.TargetPortfolio{},
			expected: []domain.Order{},
		},
		{
			name:     "identical target and current portfolios",
			target:   domain.TargetPortfolio{"EQ:ABC": {Quantity: 123}, "EQ:DEF": {Quantity: 456}},
			current:  domain.TargetPortfolio{"EQ:ABC": {Quantity: 123}, "EQ:DEF": {Quantity: 456}},
			expected: []domain.Order{},
		},
		{
			name:    "held assets absent from the target are liquidated",
			target:  domain.TargetPortfolio{},
			current: domain.TargetPortfolio{"EQ:ABC": {Quantity: 123}, "EQ:DEF": {Quantity: 456}},
			expected: []domain.Order{
				domain.NewOrder(sentinelDate, "EQ:ABC", -123),
				domain.NewOrder(sentinelDate, "EQ:DEF", -456),
			},
		},
		{
			name:    "empty current portfolio buys the full target",
			target:  domain.TargetPortfolio{"EQ:ABC": {Quantity: 123}, "EQ:DEF": {Quantity: 456}},
			current: domain.TargetPortfolio{},
			expected: []domain.Order{
				domain.NewOrder(sentinelDate, "EQ:ABC", 123),
				domain.NewOrder(sentinelDate, "EQ:DEF", 456),
			},
		},
		{
			name:    "partially overlapping portfolios",
			target:  domain.TargetPortfolio{"EQ:ABC": {Quantity: 123}, "EQ:DEF": {Quantity: 456}},
			current: domain.TargetPortfolio{"EQ:DEF": {Quantity: 217}, "EQ:GHI": {Quantity: 48}},
			expected: []domain.Order{
				domain.NewOrder(sentinelDate, "EQ:ABC", 123),
				domain.NewOrder(sentinelDate, "EQ:DEF", 239),
				domain.NewOrder(sentinelDate, "EQ:GHI", -48),
			},
		},
		{
			name:    "short target positions",
			target:  domain.TargetPortfolio{"EQ:ABC": {Quantity: -100}},
			current: domain.TargetPortfolio{"EQ:ABC": {Quantity: 50}},
			expected: []domain.Order{
				domain.NewOrder(sentinelDate, "EQ:ABC", -150),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orders := generateRebalanceOrders(sentinelDate, tc.target, tc.current)
			require.Empty(t, cmp.Diff(tc.expected, orders, orderDiffOpts...))
		})
	}
}

func Test_obtainFullAssetList(t *testing.T) {
	tests := []struct {
		name     string
		holdings domain.TargetPortfolio
		universe []string
		expected []string
	}{
		{
			name:     "empty holdings and universe",
			holdings: domain.TargetPortfolio{},
			universe: []string{},
			expected: []string{},
		},
		{
			name:     "non-intersecting holdings and universe",
			holdings: domain.TargetPortfolio{"EQ:ABC": {Quantity: 1}, "EQ:DEF": {Quantity: 2}},
			universe: []string{"EQ:123", "EQ:567"},
			expected: []string{"EQ:123", "EQ:567", "EQ:ABC", "EQ:DEF"},
		},
		{
			name:     "partially-intersecting holdings and universe",
			holdings: domain.TargetPortfolio{"EQ:ABC": {Quantity: 1}, "EQ:123": {Quantity: 2}},
			universe: []string{"EQ:123", "EQ:567"},
			expected: []string{"EQ:123", "EQ:567", "EQ:ABC"},
		},
		{
			name:     "fully-intersecting holdings and universe",
			holdings: domain.TargetPortfolio{"EQ:ABC": {Quantity: 1}, "EQ:DEF": {Quantity: 2}},
			universe: []string{"EQ:ABC", "EQ:DEF"},
			expected: []string{"EQ:ABC", "EQ:DEF"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := portfolioConstructionHandler{
				Brokerage:            &recordingBrokerage{holdings: tc.holdings},
				BrokeragePortfolioID: "1234",
				Universe:             repository.NewStaticUniverse(tc.universe),
			}
			assets, err := h.obtainFullAssetList(sentinelDate)
			require.NoError(t, err)
			require.Equal(t, tc.expected, assets)
		})
	}
}

func Test_PortfolioConstructionService_Construct(t *testing.T) {
	newService := func(brokerage *recordingBrokerage, recorder AllocationsRecorder) PortfolioConstructionService {
		prices := stubPrices{asks: map[string]float64{"EQ:AAA": 10.0, "EQ:BBB": 20.0}}
		orderSizer, err := sizer.NewDollarWeightedCashBufferedSizer(brokerage, "1234", prices, 0.05)
		require.NoError(t, err)

		return NewPortfolioConstructionService(NewPortfolioConstructionServiceInput{
			Brokerage:            brokerage,
			BrokeragePortfolioID: "1234",
			Universe:             repository.NewStaticUniverse([]string{"EQ:AAA", "EQ:BBB"}),
			Optimiser:            optimiser.NewFixedWeightOptimiser(),
			OrderSizer:           orderSizer,
			AlphaModel:           alpha.NewFixedSignals(map[string]float64{"EQ:AAA": 0.3, "EQ:BBB": 0.7}),
			Recorder:             recorder,
		})
	}

	t.Run("initial rebalance from an empty portfolio", func(t *testing.T) {
		brokerage := &recordingBrokerage{totalEquity: decimal.NewFromInt(100_000)}
		svc := newService(brokerage, nil)

		orders, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff([]domain.Order{
			domain.NewOrder(sentinelDate, "EQ:AAA", 2850),
			domain.NewOrder(sentinelDate, "EQ:BBB", 3325),
		}, orders, orderDiffOpts...))
	})

	t.Run("repeated construction is deterministic", func(t *testing.T) {
		brokerage := &recordingBrokerage{totalEquity: decimal.NewFromInt(100_000)}
		svc := newService(brokerage, nil)

		first, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		second, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff(first, second, orderDiffOpts...))
	})

	t.Run("already at target emits no orders", func(t *testing.T) {
		brokerage := &recordingBrokerage{
			totalEquity: decimal.NewFromInt(100_000),
			holdings: domain.TargetPortfolio{
				"EQ:AAA": {Quantity: 2850},
				"EQ:BBB": {Quantity: 3325},
			},
		}
		svc := newService(brokerage, nil)

		orders, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		require.Empty(t, orders)
	})

	t.Run("held asset outside the universe is sold out", func(t *testing.T) {
		brokerage := &recordingBrokerage{
			totalEquity: decimal.NewFromInt(100_000),
			holdings:    domain.TargetPortfolio{"EQ:ZZZ": {Quantity: 75}},
		}
		prices := stubPrices{asks: map[string]float64{"EQ:AAA": 10.0, "EQ:BBB": 20.0, "EQ:ZZZ": 5.0}}
		orderSizer, err := sizer.NewDollarWeightedCashBufferedSizer(brokerage, "1234", prices, 0.05)
		require.NoError(t, err)

		svc := NewPortfolioConstructionService(NewPortfolioConstructionServiceInput{
			Brokerage:            brokerage,
			BrokeragePortfolioID: "1234",
			Universe:             repository.NewStaticUniverse([]string{"EQ:AAA", "EQ:BBB"}),
			Optimiser:            optimiser.NewFixedWeightOptimiser(),
			OrderSizer:           orderSizer,
			AlphaModel:           alpha.NewFixedSignals(map[string]float64{"EQ:AAA": 0.3, "EQ:BBB": 0.7}),
		})

		orders, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff([]domain.Order{
			domain.NewOrder(sentinelDate, "EQ:AAA", 2850),
			domain.NewOrder(sentinelDate, "EQ:BBB", 3325),
			domain.NewOrder(sentinelDate, "EQ:ZZZ", -75),
		}, orders, orderDiffOpts...))
	})

	t.Run("no alpha model liquidates current holdings", func(t *testing.T) {
		brokerage := &recordingBrokerage{
			totalEquity: decimal.NewFromInt(100_000),
			holdings:    domain.TargetPortfolio{"EQ:AAA": {Quantity: 100}},
		}
		prices := stubPrices{asks: map[string]float64{"EQ:AAA": 10.0, "EQ:BBB": 20.0}}
		orderSizer, err := sizer.NewDollarWeightedCashBufferedSizer(brokerage, "1234", prices, 0.05)
		require.NoError(t, err)

		svc := NewPortfolioConstructionService(NewPortfolioConstructionServiceInput{
			Brokerage:            brokerage,
			BrokeragePortfolioID: "1234",
			Universe:             repository.NewStaticUniverse([]string{"EQ:AAA", "EQ:BBB"}),
			Optimiser:            optimiser.NewFixedWeightOptimiser(),
			OrderSizer:           orderSizer,
		})

		orders, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		require.Empty(t, cmp.Diff([]domain.Order{
			domain.NewOrder(sentinelDate, "EQ:AAA", -100),
		}, orders, orderDiffOpts...))
	})

	t.Run("recorder receives the full zero-padded weight vector", func(t *testing.T) {
		brokerage := &recordingBrokerage{
			totalEquity: decimal.NewFromInt(100_000),
			holdings:    domain.TargetPortfolio{"EQ:ZZZ": {Quantity: 75}},
		}
		prices := stubPrices{asks: map[string]float64{"EQ:AAA": 10.0, "EQ:BBB": 20.0, "EQ:ZZZ": 5.0}}
		orderSizer, err := sizer.NewDollarWeightedCashBufferedSizer(brokerage, "1234", prices, 0.05)
		require.NoError(t, err)

		recorder := &capturingRecorder{}
		svc := NewPortfolioConstructionService(NewPortfolioConstructionServiceInput{
			Brokerage:            brokerage,
			BrokeragePortfolioID: "1234",
			Universe:             repository.NewStaticUniverse([]string{"EQ:AAA", "EQ:BBB"}),
			Optimiser:            optimiser.NewFixedWeightOptimiser(),
			OrderSizer:           orderSizer,
			AlphaModel:           alpha.NewFixedSignals(map[string]float64{"EQ:AAA": 0.3, "EQ:BBB": 0.7}),
			Recorder:             recorder,
		})

		_, err = svc.Construct(sentinelDate)
		require.NoError(t, err)

		require.Len(t, recorder.weights, 1)
		require.Equal(t, []time.Time{sentinelDate}, recorder.dates)
		require.Empty(t, cmp.Diff(map[string]float64{
			"EQ:AAA": 0.3,
			"EQ:BBB": 0.7,
			"EQ:ZZZ": 0.0,
		}, recorder.weights[0]))
	})

	t.Run("risk model adjustment is applied before optimisation", func(t *testing.T) {
		brokerage := &recordingBrokerage{totalEquity: decimal.NewFromInt(100_000)}
		prices := stubPrices{asks: map[string]float64{"EQ:AAA": 10.0, "EQ:BBB": 20.0}}
		orderSizer, err := sizer.NewDollarWeightedCashBufferedSizer(brokerage, "1234", prices, 0.05)
		require.NoError(t, err)

		svc := NewPortfolioConstructionService(NewPortfolioConstructionServiceInput{
			Brokerage:            brokerage,
			BrokeragePortfolioID: "1234",
			Universe:             repository.NewStaticUniverse([]string{"EQ:AAA", "EQ:BBB"}),
			Optimiser:            optimiser.NewFixedWeightOptimiser(),
			OrderSizer:           orderSizer,
			AlphaModel:           alpha.NewFixedSignals(map[string]float64{"EQ:AAA": 0.3, "EQ:BBB": 0.7}),
			RiskModel:            dropSymbolRiskModel{symbol: "EQ:BBB"},
		})

		orders, err := svc.Construct(sentinelDate)
		require.NoError(t, err)
		// With EQ:BBB zeroed by the risk model, EQ:AAA absorbs the whole
		// buffered allocation after normalization.
		require.Empty(t, cmp.Diff([]domain.Order{
			domain.NewOrder(sentinelDate, "EQ:AAA", 9500),
		}, orders, orderDiffOpts...))
	})
}

type dropSymbolRiskModel struct {
	symbol string
}

func (m dropSymbolRiskModel) Adjust(date time.Time, weights map[string]float64) map[string]float64 {
	adjusted := domain.CopyWeights(weights)
	adjusted[m.symbol] = 0.0
	return adjusted
}
