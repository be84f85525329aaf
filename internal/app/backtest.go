package app

import (
	"context"
	"fmt"
	"time"

	"allocator/internal/alpha"
	"allocator/internal/calculator"
	"allocator/internal/optimiser"
	"allocator/internal/repository"
	"allocator/internal/service"
	"allocator/internal/sizer"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TargetAllocationSnapshot is one recorded target weight vector, keyed by
// rebalance timestamp.
type TargetAllocationSnapshot struct {
	Date    time.Time
	Weights map[string]float64
}

type BacktestResult struct {
	EquityCurve       []calculator.EquityPoint
	TargetAllocations []TargetAllocationSnapshot
	Metrics           *calculator.CalculateMetricsResult
}

// BacktestHandler drives one simulated trading run: for each scheduled
// rebalance timestamp it advances the brokerage clock, constructs the
// rebalance order list and executes it, then snapshots portfolio equity.
// Cycles run strictly sequentially; a failing cycle aborts the run.
type BacktestHandler struct {
	Brokerage            *repository.SimulatedBrokerage
	BrokeragePortfolioID string
	Construction         service.PortfolioConstructionService
	Execution            service.ExecutionService
	Schedule             []time.Time
	RiskFreeRate         float64
	Log                  *zap.SugaredLogger

	targetAllocations []TargetAllocationSnapshot
}

// RecordTargetAllocations implements service.AllocationsRecorder.
func (h *BacktestHandler) RecordTargetAllocations(date time.Time, weights map[string]float64) {
	h.targetAllocations = append(h.targetAllocations, TargetAllocationSnapshot{
		Date:    date,
		Weights: weights,
	})
}

func (h *BacktestHandler) Run(ctx context.Context) (*BacktestResult, error) {
	if len(h.Schedule) == 0 {
		return nil, fmt.Errorf("backtest schedule is empty")
	}

	h.targetAllocations = nil
	equityCurve := make([]calculator.EquityPoint, 0, len(h.Schedule))

	for _, date := range h.Schedule {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest aborted: %w", err)
		}

		h.Brokerage.SetCurrentTime(date)

		orders, err := h.Construction.Construct(date)
		if err != nil {
			return nil, fmt.Errorf("rebalance cycle at %s failed: %w", date, err)
		}
		if err := h.Execution.Execute(date, orders); err != nil {
			return nil, fmt.Errorf("execution at %s failed: %w", date, err)
		}

		equity, err := h.Brokerage.GetPortfolioTotalEquity(h.BrokeragePortfolioID)
		if err != nil {
			return nil, fmt.Errorf("failed to value portfolio at %s: %w", date, err)
		}
		equityCurve = append(equityCurve, calculator.EquityPoint{Date: date, TotalEquity: equity})

		h.Log.Infow("rebalance cycle complete",
			"date", date,
			"numOrders", len(orders),
			"totalEquity", equity,
		)
	}

	result := &BacktestResult{
		EquityCurve:       equityCurve,
		TargetAllocations: h.targetAllocations,
	}
	if len(equityCurve) >= 2 {
		metrics, err := calculator.CalculateMetrics(equityCurve, h.RiskFreeRate)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate performance metrics: %w", err)
		}
		result.Metrics = metrics
	}
	return result, nil
}

// NewBacktestFromConfig assembles the full pipeline for the cmd runner:
// CSV prices, a static universe over the configured signal symbols, fixed
// alpha signals through a fixed-weight optimiser, the posture-appropriate
// order sizer, and a freshly funded simulated brokerage portfolio.
func NewBacktestFromConfig(cfg *BacktestConfig, log *zap.SugaredLogger) (*BacktestHandler, error) {
	const portfolioID = "backtest"

	prices, err := repository.LoadDailyBarCSVDir(cfg.CSVDir, cfg.AdjustPrices)
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}

	var feeModel repository.FeeModel = repository.ZeroFeeModel{}
	if cfg.CommissionPct > 0 || cfg.TaxPct > 0 {
		feeModel = repository.NewPercentFeeModel(cfg.CommissionPct, cfg.TaxPct)
	}

	schedule, err := cfg.schedule()
	if err != nil {
		return nil, err
	}
	if len(schedule) == 0 {
		return nil, fmt.Errorf("schedule %q produced no rebalance timestamps between %s and %s", cfg.Schedule, cfg.StartDate, cfg.EndDate)
	}

	initialCash := decimal.NewFromFloat(cfg.InitialCash)
	brokerage, err := repository.NewSimulatedBrokerage(schedule[0], initialCash, prices, feeModel, log)
	if err != nil {
		return nil, err
	}
	if err := brokerage.CreatePortfolio(portfolioID); err != nil {
		return nil, err
	}
	if err := brokerage.SubscribeFundsToPortfolio(portfolioID, initialCash); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(cfg.SignalWeights))
	for symbol := range cfg.SignalWeights {
		symbols = append(symbols, symbol)
	}
	universe := repository.NewStaticUniverse(symbols)

	var orderSizer sizer.OrderSizer
	if cfg.LongShort {
		orderSizer, err = sizer.NewLongShortLeveragedSizer(brokerage, portfolioID, prices, cfg.GrossLeverage)
	} else {
		orderSizer, err = sizer.NewDollarWeightedCashBufferedSizer(brokerage, portfolioID, prices, cfg.CashBufferPercentage)
	}
	if err != nil {
		return nil, err
	}

	handler := &BacktestHandler{
		Brokerage:            brokerage,
		BrokeragePortfolioID: portfolioID,
		Schedule:             schedule,
		RiskFreeRate:         cfg.RiskFreeRate,
		Log:                  log,
	}

	handler.Construction = service.NewPortfolioConstructionService(service.NewPortfolioConstructionServiceInput{
		Brokerage:            brokerage,
		BrokeragePortfolioID: portfolioID,
		Universe:             universe,
		Optimiser:            optimiser.NewFixedWeightOptimiser(),
		OrderSizer:           orderSizer,
		AlphaModel:           alpha.NewFixedSignals(cfg.SignalWeights),
		Recorder:             handler,
		Log:                  log,
	})
	handler.Execution = service.NewExecutionService(service.NewExecutionServiceInput{
		Brokerage:            brokerage,
		BrokeragePortfolioID: portfolioID,
		SubmitOrders:         !cfg.DryRun,
		Log:                  log,
	})

	return handler, nil
}
