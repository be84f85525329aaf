package calculator

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// EquityPoint is one snapshot of total portfolio equity on the curve
// produced by a backtest run.
type EquityPoint struct {
	Date        time.Time
	TotalEquity decimal.Decimal
}

type CalculateMetricsResult struct {
	AnnualizedReturn float64
	AnnualizedStdev  float64
	SharpeRatio      float64
	MaxDrawdown      float64
}

// CalculateMetrics computes annualized performance statistics over an
// equity curve. It assumes roughly periodic snapshots and annualizes per
// the number of curve intervals per year implied by the date range.
func CalculateMetrics(equityCurve []EquityPoint, riskFreeRate float64) (*CalculateMetricsResult, error) {
	if len(equityCurve) < 2 {
		return nil, fmt.Errorf("cannot calculate metrics from %d equity points; need at least 2", len(equityCurve))
	}

	returns, err := periodReturns(equityCurve)
	if err != nil {
		return nil, err
	}

	periodsPerYear := periodsPerYear(equityCurve)

	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate stdev of returns: %w", err)
	}
	annualizedStdev := stdev * math.Sqrt(periodsPerYear)

	first := equityCurve[0].TotalEquity.InexactFloat64()
	last := equityCurve[len(equityCurve)-1].TotalEquity.InexactFloat64()
	years := float64(len(returns)) / periodsPerYear
	annualizedReturn := math.Pow(last/first, 1.0/years) - 1.0

	sharpe := 0.0
	if annualizedStdev > 0 {
		sharpe = (annualizedReturn - riskFreeRate) / annualizedStdev
	}

	return &CalculateMetricsResult{
		AnnualizedReturn: annualizedReturn,
		AnnualizedStdev:  annualizedStdev,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDrawdown(equityCurve),
	}, nil
}

func periodReturns(equityCurve []EquityPoint) ([]float64, error) {
	returns := make([]float64, 0, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1].TotalEquity
		if !prev.IsPositive() {
			return nil, fmt.Errorf("equity curve has non-positive value %s at %s", prev, equityCurve[i-1].Date)
		}
		change := equityCurve[i].TotalEquity.Sub(prev).Div(prev)
		returns = append(returns, change.InexactFloat64())
	}
	return returns, nil
}

// periodsPerYear derives the snapshot frequency from the curve's date span.
// Falls back to daily when the span is degenerate.
func periodsPerYear(equityCurve []EquityPoint) float64 {
	span := equityCurve[len(equityCurve)-1].Date.Sub(equityCurve[0].Date)
	if span <= 0 {
		return tradingDaysPerYear
	}
	intervals := float64(len(equityCurve) - 1)
	years := span.Hours() / (24.0 * 365.25)
	if years <= 0 {
		return tradingDaysPerYear
	}
	return intervals / years
}

// maxDrawdown returns the largest peak-to-trough equity decline as a
// positive fraction.
func maxDrawdown(equityCurve []EquityPoint) float64 {
	peak := equityCurve[0].TotalEquity.InexactFloat64()
	worst := 0.0
	for _, point := range equityCurve {
		equity := point.TotalEquity.InexactFloat64()
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			drawdown := (peak - equity) / peak
			if drawdown > worst {
				worst = drawdown
			}
		}
	}
	return worst
}
