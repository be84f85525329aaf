package repository

import "github.com/shopspring/decimal"

// FeeModel estimates the total cost (commission plus tax) of transacting a
// given dollar consideration of an asset. Quantity is passed through for
// brokers whose fee schedules are per-share; the percent and zero models
// ignore it.
type FeeModel interface {
	CalcCommission(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal
	CalcTax(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal
	CalcTotalCost(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal
}

// ZeroFeeModel charges no commission or tax. Default for the simulated
// brokerage.
type ZeroFeeModel struct{}

func (ZeroFeeModel) CalcCommission(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (ZeroFeeModel) CalcTax(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (ZeroFeeModel) CalcTotalCost(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// PercentFeeModel charges flat percentages of the absolute consideration
// for commission and tax. Rates are fractional, e.g. 0.001 is 0.1%.
type PercentFeeModel struct {
	commissionPct decimal.Decimal
	taxPct        decimal.Decimal
}

func NewPercentFeeModel(commissionPct, taxPct float64) PercentFeeModel {
	return PercentFeeModel{
		commissionPct: decimal.NewFromFloat(commissionPct),
		taxPct:        decimal.NewFromFloat(taxPct),
	}
}

func (m PercentFeeModel) CalcCommission(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	return m.commissionPct.Mul(consideration.Abs())
}

func (m PercentFeeModel) CalcTax(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	return m.taxPct.Mul(consideration.Abs())
}

func (m PercentFeeModel) CalcTotalCost(symbol string, quantity int64, consideration decimal.Decimal) decimal.Decimal {
	commission := m.CalcCommission(symbol, quantity, consideration)
	tax := m.CalcTax(symbol, quantity, consideration)
	return commission.Add(tax)
}
