package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order represents a single desired trade of an integral quantity of one
// asset, sent from the construction model to a brokerage for execution.
// The sign of Quantity encodes direction: positive buys, negative sells
// (or shorts). Orders are immutable after construction and are never
// created with a zero quantity by the rebalance diff.
type Order struct {
	CreatedAt  time.Time
	Symbol     string
	Quantity   int64
	Commission decimal.Decimal
	OrderID    string
}

// NewOrder creates an Order with a generated ID and zero commission. The
// commission is resolved by the brokerage fee model at execution time
// unless overridden via NewOrderWithCommission.
func NewOrder(createdAt time.Time, symbol string, quantity int64) Order {
	return NewOrderWithCommission(createdAt, symbol, quantity, decimal.Zero)
}

// NewOrderWithCommission creates an Order with a known commission,
// bypassing the brokerage fee model.
func NewOrderWithCommission(createdAt time.Time, symbol string, quantity int64, commission decimal.Decimal) Order {
	return Order{
		CreatedAt:  createdAt,
		Symbol:     symbol,
		Quantity:   quantity,
		Commission: commission,
		OrderID:    uuid.NewString(),
	}
}

// Direction returns +1 for buys and -1 for sells/shorts.
func (o Order) Direction() int64 {
	if o.Quantity < 0 {
		return -1
	}
	return 1
}

// EqualIgnoringID reports whether two orders carry the same trade,
// disregarding the generated order ID. Used when comparing generated
// orders against expected ones in tests.
func (o Order) EqualIgnoringID(other Order) bool {
	return o.CreatedAt.Equal(other.CreatedAt) &&
		o.Symbol == other.Symbol &&
		o.Quantity == other.Quantity &&
		o.Commission.Equal(other.Commission)
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order(createdAt=%s, symbol=%s, quantity=%d, commission=%s, orderID=%s)",
		o.CreatedAt.Format(time.RFC3339), o.Symbol, o.Quantity, o.Commission, o.OrderID,
	)
}
