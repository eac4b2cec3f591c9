package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is an executed trade. Quantity is signed like the order that produced it
// and Cost is the commission charged on top of Quantity * Price.
type Fill struct {
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Cost     decimal.Decimal
	Time     time.Time
}

// Value is the signed notional of the fill, excluding commission.
func (f Fill) Value() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}

// CashDelta is what the fill takes out of the wallet. Negative for sells.
func (f Fill) CashDelta() decimal.Decimal {
	return f.Value().Add(f.Cost)
}
