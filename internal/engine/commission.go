package engine

import "github.com/shopspring/decimal"

// CommissionModel prices the fee for a trade of the given notional value.
type CommissionModel interface {
	Cost(tradeValue decimal.Decimal) decimal.Decimal
}

// RatioCommission charges a flat fraction of the traded value.
type RatioCommission struct {
	Rate decimal.Decimal
}

func (c RatioCommission) Cost(tradeValue decimal.Decimal) decimal.Decimal {
	if !tradeValue.IsPositive() {
		return decimal.Zero
	}
	return tradeValue.Mul(c.Rate)
}

// TieredCommission charges a fraction of the traded value bounded per order.
// A zero Max means no ceiling.
//
// IBKR "Fixed - IB SmartRouting" for USD Netherlands stocks is:
//   - 0.05% of trade value
//   - Minimum per order: USD 1.70
//   - Maximum per order: USD 39.00
type TieredCommission struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

func IBKRNetherlandsFixedUSD() TieredCommission {
	return TieredCommission{
		Rate: decimal.RequireFromString("0.0005"),
		Min:  decimal.RequireFromString("1.70"),
		Max:  decimal.RequireFromString("39"),
	}
}

func (c TieredCommission) Cost(tradeValue decimal.Decimal) decimal.Decimal {
	if !tradeValue.IsPositive() {
		return decimal.Zero
	}
	fee := tradeValue.Mul(c.Rate)
	if fee.LessThan(c.Min) {
		fee = c.Min
	}
	if c.Max.IsPositive() && fee.GreaterThan(c.Max) {
		fee = c.Max
	}
	return fee
}

// SlippageModel moves the reference price against the trader.
type SlippageModel interface {
	Apply(price decimal.Decimal, buy bool) decimal.Decimal
}

type RatioSlippage struct {
	Ratio decimal.Decimal
}

func (s RatioSlippage) Apply(price decimal.Decimal, buy bool) decimal.Decimal {
	delta := price.Mul(s.Ratio)
	if buy {
		return price.Add(delta)
	}
	return price.Sub(delta)
}

type FixedSlippage struct {
	Amount decimal.Decimal
}

func (s FixedSlippage) Apply(price decimal.Decimal, buy bool) decimal.Decimal {
	if buy {
		return price.Add(s.Amount)
	}
	return price.Sub(s.Amount)
}
