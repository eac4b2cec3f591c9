package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioView struct {
	Cash        decimal.Decimal
	InitialCash decimal.Decimal
	Positions   map[string]PositionView
	Time        time.Time
}

// Value is cash plus every position marked at its last known price.
func (v PortfolioView) Value() decimal.Decimal {
	value := v.Cash
	for _, pos := range v.Positions {
		value = value.Add(pos.MarketValue())
	}
	return value
}

type PositionView struct {
	Symbol    string
	Quantity  int64
	LastClose decimal.Decimal
	HasClose  bool
	AvgPrice  decimal.Decimal
	Stats     PositionStats
}

// MarketValue falls back to the average traded price when no bar has been seen.
func (p PositionView) MarketValue() decimal.Decimal {
	price := p.AvgPrice
	if p.HasClose {
		price = p.LastClose
	}
	return price.Mul(decimal.NewFromInt(p.Quantity))
}

type PositionStats struct {
	PnL         decimal.Decimal
	PnLRatio    decimal.Decimal
	MaxPnL      decimal.Decimal
	MinPnL      decimal.Decimal
	QtyBought   int64
	QtySold     int64
	ValueBought decimal.Decimal
	ValueSold   decimal.Decimal
	Cost        decimal.Decimal
	MaxCash     decimal.Decimal
}

type PortfolioStats struct {
	InitialCash decimal.Decimal
	Cash        decimal.Decimal
	PnL         decimal.Decimal
	PnLRatio    decimal.Decimal
	// Positions are ordered by PnL ratio, best first.
	Positions []PositionView
}
