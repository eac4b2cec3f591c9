package engine

import (
	"backsim/types"
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is the inventory and PnL bookkeeping for one symbol. It is not safe
// for concurrent use; the Portfolio serializes access.
type Position struct {
	symbol       string
	quantity     int64
	lastClose    decimal.Decimal
	hasClose     bool
	pnlSeen      bool
	stats        types.PositionStats
	transactions []types.Fill
}

func NewPosition(symbol string) *Position {
	return &Position{symbol: symbol}
}

// ApplyFill books a fill. A fill that would take the quantity below zero is
// rejected with ErrOutOfBounds and leaves the position untouched.
func (p *Position) ApplyFill(fill types.Fill) error {
	if p.quantity+fill.Quantity < 0 {
		return fmt.Errorf("%w: not enough quantity for %s, current %d, need %d",
			ErrOutOfBounds, p.symbol, p.quantity, -fill.Quantity)
	}
	p.quantity += fill.Quantity
	p.transactions = append(p.transactions, fill)

	p.stats.Cost = p.stats.Cost.Add(fill.Cost)
	value := fill.Value()
	if fill.Quantity < 0 {
		p.stats.QtySold += -fill.Quantity
		p.stats.ValueSold = p.stats.ValueSold.Add(value.Neg())
	} else {
		p.stats.QtyBought += fill.Quantity
		p.stats.ValueBought = p.stats.ValueBought.Add(value)
		// Most cash the position has had tied up at once.
		p.stats.MaxCash = decimal.Max(p.stats.MaxCash, value.Add(fill.Cost).Sub(p.stats.PnL))
	}
	p.updatePnL()
	return nil
}

func (p *Position) MarkToMarket(bar types.Bar) {
	p.lastClose = bar.Close
	p.hasClose = true
	p.updatePnL()
}

func (p *Position) Quantity() int64 {
	return p.quantity
}

// AvgPrice is the mean traded price over both sides.
func (p *Position) AvgPrice() decimal.Decimal {
	traded := p.stats.QtyBought + p.stats.QtySold
	if traded <= 0 {
		return decimal.Zero
	}
	return p.stats.ValueSold.Add(p.stats.ValueBought).Div(decimal.NewFromInt(traded))
}

func (p *Position) PnL() decimal.Decimal {
	price := p.AvgPrice()
	if p.hasClose {
		price = p.lastClose
	}
	return price.Mul(decimal.NewFromInt(p.quantity)).
		Add(p.stats.ValueSold).
		Sub(p.stats.ValueBought).
		Sub(p.stats.Cost)
}

func (p *Position) Transactions() []types.Fill {
	return append([]types.Fill(nil), p.transactions...)
}

func (p *Position) updatePnL() {
	pnl := p.PnL()
	p.stats.PnL = pnl
	if !p.pnlSeen {
		p.stats.MaxPnL, p.stats.MinPnL = pnl, pnl
		p.pnlSeen = true
	} else {
		p.stats.MaxPnL = decimal.Max(p.stats.MaxPnL, pnl)
		p.stats.MinPnL = decimal.Min(p.stats.MinPnL, pnl)
	}
	if !p.stats.MaxCash.IsZero() {
		p.stats.PnLRatio = pnl.Div(p.stats.MaxCash)
	}
}

func (p *Position) View() types.PositionView {
	return types.PositionView{
		Symbol:    p.symbol,
		Quantity:  p.quantity,
		LastClose: p.lastClose,
		HasClose:  p.hasClose,
		AvgPrice:  p.AvgPrice(),
		Stats:     p.stats,
	}
}
