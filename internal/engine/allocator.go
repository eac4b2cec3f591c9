package engine

import (
	"backsim/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Allocator turns a decision into at most one sized order.
type Allocator interface {
	Allocate(decision types.Decision, position types.PositionView) (types.Order, bool)
}

// FixedSizeAllocator trades a constant number of units per decision.
type FixedSizeAllocator struct {
	size int64
	cfg  *OrderConfig
}

func NewFixedSizeAllocator(size int64, cfg *OrderConfig) *FixedSizeAllocator {
	if cfg == nil {
		cfg = NewOrderConfig()
	}
	return &FixedSizeAllocator{size: size, cfg: cfg}
}

func (a *FixedSizeAllocator) Allocate(decision types.Decision, position types.PositionView) (types.Order, bool) {
	var qty int64
	switch decision.Kind {
	case types.DecisionBuy:
		qty = a.size
	case types.DecisionSell:
		qty = -min(a.size, position.Quantity)
	case types.DecisionClose:
		qty = -position.Quantity
	default:
		return types.Order{}, false
	}
	return a.cfg.newOrder(decision, qty, position)
}

// FixedValueAllocator buys as many whole units as a target value affords at the
// last close and sells out the whole position.
type FixedValueAllocator struct {
	value decimal.Decimal
	cfg   *OrderConfig
}

func NewFixedValueAllocator(value decimal.Decimal, cfg *OrderConfig) *FixedValueAllocator {
	if cfg == nil {
		cfg = NewOrderConfig()
	}
	return &FixedValueAllocator{value: value, cfg: cfg}
}

func (a *FixedValueAllocator) Allocate(decision types.Decision, position types.PositionView) (types.Order, bool) {
	var qty int64
	switch decision.Kind {
	case types.DecisionBuy:
		if !position.HasClose || !position.LastClose.IsPositive() {
			a.cfg.log.WithField("symbol", decision.Symbol).Warn("no close price to size a fixed value order")
			return types.Order{}, false
		}
		qty = a.value.Div(position.LastClose).Floor().IntPart()
	case types.DecisionSell, types.DecisionClose:
		qty = -position.Quantity
	default:
		return types.Order{}, false
	}
	return a.cfg.newOrder(decision, qty, position)
}

func (c *OrderConfig) newOrder(decision types.Decision, qty int64, position types.PositionView) (types.Order, bool) {
	if qty == 0 {
		c.log.WithFields(logrus.Fields{
			"symbol":   decision.Symbol,
			"decision": decision.Kind,
		}).Warn("allocated zero quantity, no order placed")
		return types.Order{}, false
	}

	var order types.Order
	if c.limitOffset.IsPositive() && position.HasClose {
		one := decimal.NewFromInt(1)
		last := position.LastClose
		if qty > 0 {
			order = types.NewLimitOrder(decision.Symbol, qty, last.Mul(one.Sub(c.limitOffset)), nil, decision.Time)
		} else {
			var stop *decimal.Decimal
			if c.stopOffset.IsPositive() {
				s := last.Mul(one.Sub(c.stopOffset))
				stop = &s
			}
			order = types.NewLimitOrder(decision.Symbol, qty, last.Mul(one.Add(c.limitOffset)), stop, decision.Time)
		}
	} else {
		order = types.NewMarketOrder(decision.Symbol, qty, decision.Time)
	}
	if c.lifetime != nil {
		order = order.WithLifetime(*c.lifetime)
	}
	return order, true
}
