package engine

import (
	"backsim/types"
	"fmt"

	"github.com/shopspring/decimal"
)

// Venue executes orders against the latest bar it was shown.
type Venue interface {
	SetLatestBar(bar types.Bar)
	Execute(order types.Order, wallet Wallet) (types.Fill, error)
}

// Broker is the simulated venue for a single symbol. Orders fill at the open of
// the latest bar, bounded by the bar volume, the wallet balance and the units the
// broker has bought so far.
type Broker struct {
	latest     *types.Bar
	commission CommissionModel
	slippage   SlippageModel
	position   int64
}

func NewBroker(cfg *BrokerConfig) *Broker {
	return &Broker{
		commission: cfg.commission,
		slippage:   cfg.slippage,
	}
}

func (b *Broker) SetLatestBar(bar types.Bar) {
	b.latest = &bar
}

// Position is the number of units bought minus units sold through this broker.
func (b *Broker) Position() int64 {
	return b.position
}

// Execute tries to fill the order at the current price.
//
//   - ErrOrderExpired: the order lifetime is used up.
//   - ErrNotExists: no bar, or no positive price, yet.
//   - ErrNotSatisfied: the limit or stop condition failed.
//   - ErrOutOfBounds: nothing can be filled with the cash, volume or units available.
//   - ErrFatal: the wallet refused a payment that was checked beforehand.
//
// An accepted fill is paid through the wallet exactly once, buys and sells alike.
func (b *Broker) Execute(order types.Order, wallet Wallet) (types.Fill, error) {
	if order.Expired() {
		return types.Fill{}, fmt.Errorf("%w: %s %s", ErrOrderExpired, order.Symbol, order.ID)
	}
	if b.latest == nil {
		return types.Fill{}, fmt.Errorf("%w: latest price for %s", ErrNotExists, order.Symbol)
	}
	if order.Quantity == 0 {
		return types.Fill{}, fmt.Errorf("%w: zero quantity order", ErrOutOfBounds)
	}
	bar := b.latest
	buy := order.IsBuy()

	price := bar.Open
	if b.slippage != nil {
		price = b.slippage.Apply(price, buy)
	}
	if !price.IsPositive() {
		return types.Fill{}, fmt.Errorf("%w: no positive price for %s at %s", ErrNotExists, order.Symbol, bar.Time)
	}

	if order.Type == types.TypeLimit && !limitSatisfied(order, price) {
		return types.Fill{}, fmt.Errorf("%w: limit %s at price %s", ErrNotSatisfied, order.Limit, price)
	}

	cash := wallet.Balance()
	qty := order.Quantity
	if buy {
		projected := b.commission.Cost(price.Mul(decimal.NewFromInt(qty)))
		qty = min(qty,
			bar.Volume.Floor().IntPart(),
			cash.Sub(projected).Div(price).Floor().IntPart(),
		)
		if qty <= 0 {
			return types.Fill{}, fmt.Errorf("%w: cannot afford %s at %s with cash %s", ErrOutOfBounds, order.Symbol, price, cash)
		}
	} else {
		qty = max(qty, -b.position)
		if qty >= 0 {
			return types.Fill{}, fmt.Errorf("%w: no %s units to sell", ErrOutOfBounds, order.Symbol)
		}
	}

	fill := types.Fill{
		Symbol:   order.Symbol,
		Quantity: qty,
		Price:    price,
		Cost:     b.commission.Cost(price.Mul(decimal.NewFromInt(qty).Abs())),
		Time:     bar.Time,
	}
	amount := fill.CashDelta()
	if !buy && cash.Sub(amount).IsNegative() {
		return types.Fill{}, fmt.Errorf("%w: commission %s exceeds cash after sale", ErrOutOfBounds, fill.Cost)
	}

	if _, ok := wallet.Pay(amount); !ok {
		return types.Fill{}, fmt.Errorf("%w: wallet refused %s with balance %s", ErrFatal, amount, cash)
	}
	b.position += qty
	return fill, nil
}

func limitSatisfied(order types.Order, price decimal.Decimal) bool {
	if order.IsBuy() {
		return price.LessThanOrEqual(order.Limit)
	}
	if price.GreaterThanOrEqual(order.Limit) {
		return true
	}
	return order.Stop != nil && price.LessThanOrEqual(*order.Stop)
}
