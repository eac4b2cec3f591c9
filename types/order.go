package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a sized request to trade. A positive Quantity buys, a negative one sells.
// Limit and Stop are only read for limit orders. A nil Lifetime retries forever.
type Order struct {
	ID       uuid.UUID
	Symbol   string
	Type     OrderType
	Limit    decimal.Decimal
	Stop     *decimal.Decimal
	Quantity int64
	Time     time.Time
	Lifetime *int
	Status   OrderStatus
}

func NewMarketOrder(symbol string, quantity int64, createdAt time.Time) Order {
	return Order{
		ID:       uuid.New(),
		Symbol:   symbol,
		Type:     TypeMarket,
		Quantity: quantity,
		Time:     createdAt,
		Status:   OrderCreated,
	}
}

func NewLimitOrder(symbol string, quantity int64, limit decimal.Decimal, stop *decimal.Decimal, createdAt time.Time) Order {
	o := NewMarketOrder(symbol, quantity, createdAt)
	o.Type = TypeLimit
	o.Limit = limit
	o.Stop = stop
	return o
}

func (o Order) IsBuy() bool {
	return o.Quantity > 0
}

func (o Order) WithLifetime(lifetime int) Order {
	o.Lifetime = &lifetime
	return o
}

// Expired reports whether the remaining lifetime is used up.
func (o Order) Expired() bool {
	return o.Lifetime != nil && *o.Lifetime <= 0
}

// DecayLifetime returns a copy with one less attempt left. Orders without a
// lifetime are returned unchanged.
func (o Order) DecayLifetime() Order {
	if o.Lifetime == nil {
		return o
	}
	left := *o.Lifetime - 1
	if left < 0 {
		left = 0
	}
	o.Lifetime = &left
	return o
}
