package types

type OrderType string

type OrderStatus string

const (
	OrderCreated          OrderStatus = "CREATED"
	OrderCompleted        OrderStatus = "COMPLETED"
	OrderPartialCompleted OrderStatus = "PARTIAL_COMPLETED"
	OrderExpired          OrderStatus = "EXPIRED"
	OrderCanceled         OrderStatus = "CANCELED"

	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// Terminal reports whether no further execution attempts will be made.
func (s OrderStatus) Terminal() bool {
	return s != OrderCreated
}
