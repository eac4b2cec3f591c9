package types

type EventKind string

const (
	EventMarket   EventKind = "MARKET"
	EventDecision EventKind = "DECISION"
	EventOrder    EventKind = "ORDER"
	EventFill     EventKind = "FILL"
)

// Event is one of MarketEvent, DecisionEvent, OrderEvent or FillEvent.
type Event interface {
	Kind() EventKind
}

type MarketEvent struct {
	Bar Bar
}

type DecisionEvent struct {
	Decision Decision
}

type OrderEvent struct {
	Order Order
}

type FillEvent struct {
	Fill Fill
}

func (MarketEvent) Kind() EventKind   { return EventMarket }
func (DecisionEvent) Kind() EventKind { return EventDecision }
func (OrderEvent) Kind() EventKind    { return EventOrder }
func (FillEvent) Kind() EventKind     { return EventFill }
