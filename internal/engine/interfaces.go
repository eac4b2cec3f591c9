package engine

import "backsim/types"

// DecisionMaker is asked once per bar, after the orders from the previous bar
// have been executed, what to do next.
type DecisionMaker interface {
	MakeDecision(bar types.Bar) types.Decision
}

// DataObserver is notified of every bar before pending orders execute.
type DataObserver interface {
	OnData(bar types.Bar)
}

// OrderObserver is notified when an order is created and when it completes,
// expires or is canceled.
type OrderObserver interface {
	OnOrder(order types.Order)
}

// FillObserver is notified of every fill booked on the portfolio.
type FillObserver interface {
	OnFill(fill types.Fill)
}

// BarFeed yields bars in time order until it reports false.
type BarFeed interface {
	Next() (types.Bar, bool)
}

// Hook observes every event a loop handles, right after it was handled.
type Hook interface {
	OnEvent(symbol string, event types.Event)
}

type HookFunc func(symbol string, event types.Event)

func (f HookFunc) OnEvent(symbol string, event types.Event) {
	f(symbol, event)
}
