package types

import "time"

type DecisionKind string

const (
	DecisionHold  DecisionKind = "HOLD"
	DecisionBuy   DecisionKind = "BUY"
	DecisionSell  DecisionKind = "SELL"
	DecisionClose DecisionKind = "CLOSE"
)

type Decision struct {
	Symbol string
	Time   time.Time
	Kind   DecisionKind
}

func NewDecision(symbol string, kind DecisionKind, t time.Time) Decision {
	return Decision{
		Symbol: symbol,
		Time:   t,
		Kind:   kind,
	}
}

// Hold is shorthand for a decision that never produces an order.
func Hold(bar Bar) Decision {
	return NewDecision(bar.Symbol, DecisionHold, bar.Time)
}
