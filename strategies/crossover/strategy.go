package crossover

import (
	"backsim/types"

	"github.com/shopspring/decimal"
)

const (
	DefaultFastPeriod = 5
	DefaultSlowPeriod = 20
)

// sma is a simple moving average over a fixed window of closes.
type sma struct {
	period int
	window []decimal.Decimal
	sum    decimal.Decimal
}

func newSMA(period int) *sma {
	return &sma{period: period}
}

func (m *sma) next(v decimal.Decimal) decimal.Decimal {
	m.window = append(m.window, v)
	m.sum = m.sum.Add(v)
	if len(m.window) > m.period {
		m.sum = m.sum.Sub(m.window[0])
		m.window = m.window[1:]
	}
	return m.sum.Div(decimal.NewFromInt(int64(len(m.window))))
}

func (m *sma) ready() bool {
	return len(m.window) == m.period
}

// Strategy goes long while the fast average of closes is above the slow one
// and sells out once it drops below.
type Strategy struct {
	fast    *sma
	slow    *sma
	pending int
	qty     int64
}

func New(fastPeriod, slowPeriod int) *Strategy {
	if fastPeriod <= 0 {
		fastPeriod = DefaultFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = DefaultSlowPeriod
	}
	return &Strategy{fast: newSMA(fastPeriod), slow: newSMA(slowPeriod)}
}

func (s *Strategy) MakeDecision(bar types.Bar) types.Decision {
	// averages advance on every bar, pending or not
	fast := s.fast.next(bar.Close)
	slow := s.slow.next(bar.Close)

	if s.pending > 0 || !s.slow.ready() {
		return types.Hold(bar)
	}
	if s.qty == 0 && fast.GreaterThan(slow) {
		return types.NewDecision(bar.Symbol, types.DecisionBuy, bar.Time)
	}
	if s.qty > 0 && fast.LessThan(slow) {
		return types.NewDecision(bar.Symbol, types.DecisionSell, bar.Time)
	}
	return types.Hold(bar)
}

func (s *Strategy) OnOrder(order types.Order) {
	if order.Status == types.OrderCreated {
		s.pending++
		return
	}
	s.pending--
}

func (s *Strategy) OnFill(fill types.Fill) {
	s.qty += fill.Quantity
}
