package donchian

import (
	"backsim/types"

	"github.com/shopspring/decimal"
)

const DefaultPeriod = 20

// Strategy is a long-only Donchian channel breakout. It buys a break of the
// highest high of the preceding period bars and exits on a break of the lowest
// low or when the close falls under an ATR stop set at entry.
type Strategy struct {
	period   int
	history  []types.Bar
	stopLoss decimal.Decimal
	pending  int
	qty      int64
}

func New(period int) *Strategy {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Strategy{period: period}
}

func (s *Strategy) OnData(bar types.Bar) {
	s.history = append(s.history, bar)
	// channel needs period completed bars, ATR needs period+1
	if keep := s.period + 2; len(s.history) > keep {
		s.history = s.history[len(s.history)-keep:]
	}
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
	if s.qty == 0 {
		s.stopLoss = decimal.Zero
	}
}

func (s *Strategy) MakeDecision(bar types.Bar) types.Decision {
	if s.pending != 0 || len(s.history) < s.period+1 {
		return types.Hold(bar)
	}

	// preceding bars, current one excluded
	channel := s.history[len(s.history)-s.period-1 : len(s.history)-1]
	highestHigh, lowestLow := donchianHighLow(channel)

	if s.qty == 0 {
		if bar.High.GreaterThan(highestHigh) {
			s.stopLoss = bar.Close.Sub(calcATR(s.history, s.period).Mul(decimal.NewFromInt(2)))
			return types.NewDecision(bar.Symbol, types.DecisionBuy, bar.Time)
		}
		return types.Hold(bar)
	}

	if bar.Low.LessThan(lowestLow) || bar.Close.LessThan(s.stopLoss) {
		return types.NewDecision(bar.Symbol, types.DecisionClose, bar.Time)
	}
	return types.Hold(bar)
}

// Utility: Donchian Channel High/Low
func donchianHighLow(bars []types.Bar) (decimal.Decimal, decimal.Decimal) {
	if len(bars) == 0 {
		return decimal.Zero, decimal.Zero
	}

	highest := bars[0].High
	lowest := bars[0].Low

	for _, b := range bars {
		if b.High.GreaterThan(highest) {
			highest = b.High
		}
		if b.Low.LessThan(lowest) {
			lowest = b.Low
		}
	}
	return highest, lowest
}

// calcATR is Wilder's average true range over period.
func calcATR(bars []types.Bar, period int) decimal.Decimal {
	if len(bars) < period+1 {
		return decimal.Zero // need enough data (prev bar + period)
	}

	var trueRanges []decimal.Decimal

	for i := 1; i < len(bars); i++ {
		high := bars[i].High
		low := bars[i].Low
		prevClose := bars[i-1].Close

		trueRanges = append(trueRanges, decimal.Max(
			high.Sub(low),
			high.Sub(prevClose).Abs(),
			low.Sub(prevClose).Abs(),
		))
	}

	atr := decimal.Zero
	for _, tr := range trueRanges[:period] {
		atr = atr.Add(tr)
	}
	atr = atr.Div(decimal.NewFromInt(int64(period)))

	for i := period; i < len(trueRanges); i++ {
		atr = atr.Mul(decimal.NewFromInt(int64(period - 1))).Add(trueRanges[i]).
			Div(decimal.NewFromInt(int64(period)))
	}

	return atr
}
