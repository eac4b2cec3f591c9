package engine

import (
	"backsim/types"
	"time"

	"github.com/shopspring/decimal"
)

var testSymbol = "AAPL"
var baseTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFill(qty int64, price, cost string) types.Fill {
	return types.Fill{
		Symbol:   testSymbol,
		Quantity: qty,
		Price:    d(price),
		Cost:     d(cost),
		Time:     baseTime,
	}
}

func newBar(day int, open, close string) types.Bar {
	return types.Bar{
		Symbol: testSymbol,
		Time:   baseTime.AddDate(0, 0, day),
		Open:   d(open),
		High:   decimal.Max(d(open), d(close)),
		Low:    decimal.Min(d(open), d(close)),
		Close:  d(close),
		Volume: d("10000"),
	}
}

// mockBars builds n daily bars whose open and close equal the given prices.
func mockBars(prices ...string) []types.Bar {
	bars := make([]types.Bar, 0, len(prices))
	for i, p := range prices {
		bars = append(bars, newBar(i, p, p))
	}
	return bars
}

func newTestPortfolio(cash string) *Portfolio {
	return NewPortfolio(NewPortfolioConfig(d(cash)))
}
