package engine

import (
	"backsim/types"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolio_Pay(t *testing.T) {
	tests := []struct {
		name     string
		cash     string
		amount   string
		wantOk   bool
		wantCash string
	}{
		{"debit within balance", "1000", "400", true, "600"},
		{"debit whole balance", "1000", "1000", true, "0"},
		{"debit over balance rejected", "1000", "1000.01", false, "1000"},
		{"credit", "1000", "-250.5", true, "1250.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortfolio(tt.cash)
			rem, ok := p.Pay(d(tt.amount))
			assert.Equal(t, tt.wantOk, ok)
			assert.True(t, rem.Equal(d(tt.wantCash)), "remaining = %s", rem)
			assert.True(t, p.Balance().Equal(d(tt.wantCash)))
			assert.True(t, p.InitialCash().Equal(d(tt.cash)))
		})
	}
}

func TestPortfolio_WithWalletPropagatesError(t *testing.T) {
	p := newTestPortfolio("100")
	err := p.WithWallet(func(w Wallet) error {
		_, ok := w.Pay(d("30"))
		require.True(t, ok)
		return ErrNotSatisfied
	})
	require.ErrorIs(t, err, ErrNotSatisfied)
	assert.True(t, p.Balance().Equal(d("70")))
}

func TestPortfolio_ApplyFillDoesNotTouchCash(t *testing.T) {
	p := newTestPortfolio("1000")
	require.NoError(t, p.ApplyFill(newFill(10, "10", "1")))
	assert.True(t, p.Balance().Equal(d("1000")))
	assert.Equal(t, int64(10), p.Position(testSymbol).Quantity)

	err := p.ApplyFill(newFill(-11, "10", "1"))
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, int64(10), p.Position(testSymbol).Quantity)
}

func TestPortfolio_Stats(t *testing.T) {
	p := newTestPortfolio("1000")

	fills := []types.Fill{
		{Symbol: "AAA", Quantity: 10, Price: d("10"), Cost: d("0"), Time: baseTime},
		{Symbol: "BBB", Quantity: 10, Price: d("10"), Cost: d("0"), Time: baseTime},
		{Symbol: "CCC", Quantity: 10, Price: d("10"), Cost: d("0"), Time: baseTime},
	}
	for _, f := range fills {
		_, ok := p.Pay(f.CashDelta())
		require.True(t, ok)
		require.NoError(t, p.ApplyFill(f))
	}
	closes := map[string]string{"AAA": "11", "BBB": "15", "CCC": "9"}
	for sym, c := range closes {
		p.MarkToMarket(types.Bar{Symbol: sym, Time: baseTime, Close: d(c)})
	}

	stats := p.Stats()
	require.Len(t, stats.Positions, 3)
	assert.Equal(t, "BBB", stats.Positions[0].Symbol)
	assert.Equal(t, "AAA", stats.Positions[1].Symbol)
	assert.Equal(t, "CCC", stats.Positions[2].Symbol)
	// 10 + 50 - 10
	assert.True(t, stats.PnL.Equal(d("50")), "pnl = %s", stats.PnL)
	assert.True(t, stats.PnLRatio.Equal(d("0.05")))
	assert.True(t, stats.Cash.Equal(d("700")))

	view := p.GetPortfolioSnapshot(baseTime)
	assert.True(t, view.Value().Equal(d("1050")))
}

func TestPortfolio_AllocatePassesCurrentPosition(t *testing.T) {
	p := newTestPortfolio("1000")
	require.NoError(t, p.ApplyFill(newFill(7, "10", "0")))

	alloc := NewFixedSizeAllocator(100, nil)
	order, ok := p.Allocate(alloc, types.NewDecision(testSymbol, types.DecisionClose, baseTime))
	require.True(t, ok)
	assert.Equal(t, int64(-7), order.Quantity)
}

func TestPortfolio_ConcurrentAccess(t *testing.T) {
	p := newTestPortfolio("100000")
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}

	var wg sync.WaitGroup
	for _, sym := range symbols {
		sym := sym
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				fill := types.Fill{Symbol: sym, Quantity: 1, Price: d("10"), Cost: decimal.Zero, Time: baseTime}
				_ = p.WithWallet(func(w Wallet) error {
					_, ok := w.Pay(fill.CashDelta())
					assert.True(t, ok)
					return nil
				})
				assert.NoError(t, p.ApplyFill(fill))
				p.MarkToMarket(types.Bar{Symbol: sym, Time: baseTime, Close: d("10")})
			}
		}()
	}
	wg.Wait()

	assert.True(t, p.Balance().Equal(d("96000")))
	for _, sym := range symbols {
		assert.Equal(t, int64(100), p.Position(sym).Quantity)
	}
	assert.Len(t, p.Fills(), 400)
}
