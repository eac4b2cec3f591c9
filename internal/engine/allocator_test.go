package engine

import (
	"backsim/types"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOrderConfig() *OrderConfig {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewOrderConfig().WithLogger(log)
}

func positionView(qty int64, close string) types.PositionView {
	view := types.PositionView{Symbol: testSymbol, Quantity: qty}
	if close != "" {
		view.LastClose = d(close)
		view.HasClose = true
	}
	return view
}

func TestFixedSizeAllocator(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.DecisionKind
		held    int64
		wantQty int64
		wantOk  bool
	}{
		{"hold", types.DecisionHold, 10, 0, false},
		{"buy", types.DecisionBuy, 0, 5, true},
		{"sell less than held", types.DecisionSell, 12, -5, true},
		{"sell capped by held", types.DecisionSell, 3, -3, true},
		{"sell with nothing held", types.DecisionSell, 0, 0, false},
		{"close", types.DecisionClose, 12, -12, true},
		{"close flat", types.DecisionClose, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := NewFixedSizeAllocator(5, quietOrderConfig())
			order, ok := alloc.Allocate(types.NewDecision(testSymbol, tt.kind, baseTime), positionView(tt.held, "10"))
			require.Equal(t, tt.wantOk, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantQty, order.Quantity)
			assert.Equal(t, types.TypeMarket, order.Type)
			assert.Equal(t, types.OrderCreated, order.Status)
			assert.Equal(t, testSymbol, order.Symbol)
			assert.Equal(t, baseTime, order.Time)
			assert.Nil(t, order.Lifetime)
		})
	}
}

func TestFixedValueAllocator(t *testing.T) {
	tests := []struct {
		name    string
		kind    types.DecisionKind
		held    int64
		close   string
		wantQty int64
		wantOk  bool
	}{
		{"buy floors to whole units", types.DecisionBuy, 0, "30", 33, true},
		{"buy without close", types.DecisionBuy, 0, "", 0, false},
		{"buy priced out", types.DecisionBuy, 0, "1500", 0, false},
		{"sell everything", types.DecisionSell, 7, "30", -7, true},
		{"close everything", types.DecisionClose, 7, "30", -7, true},
		{"hold", types.DecisionHold, 7, "30", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := NewFixedValueAllocator(d("1000"), quietOrderConfig())
			order, ok := alloc.Allocate(types.NewDecision(testSymbol, tt.kind, baseTime), positionView(tt.held, tt.close))
			require.Equal(t, tt.wantOk, ok)
			if ok {
				assert.Equal(t, tt.wantQty, order.Quantity)
			}
		})
	}
}

func TestOrderConfig_LimitOrdersAndLifetime(t *testing.T) {
	cfg := quietOrderConfig().WithLifetime(3).WithLimitOffsets(d("0.1"), d("0.2"))
	alloc := NewFixedSizeAllocator(5, cfg)

	buy, ok := alloc.Allocate(types.NewDecision(testSymbol, types.DecisionBuy, baseTime), positionView(0, "100"))
	require.True(t, ok)
	assert.Equal(t, types.TypeLimit, buy.Type)
	assert.True(t, buy.Limit.Equal(d("90")))
	assert.Nil(t, buy.Stop)
	require.NotNil(t, buy.Lifetime)
	assert.Equal(t, 3, *buy.Lifetime)

	sell, ok := alloc.Allocate(types.NewDecision(testSymbol, types.DecisionSell, baseTime), positionView(5, "100"))
	require.True(t, ok)
	assert.Equal(t, types.TypeLimit, sell.Type)
	assert.True(t, sell.Limit.Equal(d("110")))
	require.NotNil(t, sell.Stop)
	assert.True(t, sell.Stop.Equal(d("80")))

	assert.NotEqual(t, buy.ID, sell.ID)

	// Without a close there is nothing to price a limit off, so a market order is sent.
	market, ok := alloc.Allocate(types.NewDecision(testSymbol, types.DecisionBuy, baseTime), positionView(0, ""))
	require.True(t, ok)
	assert.Equal(t, types.TypeMarket, market.Type)
}
