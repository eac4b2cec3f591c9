package engine

import (
	"backsim/types"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the payment capability the venue settles fills through.
type Wallet interface {
	Balance() decimal.Decimal
	// Pay takes amount out of the wallet and returns the new balance. A negative
	// amount is a credit. It reports false, and changes nothing, when the balance
	// would go below zero.
	Pay(amount decimal.Decimal) (decimal.Decimal, bool)
}

// Portfolio is the cash ledger and the owner of every Position. It may be shared
// by several loops; each exported method holds the lock for its whole duration.
type Portfolio struct {
	mu          sync.Mutex
	cash        decimal.Decimal
	initialCash decimal.Decimal
	positions   map[string]*Position
}

func NewPortfolio(cfg *PortfolioConfig) *Portfolio {
	return &Portfolio{
		cash:        cfg.initialCash,
		initialCash: cfg.initialCash,
		positions:   make(map[string]*Position),
	}
}

// ledger is the unlocked view handed out by WithWallet.
type ledger struct {
	p *Portfolio
}

func (l ledger) Balance() decimal.Decimal {
	return l.p.cash
}

func (l ledger) Pay(amount decimal.Decimal) (decimal.Decimal, bool) {
	return l.p.pay(amount)
}

func (p *Portfolio) pay(amount decimal.Decimal) (decimal.Decimal, bool) {
	rem := p.cash.Sub(amount)
	if rem.IsNegative() {
		return p.cash, false
	}
	p.cash = rem
	return rem, true
}

func (p *Portfolio) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

func (p *Portfolio) Pay(amount decimal.Decimal) (decimal.Decimal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pay(amount)
}

func (p *Portfolio) InitialCash() decimal.Decimal {
	return p.initialCash
}

// WithWallet runs fn with exclusive access to the cash ledger, so a balance read
// and the payment that depends on it cannot interleave with another loop.
func (p *Portfolio) WithWallet(fn func(w Wallet) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(ledger{p: p})
}

func (p *Portfolio) position(symbol string) *Position {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = NewPosition(symbol)
		p.positions[symbol] = pos
	}
	return pos
}

// Allocate sizes a decision against the current position for its symbol.
func (p *Portfolio) Allocate(alloc Allocator, decision types.Decision) (types.Order, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return alloc.Allocate(decision, p.position(decision.Symbol).View())
}

func (p *Portfolio) MarkToMarket(bar types.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position(bar.Symbol).MarkToMarket(bar)
}

// ApplyFill books a settled fill on its position. Cash is not touched here; the
// venue has already paid through the wallet.
func (p *Portfolio) ApplyFill(fill types.Fill) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.position(fill.Symbol).ApplyFill(fill); err != nil {
		return fmt.Errorf("apply fill: %w", err)
	}
	return nil
}

func (p *Portfolio) Position(symbol string) types.PositionView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.positions[symbol]; ok {
		return pos.View()
	}
	return types.PositionView{Symbol: symbol}
}

func (p *Portfolio) GetPortfolioSnapshot(curTime time.Time) types.PortfolioView {
	p.mu.Lock()
	defer p.mu.Unlock()

	view := types.PortfolioView{
		Cash:        p.cash,
		InitialCash: p.initialCash,
		Positions:   make(map[string]types.PositionView, len(p.positions)),
		Time:        curTime,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = pos.View()
	}
	return view
}

// Fills returns every booked fill ordered by time, then symbol.
func (p *Portfolio) Fills() []types.Fill {
	p.mu.Lock()
	var fills []types.Fill
	for _, pos := range p.positions {
		fills = append(fills, pos.transactions...)
	}
	p.mu.Unlock()

	sort.SliceStable(fills, func(i, j int) bool {
		if !fills[i].Time.Equal(fills[j].Time) {
			return fills[i].Time.Before(fills[j].Time)
		}
		return fills[i].Symbol < fills[j].Symbol
	})
	return fills
}

func (p *Portfolio) Stats() types.PortfolioStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := types.PortfolioStats{
		InitialCash: p.initialCash,
		Cash:        p.cash,
		PnL:         decimal.Zero,
		PnLRatio:    decimal.Zero,
		Positions:   make([]types.PositionView, 0, len(p.positions)),
	}
	for _, pos := range p.positions {
		view := pos.View()
		stats.PnL = stats.PnL.Add(view.Stats.PnL)
		stats.Positions = append(stats.Positions, view)
	}
	sort.Slice(stats.Positions, func(i, j int) bool {
		a, b := stats.Positions[i], stats.Positions[j]
		if !a.Stats.PnLRatio.Equal(b.Stats.PnLRatio) {
			return a.Stats.PnLRatio.GreaterThan(b.Stats.PnLRatio)
		}
		return a.Symbol < b.Symbol
	})
	if !p.initialCash.IsZero() {
		stats.PnLRatio = stats.PnL.Div(p.initialCash)
	}
	return stats
}
