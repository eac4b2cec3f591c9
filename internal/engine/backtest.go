package engine

import (
	"backsim/types"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Backtester drives one symbol through its bars. It keeps two queues: the
// immediate queue holds this bar's market and decision events, the deferred
// queue holds orders and fills that run at the next bar's price. An order born
// from the decision on bar T is therefore first executed at the open of T+1.
type Backtester struct {
	symbol        string
	feed          BarFeed
	decisionMaker DecisionMaker
	allocator     Allocator
	venue         Venue
	portfolio     *Portfolio
	log           logrus.FieldLogger

	queue       []types.Event
	deferred    []types.Event
	unfulfilled []types.Order
	hooks       []Hook
}

func NewBacktester(
	symbol string,
	feed BarFeed,
	decisionMaker DecisionMaker,
	allocator Allocator,
	venue Venue,
	portfolio *Portfolio,
	log logrus.FieldLogger,
) *Backtester {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Backtester{
		symbol:        symbol,
		feed:          feed,
		decisionMaker: decisionMaker,
		allocator:     allocator,
		venue:         venue,
		portfolio:     portfolio,
		log:           log.WithField("symbol", symbol),
	}
}

func (b *Backtester) Symbol() string {
	return b.symbol
}

func (b *Backtester) Portfolio() *Portfolio {
	return b.portfolio
}

// AddHook registers an observer. Hooks run synchronously in registration order.
func (b *Backtester) AddHook(h Hook) {
	b.hooks = append(b.hooks, h)
}

// Pending returns the orders that will be attempted on the next bar: new orders
// first, then retries.
func (b *Backtester) Pending() []types.Order {
	var out []types.Order
	for _, evt := range b.deferred {
		if o, ok := evt.(types.OrderEvent); ok {
			out = append(out, o.Order)
		}
	}
	return append(out, b.unfulfilled...)
}

// Run consumes the feed until it is exhausted, ctx is done, or a fatal error
// occurs. Cancellation is checked once per bar.
func (b *Backtester) Run(ctx context.Context) error {
	b.log.Info("backtest started")
	bars := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar, ok := b.feed.Next()
		if !ok {
			break
		}
		bars++

		b.queue = append(b.queue, types.MarketEvent{Bar: bar})
		b.requeueUnfulfilled()

		for len(b.queue) > 0 {
			evt := b.queue[0]
			b.queue = b.queue[1:]

			handled, err := b.handle(evt)
			if err != nil {
				return err
			}
			b.notify(handled)
		}
	}
	b.log.WithFields(logrus.Fields{
		"bars":    bars,
		"pending": len(b.unfulfilled),
	}).Info("backtest finished")
	return nil
}

// requeueUnfulfilled moves orders left over from previous bars to the deferred
// queue, oldest first.
func (b *Backtester) requeueUnfulfilled() {
	for _, order := range b.unfulfilled {
		b.deferred = append(b.deferred, types.OrderEvent{Order: order})
	}
	b.unfulfilled = b.unfulfilled[:0]
}

func (b *Backtester) handle(evt types.Event) (types.Event, error) {
	switch e := evt.(type) {
	case types.MarketEvent:
		return e, b.onMarket(e.Bar)
	case types.DecisionEvent:
		b.onDecision(e.Decision)
		return e, nil
	case types.OrderEvent:
		order, err := b.onOrder(e.Order)
		return types.OrderEvent{Order: order}, err
	case types.FillEvent:
		b.onFill(e.Fill)
		return e, nil
	}
	return evt, fmt.Errorf("%w: unknown event %T", ErrFatal, evt)
}

func (b *Backtester) onMarket(bar types.Bar) error {
	b.venue.SetLatestBar(bar)
	b.portfolio.MarkToMarket(bar)
	if obs, ok := b.decisionMaker.(DataObserver); ok {
		obs.OnData(bar)
	}

	// Orders from earlier bars run at this bar's price before the decision
	// maker sees it.
	for len(b.deferred) > 0 {
		evt := b.deferred[0]
		b.deferred = b.deferred[1:]

		var handled types.Event
		switch e := evt.(type) {
		case types.OrderEvent:
			order, err := b.onOrder(e.Order)
			if err != nil {
				return err
			}
			handled = types.OrderEvent{Order: order}
		case types.FillEvent:
			b.onFill(e.Fill)
			handled = e
		default:
			return fmt.Errorf("%w: %s event in deferred queue", ErrFatal, evt.Kind())
		}
		b.notify(handled)
	}

	decision := b.decisionMaker.MakeDecision(bar)
	b.queue = append(b.queue, types.DecisionEvent{Decision: decision})
	return nil
}

func (b *Backtester) onDecision(decision types.Decision) {
	order, ok := b.portfolio.Allocate(b.allocator, decision)
	if !ok {
		return
	}
	b.notifyOrder(order)
	b.deferred = append(b.deferred, types.OrderEvent{Order: order})
}

func (b *Backtester) onOrder(order types.Order) (types.Order, error) {
	var fill types.Fill
	err := b.portfolio.WithWallet(func(w Wallet) error {
		var execErr error
		fill, execErr = b.venue.Execute(order, w)
		return execErr
	})

	switch {
	case err == nil:
		order.Status = types.OrderCompleted
		if abs(fill.Quantity) < abs(order.Quantity) {
			order.Status = types.OrderPartialCompleted
		}
		b.notifyOrder(order)
		b.deferred = append(b.deferred, types.FillEvent{Fill: fill})
	case errors.Is(err, ErrNotSatisfied), errors.Is(err, ErrNotExists):
		order = order.DecayLifetime()
		b.log.WithField("order", order.ID).Debugf("order retained: %v", err)
		b.unfulfilled = append(b.unfulfilled, order)
	case errors.Is(err, ErrOrderExpired):
		order.Status = types.OrderExpired
		b.log.WithField("order", order.ID).Info("order expired")
		b.notifyOrder(order)
	case errors.Is(err, ErrOutOfBounds):
		order.Status = types.OrderCanceled
		b.log.WithField("order", order.ID).Infof("order canceled: %v", err)
		b.notifyOrder(order)
	case errors.Is(err, ErrFatal):
		return order, fmt.Errorf("%s: execute order %s: %w", b.symbol, order.ID, err)
	default:
		return order, fmt.Errorf("%w: %s: execute order %s: %v", ErrFatal, b.symbol, order.ID, err)
	}
	return order, nil
}

func (b *Backtester) onFill(fill types.Fill) {
	if err := b.portfolio.ApplyFill(fill); err != nil {
		b.log.WithError(err).Error("fill rejected by portfolio")
		return
	}
	if obs, ok := b.decisionMaker.(FillObserver); ok {
		obs.OnFill(fill)
	}
}

func (b *Backtester) notifyOrder(order types.Order) {
	if obs, ok := b.decisionMaker.(OrderObserver); ok {
		obs.OnOrder(order)
	}
}

func (b *Backtester) notify(evt types.Event) {
	for _, h := range b.hooks {
		h.OnEvent(b.symbol, evt)
	}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
