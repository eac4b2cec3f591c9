package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Engine runs a fleet of backtesters concurrently. Loops may share a Portfolio.
type Engine struct {
	cfg         *FleetConfig
	backtesters []*Backtester
	log         logrus.FieldLogger
}

func NewEngine(cfg *FleetConfig, log logrus.FieldLogger, backtesters ...*Backtester) *Engine {
	if cfg == nil {
		cfg = NewFleetConfig(false)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		cfg:         cfg,
		backtesters: backtesters,
		log:         log,
	}
}

func (e *Engine) Add(b *Backtester) {
	e.backtesters = append(e.backtesters, b)
}

// Run starts one goroutine per backtester and waits for all of them. It returns
// the first error. State written by the other loops is kept as is.
func (e *Engine) Run(ctx context.Context) error {
	g := &errgroup.Group{}
	if e.cfg.abortOnFailure {
		g, ctx = errgroup.WithContext(ctx)
	}

	for _, b := range e.backtesters {
		b := b
		g.Go(func() error {
			if err := b.Run(ctx); err != nil {
				e.log.WithError(err).WithField("symbol", b.Symbol()).Error("backtest failed")
				return fmt.Errorf("backtest %s: %w", b.Symbol(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Portfolios returns each distinct portfolio once, in the order first seen.
func (e *Engine) Portfolios() []*Portfolio {
	seen := make(map[*Portfolio]bool)
	var out []*Portfolio
	for _, b := range e.backtesters {
		if !seen[b.portfolio] {
			seen[b.portfolio] = true
			out = append(out, b.portfolio)
		}
	}
	return out
}
