package main

import (
	"backsim/internal/config"
	"backsim/internal/engine"
	"backsim/internal/feed"
	"backsim/internal/repository"
	"backsim/strategies/crossover"
	"backsim/strategies/donchian"
	"backsim/types"
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// defaultLookbackBars bounds database loads without START_DATE.
const defaultLookbackBars = 500

type barSource interface {
	GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
}

func commissionModel(cfg *config.Config) engine.CommissionModel {
	if cfg.CommissionMin == nil && cfg.CommissionMax == nil {
		return engine.RatioCommission{Rate: cfg.Commission}
	}
	tiered := engine.TieredCommission{Rate: cfg.Commission, Min: decimal.Zero, Max: decimal.Zero}
	if cfg.CommissionMin != nil {
		tiered.Min = *cfg.CommissionMin
	}
	if cfg.CommissionMax != nil {
		tiered.Max = *cfg.CommissionMax
	}
	return tiered
}

func slippageModel(cfg *config.Config) engine.SlippageModel {
	if !cfg.Slippage.IsPositive() {
		return nil
	}
	return engine.RatioSlippage{Ratio: cfg.Slippage}
}

func orderConfig(cfg *config.Config, log logrus.FieldLogger) *engine.OrderConfig {
	orderCfg := engine.NewOrderConfig().WithLogger(log)
	if cfg.OrderLifetime != nil {
		orderCfg.WithLifetime(*cfg.OrderLifetime)
	}
	if cfg.LimitOffset != nil {
		stop := decimal.Zero
		if cfg.StopOffset != nil {
			stop = *cfg.StopOffset
		}
		orderCfg.WithLimitOffsets(*cfg.LimitOffset, stop)
	}
	return orderCfg
}

func newAllocator(cfg *config.Config, orderCfg *engine.OrderConfig) engine.Allocator {
	if cfg.Sizing == config.SizingFixedValue {
		return engine.NewFixedValueAllocator(cfg.OrderValue, orderCfg)
	}
	return engine.NewFixedSizeAllocator(cfg.OrderSize, orderCfg)
}

func newDecisionMaker(cfg *config.Config) engine.DecisionMaker {
	if cfg.Strategy == config.StrategyDonchian {
		return donchian.New(cfg.DonchianPeriod)
	}
	return crossover.New(cfg.SMAFast, cfg.SMASlow)
}

func reportingConfig(cfg *config.Config, label string, perPortfolio bool) *engine.ReportingConfig {
	path := cfg.ReportCSV
	if path != "" && perPortfolio {
		path = suffixedPath(path, label)
	}
	return engine.NewReportingConfig(cfg.RiskFreeRate, path != "", path)
}

// suffixedPath turns fills.csv into fills_AAPL.csv.
func suffixedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ext
}

func loadCSVBars(cfg *config.Config, log logrus.FieldLogger) (map[string][]types.Bar, error) {
	series := make(map[string][]types.Bar)
	for _, path := range cfg.BarsCSV {
		name := filepath.Base(path)
		bars, err := feed.LoadCSV(path, feed.Options{
			Symbol: strings.TrimSuffix(name, filepath.Ext(name)),
			Start:  cfg.StartDate,
			End:    cfg.EndDate,
		})
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			log.WithField("file", path).Warn("empty data")
			continue
		}
		for symbol, s := range feed.GroupBySymbol(bars) {
			series[symbol] = append(series[symbol], s...)
		}
	}

	if len(cfg.Symbols) > 0 {
		wanted := make(map[string]bool, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			wanted[s] = true
		}
		for symbol := range series {
			if !wanted[symbol] {
				delete(series, symbol)
			}
		}
	}
	for _, bars := range series {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	}
	return series, nil
}

func loadDatabaseBars(ctx context.Context, src barSource, cfg *config.Config, log logrus.FieldLogger) (map[string][]types.Bar, error) {
	end := cfg.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := cfg.StartDate
	if start.IsZero() {
		start = end.Add(-types.IntervalToTime[cfg.Interval] * defaultLookbackBars)
	}

	series := make(map[string][]types.Bar)
	for _, symbol := range cfg.Symbols {
		bars, err := src.GetBars(ctx, symbol, cfg.Interval, start, end)
		if errors.Is(err, repository.ErrNoBars) || errors.Is(err, repository.ErrAssetNotFound) {
			log.WithError(err).WithField("symbol", symbol).Warn("skipping symbol")
			continue
		}
		if err != nil {
			return nil, err
		}
		series[symbol] = bars
	}
	return series, nil
}

func sortedSymbols(series map[string][]types.Bar) []string {
	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
