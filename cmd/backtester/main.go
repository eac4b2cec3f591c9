package main

import (
	"backsim/internal/config"
	"backsim/internal/engine"
	"backsim/internal/repository"
	"backsim/types"
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logrus.StandardLogger()
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	series, err := loadBars(ctx, cfg, log)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return errors.New("no bars loaded")
	}

	fleet := buildFleet(cfg, series, log)
	var progress *engine.ProgressHook
	if cfg.Progress {
		progress = engine.NewProgressHook(fleet.totalBars, os.Stderr)
		for _, b := range fleet.backtesters {
			b.AddHook(progress)
		}
	}

	eng := engine.NewEngine(engine.NewFleetConfig(cfg.AbortOnFailure), log, fleet.backtesters...)
	runErr := eng.Run(ctx)
	if progress != nil {
		_ = progress.Finish()
	}

	for _, p := range eng.Portfolios() {
		label := fleet.labels[p]
		reportCfg := reportingConfig(cfg, label, len(fleet.labels) > 1)
		report := engine.GenerateReport(p, fleet.recorders[p].Snapshots(), reportCfg)
		os.Stdout.WriteString("\n[" + label + "]\n")
		engine.PrintReport(os.Stdout, report)
		if err := reportCfg.ExportFills(p); err != nil {
			log.WithError(err).WithField("portfolio", label).Error("export fills failed")
		}
	}
	return runErr
}

type fleet struct {
	backtesters []*engine.Backtester
	recorders   map[*engine.Portfolio]*engine.EquityRecorder
	labels      map[*engine.Portfolio]string
	totalBars   int
}

// buildFleet creates one loop per symbol. Loops share one portfolio or each
// get their own with the full initial cash.
func buildFleet(cfg *config.Config, series map[string][]types.Bar, log logrus.FieldLogger) fleet {
	f := fleet{
		recorders: make(map[*engine.Portfolio]*engine.EquityRecorder),
		labels:    make(map[*engine.Portfolio]string),
	}
	brokerCfg := engine.NewBrokerConfig(commissionModel(cfg), slippageModel(cfg))
	orderCfg := orderConfig(cfg, log)

	var shared *engine.Portfolio
	if cfg.SharedPortfolio {
		shared = engine.NewPortfolio(engine.NewPortfolioConfig(cfg.InitialCash))
		f.recorders[shared] = engine.NewEquityRecorder(shared)
		f.labels[shared] = "portfolio"
	}

	for _, symbol := range sortedSymbols(series) {
		portfolio := shared
		if portfolio == nil {
			portfolio = engine.NewPortfolio(engine.NewPortfolioConfig(cfg.InitialCash))
			f.recorders[portfolio] = engine.NewEquityRecorder(portfolio)
			f.labels[portfolio] = symbol
		}

		barFeed := engine.NewSliceFeed(series[symbol])
		b := engine.NewBacktester(
			symbol,
			barFeed,
			newDecisionMaker(cfg),
			newAllocator(cfg, orderCfg),
			engine.NewBroker(brokerCfg),
			portfolio,
			log,
		)
		b.AddHook(f.recorders[portfolio])
		f.backtesters = append(f.backtesters, b)
		f.totalBars += barFeed.Len()
	}
	return f
}

func loadBars(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (map[string][]types.Bar, error) {
	if len(cfg.BarsCSV) > 0 {
		return loadCSVBars(cfg, log)
	}

	db, err := repository.NewDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return loadDatabaseBars(ctx, db, cfg, log)
}
