package engine

import (
	"backsim/types"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Report struct {
	// Meta / period info
	StartDate   time.Time
	TotalPeriod time.Duration
	TotalTrades int

	// Absolute performance
	InitialCash          decimal.Decimal
	FinalValue           decimal.Decimal
	NetProfit            decimal.Decimal
	PnLRatio             decimal.Decimal
	NetAvgProfitPerTrade decimal.Decimal
	CAGR                 decimal.Decimal

	// Trade-level distribution metrics
	AvgWin       decimal.Decimal
	AvgLoss      decimal.Decimal
	ProfitFactor decimal.Decimal

	// Drawdown & loss streak metrics
	MaxDrawdown          decimal.Decimal
	MaxDrawdownPercent   decimal.Decimal
	MaxDrawdownDays      time.Duration
	MaxConsecutiveLosses int

	// Risk-adjusted metrics
	SharpeRatio decimal.Decimal

	// Costs
	TotalFees decimal.Decimal

	Positions []types.PositionView
}

// trade is a round trip on one symbol: from flat, through any number of fills,
// back to flat. A trade still holding units at the end is open.
type trade struct {
	symbol    string
	fills     []types.Fill
	openTime  time.Time
	closeTime time.Time
	closed    bool
}

func (t trade) netPnL() decimal.Decimal {
	pnl := decimal.Zero
	for _, f := range t.fills {
		pnl = pnl.Sub(f.CashDelta())
	}
	return pnl
}

func (t trade) fees() decimal.Decimal {
	fees := decimal.Zero
	for _, f := range t.fills {
		fees = fees.Add(f.Cost)
	}
	return fees
}

// GenerateReport derives performance metrics from the portfolio ledger and an
// equity curve recorded while the backtest ran.
func GenerateReport(p *Portfolio, snapshots []types.PortfolioView, cfg *ReportingConfig) *Report {
	stats := p.Stats()
	trades := fillsToTrades(p.Fills())

	snaps := append([]types.PortfolioView(nil), snapshots...)
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Time.Before(snaps[j].Time) })

	report := &Report{
		InitialCash: stats.InitialCash,
		FinalValue:  stats.InitialCash.Add(stats.PnL),
		NetProfit:   stats.PnL,
		PnLRatio:    stats.PnLRatio,
		Positions:   stats.Positions,
	}
	if len(snaps) > 0 {
		report.StartDate = snaps[0].Time
		report.TotalPeriod = snaps[len(snaps)-1].Time.Sub(snaps[0].Time).Truncate(time.Hour * 24)
	}
	for _, tr := range trades {
		if tr.closed {
			report.TotalTrades++
		}
	}

	var wg sync.WaitGroup
	wg.Add(7)
	go func() {
		report.NetAvgProfitPerTrade = calcNetAvgProfitPerTrade(trades, &wg)
	}()
	go func() {
		report.AvgWin, report.AvgLoss, report.ProfitFactor = calcWinLossMetrics(trades, &wg)
	}()
	go func() {
		report.CAGR = calcCAGR(snaps, &wg)
	}()
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDays = calcDrawdownMetrics(snaps, &wg)
	}()
	go func() {
		report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades, &wg)
	}()
	go func() {
		report.SharpeRatio = calcSharpeRatio(snaps, cfg.sharpeRiskFreeRate, &wg)
	}()
	go func() {
		report.TotalFees = calcTotalFees(trades, &wg)
	}()
	wg.Wait()

	return report
}

func PrintReport(w io.Writer, report *Report) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	fmt.Fprintf(w, "Total Trades:          %d\n", report.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Cash:          %s\n", report.InitialCash.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", report.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Net Profit:            %s\n", report.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "PnL Ratio:             %s\n", report.PnLRatio.StringFixed(4))
	fmt.Fprintf(w, "Avg Profit/Trade:      %s\n", report.NetAvgProfitPerTrade.StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s\n", report.CAGR.StringFixed(4))

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor:         %s\n", report.ProfitFactor.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", report.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", report.MaxDrawdownPercent.StringFixed(4))
	fmt.Fprintf(w, "Max Drawdown Days:     %d\n", report.MaxDrawdownDays/(24*time.Hour))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", report.SharpeRatio.StringFixed(4))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Fees:            %s\n", report.TotalFees.StringFixed(2))

	if len(report.Positions) > 0 {
		fmt.Fprintln(w, "\n-- Positions (by PnL ratio) --")
		for _, pos := range report.Positions {
			fmt.Fprintf(w, "%-12s qty %-8d pnl %-12s ratio %-8s bought %-6d sold %-6d fees %s\n",
				pos.Symbol,
				pos.Quantity,
				pos.Stats.PnL.StringFixed(2),
				pos.Stats.PnLRatio.StringFixed(4),
				pos.Stats.QtyBought,
				pos.Stats.QtySold,
				pos.Stats.Cost.StringFixed(2),
			)
		}
	}

	fmt.Fprintln(w, "==========================")
}

func calcNetAvgProfitPerTrade(trades []trade, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()

	net := decimal.Zero
	realizedTrades := 0
	for _, tr := range trades {
		if !tr.closed {
			continue
		}
		net = net.Add(tr.netPnL())
		realizedTrades++
	}
	if realizedTrades == 0 {
		return decimal.Zero
	}
	return net.Div(decimal.NewFromInt(int64(realizedTrades)))
}

func calcWinLossMetrics(trades []trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	sumWins := decimal.Zero
	sumLosses := decimal.Zero // store absolute loss amounts
	winCount := 0
	lossCount := 0

	for _, tr := range trades {
		if !tr.closed {
			continue
		}
		net := tr.netPnL()
		switch {
		case net.GreaterThan(decimal.Zero):
			sumWins = sumWins.Add(net)
			winCount++
		case net.LessThan(decimal.Zero):
			sumLosses = sumLosses.Add(net.Abs())
			lossCount++
		}
	}

	avgWin := decimal.Zero
	avgLoss := decimal.Zero
	profitFactor := decimal.Zero

	if winCount > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
		profitFactor = sumWins.Div(sumLosses)
	}
	return avgWin, avgLoss, profitFactor
}

func calcTotalFees(trades []trade, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()

	total := decimal.Zero
	for _, tr := range trades {
		total = total.Add(tr.fees())
	}
	return total
}

func calcCAGR(snapshots []types.PortfolioView, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(snapshots) < 2 {
		return decimal.Zero
	}

	startSnap := snapshots[0]
	endSnap := snapshots[len(snapshots)-1]

	startVal := startSnap.Value()
	endVal := endSnap.Value()

	// If starting value is <= 0, CAGR is not well-defined
	if !startVal.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}

	// time difference in years (using 365.25 days to account for leap years)
	duration := endSnap.Time.Sub(startSnap.Time)
	if duration <= 0 {
		return decimal.Zero
	}
	years := duration.Hours() / (24.0 * 365.25)

	ratio := endVal.Div(startVal)
	if !ratio.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}

	cagrFloat := math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0
	return decimal.NewFromFloat(cagrFloat)
}

// calcDrawdownMetrics expects snapshots in chronological order.
func calcDrawdownMetrics(
	snapshots []types.PortfolioView,
	wg *sync.WaitGroup,
) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	if len(snapshots) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := decimal.Zero
	var peakTime time.Time

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, snap := range snapshots {
		equity := snap.Value()

		if i == 0 || equity.GreaterThan(peak) || peak.IsZero() {
			peak = equity
			peakTime = snap.Time
		}

		if peak.GreaterThan(decimal.Zero) {
			dd := peak.Sub(equity) // absolute drawdown

			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = snap.Time.Sub(peakTime)
			}
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

func calcMaxConsecutiveLosses(trades []trade, wg *sync.WaitGroup) int {
	defer wg.Done()

	var closed []trade
	for _, tr := range trades {
		if tr.closed {
			closed = append(closed, tr)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].closeTime.Before(closed[j].closeTime)
	})

	maxLossStreak := 0
	currentStreak := 0
	for _, tr := range closed {
		if tr.netPnL().LessThan(decimal.Zero) {
			currentStreak++
			if currentStreak > maxLossStreak {
				maxLossStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxLossStreak
}

func calcSharpeRatio(
	snapshots []types.PortfolioView,
	annualRiskFree decimal.Decimal,
	wg *sync.WaitGroup,
) decimal.Decimal {
	defer wg.Done()
	monthlyReturns := getMonthlyReturns(snapshots)
	if len(monthlyReturns) < 2 {
		// Need at least 2 months to compute stddev
		return decimal.Zero
	}

	// rf_monthly = (1 + rf_annual)^(1/12) - 1
	rfAnnualFloat := annualRiskFree.InexactFloat64()
	rfMonthlyFloat := math.Pow(1.0+rfAnnualFloat, 1.0/12.0) - 1.0

	excess := make([]float64, 0, len(monthlyReturns))
	for _, r := range monthlyReturns {
		excess = append(excess, r.InexactFloat64()-rfMonthlyFloat)
	}

	var sum float64
	for _, x := range excess {
		sum += x
	}
	meanMonthlyExcess := sum / float64(len(excess))

	// Sample standard deviation of monthly excess returns
	var varianceSum float64
	for _, x := range excess {
		diff := x - meanMonthlyExcess
		varianceSum += diff * diff
	}
	stdMonthly := math.Sqrt(varianceSum / float64(len(excess)-1))
	if stdMonthly == 0 {
		return decimal.Zero
	}

	// Monthly Sharpe, then annualize by sqrt(12)
	sharpeAnnual := meanMonthlyExcess / stdMonthly * math.Sqrt(12.0)
	return decimal.NewFromFloat(sharpeAnnual)
}

// getMonthlyReturns uses the last snapshot of each calendar month. Snapshots
// must be in chronological order.
func getMonthlyReturns(snapshots []types.PortfolioView) []decimal.Decimal {
	type monthKey struct {
		year  int
		month time.Month
	}

	var monthEnds []decimal.Decimal
	var last monthKey
	for i, snap := range snapshots {
		y, m, _ := snap.Time.Date()
		key := monthKey{year: y, month: m}
		if i > 0 && key == last {
			monthEnds[len(monthEnds)-1] = snap.Value()
			continue
		}
		monthEnds = append(monthEnds, snap.Value())
		last = key
	}

	if len(monthEnds) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(monthEnds)-1)
	prev := monthEnds[0]
	for _, curr := range monthEnds[1:] {
		if !prev.GreaterThan(decimal.Zero) {
			prev = curr
			continue
		}
		returns = append(returns, curr.Div(prev).Sub(decimal.NewFromInt(1)))
		prev = curr
	}
	return returns
}

// fillsToTrades groups fills into round trips per symbol. Fills must be in time order.
func fillsToTrades(fills []types.Fill) []trade {
	open := make(map[string]*trade)
	held := make(map[string]int64)
	var trades []trade

	for _, f := range fills {
		tr, ok := open[f.Symbol]
		if !ok {
			tr = &trade{symbol: f.Symbol, openTime: f.Time}
			open[f.Symbol] = tr
		}
		tr.fills = append(tr.fills, f)
		held[f.Symbol] += f.Quantity

		if held[f.Symbol] == 0 {
			tr.closed = true
			tr.closeTime = f.Time
			trades = append(trades, *tr)
			delete(open, f.Symbol)
		}
	}

	symbols := make([]string, 0, len(open))
	for sym := range open {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		trades = append(trades, *open[sym])
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].openTime.Before(trades[j].openTime)
	})
	return trades
}
