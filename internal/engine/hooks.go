package engine

import (
	"backsim/types"
	"io"
	"sort"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ProgressHook advances a progress bar on every market event. A single hook can
// be shared by all loops of a fleet.
type ProgressHook struct {
	bar *progressbar.ProgressBar
}

func NewProgressHook(totalBars int, w io.Writer) *ProgressHook {
	return &ProgressHook{bar: initProgressBar(totalBars, w)}
}

func (h *ProgressHook) OnEvent(_ string, event types.Event) {
	if event.Kind() == types.EventMarket {
		_ = h.bar.Add(1)
	}
}

func (h *ProgressHook) Finish() error {
	return h.bar.Finish()
}

func initProgressBar(maxTicks int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// EquityRecorder snapshots a portfolio after every market event. It is safe to
// attach to several loops sharing the portfolio.
type EquityRecorder struct {
	mu        sync.Mutex
	portfolio *Portfolio
	snapshots []types.PortfolioView
}

func NewEquityRecorder(p *Portfolio) *EquityRecorder {
	return &EquityRecorder{portfolio: p}
}

func (r *EquityRecorder) OnEvent(_ string, event types.Event) {
	market, ok := event.(types.MarketEvent)
	if !ok {
		return
	}
	snap := r.portfolio.GetPortfolioSnapshot(market.Bar.Time)
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snap)
	r.mu.Unlock()
}

// Snapshots returns one snapshot per timestamp in time order. When several
// loops report the same timestamp the last one recorded wins.
func (r *EquityRecorder) Snapshots() []types.PortfolioView {
	r.mu.Lock()
	snaps := append([]types.PortfolioView(nil), r.snapshots...)
	r.mu.Unlock()

	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Time.Before(snaps[j].Time)
	})
	out := snaps[:0]
	for _, s := range snaps {
		if n := len(out); n > 0 && out[n-1].Time.Equal(s.Time) {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
