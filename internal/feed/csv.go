package feed

import (
	"backsim/types"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrBadDate       = errors.New("unrecognized date")
)

var columnAliases = map[string][]string{
	"symbol": {"symbol", "ts_code", "sym"},
	"date":   {"date", "trade_date", "time"},
	"open":   {"open"},
	"high":   {"high"},
	"low":    {"low"},
	"close":  {"close"},
	"volume": {"volume", "vol"},
}

var dateLayouts = []string{"2006-01-02", "20060102", time.RFC3339}

// Options narrows what a CSV load returns. Zero Start or End leaves that side
// of the range open. Symbol is used for files without a symbol column.
type Options struct {
	Symbol string
	Start  time.Time
	End    time.Time
}

func (o Options) inRange(t time.Time) bool {
	if !o.Start.IsZero() && t.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && t.After(o.End) {
		return false
	}
	return true
}

// LoadCSV reads bars from a file, see ReadCSV.
func LoadCSV(path string, opts Options) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV parses daily bars with a header row, returning them oldest first.
// Dates are normalized to midnight UTC.
func ReadCSV(r io.Reader, opts Options) ([]types.Bar, error) {
	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}
	if _, ok := cols["symbol"]; !ok && opts.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol", ErrMissingColumn)
	}

	var bars []types.Bar
	for line := 2; ; line++ {
		record, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		bar, err := parseRecord(record, cols, opts.Symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if opts.inRange(bar.Time) {
			bars = append(bars, bar)
		}
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

// GroupBySymbol splits bars into per-symbol series, keeping their order.
func GroupBySymbol(bars []types.Bar) map[string][]types.Bar {
	grouped := make(map[string][]types.Bar)
	for _, b := range bars {
		grouped[b.Symbol] = append(grouped[b.Symbol], b)
	}
	return grouped
}

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	for name, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[name] = i
				break
			}
		}
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return cols, nil
}

func parseRecord(record []string, cols map[string]int, fallbackSymbol string) (types.Bar, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[cols[name]])
	}

	bar := types.Bar{Symbol: fallbackSymbol}
	if _, ok := cols["symbol"]; ok {
		if s := field("symbol"); s != "" {
			bar.Symbol = s
		}
	}

	t, err := parseDate(field("date"))
	if err != nil {
		return types.Bar{}, err
	}
	bar.Time = t

	for name, dst := range map[string]*decimal.Decimal{
		"open":   &bar.Open,
		"high":   &bar.High,
		"low":    &bar.Low,
		"close":  &bar.Close,
		"volume": &bar.Volume,
	} {
		v, err := decimal.NewFromString(field(name))
		if err != nil {
			return types.Bar{}, fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = v
	}
	return bar, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}
