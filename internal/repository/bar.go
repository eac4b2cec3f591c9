package repository

import (
	"backsim/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// GetBars aggregates the stored bars of a symbol into interval buckets between
// start and end inclusive, oldest first.
func (db *Database) GetBars(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	asset, err := db.GetAssetBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	args := GetAggregatesParams{
		TimeBucket: bucket,
		AssetID:    asset.ID,
		Starttime:  start,
		Endtime:    end,
	}
	rows, err := db.bars.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, fmt.Errorf("get aggregates for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(rows, symbol), nil
}

func convertBars(rows []GetAggregatesRow, symbol string) []types.Bar {
	bars := make([]types.Bar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   row.Bucket.UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars
}
