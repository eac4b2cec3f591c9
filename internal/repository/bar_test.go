package repository

import (
	"backsim/types"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInterval = types.OneMinute
var startTime = time.UnixMilli(0).UTC()
var endTime = startTime.Add(time.Minute * 5)

type mockAssetsRepository struct {
	sqlError error
	assets   map[string]Asset
}

func (m mockAssetsRepository) GetAssetBySymbol(_ context.Context, symbol string) (Asset, error) {
	if m.sqlError != nil {
		return Asset{}, m.sqlError
	}
	asset, ok := m.assets[symbol]
	if !ok {
		return Asset{}, pgx.ErrNoRows
	}
	return asset, nil
}

type mockBarsRepository struct {
	sqlError error
	empty    bool
	lastArg  *GetAggregatesParams
}

func (m mockBarsRepository) GetAggregates(_ context.Context, arg GetAggregatesParams) ([]GetAggregatesRow, error) {
	if m.lastArg != nil {
		*m.lastArg = arg
	}
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	if m.empty {
		return nil, nil
	}
	var rows []GetAggregatesRow
	for i := arg.Starttime; !i.After(arg.Endtime); i = i.Add(time.Minute) {
		rows = append(rows, GetAggregatesRow{
			Bucket: i,
			Open:   decimal.NewFromInt(10),
			High:   decimal.NewFromInt(12),
			Low:    decimal.NewFromInt(9),
			Close:  decimal.NewFromInt(11),
			Volume: decimal.NewFromInt(1000),
		})
	}
	return rows, nil
}

func testAssets() mockAssetsRepository {
	return mockAssetsRepository{assets: map[string]Asset{"AAPL": {ID: 7, Symbol: "AAPL", Name: "Apple"}}}
}

func TestDatabase_GetBars(t *testing.T) {
	sqlFailure := errors.New("connection reset")
	tests := []struct {
		name     string
		symbol   string
		interval types.Interval
		bars     mockBarsRepository
		wantLen  int
		wantErr  error
	}{
		{"should return ErrNoBars on empty result", "AAPL", testInterval, mockBarsRepository{empty: true}, 0, ErrNoBars},
		{"should return ErrNoBars on no rows", "AAPL", testInterval, mockBarsRepository{sqlError: pgx.ErrNoRows}, 0, ErrNoBars},
		{"should return ErrIntervalNotSupported", "AAPL", types.Month, mockBarsRepository{}, 0, ErrIntervalNotSupported},
		{"should return ErrAssetNotFound", "MSFT", testInterval, mockBarsRepository{}, 0, ErrAssetNotFound},
		{"should wrap query errors", "AAPL", testInterval, mockBarsRepository{sqlError: sqlFailure}, 0, sqlFailure},
		{"should return bars", "AAPL", testInterval, mockBarsRepository{}, 6, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{assets: testAssets(), bars: tt.bars}
			got, err := db.GetBars(context.Background(), tt.symbol, tt.interval, startTime, endTime)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			for i, bar := range got {
				assert.Equal(t, tt.symbol, bar.Symbol)
				assert.Equal(t, startTime.Add(time.Duration(i)*time.Minute), bar.Time)
				assert.True(t, bar.High.Equal(decimal.NewFromInt(12)), "high got %v", bar.High)
			}
		})
	}
}

func TestDatabase_GetBarsQueryParams(t *testing.T) {
	var arg GetAggregatesParams
	db := &Database{assets: testAssets(), bars: mockBarsRepository{lastArg: &arg}}

	_, err := db.GetBars(context.Background(), "AAPL", types.FourHours, startTime, endTime)
	require.NoError(t, err)
	assert.Equal(t, "4 hours", arg.TimeBucket)
	assert.Equal(t, int32(7), arg.AssetID)
	assert.Equal(t, startTime, arg.Starttime)
	assert.Equal(t, endTime, arg.Endtime)
}

func TestDatabase_GetAssetBySymbol(t *testing.T) {
	db := &Database{assets: testAssets()}

	asset, err := db.GetAssetBySymbol(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int32(7), asset.ID)

	_, err = db.GetAssetBySymbol(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrAssetNotFound)

	boom := errors.New("boom")
	db.assets = mockAssetsRepository{sqlError: boom}
	_, err = db.GetAssetBySymbol(context.Background(), "AAPL")
	assert.ErrorIs(t, err, boom)
}
