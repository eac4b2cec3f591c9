package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

type Asset struct {
	ID     int32
	Symbol string
	Name   string
}

const getAssetBySymbol = `-- name: GetAssetBySymbol :one
SELECT id, symbol, name FROM assets WHERE symbol = $1
`

func (q *Queries) GetAssetBySymbol(ctx context.Context, symbol string) (Asset, error) {
	row := q.db.QueryRow(ctx, getAssetBySymbol, symbol)
	var i Asset
	err := row.Scan(&i.ID, &i.Symbol, &i.Name)
	return i, err
}

const getAggregates = `-- name: GetAggregates :many
SELECT time_bucket($1::interval, time) AS bucket,
       first(open, time)              AS open,
       max(high)                      AS high,
       min(low)                       AS low,
       last(close, time)              AS close,
       sum(volume)                    AS volume
FROM bars
WHERE asset_id = $2
  AND time >= $3
  AND time <= $4
GROUP BY bucket
ORDER BY bucket
`

type GetAggregatesParams struct {
	TimeBucket string
	AssetID    int32
	Starttime  time.Time
	Endtime    time.Time
}

type GetAggregatesRow struct {
	Bucket time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

func (q *Queries) GetAggregates(ctx context.Context, arg GetAggregatesParams) ([]GetAggregatesRow, error) {
	rows, err := q.db.Query(ctx, getAggregates, arg.TimeBucket, arg.AssetID, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetAggregatesRow
	for rows.Next() {
		var i GetAggregatesRow
		if err := rows.Scan(
			&i.Bucket,
			&i.Open,
			&i.High,
			&i.Low,
			&i.Close,
			&i.Volume,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
