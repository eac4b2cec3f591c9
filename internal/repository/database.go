package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("interval not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoBars               = errors.New("no bars found in datasource")
)

type assetsRepository interface {
	GetAssetBySymbol(ctx context.Context, symbol string) (Asset, error)
}
type barsRepository interface {
	GetAggregates(ctx context.Context, arg GetAggregatesParams) ([]GetAggregatesRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	assets assetsRepository
	bars   barsRepository
	conn   *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	queries := NewQueries(conn)
	return &Database{
		assets: queries,
		bars:   queries,
		conn:   conn,
	}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
