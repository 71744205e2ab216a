package repository

import (
	"context"
	"errors"
	"eventbacktester/types"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("timeframe not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoCandles            = errors.New("no candles found in datasource")
)

type assetsRepository interface {
	GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}
type candlesRepository interface {
	GetAggregates(ctx context.Context, arg aggregatesParams) ([]aggregateRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	assets   assetsRepository
	candles  candlesRepository
	interval types.Interval
	conn     *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
// Bars are aggregated to interval when loaded.
func NewDatabase(ctx context.Context, dbURL string, interval types.Interval) (*Database, error) {
	if _, ok := bucketToInterval[interval]; !ok {
		return nil, fmt.Errorf("%s: %w", interval, ErrIntervalNotSupported)
	}
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

	q := &queries{db: conn}
	return &Database{
		assets:   q,
		candles:  q,
		interval: interval,
		conn:     conn,
	}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

// LoadBars fetches every bar for symbol from start onwards at the database's interval.
func (db *Database) LoadBars(ctx context.Context, symbol string, start time.Time) ([]types.Bar, error) {
	asset, err := db.GetAssetByTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return db.GetAggregates(ctx, asset.Id, symbol, db.interval, start)
}
