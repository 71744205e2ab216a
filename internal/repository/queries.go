package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const getAssetByTicker = `
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1
LIMIT 1`

const getAggregates = `
SELECT time_bucket($1::interval, c.timestamp) AS bucket,
       c.asset_id,
       first(c.open, c.timestamp) AS open,
       max(c.high)                AS high,
       min(c.low)                 AS low,
       last(c.close, c.timestamp) AS close,
       sum(c.volume)              AS volume
FROM candles c
WHERE c.asset_id = $2
  AND c.timestamp >= $3
GROUP BY bucket, c.asset_id
ORDER BY bucket`

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

type aggregatesParams struct {
	TimeBucket string
	AssetID    int32
	Starttime  *time.Time
}

type aggregateRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db querier
}

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var a assetRow
	err := q.db.QueryRow(ctx, getAssetByTicker, ticker).
		Scan(&a.ID, &a.Ticker, &a.Name, &a.Type, &a.CreatedAt, &a.ModifiedAt)
	return a, err
}

func (q *queries) GetAggregates(ctx context.Context, arg aggregatesParams) ([]aggregateRow, error) {
	rows, err := q.db.Query(ctx, getAggregates, arg.TimeBucket, arg.AssetID, arg.Starttime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (aggregateRow, error) {
		var r aggregateRow
		err := row.Scan(&r.Bucket, &r.AssetID, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume)
		return r, err
	})
}
