package repository

import (
	"context"
	"database/sql"
	"errors"
	"eventbacktester/types"
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

func (db *Database) GetAggregates(ctx context.Context, assetId int, ticker string, interval types.Interval, start time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		Starttime:  &start,
	}
	candles, err := db.candles.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(candles, interval, ticker), nil
}

// Aggregated candles carry no separate adjusted close.
func convertCandles(rows []aggregateRow, interval types.Interval, ticker string) []types.Bar {
	bars := make([]types.Bar, 0, len(rows))
	for _, row := range rows {
		if row.Bucket == nil {
			continue
		}
		bars = append(bars, types.Bar{
			Symbol:    ticker,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			AdjClose:  row.Close,
			Volume:    row.Volume,
			Interval:  interval,
			Timestamp: *row.Bucket,
		})
	}
	return bars
}
