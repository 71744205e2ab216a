package repository

import (
	"context"
	"database/sql"
	"errors"
	"eventbacktester/types"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetAssetByTicker retrieves a types.Asset by its ticker.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	asset, err := db.assets.GetAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	a := &types.Asset{
		Id:     int(asset.ID),
		Ticker: asset.Ticker,
		Name:   asset.Name,
		Type:   types.AssetType(asset.Type),
	}
	if asset.CreatedAt != nil {
		a.CreatedAt = *asset.CreatedAt
	}
	if asset.ModifiedAt != nil {
		a.ModifiedAt = *asset.ModifiedAt
	}
	return a, nil
}
