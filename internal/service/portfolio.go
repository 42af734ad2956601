package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"numerusx/internal/engine"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// PortfolioService refreshes open position marks and records hourly
// portfolio snapshots.
type PortfolioService struct {
	Repo   repository.Repository
	Book   *engine.Book
	Flags  *SystemSettingsService
	Logger *zap.Logger
}

// RefreshPrices re-marks all open positions from the latest snapshots.
func (s *PortfolioService) RefreshPrices(ctx context.Context) error {
	if s == nil || s.Book == nil {
		return nil
	}
	return s.Book.MarkPrices(ctx)
}

// SnapshotPortfolio persists one snapshot row per hour bucket.
func (s *PortfolioService) SnapshotPortfolio(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeaturePortfolioSnapshot, true) {
		return nil
	}
	sum, err := s.Repo.PositionsSummary(ctx)
	if err != nil {
		return err
	}
	item := &models.PortfolioSnapshot{
		SnapshotAt:     time.Now().UTC().Truncate(time.Hour),
		TotalPositions: int(sum.TotalOpen),
		TotalCostBasis: decimal.NewFromFloat(sum.TotalCostBasis),
		TotalMarketVal: decimal.NewFromFloat(sum.TotalMarketVal),
		UnrealizedPnL:  decimal.NewFromFloat(sum.UnrealizedPnL),
		RealizedPnL:    decimal.NewFromFloat(sum.RealizedPnL),
		NetLiquidation: decimal.NewFromFloat(sum.NetLiquidation),
		CreatedAt:      time.Now().UTC(),
	}
	return s.Repo.InsertPortfolioSnapshot(ctx, item)
}
