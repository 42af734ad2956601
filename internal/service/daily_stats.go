package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// DailyStatsService rolls settled trades up into one row per UTC day.
type DailyStatsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Flags  *SystemSettingsService
}

// RunOnce rebuilds the trailing 30 days.
func (s *DailyStatsService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureDailyStats, true) {
		return nil
	}
	now := time.Now().UTC()
	return s.RebuildRange(ctx, now.Add(-30*24*time.Hour), now)
}

// RebuildRange recomputes daily rows for every UTC day touched by a
// settled trade in [since, until].
func (s *DailyStatsService) RebuildRange(ctx context.Context, since, until time.Time) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	trades, err := s.Repo.ListTradesBetween(ctx, since, until)
	if err != nil {
		return err
	}

	byDay := map[time.Time]*models.DailyStats{}
	for _, trade := range trades {
		if trade.Status != "confirmed" && trade.Status != "simulated" {
			continue
		}
		at := trade.CreatedAt
		if trade.ExecutedAt != nil {
			at = *trade.ExecutedAt
		}
		day := at.UTC().Truncate(24 * time.Hour)
		row, ok := byDay[day]
		if !ok {
			row = &models.DailyStats{Date: day}
			byDay[day] = row
		}
		row.TradesCount++
		row.VolumeUSD = row.VolumeUSD.Add(trade.SizeUSD)
		row.FeesUSD = row.FeesUSD.Add(trade.FeeUSD)
		if trade.RealizedPnL != nil {
			row.RealizedPnL = row.RealizedPnL.Add(*trade.RealizedPnL)
			switch {
			case trade.RealizedPnL.GreaterThan(decimal.Zero):
				row.WinCount++
			case trade.RealizedPnL.LessThan(decimal.Zero):
				row.LossCount++
			}
		}
	}

	for _, row := range byDay {
		if err := s.Repo.UpsertDailyStats(ctx, row); err != nil {
			return err
		}
	}
	if s.Logger != nil && len(byDay) > 0 {
		s.Logger.Debug("daily stats rebuilt", zap.Int("days", len(byDay)))
	}
	return nil
}
