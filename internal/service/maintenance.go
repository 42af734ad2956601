package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"numerusx/internal/repository"
)

// MaintenanceService prunes expired signals and aged price snapshots.
type MaintenanceService struct {
	Repo         repository.Repository
	Logger       *zap.Logger
	SnapshotKeep time.Duration
}

func (s *MaintenanceService) Cleanup(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	signals, err := s.Repo.DeleteExpiredSignals(ctx, now)
	if err != nil {
		return err
	}
	keep := s.SnapshotKeep
	if keep <= 0 {
		keep = 7 * 24 * time.Hour
	}
	snapshots, err := s.Repo.DeletePriceSnapshotsBefore(ctx, now.Add(-keep))
	if err != nil {
		return err
	}
	if s.Logger != nil && (signals > 0 || snapshots > 0) {
		s.Logger.Debug("maintenance cleanup",
			zap.Int64("signals_deleted", signals),
			zap.Int64("snapshots_deleted", snapshots))
	}
	return nil
}
