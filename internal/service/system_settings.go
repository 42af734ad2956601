package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

const (
	FeatureMarketData        = "feature.market_data"
	FeaturePumpStream        = "feature.pump_stream"
	FeatureMomentumScan      = "feature.momentum_scan"
	FeatureAgent             = "feature.agent"
	FeatureAutoExecute       = "feature.auto_execute"
	FeatureSecurityRefresh   = "feature.security_refresh"
	FeaturePortfolioSnapshot = "feature.portfolio_snapshot"
	FeatureDailyStats        = "feature.daily_stats"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureMarketData:        true,
		FeaturePumpStream:        true,
		FeatureMomentumScan:      true,
		FeatureAgent:             true,
		FeatureAutoExecute:       false, // live trading stays opt-in
		FeatureSecurityRefresh:   true,
		FeaturePortfolioSnapshot: true,
		FeatureDailyStats:        true,
	}
}

type SystemSettingsService struct {
	Repo repository.Repository
}

func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

// AutoExecuteEnabled satisfies the agent approval gate: with the
// switch off, risk-approved decisions wait for a manual sign-off.
func (s *SystemSettingsService) AutoExecuteEnabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FeatureAutoExecute, false)
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}
