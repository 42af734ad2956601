package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"numerusx/internal/models"
)

// Repository is the unified persistence surface shared by collectors, the
// agent, the risk manager, the execution engine, and the HTTP handlers.
type Repository interface {
	// Tokens
	UpsertTokenInfo(ctx context.Context, item *models.TokenInfo) error
	GetTokenByMint(ctx context.Context, mint string) (*models.TokenInfo, error)
	ListTokens(ctx context.Context, params ListTokensParams) ([]models.TokenInfo, error)
	CountTokens(ctx context.Context, params ListTokensParams) (int64, error)
	ListActiveMints(ctx context.Context, limit int) ([]string, error)

	// Price snapshots
	InsertPriceSnapshot(ctx context.Context, item *models.PriceSnapshot) error
	ListPriceSnapshots(ctx context.Context, mint string, since time.Time, limit int) ([]models.PriceSnapshot, error)
	LatestPriceSnapshot(ctx context.Context, mint string) (*models.PriceSnapshot, error)
	LatestPriceSnapshots(ctx context.Context, mints []string) (map[string]models.PriceSnapshot, error)
	DeletePriceSnapshotsBefore(ctx context.Context, before time.Time) (int64, error)

	// Signals
	InsertSignal(ctx context.Context, item *models.Signal) error
	ListSignals(ctx context.Context, params ListSignalsParams) ([]models.Signal, error)
	ListRecentSignalsByMint(ctx context.Context, mint string, since time.Time, limit int) ([]models.Signal, error)
	ListMintsWithRecentSignals(ctx context.Context, since time.Time, limit int) ([]string, error)
	DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error)

	// Signal sources
	UpsertSignalSource(ctx context.Context, item *models.SignalSource) error
	ListSignalSources(ctx context.Context) ([]models.SignalSource, error)

	// Security reports
	UpsertSecurityReport(ctx context.Context, item *models.SecurityReport) error
	GetSecurityReportByMint(ctx context.Context, mint string) (*models.SecurityReport, error)

	// AI decisions
	InsertAIDecision(ctx context.Context, item *models.AIDecision) error
	GetAIDecisionByID(ctx context.Context, id uint64) (*models.AIDecision, error)
	GetAIDecisionByDecisionID(ctx context.Context, decisionID string) (*models.AIDecision, error)
	ListAIDecisions(ctx context.Context, params ListAIDecisionsParams) ([]models.AIDecision, error)
	CountAIDecisions(ctx context.Context, params ListAIDecisionsParams) (int64, error)
	UpdateAIDecisionStatus(ctx context.Context, id uint64, status string, updates map[string]any) error
	ExpirePendingDecisions(ctx context.Context, before time.Time) (int64, error)

	// Trades
	InsertTrade(ctx context.Context, item *models.Trade) error
	GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	ListTradesByStatuses(ctx context.Context, statuses []string, limit int) ([]models.Trade, error)
	UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error
	SumRealizedPnLSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	// SumOpenTradeSizeUSD totals in-flight BUY trades only; an
	// in-flight SELL releases exposure rather than consuming it.
	SumOpenTradeSizeUSD(ctx context.Context) (decimal.Decimal, error)

	// Positions
	UpsertPosition(ctx context.Context, item *models.Position) error
	GetPositionByMint(ctx context.Context, mint string) (*models.Position, error)
	ListPositions(ctx context.Context, params ListPositionsParams) ([]models.Position, error)
	CountPositions(ctx context.Context, params ListPositionsParams) (int64, error)
	ListOpenPositions(ctx context.Context) ([]models.Position, error)
	PositionsSummary(ctx context.Context) (PositionsSummary, error)

	// Portfolio snapshots
	InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error
	ListPortfolioSnapshots(ctx context.Context, params ListPortfolioSnapshotsParams) ([]models.PortfolioSnapshot, error)

	// Daily stats
	UpsertDailyStats(ctx context.Context, item *models.DailyStats) error
	ListDailyStats(ctx context.Context, params ListDailyStatsParams) ([]models.DailyStats, error)
	ListTradesBetween(ctx context.Context, since, until time.Time) ([]models.Trade, error)

	// Analytics
	AnalyticsOverview(ctx context.Context) (AnalyticsOverview, error)

	// System logs
	InsertSystemLog(ctx context.Context, item *models.SystemLog) error
	ListSystemLogs(ctx context.Context, params ListSystemLogsParams) ([]models.SystemLog, error)
	CountSystemLogs(ctx context.Context, params ListSystemLogsParams) (int64, error)

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type ListTokensParams struct {
	Limit   int
	Offset  int
	Active  *bool
	Symbol  *string
	OrderBy string
	Asc     *bool
}

type ListSignalsParams struct {
	Limit   int
	Offset  int
	Type    *string
	Source  *string
	Mint    *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListAIDecisionsParams struct {
	Limit   int
	Offset  int
	Mint    *string
	Action  *string
	Status  *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListTradesParams struct {
	Limit      int
	Offset     int
	Mint       *string
	Side       *string
	Status     *string
	DecisionID *uint64
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListPositionsParams struct {
	Limit   int
	Offset  int
	Status  *string
	Mint    *string
	OrderBy string
	Asc     *bool
}

type ListPortfolioSnapshotsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

type ListDailyStatsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

type ListSystemLogsParams struct {
	Limit     int
	Offset    int
	Level     *string
	Component *string
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

type PositionsSummary struct {
	TotalOpen      int64
	TotalCostBasis float64
	TotalMarketVal float64
	UnrealizedPnL  float64
	RealizedPnL    float64
	NetLiquidation float64
}

type AnalyticsOverview struct {
	TotalDecisions   int64
	ExecutedCount    int64
	RejectedCount    int64
	TotalTrades      int64
	ConfirmedTrades  int64
	FailedTrades     int64
	TotalVolumeUSD   float64
	TotalRealizedPnL float64
}
