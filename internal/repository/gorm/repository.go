package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Tokens -----------------------------------------------------------------

func (s *Store) UpsertTokenInfo(ctx context.Context, item *models.TokenInfo) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Mint) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"symbol",
			"name",
			"decimals",
			"price_usd",
			"liquidity_usd",
			"volume_24h_usd",
			"pair_address",
			"dex_id",
			"labels",
			"active",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetTokenByMint(ctx context.Context, mint string) (*models.TokenInfo, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TokenInfo
	err := s.db.WithContext(ctx).Where("mint = ?", strings.TrimSpace(mint)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTokens(ctx context.Context, params repository.ListTokensParams) ([]models.TokenInfo, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.tokensQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "updated_at")
	var items []models.TokenInfo
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTokens(ctx context.Context, params repository.ListTokensParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.tokensQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) tokensQuery(ctx context.Context, params repository.ListTokensParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.TokenInfo{})
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol ILIKE ?", "%"+strings.TrimSpace(*params.Symbol)+"%")
	}
	return query
}

func (s *Store) ListActiveMints(ctx context.Context, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var mints []string
	err := s.db.WithContext(ctx).
		Model(&models.TokenInfo{}).
		Where("active = ?", true).
		Order("updated_at desc").
		Limit(normalizeLimit(limit, 200)).
		Pluck("mint", &mints).Error
	if err != nil {
		return nil, err
	}
	return mints, nil
}

// --- Price snapshots --------------------------------------------------------

func (s *Store) InsertPriceSnapshot(ctx context.Context, item *models.PriceSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPriceSnapshots(ctx context.Context, mint string, since time.Time, limit int) ([]models.PriceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.PriceSnapshot{}).
		Where("mint = ?", strings.TrimSpace(mint))
	if !since.IsZero() {
		query = query.Where("captured_at >= ?", since)
	}
	var items []models.PriceSnapshot
	if err := query.Order("captured_at asc").Limit(normalizeLimit(limit, 500)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestPriceSnapshot(ctx context.Context, mint string) (*models.PriceSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("mint = ?", strings.TrimSpace(mint)).
		Order("captured_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) LatestPriceSnapshots(ctx context.Context, mints []string) (map[string]models.PriceSnapshot, error) {
	if s == nil || s.db == nil || len(mints) == 0 {
		return map[string]models.PriceSnapshot{}, nil
	}
	var items []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Raw(`
			SELECT DISTINCT ON (mint) *
			FROM price_snapshots
			WHERE mint IN ?
			ORDER BY mint, captured_at DESC
		`, mints).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PriceSnapshot, len(items))
	for _, it := range items {
		out[it.Mint] = it
	}
	return out, nil
}

func (s *Store) DeletePriceSnapshotsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("captured_at < ?", before).
		Delete(&models.PriceSnapshot{})
	return res.RowsAffected, res.Error
}

// --- Signals ----------------------------------------------------------------

func (s *Store) InsertSignal(ctx context.Context, item *models.Signal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Signal{})
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("signal_type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	if params.Mint != nil && strings.TrimSpace(*params.Mint) != "" {
		query = query.Where("mint = ?", strings.TrimSpace(*params.Mint))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Signal
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRecentSignalsByMint(ctx context.Context, mint string, since time.Time, limit int) ([]models.Signal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Signal
	err := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("mint = ?", strings.TrimSpace(mint)).
		Where("created_at >= ?", since).
		Order("created_at desc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMintsWithRecentSignals(ctx context.Context, since time.Time, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var mints []string
	err := s.db.WithContext(ctx).
		Model(&models.Signal{}).
		Where("mint IS NOT NULL").
		Where("created_at >= ?", since).
		Group("mint").
		Order("MAX(created_at) DESC").
		Limit(normalizeLimit(limit, 100)).
		Pluck("mint", &mints).Error
	if err != nil {
		return nil, err
	}
	return mints, nil
}

func (s *Store) DeleteExpiredSignals(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", before).
		Delete(&models.Signal{})
	return res.RowsAffected, res.Error
}

// --- Signal sources ---------------------------------------------------------

func (s *Store) UpsertSignalSource(ctx context.Context, item *models.SignalSource) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"source_type",
			"endpoint",
			"poll_interval",
			"enabled",
			"last_poll_at",
			"last_error",
			"health_status",
			"config",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListSignalSources(ctx context.Context) ([]models.SignalSource, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SignalSource
	if err := s.db.WithContext(ctx).
		Model(&models.SignalSource{}).
		Order("name asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Security reports -------------------------------------------------------

func (s *Store) UpsertSecurityReport(ctx context.Context, item *models.SecurityReport) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Mint) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"verdict",
			"score",
			"mint_authority",
			"freeze_authority",
			"lp_locked_pct",
			"top_holder_pct",
			"flags",
			"checked_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSecurityReportByMint(ctx context.Context, mint string) (*models.SecurityReport, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SecurityReport
	err := s.db.WithContext(ctx).Where("mint = ?", strings.TrimSpace(mint)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- AI decisions -----------------------------------------------------------

func (s *Store) InsertAIDecision(ctx context.Context, item *models.AIDecision) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAIDecisionByID(ctx context.Context, id uint64) (*models.AIDecision, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.AIDecision
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetAIDecisionByDecisionID(ctx context.Context, decisionID string) (*models.AIDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AIDecision
	err := s.db.WithContext(ctx).Where("decision_id = ?", strings.TrimSpace(decisionID)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAIDecisions(ctx context.Context, params repository.ListAIDecisionsParams) ([]models.AIDecision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.decisionsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.AIDecision
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAIDecisions(ctx context.Context, params repository.ListAIDecisionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.decisionsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) decisionsQuery(ctx context.Context, params repository.ListAIDecisionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.AIDecision{})
	if params.Mint != nil && strings.TrimSpace(*params.Mint) != "" {
		query = query.Where("mint = ?", strings.TrimSpace(*params.Mint))
	}
	if params.Action != nil && strings.TrimSpace(*params.Action) != "" {
		query = query.Where("action = ?", strings.ToUpper(strings.TrimSpace(*params.Action)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) UpdateAIDecisionStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	values := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	return s.db.WithContext(ctx).
		Model(&models.AIDecision{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (s *Store) ExpirePendingDecisions(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.AIDecision{}).
		Where("status = ?", "pending").
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", before).
		Updates(map[string]any{"status": "expired", "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// --- Trades -----------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.tradesQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Trade
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.tradesQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) tradesQuery(ctx context.Context, params repository.ListTradesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Trade{})
	if params.Mint != nil && strings.TrimSpace(*params.Mint) != "" {
		query = query.Where("mint = ?", strings.TrimSpace(*params.Mint))
	}
	if params.Side != nil && strings.TrimSpace(*params.Side) != "" {
		query = query.Where("side = ?", strings.ToUpper(strings.TrimSpace(*params.Side)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.DecisionID != nil && *params.DecisionID > 0 {
		query = query.Where("decision_id = ?", *params.DecisionID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListTradesByStatuses(ctx context.Context, statuses []string, limit int) ([]models.Trade, error) {
	if s == nil || s.db == nil || len(statuses) == 0 {
		return nil, nil
	}
	var items []models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("status IN ?", statuses).
		Order("created_at asc").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	values := map[string]any{"status": status, "updated_at": time.Now().UTC()}
	for k, v := range updates {
		values[k] = v
	}
	return s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (s *Store) SumRealizedPnLSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var raw *string
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Select("COALESCE(SUM(realized_pnl),0)::text").
		Where("realized_pnl IS NOT NULL").
		Where("executed_at >= ?", since).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (s *Store) SumOpenTradeSizeUSD(ctx context.Context) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var raw *string
	err := openBuyExposure(s.db.WithContext(ctx)).Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// openBuyExposure scopes trades that still hold buy-side capacity. SELLs
// are excluded: an in-flight sell releases exposure, it does not add any.
func openBuyExposure(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Trade{}).
		Select("COALESCE(SUM(size_usd),0)::text").
		Where("side = ?", "BUY").
		Where("status IN ?", []string{"pending", "submitted"})
}

func (s *Store) ListTradesBetween(ctx context.Context, since, until time.Time) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("executed_at IS NOT NULL").
		Where("executed_at >= ? AND executed_at < ?", since, until).
		Where("status IN ?", []string{"confirmed", "simulated"}).
		Order("executed_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Positions --------------------------------------------------------------

func (s *Store) UpsertPosition(ctx context.Context, item *models.Position) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Mint) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity",
			"avg_entry_price",
			"current_price",
			"cost_basis",
			"unrealized_pnl",
			"realized_pnl",
			"status",
			"opened_at",
			"closed_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetPositionByMint(ctx context.Context, mint string) (*models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Position
	err := s.db.WithContext(ctx).Where("mint = ?", strings.TrimSpace(mint)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPositions(ctx context.Context, params repository.ListPositionsParams) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.positionsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "updated_at")
	var items []models.Position
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPositions(ctx context.Context, params repository.ListPositionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.positionsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) positionsQuery(ctx context.Context, params repository.ListPositionsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Position{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Mint != nil && strings.TrimSpace(*params.Mint) != "" {
		query = query.Where("mint = ?", strings.TrimSpace(*params.Mint))
	}
	return query
}

func (s *Store) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("status = ?", "open").
		Order("opened_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) PositionsSummary(ctx context.Context) (repository.PositionsSummary, error) {
	if s == nil || s.db == nil {
		return repository.PositionsSummary{}, nil
	}
	var row struct {
		TotalOpen      int64
		TotalCostBasis float64
		TotalMarketVal float64
		UnrealizedPnL  float64
		RealizedPnL    float64
	}
	err := s.db.WithContext(ctx).
		Table("positions").
		Select(`
			COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END),0) AS total_open,
			COALESCE(SUM(CASE WHEN status = 'open' THEN cost_basis ELSE 0 END),0) AS total_cost_basis,
			COALESCE(SUM(CASE WHEN status = 'open' THEN (current_price * quantity) ELSE 0 END),0) AS total_market_val,
			COALESCE(SUM(CASE WHEN status = 'open' THEN unrealized_pnl ELSE 0 END),0) AS unrealized_pnl,
			COALESCE(SUM(realized_pnl),0) AS realized_pnl
		`).
		Scan(&row).Error
	if err != nil {
		return repository.PositionsSummary{}, err
	}
	return repository.PositionsSummary{
		TotalOpen:      row.TotalOpen,
		TotalCostBasis: row.TotalCostBasis,
		TotalMarketVal: row.TotalMarketVal,
		UnrealizedPnL:  row.UnrealizedPnL,
		RealizedPnL:    row.RealizedPnL,
		NetLiquidation: row.TotalMarketVal + row.RealizedPnL,
	}, nil
}

// --- Portfolio snapshots ----------------------------------------------------

func (s *Store) InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_at"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListPortfolioSnapshots(ctx context.Context, params repository.ListPortfolioSnapshotsParams) ([]models.PortfolioSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PortfolioSnapshot{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("snapshot_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("snapshot_at < ?", *params.Until)
	}
	var items []models.PortfolioSnapshot
	if err := query.Order("snapshot_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Daily stats ------------------------------------------------------------

func (s *Store) UpsertDailyStats(ctx context.Context, item *models.DailyStats) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trades_count",
			"win_count",
			"loss_count",
			"volume_usd",
			"realized_pnl",
			"fees_usd",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListDailyStats(ctx context.Context, params repository.ListDailyStatsParams) ([]models.DailyStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DailyStats{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("date >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("date < ?", *params.Until)
	}
	var items []models.DailyStats
	if err := query.Order("date desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Analytics --------------------------------------------------------------

func (s *Store) AnalyticsOverview(ctx context.Context) (repository.AnalyticsOverview, error) {
	if s == nil || s.db == nil {
		return repository.AnalyticsOverview{}, nil
	}
	var decisions struct {
		TotalDecisions int64
		ExecutedCount  int64
		RejectedCount  int64
	}
	err := s.db.WithContext(ctx).
		Table("ai_decisions").
		Select(`
			COUNT(*) AS total_decisions,
			COALESCE(SUM(CASE WHEN status = 'executed' THEN 1 ELSE 0 END),0) AS executed_count,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END),0) AS rejected_count
		`).
		Scan(&decisions).Error
	if err != nil {
		return repository.AnalyticsOverview{}, err
	}
	var trades struct {
		TotalTrades      int64
		ConfirmedTrades  int64
		FailedTrades     int64
		TotalVolumeUSD   float64
		TotalRealizedPnL float64
	}
	err = s.db.WithContext(ctx).
		Table("trades").
		Select(`
			COUNT(*) AS total_trades,
			COALESCE(SUM(CASE WHEN status IN ('confirmed','simulated') THEN 1 ELSE 0 END),0) AS confirmed_trades,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),0) AS failed_trades,
			COALESCE(SUM(CASE WHEN status IN ('confirmed','simulated') THEN size_usd ELSE 0 END),0) AS total_volume_usd,
			COALESCE(SUM(COALESCE(realized_pnl,0)),0) AS total_realized_pn_l
		`).
		Scan(&trades).Error
	if err != nil {
		return repository.AnalyticsOverview{}, err
	}
	return repository.AnalyticsOverview{
		TotalDecisions:   decisions.TotalDecisions,
		ExecutedCount:    decisions.ExecutedCount,
		RejectedCount:    decisions.RejectedCount,
		TotalTrades:      trades.TotalTrades,
		ConfirmedTrades:  trades.ConfirmedTrades,
		FailedTrades:     trades.FailedTrades,
		TotalVolumeUSD:   trades.TotalVolumeUSD,
		TotalRealizedPnL: trades.TotalRealizedPnL,
	}, nil
}

// --- System logs ------------------------------------------------------------

func (s *Store) InsertSystemLog(ctx context.Context, item *models.SystemLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSystemLogs(ctx context.Context, params repository.ListSystemLogsParams) ([]models.SystemLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.systemLogsQuery(ctx, params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.SystemLog
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSystemLogs(ctx context.Context, params repository.ListSystemLogsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	if err := s.systemLogsQuery(ctx, params).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) systemLogsQuery(ctx context.Context, params repository.ListSystemLogsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.SystemLog{})
	if params.Level != nil && strings.TrimSpace(*params.Level) != "" {
		query = query.Where("level = ?", strings.ToLower(strings.TrimSpace(*params.Level)))
	}
	if params.Component != nil && strings.TrimSpace(*params.Component) != "" {
		query = query.Where("component = ?", strings.TrimSpace(*params.Component))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	return query
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Where("key = ?", strings.TrimSpace(key)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	var items []models.SystemSetting
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
