// Package risk gates every trade proposal before execution. The manager
// never enlarges a proposed size; it only shrinks or rejects it.
package risk

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"numerusx/internal/config"
	"numerusx/internal/repository"
)

type Manager struct {
	Config config.RiskConfig
	Repo   repository.Repository
	Logger *zap.Logger

	mu sync.Mutex

	lastExposureAt time.Time
	exposureCache  exposureSnapshot

	lastDailyPnLAt time.Time
	dailyPnLCache  decimal.Decimal

	lastOpenCountAt time.Time
	openCountCache  int64
}

// Proposal is a trade the agent wants to make, before risk review.
type Proposal struct {
	Mint      string
	Action    string // BUY|SELL
	SizeUSD   decimal.Decimal
	DataAgeMs int
}

// Verdict is the manager's ruling. SizeUSD is the approved size, which
// is at most the proposed size and may be zero when the trade is
// rejected outright.
type Verdict struct {
	Allowed  bool
	SizeUSD  decimal.Decimal
	Reasons  []string
	Warnings []string
}

type exposureSnapshot struct {
	Total  decimal.Decimal
	ByMint map[string]decimal.Decimal
}

// Evaluate applies the configured limits to a proposal. SELLs reduce
// exposure and are only subject to staleness review; BUYs face the
// full set of caps.
func (m *Manager) Evaluate(ctx context.Context, p Proposal) Verdict {
	if m == nil {
		return Verdict{Allowed: true, SizeUSD: p.SizeUSD}
	}
	action := strings.ToUpper(strings.TrimSpace(p.Action))
	verdict := Verdict{Allowed: true, SizeUSD: p.SizeUSD}

	if m.rejectStale(p.DataAgeMs) {
		staleAction := strings.ToLower(strings.TrimSpace(m.Config.StaleDataAction))
		if staleAction == "" {
			staleAction = "block"
		}
		if staleAction == "warn" {
			verdict.Warnings = append(verdict.Warnings, "stale_data")
		} else {
			m.logReject("stale data", p)
			return Verdict{Allowed: false, SizeUSD: decimal.Zero, Reasons: []string{"stale_data"}}
		}
	}

	if action != "BUY" {
		return verdict
	}

	if m.Repo == nil {
		return verdict
	}

	dailyPnL := m.dailyPnL(ctx)
	if m.rejectDailyLoss(dailyPnL) {
		m.logReject("daily loss limit", p)
		return Verdict{Allowed: false, SizeUSD: decimal.Zero, Reasons: []string{"daily_loss_limit"}}
	}

	exp := m.exposures(ctx, time.Now().UTC())

	if m.Config.MaxOpenPositions > 0 {
		if _, held := exp.ByMint[p.Mint]; !held {
			if m.openPositions(ctx) >= int64(m.Config.MaxOpenPositions) {
				m.logReject("max open positions", p)
				return Verdict{Allowed: false, SizeUSD: decimal.Zero, Reasons: []string{"max_open_positions"}}
			}
		}
	}

	sized, warnings := limitSize(m.Config, exp, p.Mint, verdict.SizeUSD)
	verdict.Warnings = append(verdict.Warnings, warnings...)
	verdict.SizeUSD = sized
	if sized.LessThanOrEqual(decimal.Zero) {
		m.logReject("no remaining capacity", p)
		return Verdict{Allowed: false, SizeUSD: decimal.Zero, Reasons: append(verdict.Warnings, "no_capacity")}
	}
	return verdict
}

func (m *Manager) logReject(reason string, p Proposal) {
	if m.Logger != nil {
		m.Logger.Debug("risk: rejected proposal",
			zap.String("reason", reason),
			zap.String("mint", p.Mint),
			zap.String("action", p.Action),
			zap.String("size_usd", p.SizeUSD.StringFixed(2)),
		)
	}
}

// limitSize is a pure helper for sizing caps (testable without a repo).
// It caps the requested size by the kelly fraction of the capital base,
// the remaining total capacity and the remaining per-token capacity.
func limitSize(cfg config.RiskConfig, exp exposureSnapshot, mint string, requested decimal.Decimal) (decimal.Decimal, []string) {
	warnings := []string{}
	sized := requested
	if sized.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, warnings
	}

	if k := kellyFraction(cfg); k > 0 && cfg.MaxTotalExposureUSD > 0 {
		base := decimal.NewFromFloat(cfg.MaxTotalExposureUSD)
		kellyCap := base.Mul(decimal.NewFromFloat(k))
		if kellyCap.GreaterThan(decimal.Zero) && sized.GreaterThan(kellyCap) {
			sized = kellyCap
			warnings = append(warnings, "kelly_cap")
		}
	}

	if cfg.MaxTotalExposureUSD > 0 {
		limit := decimal.NewFromFloat(cfg.MaxTotalExposureUSD)
		remaining := limit.Sub(exp.Total)
		if remaining.LessThan(decimal.Zero) {
			remaining = decimal.Zero
		}
		if sized.GreaterThan(remaining) {
			sized = remaining
			warnings = append(warnings, "total_exposure_cap")
		}
	}

	if cfg.MaxPerTokenUSD > 0 && strings.TrimSpace(mint) != "" {
		limit := decimal.NewFromFloat(cfg.MaxPerTokenUSD)
		remaining := limit.Sub(exp.ByMint[mint])
		if remaining.LessThan(decimal.Zero) {
			remaining = decimal.Zero
		}
		if sized.GreaterThan(remaining) {
			sized = remaining
			warnings = append(warnings, "token_exposure_cap")
		}
	}

	if sized.LessThan(decimal.Zero) {
		sized = decimal.Zero
	}
	return sized, warnings
}

func kellyFraction(cfg config.RiskConfig) float64 {
	k := cfg.DefaultKellyFraction
	if k <= 0 {
		return 0
	}
	if cfg.KellyFractionCap > 0 && k > cfg.KellyFractionCap {
		k = cfg.KellyFractionCap
	}
	return k
}

// CalculateKelly sizes a bet fraction from the win probability and the
// win/loss payout ratio, capped by config.
func (m *Manager) CalculateKelly(winProb, winAmount, lossAmount float64) float64 {
	if winAmount <= 0 {
		return 0
	}
	k := (winProb*winAmount - (1.0-winProb)*lossAmount) / winAmount
	if m != nil && m.Config.KellyFractionCap > 0 && k > m.Config.KellyFractionCap {
		return m.Config.KellyFractionCap
	}
	if k < 0 {
		return 0
	}
	return k
}

func (m *Manager) rejectStale(dataAgeMs int) bool {
	if m == nil || m.Config.MinDataFreshnessMs <= 0 {
		return false
	}
	if dataAgeMs <= 0 {
		// Unknown age; be permissive.
		return false
	}
	return dataAgeMs > m.Config.MinDataFreshnessMs
}

func (m *Manager) rejectDailyLoss(dayPnL decimal.Decimal) bool {
	if m == nil || m.Config.MaxDailyLossUSD <= 0 {
		return false
	}
	limit := decimal.NewFromFloat(m.Config.MaxDailyLossUSD)
	return dayPnL.LessThanOrEqual(limit.Neg())
}

// exposures caches the open-position cost basis snapshot for a short
// window to keep Evaluate cheap.
func (m *Manager) exposures(ctx context.Context, now time.Time) exposureSnapshot {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	m.mu.Lock()
	if !m.lastExposureAt.IsZero() && now.Sub(m.lastExposureAt) < 10*time.Second {
		c := m.exposureCache
		m.mu.Unlock()
		return c
	}
	m.mu.Unlock()

	out := exposureSnapshot{Total: decimal.Zero, ByMint: map[string]decimal.Decimal{}}
	positions, err := m.Repo.ListOpenPositions(ctx)
	if err != nil {
		return out
	}
	for _, p := range positions {
		out.Total = out.Total.Add(p.CostBasis)
		out.ByMint[p.Mint] = out.ByMint[p.Mint].Add(p.CostBasis)
	}
	// Not-yet-filled BUY trades occupy capacity too.
	pending, err := m.Repo.SumOpenTradeSizeUSD(ctx)
	if err == nil {
		out.Total = out.Total.Add(pending)
	}

	m.mu.Lock()
	m.lastExposureAt = now
	m.exposureCache = out
	m.mu.Unlock()
	return out
}

func (m *Manager) dailyPnL(ctx context.Context) decimal.Decimal {
	now := time.Now().UTC()
	m.mu.Lock()
	if !m.lastDailyPnLAt.IsZero() && now.Sub(m.lastDailyPnLAt) < 60*time.Second {
		v := m.dailyPnLCache
		m.mu.Unlock()
		return v
	}
	m.mu.Unlock()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sum, err := m.Repo.SumRealizedPnLSince(ctx, dayStart)
	if err != nil {
		return decimal.Zero
	}
	m.mu.Lock()
	m.lastDailyPnLAt = now
	m.dailyPnLCache = sum
	m.mu.Unlock()
	return sum
}

func (m *Manager) openPositions(ctx context.Context) int64 {
	now := time.Now().UTC()
	m.mu.Lock()
	if !m.lastOpenCountAt.IsZero() && now.Sub(m.lastOpenCountAt) < 10*time.Second {
		v := m.openCountCache
		m.mu.Unlock()
		return v
	}
	m.mu.Unlock()

	status := "open"
	count, err := m.Repo.CountPositions(ctx, repository.ListPositionsParams{Status: &status})
	if err != nil {
		return 0
	}
	m.mu.Lock()
	m.lastOpenCountAt = now
	m.openCountCache = count
	m.mu.Unlock()
	return count
}
