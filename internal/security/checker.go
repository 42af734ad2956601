// Package security screens mints before the agent is allowed to buy
// them. Verdicts come in three grades: safe, warn and danger. A danger
// verdict blocks new entries unconditionally; exits stay allowed so an
// open position in a token that turns dangerous can still be sold.
// Warn is surfaced to the agent as context.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"numerusx/internal/client/rugcheck"
	"numerusx/internal/config"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

const (
	VerdictSafe   = "safe"
	VerdictWarn   = "warn"
	VerdictDanger = "danger"
)

// ReportFetcher is the slice of the RugCheck client the checker needs.
type ReportFetcher interface {
	TokenReport(ctx context.Context, mint string) (*rugcheck.Report, error)
}

type Checker struct {
	fetcher ReportFetcher
	repo    repository.Repository
	logger  *zap.Logger

	cacheTTL        time.Duration
	minScore        float64
	maxTopHolderPct float64
	minLPLockedPct  float64
	blacklist       map[string]bool
}

func NewChecker(fetcher ReportFetcher, repo repository.Repository, cfg config.SecurityConfig, logger *zap.Logger) *Checker {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	blacklist := map[string]bool{}
	for _, mint := range cfg.Blacklist {
		mint = strings.TrimSpace(mint)
		if mint != "" {
			blacklist[mint] = true
		}
	}
	return &Checker{
		fetcher:         fetcher,
		repo:            repo,
		logger:          logger,
		cacheTTL:        cacheTTL,
		minScore:        cfg.MinScore,
		maxTopHolderPct: cfg.MaxTopHolderPct,
		minLPLockedPct:  cfg.MinLPLockedPct,
		blacklist:       blacklist,
	}
}

// Check returns the current security report for a mint, refreshing it
// from RugCheck when the cached row is stale or absent. Lookup failures
// degrade to a warn verdict; trading decisions stay possible but the
// agent sees the token as unverified.
func (c *Checker) Check(ctx context.Context, mint string) (*models.SecurityReport, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, errors.New("security check: mint is required")
	}
	now := time.Now().UTC()

	if c.blacklist[mint] {
		report := &models.SecurityReport{
			Mint:      mint,
			Verdict:   VerdictDanger,
			Flags:     flagsJSON([]string{"blacklisted"}),
			CheckedAt: now,
		}
		c.persist(ctx, report)
		return report, nil
	}

	if c.repo != nil {
		cached, err := c.repo.GetSecurityReportByMint(ctx, mint)
		if err == nil && cached != nil && now.Sub(cached.CheckedAt) < c.cacheTTL {
			return cached, nil
		}
	}

	return c.refresh(ctx, mint, now)
}

// Refresh bypasses the cache. Used by the cron job that re-screens
// tokens with open positions.
func (c *Checker) Refresh(ctx context.Context, mint string) (*models.SecurityReport, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, errors.New("security refresh: mint is required")
	}
	if c.blacklist[mint] {
		return c.Check(ctx, mint)
	}
	return c.refresh(ctx, mint, time.Now().UTC())
}

func (c *Checker) refresh(ctx context.Context, mint string, now time.Time) (*models.SecurityReport, error) {
	if c.fetcher == nil {
		return c.unverified(ctx, mint, now, "no security source configured"), nil
	}
	raw, err := c.fetcher.TokenReport(ctx, mint)
	if errors.Is(err, rugcheck.ErrNotIndexed) {
		return c.unverified(ctx, mint, now, "not indexed"), nil
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("security lookup failed", zap.String("mint", mint), zap.Error(err))
		}
		return c.unverified(ctx, mint, now, err.Error()), nil
	}

	report := c.grade(mint, raw, now)
	c.persist(ctx, report)
	return report, nil
}

func (c *Checker) grade(mint string, raw *rugcheck.Report, now time.Time) *models.SecurityReport {
	var flags []string
	verdict := VerdictSafe

	warn := func(flag string) {
		flags = append(flags, flag)
		if verdict == VerdictSafe {
			verdict = VerdictWarn
		}
	}
	danger := func(flag string) {
		flags = append(flags, flag)
		verdict = VerdictDanger
	}

	mintAuth := raw.Token.MintAuthority != nil
	freezeAuth := raw.Token.FreezeAuthority != nil
	if mintAuth {
		danger("mint_authority_enabled")
	}
	if freezeAuth {
		danger("freeze_authority_enabled")
	}
	if raw.HasDangerRisk() {
		danger("danger_risk_reported")
	}

	topHolder := raw.MaxTopHolderPct()
	if c.maxTopHolderPct > 0 && topHolder > c.maxTopHolderPct {
		warn("top_holder_concentration")
	}
	lpLocked := raw.BestLPLockedPct()
	if c.minLPLockedPct > 0 && lpLocked < c.minLPLockedPct {
		warn("lp_unlocked")
	}
	if c.minScore > 0 && raw.Score < c.minScore {
		warn("low_score")
	}

	return &models.SecurityReport{
		Mint:            mint,
		Verdict:         verdict,
		Score:           raw.Score,
		MintAuthority:   mintAuth,
		FreezeAuthority: freezeAuth,
		LPLockedPct:     lpLocked,
		TopHolderPct:    topHolder,
		Flags:           flagsJSON(flags),
		CheckedAt:       now,
	}
}

func (c *Checker) unverified(ctx context.Context, mint string, now time.Time, reason string) *models.SecurityReport {
	report := &models.SecurityReport{
		Mint:      mint,
		Verdict:   VerdictWarn,
		Flags:     flagsJSON([]string{"unverified: " + reason}),
		CheckedAt: now,
	}
	c.persist(ctx, report)
	return report
}

func (c *Checker) persist(ctx context.Context, report *models.SecurityReport) {
	if c.repo == nil {
		return
	}
	if err := c.repo.UpsertSecurityReport(ctx, report); err != nil && c.logger != nil {
		c.logger.Warn("persist security report failed", zap.String("mint", report.Mint), zap.Error(err))
	}
}

func flagsJSON(flags []string) []byte {
	if len(flags) == 0 {
		return []byte(`[]`)
	}
	raw, _ := json.Marshal(flags)
	return raw
}
