package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"numerusx/internal/config"
	"numerusx/internal/indicators"
	"numerusx/internal/models"
	"numerusx/internal/repository"
	"numerusx/internal/security"
)

// SecurityChecker is the slice of the security package the aggregator needs.
type SecurityChecker interface {
	Check(ctx context.Context, mint string) (*models.SecurityReport, error)
}

// Aggregator assembles AggregatedInputs for candidate mints from the
// repository, the indicator package and the security checker.
type Aggregator struct {
	Repo    repository.Repository
	Checker SecurityChecker
	Risk    config.RiskConfig

	IndicatorWindow time.Duration
	SignalWindow    time.Duration
}

// Candidates returns the mints worth a decision this cycle: every mint
// with fresh signals plus every mint with an open position.
func (a *Aggregator) Candidates(ctx context.Context, limit int) ([]string, error) {
	if a == nil || a.Repo == nil {
		return nil, fmt.Errorf("agent: aggregator not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	window := a.SignalWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	since := time.Now().UTC().Add(-window)

	mints, err := a.Repo.ListMintsWithRecentSignals(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, m := range mints {
		seen[m] = true
	}
	positions, err := a.Repo.ListOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if !seen[p.Mint] {
			seen[p.Mint] = true
			mints = append(mints, p.Mint)
		}
	}
	return mints, nil
}

// Build assembles the full input document for one mint. It returns an
// error when no market data exists at all; a token without a price has
// nothing to decide on.
func (a *Aggregator) Build(ctx context.Context, mint string) (*AggregatedInputs, error) {
	if a == nil || a.Repo == nil {
		return nil, fmt.Errorf("agent: aggregator not configured")
	}
	now := time.Now().UTC()

	latest, err := a.Repo.LatestPriceSnapshot(ctx, mint)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("agent: no market data for %s", mint)
	}

	inputs := &AggregatedInputs{
		Mint:        mint,
		GeneratedAt: now,
		DataAgeMs:   int(now.Sub(latest.CapturedAt).Milliseconds()),
		MarketData: MarketDataInput{
			PriceUSD:          latest.PriceUSD,
			LiquidityUSD:      latest.LiquidityUSD,
			Volume24hUSD:      latest.VolumeUSD,
			PriceChange1hPct:  latest.PriceChange1hPct,
			PriceChange24hPct: latest.PriceChange24hPct,
			CapturedAt:        latest.CapturedAt,
		},
	}

	if token, err := a.Repo.GetTokenByMint(ctx, mint); err == nil && token != nil {
		inputs.Symbol = token.Symbol
	}

	inputs.Technical = a.technical(ctx, mint, now)
	inputs.Risk = a.riskInput(ctx, mint, now)
	inputs.Security = a.securityInput(ctx, mint)
	inputs.Signals = a.recentSignals(ctx, mint, now)

	return inputs, nil
}

func (a *Aggregator) technical(ctx context.Context, mint string, now time.Time) TechnicalInput {
	window := a.IndicatorWindow
	if window <= 0 {
		window = 2 * time.Hour
	}
	snaps, err := a.Repo.ListPriceSnapshots(ctx, mint, now.Add(-window), 500)
	if err != nil {
		return TechnicalInput{}
	}
	prices := make([]float64, 0, len(snaps))
	for _, s := range snaps {
		p, _ := s.PriceUSD.Float64()
		if p > 0 {
			prices = append(prices, p)
		}
	}
	out := TechnicalInput{Samples: len(prices)}
	if rsi, ok := indicators.RSI(prices, 14); ok {
		out.RSI = &rsi
	}
	if ema, ok := indicators.EMA(prices, 12); ok {
		out.EMAShort = &ema
	}
	if ema, ok := indicators.EMA(prices, 26); ok {
		out.EMALong = &ema
	}
	if macd, ok := indicators.MACD(prices, 12, 26, 9); ok {
		out.MACD = &macd.MACD
		out.MACDSignal = &macd.Signal
		out.MACDHistogram = &macd.Histogram
	}
	if vol, ok := indicators.Volatility(prices, 20); ok {
		out.Volatility = &vol
	}
	return out
}

func (a *Aggregator) riskInput(ctx context.Context, mint string, now time.Time) RiskInput {
	out := RiskInput{
		MaxTotalExposureUSD: a.Risk.MaxTotalExposureUSD,
		MaxPerTokenUSD:      a.Risk.MaxPerTokenUSD,
		TotalExposureUSD:    decimal.Zero,
		TokenExposureUSD:    decimal.Zero,
		DailyRealizedPnLUSD: decimal.Zero,
		PositionQuantity:    decimal.Zero,
		PositionAvgEntry:    decimal.Zero,
	}
	positions, err := a.Repo.ListOpenPositions(ctx)
	if err == nil {
		out.OpenPositions = int64(len(positions))
		for _, p := range positions {
			out.TotalExposureUSD = out.TotalExposureUSD.Add(p.CostBasis)
			if p.Mint == mint {
				out.HasOpenPosition = true
				out.TokenExposureUSD = p.CostBasis
				out.PositionQuantity = p.Quantity
				out.PositionAvgEntry = p.AvgEntryPrice
			}
		}
	}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if pnl, err := a.Repo.SumRealizedPnLSince(ctx, dayStart); err == nil {
		out.DailyRealizedPnLUSD = pnl
	}
	return out
}

func (a *Aggregator) securityInput(ctx context.Context, mint string) SecurityInput {
	out := SecurityInput{Verdict: security.VerdictWarn}
	if a.Checker == nil {
		out.Flags = []string{"no security checker configured"}
		return out
	}
	report, err := a.Checker.Check(ctx, mint)
	if err != nil || report == nil {
		out.Flags = []string{"security check failed"}
		return out
	}
	out.Verdict = report.Verdict
	out.Score = report.Score
	out.TopHolderPct = report.TopHolderPct
	out.LPLockedPct = report.LPLockedPct
	if len(report.Flags) > 0 {
		var flags []string
		if err := json.Unmarshal(report.Flags, &flags); err == nil {
			out.Flags = flags
		}
	}
	return out
}

func (a *Aggregator) recentSignals(ctx context.Context, mint string, now time.Time) []SignalInput {
	window := a.SignalWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	sigs, err := a.Repo.ListRecentSignalsByMint(ctx, mint, now.Add(-window), 20)
	if err != nil {
		return nil
	}
	out := make([]SignalInput, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, SignalInput{
			Type:      s.SignalType,
			Source:    s.Source,
			Direction: s.Direction,
			Strength:  s.Strength,
			CreatedAt: s.CreatedAt,
		})
	}
	return out
}
