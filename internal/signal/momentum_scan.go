package signal

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"numerusx/internal/indicators"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// MomentumScanCollector periodically recomputes technical indicators
// from stored price snapshots and emits momentum signals when RSI and
// MACD line up in the same direction.
type MomentumScanCollector struct {
	Repo   repository.Repository
	Logger *zap.Logger

	Interval      time.Duration
	Window        time.Duration
	Limit         int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64

	mu      sync.Mutex
	lastRun *time.Time
	lastErr *string
}

func (c *MomentumScanCollector) Name() string { return "momentum_scan" }

func (c *MomentumScanCollector) SourceInfo() SourceInfo {
	interval := c.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return SourceInfo{
		SourceType:   "internal",
		PollInterval: interval,
	}
}

func (c *MomentumScanCollector) Start(ctx context.Context, out chan<- models.Signal) error {
	if c == nil {
		return nil
	}
	interval := c.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if c.Repo == nil {
				continue
			}
			c.scanOnce(ctx, out)
		}
	}
}

func (c *MomentumScanCollector) Stop() error { return nil }

func (c *MomentumScanCollector) Health() HealthStatus {
	if c == nil {
		return HealthStatus{Status: "unknown"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := "healthy"
	if c.lastErr != nil {
		status = "degraded"
	}
	if c.lastRun == nil {
		status = "unknown"
	}
	return HealthStatus{
		Status:     status,
		LastPollAt: c.lastRun,
		LastError:  c.lastErr,
	}
}

func (c *MomentumScanCollector) scanOnce(ctx context.Context, out chan<- models.Signal) {
	now := time.Now().UTC()
	limit := c.Limit
	if limit <= 0 {
		limit = 50
	}
	window := c.Window
	if window <= 0 {
		window = 2 * time.Hour
	}

	mints, err := c.Repo.ListActiveMints(ctx, limit)
	if err != nil {
		c.setRun(now, strPtr(err.Error()))
		return
	}
	c.setRun(now, nil)

	for _, mint := range mints {
		c.scanMint(ctx, out, mint, now.Add(-window), now)
	}
}

func (c *MomentumScanCollector) scanMint(ctx context.Context, out chan<- models.Signal, mint string, since, now time.Time) {
	snaps, err := c.Repo.ListPriceSnapshots(ctx, mint, since, 500)
	if err != nil || len(snaps) == 0 {
		return
	}
	prices := make([]float64, 0, len(snaps))
	for _, s := range snaps {
		p, _ := s.PriceUSD.Float64()
		if p > 0 {
			prices = append(prices, p)
		}
	}

	period := c.RSIPeriod
	if period <= 0 {
		period = 14
	}
	rsi, rsiOK := indicators.RSI(prices, period)
	macd, macdOK := indicators.MACD(prices, 12, 26, 9)
	if !rsiOK || !macdOK {
		return
	}

	overbought := c.RSIOverbought
	if overbought <= 0 {
		overbought = 70
	}
	oversold := c.RSIOversold
	if oversold <= 0 {
		oversold = 30
	}

	var direction string
	var strength float64
	switch {
	case rsi <= oversold && macd.Histogram > 0:
		direction = "BUY"
		strength = clamp01((oversold - rsi) / oversold)
	case rsi >= overbought && macd.Histogram < 0:
		direction = "SELL"
		strength = clamp01((rsi - overbought) / (100 - overbought))
	default:
		return
	}

	payload, _ := json.Marshal(map[string]any{
		"rsi":            rsi,
		"macd":           macd.MACD,
		"macd_signal":    macd.Signal,
		"macd_histogram": macd.Histogram,
		"samples":        len(prices),
		"window":         now.Sub(since).String(),
	})
	sig := models.Signal{
		SignalType: TypeMomentum,
		Source:     c.Name(),
		Mint:       strPtr(strings.TrimSpace(mint)),
		Strength:   strength,
		Direction:  direction,
		Payload:    payload,
		CreatedAt:  now,
	}
	select {
	case out <- sig:
	default:
	}
}

func (c *MomentumScanCollector) setRun(ts time.Time, errStr *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRun = &ts
	c.lastErr = errStr
}
