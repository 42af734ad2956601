package signal

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"numerusx/internal/client/dexscreener"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// DexScreenerCollector polls DexScreener for the watchlist plus any
// mints with recent open positions, refreshes token metadata and price
// snapshots, and emits price_move and volume_spike signals.
type DexScreenerCollector struct {
	Client *dexscreener.Client
	Repo   repository.Repository
	Logger *zap.Logger

	Watchlist       []string
	PollInterval    time.Duration
	MinLiquidityUSD float64
	MoveTriggerPct  float64
	SpikeRatio      float64

	mu        sync.Mutex
	lastPoll  *time.Time
	lastError *string
	status    string

	lastPrice  map[string]float64
	lastVolume map[string]float64
}

func (c *DexScreenerCollector) Name() string { return "dexscreener" }

func (c *DexScreenerCollector) SourceInfo() SourceInfo {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return SourceInfo{
		SourceType:   "rest_poll",
		Endpoint:     "https://api.dexscreener.com/latest/dex/tokens",
		PollInterval: interval,
	}
}

func (c *DexScreenerCollector) Start(ctx context.Context, out chan<- models.Signal) error {
	if c == nil || c.Client == nil {
		return nil
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c.pollOnce(ctx, out)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			c.pollOnce(ctx, out)
		}
	}
}

func (c *DexScreenerCollector) Stop() error { return nil }

func (c *DexScreenerCollector) Health() HealthStatus {
	if c == nil {
		return HealthStatus{Status: "unknown"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	if strings.TrimSpace(status) == "" {
		status = "unknown"
	}
	return HealthStatus{
		Status:     status,
		LastPollAt: c.lastPoll,
		LastError:  c.lastError,
	}
}

func (c *DexScreenerCollector) pollOnce(ctx context.Context, out chan<- models.Signal) {
	now := time.Now().UTC()
	mints := c.targetMints(ctx)
	if len(mints) == 0 {
		c.setHealth(now, "idle", nil)
		return
	}

	pairs, err := c.Client.TokenPairs(ctx, mints)
	if err != nil {
		c.setHealth(now, "down", strPtr(err.Error()))
		return
	}
	c.setHealth(now, "healthy", nil)

	trigger := c.MoveTriggerPct
	if trigger <= 0 {
		trigger = 5.0
	}
	spikeRatio := c.SpikeRatio
	if spikeRatio <= 0 {
		spikeRatio = 3.0
	}

	for _, mint := range mints {
		best := dexscreener.BestPair(pairs, mint)
		if best == nil {
			continue
		}
		price, ok := atofSafe(best.PriceUSD)
		if !ok || price <= 0 {
			continue
		}
		if c.MinLiquidityUSD > 0 && best.Liquidity.USD < c.MinLiquidityUSD {
			continue
		}

		c.persist(ctx, mint, best, price, now)

		c.mu.Lock()
		if c.lastPrice == nil {
			c.lastPrice = map[string]float64{}
			c.lastVolume = map[string]float64{}
		}
		prevPrice := c.lastPrice[mint]
		prevVolume := c.lastVolume[mint]
		c.lastPrice[mint] = price
		c.lastVolume[mint] = best.Volume.H1
		c.mu.Unlock()

		if prevPrice > 0 {
			pct := (price - prevPrice) / prevPrice * 100.0
			if abs(pct) >= trigger {
				c.emitPriceMove(out, mint, best, price, pct, trigger, now)
			}
		}
		if prevVolume > 0 && best.Volume.H1 >= prevVolume*spikeRatio {
			c.emitVolumeSpike(out, mint, best, prevVolume, now)
		}
	}
}

// targetMints merges the static watchlist with mints that currently
// have open positions so exits always see fresh prices.
func (c *DexScreenerCollector) targetMints(ctx context.Context) []string {
	seen := map[string]bool{}
	var mints []string
	for _, m := range c.Watchlist {
		m = strings.TrimSpace(m)
		if m != "" && !seen[m] {
			seen[m] = true
			mints = append(mints, m)
		}
	}
	if c.Repo != nil {
		positions, err := c.Repo.ListOpenPositions(ctx)
		if err == nil {
			for _, p := range positions {
				if !seen[p.Mint] {
					seen[p.Mint] = true
					mints = append(mints, p.Mint)
				}
			}
		}
	}
	return mints
}

func (c *DexScreenerCollector) persist(ctx context.Context, mint string, pair *dexscreener.Pair, price float64, now time.Time) {
	if c.Repo == nil {
		return
	}
	priceDec := decimal.NewFromFloat(price)
	labels, _ := json.Marshal(pair.Labels)
	token := &models.TokenInfo{
		Mint:         mint,
		Symbol:       pair.BaseToken.Symbol,
		Name:         pair.BaseToken.Name,
		PriceUSD:     priceDec,
		LiquidityUSD: decimal.NewFromFloat(pair.Liquidity.USD),
		Volume24hUSD: decimal.NewFromFloat(pair.Volume.H24),
		PairAddress:  pair.PairAddress,
		DexID:        pair.DexID,
		Labels:       labels,
		Active:       true,
		DiscoveredAt: now,
	}
	if err := c.Repo.UpsertTokenInfo(ctx, token); err != nil && c.Logger != nil {
		c.Logger.Warn("upsert token failed", zap.String("mint", mint), zap.Error(err))
	}
	change1h := pair.PriceChange.H1
	change24h := pair.PriceChange.H24
	snap := &models.PriceSnapshot{
		Mint:              mint,
		PriceUSD:          priceDec,
		LiquidityUSD:      decimal.NewFromFloat(pair.Liquidity.USD),
		VolumeUSD:         decimal.NewFromFloat(pair.Volume.H24),
		PriceChange1hPct:  &change1h,
		PriceChange24hPct: &change24h,
		Source:            c.Name(),
		CapturedAt:        now,
	}
	if err := c.Repo.InsertPriceSnapshot(ctx, snap); err != nil && c.Logger != nil {
		c.Logger.Warn("insert snapshot failed", zap.String("mint", mint), zap.Error(err))
	}
}

func (c *DexScreenerCollector) emitPriceMove(out chan<- models.Signal, mint string, pair *dexscreener.Pair, price, pct, trigger float64, now time.Time) {
	direction := "BUY"
	if pct < 0 {
		direction = "SELL"
	}
	payload, _ := json.Marshal(map[string]any{
		"price_usd":     price,
		"change_pct":    pct,
		"trigger_pct":   trigger,
		"liquidity_usd": pair.Liquidity.USD,
		"dex_id":        pair.DexID,
		"pair_address":  pair.PairAddress,
	})
	m := mint
	sig := models.Signal{
		SignalType: TypePriceMove,
		Source:     c.Name(),
		Mint:       &m,
		Strength:   clamp01(abs(pct) / (trigger * 2)),
		Direction:  direction,
		Payload:    payload,
		CreatedAt:  now,
	}
	select {
	case out <- sig:
	default:
	}
}

func (c *DexScreenerCollector) emitVolumeSpike(out chan<- models.Signal, mint string, pair *dexscreener.Pair, prevVolume float64, now time.Time) {
	ratio := 0.0
	if prevVolume > 0 {
		ratio = pair.Volume.H1 / prevVolume
	}
	payload, _ := json.Marshal(map[string]any{
		"volume_h1_usd":  pair.Volume.H1,
		"prev_volume_h1": prevVolume,
		"ratio":          ratio,
		"price_usd":      pair.PriceUSD,
	})
	m := mint
	sig := models.Signal{
		SignalType: TypeVolumeSpike,
		Source:     c.Name(),
		Mint:       &m,
		Strength:   clamp01(ratio / 10),
		Direction:  "BUY",
		Payload:    payload,
		CreatedAt:  now,
	}
	select {
	case out <- sig:
	default:
	}
}

func (c *DexScreenerCollector) setHealth(ts time.Time, status string, errStr *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = &ts
	c.status = status
	c.lastError = errStr
}

func atofSafe(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func strPtr(s string) *string {
	return &s
}
