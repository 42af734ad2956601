package signal

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"numerusx/internal/models"
)

const DefaultPumpStreamURL = "wss://pumpportal.fun/api/data"

// PumpStreamCollector subscribes to the PumpPortal websocket feed and
// emits new_token signals for fresh mints plus whale_trade signals for
// large buys and sells. The connection is re-dialed with jittered
// backoff whenever it drops.
type PumpStreamCollector struct {
	Logger *zap.Logger

	URL           string
	TrackTrades   bool
	MinTradeSOL   float64
	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	mu        sync.Mutex
	lastPoll  *time.Time
	lastError *string
	status    string
}

type pumpSubscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

type pumpEvent struct {
	TxType        string  `json:"txType"` // create|buy|sell
	Mint          string  `json:"mint"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	SolAmount     float64 `json:"solAmount"`
	TokenAmount   float64 `json:"tokenAmount"`
	TraderAddress string  `json:"traderPublicKey"`
	MarketCapSol  float64 `json:"marketCapSol"`
	Pool          string  `json:"pool"`
	Signature     string  `json:"signature"`
}

func (c *PumpStreamCollector) Name() string { return "pump_stream" }

func (c *PumpStreamCollector) SourceInfo() SourceInfo {
	return SourceInfo{
		SourceType: "websocket",
		Endpoint:   c.streamURL(),
	}
}

func (c *PumpStreamCollector) streamURL() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	return DefaultPumpStreamURL
}

func (c *PumpStreamCollector) Start(ctx context.Context, out chan<- models.Signal) error {
	if c == nil {
		return nil
	}
	base := c.ReconnectBase
	if base <= 0 {
		base = time.Second
	}
	max := c.ReconnectMax
	if max <= 0 {
		max = time.Minute
	}
	delay := base

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		started := time.Now()
		err := c.consume(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay = reconnectDelay(delay, time.Since(started), base, max)
		if err != nil {
			c.setHealth(time.Now().UTC(), "down", strPtr(err.Error()))
			if c.Logger != nil {
				c.Logger.Warn("pump stream disconnected", zap.Error(err), zap.Duration("retry_in", delay))
			}
		}

		jitter := time.Duration(rand.Int63n(int64(delay) / 2))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}
		delay *= 2
		if delay > max {
			delay = max
		}
	}
}

// reconnectDelay keeps the current backoff for a quick flap, but a connection
// that stayed up past the max backoff window counts as healthy and restarts
// the ladder from base. Without the reset, a few early flaps would pin every
// later reconnect near max forever.
func reconnectDelay(delay, uptime, base, max time.Duration) time.Duration {
	if uptime >= max {
		return base
	}
	return delay
}

func (c *PumpStreamCollector) Stop() error { return nil }

func (c *PumpStreamCollector) Health() HealthStatus {
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

func (c *PumpStreamCollector) consume(ctx context.Context, out chan<- models.Signal) error {
	conn, _, err := websocket.Dial(ctx, c.streamURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutdown")
	conn.SetReadLimit(1 << 20)

	if err := c.subscribe(ctx, conn); err != nil {
		return err
	}
	c.setHealth(time.Now().UTC(), "healthy", nil)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		c.setHealth(now, "healthy", nil)

		var event pumpEvent
		if err := json.Unmarshal(data, &event); err != nil || event.Mint == "" {
			continue
		}
		c.handleEvent(out, event, now)
	}
}

func (c *PumpStreamCollector) subscribe(ctx context.Context, conn *websocket.Conn) error {
	methods := []string{"subscribeNewToken"}
	if c.TrackTrades {
		methods = append(methods, "subscribeTokenTrade")
	}
	for _, method := range methods {
		payload, err := json.Marshal(pumpSubscribeRequest{Method: method})
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return err
		}
	}
	return nil
}

func (c *PumpStreamCollector) handleEvent(out chan<- models.Signal, event pumpEvent, now time.Time) {
	switch event.TxType {
	case "create":
		c.emit(out, models.Signal{
			SignalType: TypeNewToken,
			Source:     c.Name(),
			Mint:       strPtr(event.Mint),
			Strength:   0.5,
			Direction:  "BUY",
			Payload: mustJSON(map[string]any{
				"name":           event.Name,
				"symbol":         event.Symbol,
				"market_cap_sol": event.MarketCapSol,
				"pool":           event.Pool,
				"signature":      event.Signature,
			}),
			CreatedAt: now,
		})
	case "buy", "sell":
		minSOL := c.MinTradeSOL
		if minSOL <= 0 {
			minSOL = 10
		}
		if event.SolAmount < minSOL {
			return
		}
		direction := "BUY"
		if event.TxType == "sell" {
			direction = "SELL"
		}
		c.emit(out, models.Signal{
			SignalType: TypeWhaleTrade,
			Source:     c.Name(),
			Mint:       strPtr(event.Mint),
			Strength:   clamp01(event.SolAmount / (minSOL * 10)),
			Direction:  direction,
			Payload: mustJSON(map[string]any{
				"sol_amount":     event.SolAmount,
				"token_amount":   event.TokenAmount,
				"trader":         event.TraderAddress,
				"market_cap_sol": event.MarketCapSol,
				"signature":      event.Signature,
			}),
			CreatedAt: now,
		})
	}
}

func (c *PumpStreamCollector) emit(out chan<- models.Signal, sig models.Signal) {
	select {
	case out <- sig:
	default:
	}
}

func (c *PumpStreamCollector) setHealth(ts time.Time, status string, errStr *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = &ts
	c.status = status
	c.lastError = errStr
}

func mustJSON(v map[string]any) []byte {
	raw, _ := json.Marshal(v)
	return raw
}
