// Package dexscreener wraps the DexScreener public REST API used as the
// primary market data source for Solana tokens.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"numerusx/internal/config"
	"numerusx/internal/httputil"
)

const maxMintsPerRequest = 30

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.MarketDataConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.dexscreener.com"
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Pair is one DEX pair as reported by DexScreener. Prices arrive as
// strings and are kept that way; callers parse into decimal.
type Pair struct {
	ChainID       string    `json:"chainId"`
	DexID         string    `json:"dexId"`
	PairAddress   string    `json:"pairAddress"`
	BaseToken     Token     `json:"baseToken"`
	QuoteToken    Token     `json:"quoteToken"`
	PriceNative   string    `json:"priceNative"`
	PriceUSD      string    `json:"priceUsd"`
	Volume        Volume    `json:"volume"`
	PriceChange   Change    `json:"priceChange"`
	Liquidity     Liquidity `json:"liquidity"`
	FDV           float64   `json:"fdv"`
	MarketCap     float64   `json:"marketCap"`
	PairCreatedAt int64     `json:"pairCreatedAt"`
	Labels        []string  `json:"labels"`
}

type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type Volume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

type Change struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// TokenPairs fetches all known pairs for the given mints. The endpoint
// accepts up to 30 comma separated addresses; larger batches are split.
func (c *Client) TokenPairs(ctx context.Context, mints []string) ([]Pair, error) {
	if c == nil || len(mints) == 0 {
		return nil, nil
	}
	var out []Pair
	for start := 0; start < len(mints); start += maxMintsPerRequest {
		end := start + maxMintsPerRequest
		if end > len(mints) {
			end = len(mints)
		}
		batch, err := c.fetchPairs(ctx, mints[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) fetchPairs(ctx context.Context, mints []string) ([]Pair, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, strings.Join(mints, ","))
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener tokens: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener tokens: %w", httputil.DecodeError(resp))
	}
	var body pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("dexscreener tokens decode: %w", err)
	}
	return body.Pairs, nil
}

// Search queries DexScreener's pair search. Used by the momentum
// scanner to discover candidates beyond the configured watchlist.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	if c == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(query))
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener search: %w", httputil.DecodeError(resp))
	}
	var body pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("dexscreener search decode: %w", err)
	}
	return body.Pairs, nil
}

// BestPair picks the most liquid Solana pair whose base token matches
// the mint. Returns nil when none qualifies.
func BestPair(pairs []Pair, mint string) *Pair {
	var best *Pair
	for i := range pairs {
		p := &pairs[i]
		if p.ChainID != "solana" || p.BaseToken.Address != mint {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best
}
