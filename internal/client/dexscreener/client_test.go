package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"numerusx/internal/config"
)

const samplePairs = `{
	"pairs": [
		{
			"chainId": "solana",
			"dexId": "raydium",
			"pairAddress": "PairAAA",
			"baseToken": {"address": "MintAAA", "name": "Token A", "symbol": "TKA"},
			"quoteToken": {"address": "So11111111111111111111111111111111111111112", "symbol": "SOL"},
			"priceUsd": "0.004213",
			"volume": {"h24": 152000.5, "h1": 9000},
			"priceChange": {"h24": 12.4, "h1": -1.2},
			"liquidity": {"usd": 85000},
			"pairCreatedAt": 1719400000000
		},
		{
			"chainId": "solana",
			"dexId": "orca",
			"pairAddress": "PairBBB",
			"baseToken": {"address": "MintAAA", "name": "Token A", "symbol": "TKA"},
			"priceUsd": "0.004198",
			"liquidity": {"usd": 12000}
		},
		{
			"chainId": "ethereum",
			"pairAddress": "PairETH",
			"baseToken": {"address": "MintAAA"},
			"liquidity": {"usd": 900000}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(config.MarketDataConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	return c, srv
}

func TestTokenPairs(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePairs))
	})

	pairs, err := c.TokenPairs(context.Background(), []string{"MintAAA", "MintBBB"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/latest/dex/tokens/MintAAA,MintBBB") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	if pairs[0].PriceUSD != "0.004213" {
		t.Fatalf("unexpected price %q", pairs[0].PriceUSD)
	}
	if pairs[0].Volume.H24 != 152000.5 {
		t.Fatalf("unexpected volume %v", pairs[0].Volume.H24)
	}
}

func TestTokenPairsEmptyInput(t *testing.T) {
	c := NewClient(config.MarketDataConfig{})
	pairs, err := c.TokenPairs(context.Background(), nil)
	if err != nil || pairs != nil {
		t.Fatalf("expected nil,nil for empty input, got %v %v", pairs, err)
	}
}

func TestTokenPairsUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
	if _, err := c.TokenPairs(context.Background(), []string{"MintZZZ"}); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestSearch(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(samplePairs))
	})
	pairs, err := c.Search(context.Background(), "SOL trending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "SOL trending" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
}

func TestBestPair(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePairs))
	})
	pairs, err := c.TokenPairs(context.Background(), []string{"MintAAA"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	best := BestPair(pairs, "MintAAA")
	if best == nil {
		t.Fatal("expected a best pair")
	}
	// Most liquid Solana pair wins; the Ethereum pair is skipped even
	// though it has deeper liquidity.
	if best.PairAddress != "PairAAA" {
		t.Fatalf("expected PairAAA, got %s", best.PairAddress)
	}
	if BestPair(pairs, "MintUnknown") != nil {
		t.Fatal("expected nil for unknown mint")
	}
}
