// Package jupiter wraps the Jupiter v6 aggregator API: quoting a swap
// route and building the serialized transaction for it.
package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"numerusx/internal/config"
	"numerusx/internal/httputil"
)

type Client struct {
	baseURL      string
	priceBaseURL string
	slippageBps  int
	httpClient   *http.Client
}

func NewClient(cfg config.JupiterConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://quote-api.jup.ag/v6"
	}
	priceBase := strings.TrimRight(cfg.PriceBaseURL, "/")
	if priceBase == "" {
		priceBase = "https://price.jup.ag/v6"
	}
	slippage := cfg.DefaultSlippageBps
	if slippage <= 0 {
		slippage = 100
	}
	return &Client{
		baseURL:      base,
		priceBaseURL: priceBase,
		slippageBps:  slippage,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // raw base units of the input mint
	SlippageBps int    // zero means the client default
}

type Quote struct {
	InputMint            string      `json:"inputMint"`
	InAmount             string      `json:"inAmount"`
	OutputMint           string      `json:"outputMint"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	SwapMode             string      `json:"swapMode"`
	SlippageBps          int         `json:"slippageBps"`
	PriceImpactPct       string      `json:"priceImpactPct"`
	RoutePlan            []RouteStep `json:"routePlan"`
	ContextSlot          uint64      `json:"contextSlot"`
	TimeTaken            float64     `json:"timeTaken"`
}

type RouteStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  int      `json:"percent"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	FeeAmount  string `json:"feeAmount"`
	FeeMint    string `json:"feeMint"`
}

// Quote fetches the best swap route for the request.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if c == nil {
		return nil, fmt.Errorf("jupiter client not configured")
	}
	if req.InputMint == "" || req.OutputMint == "" || req.Amount == 0 {
		return nil, fmt.Errorf("jupiter quote: input mint, output mint and amount are required")
	}
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = c.slippageBps
	}
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", strconv.FormatUint(req.Amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippage))
	endpoint := c.baseURL + "/quote?" + params.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote: %w", httputil.DecodeError(resp))
	}
	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("jupiter quote decode: %w", err)
	}
	return &quote, nil
}

type SwapRequest struct {
	Quote         *Quote
	UserPublicKey string
	PriorityFee   int64 // lamports, zero lets Jupiter choose
}

type SwapResponse struct {
	SwapTransaction      string `json:"swapTransaction"` // base64 serialized transaction
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

type swapRequestBody struct {
	QuoteResponse             *Quote `json:"quoteResponse"`
	UserPublicKey             string `json:"userPublicKey"`
	WrapAndUnwrapSol          bool   `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool   `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports int64  `json:"prioritizationFeeLamports,omitempty"`
}

// Swap builds the serialized swap transaction for a previously fetched
// quote. The returned transaction must be signed and submitted by the
// caller.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("jupiter client not configured")
	}
	if req.Quote == nil || req.UserPublicKey == "" {
		return nil, fmt.Errorf("jupiter swap: quote and user public key are required")
	}
	payload, err := json.Marshal(swapRequestBody{
		QuoteResponse:             req.Quote,
		UserPublicKey:             req.UserPublicKey,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: req.PriorityFee,
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter swap marshal: %w", err)
	}
	endpoint := c.baseURL + "/swap"
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter swap: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter swap: %w", httputil.DecodeError(resp))
	}
	var out SwapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("jupiter swap decode: %w", err)
	}
	return &out, nil
}

type priceResponse struct {
	Data map[string]struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
	} `json:"data"`
}

// Prices returns USD prices for the given mints from the Jupiter price
// API. Mints Jupiter does not know are absent from the result.
func (c *Client) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	if c == nil || len(mints) == 0 {
		return map[string]float64{}, nil
	}
	endpoint := c.priceBaseURL + "/price?ids=" + url.QueryEscape(strings.Join(mints, ","))
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter price: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter price: %w", httputil.DecodeError(resp))
	}
	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("jupiter price decode: %w", err)
	}
	out := make(map[string]float64, len(body.Data))
	for mint, entry := range body.Data {
		out[mint] = entry.Price
	}
	return out, nil
}
