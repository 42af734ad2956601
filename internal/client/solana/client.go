// Package solana is a minimal JSON-RPC client for the handful of node
// calls the executor needs: fetching a recent blockhash, submitting a
// serialized transaction and polling its confirmation status.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"numerusx/internal/config"
	"numerusx/internal/httputil"
)

type Client struct {
	rpcURL     string
	httpClient *http.Client
}

func NewClient(cfg config.SolanaConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		rpcURL = "https://api.mainnet-beta.solana.com"
	}
	return &Client{
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	if c == nil {
		return fmt.Errorf("solana client not configured")
	}
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("solana %s marshal: %w", method, err)
	}
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return fmt.Errorf("solana %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana %s: %w", method, httputil.DecodeError(resp))
	}
	var body rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("solana %s decode: %w", method, err)
	}
	if body.Error != nil {
		return fmt.Errorf("solana %s: rpc error %d: %s", method, body.Error.Code, body.Error.Message)
	}
	if result != nil {
		if err := json.Unmarshal(body.Result, result); err != nil {
			return fmt.Errorf("solana %s result decode: %w", method, err)
		}
	}
	return nil
}

type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

func (c *Client) LatestBlockhash(ctx context.Context) (*Blockhash, error) {
	var result struct {
		Value Blockhash `json:"value"`
	}
	params := []any{map[string]string{"commitment": "confirmed"}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return nil, err
	}
	return &result.Value, nil
}

// SendTransaction submits a base64-encoded signed transaction and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	if strings.TrimSpace(txBase64) == "" {
		return "", fmt.Errorf("solana sendTransaction: empty transaction")
	}
	var signature string
	params := []any{txBase64, map[string]any{"encoding": "base64", "skipPreflight": false, "maxRetries": 3}}
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

type SignatureStatus struct {
	Slot               uint64  `json:"slot"`
	Confirmations      *uint64 `json:"confirmations"`
	ConfirmationStatus string  `json:"confirmationStatus"` // processed|confirmed|finalized
	Err                any     `json:"err"`
}

// SignatureStatus returns the status of one signature, or nil when the
// node has not seen it yet.
func (c *Client) SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	var result struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

// Confirmed reports whether the status has reached at least confirmed
// commitment without an execution error.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil || s.Err != nil {
		return false
	}
	return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
}

// Failed reports whether the transaction executed and errored on chain.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{pubkey}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}
