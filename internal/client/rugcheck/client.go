// Package rugcheck wraps the RugCheck token report API used to screen
// mints for honeypot and rug characteristics before any trade.
package rugcheck

import (
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
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.SecurityConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.rugcheck.xyz/v1"
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Report is the subset of the RugCheck token report the checker reads.
type Report struct {
	Mint             string      `json:"mint"`
	Score            float64     `json:"score_normalised"`
	RawScore         float64     `json:"score"`
	Risks            []Risk      `json:"risks"`
	Token            TokenMeta   `json:"token"`
	TopHolders       []TopHolder `json:"topHolders"`
	Markets          []Market    `json:"markets"`
	TotalLPProviders int         `json:"totalLPProviders"`
}

type Risk struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Level       string  `json:"level"` // info|warn|danger
}

type TokenMeta struct {
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	Supply          float64 `json:"supply"`
	Decimals        int     `json:"decimals"`
}

type TopHolder struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
	Pct     float64 `json:"pct"`
	Insider bool    `json:"insider"`
}

type Market struct {
	Pubkey string  `json:"pubkey"`
	LP     *LPInfo `json:"lp"`
}

type LPInfo struct {
	LPLockedPct float64 `json:"lpLockedPct"`
}

// TokenReport fetches the full report for a mint. A 404 means RugCheck
// has never indexed the token; that is returned as ErrNotIndexed so the
// checker can treat unknown tokens as unverified rather than failed.
func (c *Client) TokenReport(ctx context.Context, mint string) (*Report, error) {
	if c == nil {
		return nil, fmt.Errorf("rugcheck client not configured")
	}
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, fmt.Errorf("rugcheck: mint is required")
	}
	endpoint := fmt.Sprintf("%s/tokens/%s/report", c.baseURL, mint)
	resp, err := httputil.Do(ctx, c.httpClient, httputil.DefaultRetry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("rugcheck report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotIndexed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rugcheck report: %w", httputil.DecodeError(resp))
	}
	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("rugcheck report decode: %w", err)
	}
	if report.Mint == "" {
		report.Mint = mint
	}
	return &report, nil
}

var ErrNotIndexed = fmt.Errorf("rugcheck: token not indexed")

// MaxTopHolderPct returns the largest non-insider holder share.
func (r *Report) MaxTopHolderPct() float64 {
	if r == nil {
		return 0
	}
	var max float64
	for _, h := range r.TopHolders {
		if h.Pct > max {
			max = h.Pct
		}
	}
	return max
}

// BestLPLockedPct returns the highest LP locked percentage across the
// token's markets.
func (r *Report) BestLPLockedPct() float64 {
	if r == nil {
		return 0
	}
	var best float64
	for _, m := range r.Markets {
		if m.LP != nil && m.LP.LPLockedPct > best {
			best = m.LP.LPLockedPct
		}
	}
	return best
}

// HasDangerRisk reports whether any risk entry is flagged danger.
func (r *Report) HasDangerRisk() bool {
	if r == nil {
		return false
	}
	for _, risk := range r.Risks {
		if strings.EqualFold(risk.Level, "danger") {
			return true
		}
	}
	return false
}
