package security

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"numerusx/internal/client/rugcheck"
	"numerusx/internal/config"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

type stubFetcher struct {
	report *rugcheck.Report
	err    error
	calls  int
}

func (f *stubFetcher) TokenReport(ctx context.Context, mint string) (*rugcheck.Report, error) {
	f.calls++
	return f.report, f.err
}

type stubRepo struct {
	repository.Repository

	mu      sync.Mutex
	cached  *models.SecurityReport
	upserts []models.SecurityReport
}

func (s *stubRepo) GetSecurityReportByMint(ctx context.Context, mint string) (*models.SecurityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, nil
}

func (s *stubRepo) UpsertSecurityReport(ctx context.Context, item *models.SecurityReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, *item)
	return nil
}

func cleanReport() *rugcheck.Report {
	return &rugcheck.Report{
		Mint:  "MintAAA",
		Score: 85,
		Markets: []rugcheck.Market{
			{Pubkey: "Mkt1", LP: &rugcheck.LPInfo{LPLockedPct: 99}},
		},
		TopHolders: []rugcheck.TopHolder{{Address: "H1", Pct: 5}},
	}
}

func defaultCfg() config.SecurityConfig {
	return config.SecurityConfig{
		CacheTTL:        15 * time.Minute,
		MinScore:        50,
		MaxTopHolderPct: 25,
		MinLPLockedPct:  80,
	}
}

func TestCheckSafeToken(t *testing.T) {
	repo := &stubRepo{}
	checker := NewChecker(&stubFetcher{report: cleanReport()}, repo, defaultCfg(), nil)

	report, err := checker.Check(context.Background(), "MintAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Verdict != VerdictSafe {
		t.Fatalf("expected safe, got %s (flags %s)", report.Verdict, report.Flags)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("report should be persisted, got %d upserts", len(repo.upserts))
	}
}

func TestCheckMintAuthorityIsDanger(t *testing.T) {
	raw := cleanReport()
	auth := "Authority111"
	raw.Token.MintAuthority = &auth
	checker := NewChecker(&stubFetcher{report: raw}, &stubRepo{}, defaultCfg(), nil)

	report, err := checker.Check(context.Background(), "MintAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Verdict != VerdictDanger {
		t.Fatalf("expected danger, got %s", report.Verdict)
	}
	if !report.MintAuthority {
		t.Fatal("mint authority flag should be set")
	}
}

func TestCheckDangerRiskOverridesWarn(t *testing.T) {
	raw := cleanReport()
	raw.Score = 10 // also low score
	raw.Risks = []rugcheck.Risk{{Name: "Honeypot", Level: "danger"}}
	checker := NewChecker(&stubFetcher{report: raw}, &stubRepo{}, defaultCfg(), nil)

	report, _ := checker.Check(context.Background(), "MintAAA")
	if report.Verdict != VerdictDanger {
		t.Fatalf("expected danger, got %s", report.Verdict)
	}
}

func TestCheckWarnConditions(t *testing.T) {
	raw := cleanReport()
	raw.TopHolders = []rugcheck.TopHolder{{Address: "H1", Pct: 60}}
	raw.Markets = []rugcheck.Market{{Pubkey: "Mkt1", LP: &rugcheck.LPInfo{LPLockedPct: 10}}}
	checker := NewChecker(&stubFetcher{report: raw}, &stubRepo{}, defaultCfg(), nil)

	report, _ := checker.Check(context.Background(), "MintAAA")
	if report.Verdict != VerdictWarn {
		t.Fatalf("expected warn, got %s", report.Verdict)
	}
	flags := string(report.Flags)
	if !strings.Contains(flags, "top_holder_concentration") || !strings.Contains(flags, "lp_unlocked") {
		t.Fatalf("expected holder and lp flags, got %s", flags)
	}
}

func TestCheckBlacklist(t *testing.T) {
	cfg := defaultCfg()
	cfg.Blacklist = []string{"MintBad"}
	fetcher := &stubFetcher{report: cleanReport()}
	checker := NewChecker(fetcher, &stubRepo{}, cfg, nil)

	report, err := checker.Check(context.Background(), "MintBad")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Verdict != VerdictDanger {
		t.Fatalf("blacklisted mint must be danger, got %s", report.Verdict)
	}
	if fetcher.calls != 0 {
		t.Fatal("blacklist verdict must not hit the remote API")
	}
}

func TestCheckUsesCache(t *testing.T) {
	fetcher := &stubFetcher{report: cleanReport()}
	repo := &stubRepo{cached: &models.SecurityReport{
		Mint:      "MintAAA",
		Verdict:   VerdictSafe,
		CheckedAt: time.Now().UTC().Add(-time.Minute),
	}}
	checker := NewChecker(fetcher, repo, defaultCfg(), nil)

	report, err := checker.Check(context.Background(), "MintAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.calls != 0 {
		t.Fatal("fresh cache entry should skip the remote call")
	}
	if report.Verdict != VerdictSafe {
		t.Fatalf("unexpected verdict %s", report.Verdict)
	}
}

func TestCheckStaleCacheRefreshes(t *testing.T) {
	fetcher := &stubFetcher{report: cleanReport()}
	repo := &stubRepo{cached: &models.SecurityReport{
		Mint:      "MintAAA",
		Verdict:   VerdictDanger,
		CheckedAt: time.Now().UTC().Add(-time.Hour),
	}}
	checker := NewChecker(fetcher, repo, defaultCfg(), nil)

	report, _ := checker.Check(context.Background(), "MintAAA")
	if fetcher.calls != 1 {
		t.Fatalf("stale cache should refresh, calls=%d", fetcher.calls)
	}
	if report.Verdict != VerdictSafe {
		t.Fatalf("unexpected verdict %s", report.Verdict)
	}
}

func TestCheckNotIndexedIsWarn(t *testing.T) {
	checker := NewChecker(&stubFetcher{err: rugcheck.ErrNotIndexed}, &stubRepo{}, defaultCfg(), nil)
	report, err := checker.Check(context.Background(), "MintNew")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Verdict != VerdictWarn {
		t.Fatalf("unindexed token should be warn, got %s", report.Verdict)
	}
}

func TestCheckLookupFailureDegradesToWarn(t *testing.T) {
	checker := NewChecker(&stubFetcher{err: context.DeadlineExceeded}, &stubRepo{}, defaultCfg(), nil)
	report, err := checker.Check(context.Background(), "MintAAA")
	if err != nil {
		t.Fatalf("lookup failure should not error: %v", err)
	}
	if report.Verdict != VerdictWarn {
		t.Fatalf("expected warn, got %s", report.Verdict)
	}
}
