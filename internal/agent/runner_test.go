package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"numerusx/internal/config"
	"numerusx/internal/models"
	"numerusx/internal/repository"
	"numerusx/internal/risk"
)

type stubRepo struct {
	repository.Repository

	mu        sync.Mutex
	snapshot  *models.PriceSnapshot
	snapshots []models.PriceSnapshot
	positions []models.Position
	decisions []models.AIDecision
	statuses  map[uint64]string
	updates   map[uint64]map[string]any
}

func newStubRepo() *stubRepo {
	now := time.Now().UTC()
	return &stubRepo{
		snapshot: &models.PriceSnapshot{
			Mint:       "MintAAA",
			PriceUSD:   decimal.NewFromFloat(0.0042),
			CapturedAt: now.Add(-2 * time.Second),
		},
		statuses: map[uint64]string{},
		updates:  map[uint64]map[string]any{},
	}
}

func (s *stubRepo) LatestPriceSnapshot(ctx context.Context, mint string) (*models.PriceSnapshot, error) {
	return s.snapshot, nil
}

func (s *stubRepo) ListPriceSnapshots(ctx context.Context, mint string, since time.Time, limit int) ([]models.PriceSnapshot, error) {
	return s.snapshots, nil
}

func (s *stubRepo) GetTokenByMint(ctx context.Context, mint string) (*models.TokenInfo, error) {
	return &models.TokenInfo{Mint: mint, Symbol: "TKA"}, nil
}

func (s *stubRepo) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	return s.positions, nil
}

func (s *stubRepo) SumRealizedPnLSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubRepo) SumOpenTradeSizeUSD(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubRepo) CountPositions(ctx context.Context, params repository.ListPositionsParams) (int64, error) {
	return int64(len(s.positions)), nil
}

func (s *stubRepo) ListRecentSignalsByMint(ctx context.Context, mint string, since time.Time, limit int) ([]models.Signal, error) {
	return nil, nil
}

func (s *stubRepo) ListMintsWithRecentSignals(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return []string{"MintAAA"}, nil
}

func (s *stubRepo) InsertAIDecision(ctx context.Context, item *models.AIDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.decisions) + 1)
	s.decisions = append(s.decisions, *item)
	s.statuses[item.ID] = item.Status
	return nil
}

func (s *stubRepo) UpdateAIDecisionStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	s.updates[id] = updates
	return nil
}

func (s *stubRepo) GetAIDecisionByDecisionID(ctx context.Context, decisionID string) (*models.AIDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.decisions {
		if d.DecisionID == decisionID {
			out := d
			out.Status = s.statuses[d.ID]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetPositionByMint(ctx context.Context, mint string) (*models.Position, error) {
	for _, p := range s.positions {
		if p.Mint == mint {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) lastStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return ""
	}
	return s.statuses[s.decisions[len(s.decisions)-1].ID]
}

type stubDecider struct {
	decision *Decision
	err      error
}

func (d *stubDecider) ModelName() string { return "stub" }

func (d *stubDecider) Decide(ctx context.Context, inputs AggregatedInputs) (*Decision, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := *d.decision
	out.Model = d.ModelName()
	return &out, nil
}

type stubChecker struct {
	verdict string
}

func (c *stubChecker) Check(ctx context.Context, mint string) (*models.SecurityReport, error) {
	return &models.SecurityReport{Mint: mint, Verdict: c.verdict, CheckedAt: time.Now().UTC()}, nil
}

type stubExecutor struct {
	mu       sync.Mutex
	executed []models.AIDecision
	err      error
}

func (e *stubExecutor) Execute(ctx context.Context, decision *models.AIDecision) (*models.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	e.executed = append(e.executed, *decision)
	return &models.Trade{DecisionID: decision.ID, Status: "simulated"}, nil
}

func newRunner(repo *stubRepo, decider Decider, executor TradeExecutor, verdict string) *Runner {
	riskCfg := config.RiskConfig{MaxTotalExposureUSD: 1000, MaxPerTokenUSD: 500}
	return &Runner{
		Aggregator: &Aggregator{Repo: repo, Checker: &stubChecker{verdict: verdict}, Risk: riskCfg},
		Decider:    decider,
		Fallback:   &FallbackDecider{MaxSizeUSD: 25},
		Risk:       &risk.Manager{Config: riskCfg, Repo: repo},
		Repo:       repo,
		Executor:   executor,
		Config:     config.AgentConfig{MinConfidence: 0.6, DecisionTTL: time.Minute},
	}
}

func TestProcessMintExecutesApprovedBuy(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.8, SizeUSD: decimal.NewFromInt(50), Reasoning: "strong setup",
	}}
	r := newRunner(repo, decider, executor, "safe")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.lastStatus(); got != "executed" {
		t.Fatalf("expected executed, got %q", got)
	}
	if len(executor.executed) != 1 {
		t.Fatalf("executor should run once, ran %d", len(executor.executed))
	}
	if len(repo.decisions) != 1 {
		t.Fatalf("decision must be persisted before execution, got %d", len(repo.decisions))
	}
}

func TestProcessMintRejectsLowConfidence(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.3, SizeUSD: decimal.NewFromInt(50),
	}}
	r := newRunner(repo, decider, executor, "safe")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.lastStatus(); got != "rejected" {
		t.Fatalf("expected rejected, got %q", got)
	}
	if len(executor.executed) != 0 {
		t.Fatal("rejected decision must not execute")
	}
}

func TestProcessMintDangerBlocksBuy(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.9, SizeUSD: decimal.NewFromInt(50),
	}}
	r := newRunner(repo, decider, executor, "danger")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.lastStatus(); got != "rejected" {
		t.Fatalf("danger verdict must reject the BUY, got %q", got)
	}
	if len(executor.executed) != 0 {
		t.Fatal("danger-blocked decision must not execute")
	}
}

func TestProcessMintDangerStillAllowsSellExit(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "SELL", Confidence: 0.9, SizeUSD: decimal.NewFromInt(50),
	}}
	repo.positions = []models.Position{{
		Mint: "MintAAA", Status: "open",
		Quantity: decimal.NewFromInt(1000), CurrentPrice: decimal.NewFromFloat(0.0042),
	}}
	r := newRunner(repo, decider, executor, "danger")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Danger blocks entries only; the open position must stay sellable.
	if got := repo.lastStatus(); got != "executed" {
		t.Fatalf("danger verdict must not trap the position, got %q", got)
	}
	if len(executor.executed) != 1 || executor.executed[0].Action != "SELL" {
		t.Fatalf("expected one SELL execution, got %v", executor.executed)
	}
}

func TestProcessMintHoldIsRecorded(t *testing.T) {
	repo := newStubRepo()
	decider := &stubDecider{decision: &Decision{Action: "HOLD", Confidence: 0.7, SizeUSD: decimal.Zero}}
	r := newRunner(repo, decider, &stubExecutor{}, "safe")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.decisions) != 1 {
		t.Fatal("HOLD must still be persisted")
	}
	if got := repo.lastStatus(); got != "approved" {
		t.Fatalf("expected approved, got %q", got)
	}
}

func TestProcessMintFallsBackOnModelError(t *testing.T) {
	repo := newStubRepo()
	decider := &stubDecider{err: errors.New("model unavailable")}
	r := newRunner(repo, decider, &stubExecutor{}, "safe")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.decisions) != 1 {
		t.Fatal("fallback decision should be persisted")
	}
	if repo.decisions[0].Model != "fallback" {
		t.Fatalf("expected fallback model, got %q", repo.decisions[0].Model)
	}
}

type stubGate struct {
	enabled bool
}

func (g *stubGate) AutoExecuteEnabled(ctx context.Context) bool { return g.enabled }

func TestManualModeParksDecisionPending(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.8, SizeUSD: decimal.NewFromInt(50), Reasoning: "strong setup",
	}}
	r := newRunner(repo, decider, executor, "safe")
	r.Gate = &stubGate{enabled: false}

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.lastStatus(); got != "pending" {
		t.Fatalf("expected pending, got %q", got)
	}
	if len(executor.executed) != 0 {
		t.Fatal("parked decision must not execute")
	}
}

func TestApproveExecutesParkedDecision(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.8, SizeUSD: decimal.NewFromInt(50),
	}}
	r := newRunner(repo, decider, executor, "safe")
	r.Gate = &stubGate{enabled: false}

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decisionID := repo.decisions[0].DecisionID

	if _, err := r.Approve(context.Background(), decisionID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if got := repo.lastStatus(); got != "executed" {
		t.Fatalf("expected executed, got %q", got)
	}
	if len(executor.executed) != 1 {
		t.Fatalf("executor should run once, ran %d", len(executor.executed))
	}

	if _, err := r.Approve(context.Background(), decisionID); !errors.Is(err, ErrDecisionNotPending) {
		t.Fatalf("re-approving an executed decision should fail, got %v", err)
	}
	if _, err := r.Approve(context.Background(), "missing"); !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectParkedDecision(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	decider := &stubDecider{decision: &Decision{
		Action: "SELL", Confidence: 0.9, SizeUSD: decimal.NewFromInt(10),
	}}
	repo.positions = []models.Position{{
		Mint: "MintAAA", Status: "open",
		Quantity: decimal.NewFromInt(100), CurrentPrice: decimal.NewFromFloat(0.0042),
	}}
	r := newRunner(repo, decider, executor, "safe")
	r.Gate = &stubGate{enabled: false}

	if err := r.ProcessMint(context.Background(), "MintAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decisionID := repo.decisions[0].DecisionID
	if err := r.Reject(context.Background(), decisionID, "not convinced"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if got := repo.lastStatus(); got != "rejected" {
		t.Fatalf("expected rejected, got %q", got)
	}
	if len(executor.executed) != 0 {
		t.Fatal("rejected decision must not execute")
	}
}

func TestClosePositionIssuesManualSell(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{}
	repo.positions = []models.Position{{
		Mint: "MintAAA", Status: "open",
		Quantity: decimal.NewFromInt(100), CurrentPrice: decimal.NewFromFloat(0.004),
	}}
	r := newRunner(repo, nil, executor, "safe")

	trade, err := r.ClosePosition(context.Background(), "MintAAA", "taking profit")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if trade == nil {
		t.Fatal("expected a trade")
	}
	if len(repo.decisions) != 1 || repo.decisions[0].Model != "manual" || repo.decisions[0].Action != "SELL" {
		t.Fatalf("expected one manual SELL decision, got %+v", repo.decisions)
	}
	// Sized from the latest snapshot price, not the stale position mark.
	want := decimal.NewFromInt(100).Mul(decimal.NewFromFloat(0.0042))
	if !repo.decisions[0].SizeUSD.Equal(want) {
		t.Fatalf("expected size %s, got %s", want, repo.decisions[0].SizeUSD)
	}

	if _, err := r.ClosePosition(context.Background(), "MintZZZ", ""); !errors.Is(err, ErrNoOpenPosition) {
		t.Fatalf("expected no open position error, got %v", err)
	}
}

func TestProcessMintExecutionFailureMarksFailed(t *testing.T) {
	repo := newStubRepo()
	executor := &stubExecutor{err: errors.New("rpc unavailable")}
	decider := &stubDecider{decision: &Decision{
		Action: "BUY", Confidence: 0.8, SizeUSD: decimal.NewFromInt(50),
	}}
	r := newRunner(repo, decider, executor, "safe")

	if err := r.ProcessMint(context.Background(), "MintAAA"); err == nil {
		t.Fatal("expected execution error to surface")
	}
	if got := repo.lastStatus(); got != "failed" {
		t.Fatalf("expected failed, got %q", got)
	}
}
