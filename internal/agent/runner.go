package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"numerusx/internal/config"
	"numerusx/internal/models"
	"numerusx/internal/repository"
	"numerusx/internal/risk"
	"numerusx/internal/security"
)

// TradeExecutor turns an approved decision into a trade.
type TradeExecutor interface {
	Execute(ctx context.Context, decision *models.AIDecision) (*models.Trade, error)
}

// Notifier pushes human-facing alerts for executed trades.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// ApprovalGate reports whether risk-approved decisions may execute
// without a human sign-off. A nil gate means auto execution.
type ApprovalGate interface {
	AutoExecuteEnabled(ctx context.Context) bool
}

var (
	ErrDecisionNotFound   = errors.New("decision not found")
	ErrDecisionNotPending = errors.New("decision is not pending")
	ErrNoOpenPosition     = errors.New("no open position for mint")
)

// Runner drives the decision loop: pick candidates, aggregate inputs,
// ask the model, gate through risk, execute.
type Runner struct {
	Aggregator *Aggregator
	Decider    Decider
	Fallback   Decider
	Risk       *risk.Manager
	Repo       repository.Repository
	Executor   TradeExecutor
	Notifier   Notifier
	Gate       ApprovalGate
	Logger     *zap.Logger
	Config     config.AgentConfig
}

func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.Repo == nil || r.Aggregator == nil {
		return nil
	}
	interval := r.Config.Interval
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
			r.runCycle(ctx)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	maxCandidates := r.Config.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 10
	}
	mints, err := r.Aggregator.Candidates(ctx, maxCandidates)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("agent: candidate scan failed", zap.Error(err))
		}
		return
	}
	for _, mint := range mints {
		if ctx.Err() != nil {
			return
		}
		if err := r.ProcessMint(ctx, mint); err != nil && r.Logger != nil {
			r.Logger.Warn("agent: process mint failed", zap.String("mint", mint), zap.Error(err))
		}
	}
}

// ProcessMint runs one full decision for one mint and persists every
// stage on the decision row.
func (r *Runner) ProcessMint(ctx context.Context, mint string) error {
	inputs, err := r.Aggregator.Build(ctx, mint)
	if err != nil {
		return err
	}

	decision := r.decide(ctx, *inputs)
	if decision == nil {
		return fmt.Errorf("agent: no decision produced for %s", mint)
	}

	row, err := r.persistDecision(ctx, mint, inputs, decision)
	if err != nil {
		return err
	}

	switch decision.Action {
	case "HOLD":
		return r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "approved", nil)
	case "BUY", "SELL":
		return r.reviewAndExecute(ctx, row, inputs, decision)
	}
	return nil
}

// decide asks the primary model and falls back to the rule-based
// decider when the call or the parse fails.
func (r *Runner) decide(ctx context.Context, inputs AggregatedInputs) *Decision {
	if r.Decider != nil {
		decision, err := r.Decider.Decide(ctx, inputs)
		if err == nil {
			return decision
		}
		if r.Logger != nil {
			r.Logger.Warn("agent: model decision failed, using fallback",
				zap.String("mint", inputs.Mint), zap.Error(err))
		}
	}
	if r.Fallback == nil {
		return nil
	}
	decision, err := r.Fallback.Decide(ctx, inputs)
	if err != nil {
		return nil
	}
	return decision
}

func (r *Runner) persistDecision(ctx context.Context, mint string, inputs *AggregatedInputs, decision *Decision) (*models.AIDecision, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("agent: marshal inputs: %w", err)
	}
	securityJSON, _ := json.Marshal(inputs.Security)

	ttl := r.Config.DecisionTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := time.Now().UTC()
	expires := now.Add(ttl)

	row := &models.AIDecision{
		DecisionID:      uuid.NewString(),
		Mint:            mint,
		Action:          decision.Action,
		Confidence:      decision.Confidence,
		SizeUSD:         decision.SizeUSD,
		Reasoning:       decision.Reasoning,
		Model:           decision.Model,
		Status:          "pending",
		Inputs:          inputsJSON,
		SecurityVerdict: securityJSON,
		DataAgeMs:       inputs.DataAgeMs,
		LLMLatencyMs:    int64(decision.LatencyMs),
		ExpiresAt:       &expires,
	}
	if err := r.Repo.InsertAIDecision(ctx, row); err != nil {
		return nil, fmt.Errorf("agent: persist decision: %w", err)
	}
	return row, nil
}

func (r *Runner) reviewAndExecute(ctx context.Context, row *models.AIDecision, inputs *AggregatedInputs, decision *Decision) error {
	reject := func(reasons ...string) error {
		verdict, _ := json.Marshal(map[string]any{"allowed": false, "reasons": reasons})
		return r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "rejected", map[string]any{"risk_verdict": verdict})
	}

	if decision.Confidence < r.Config.MinConfidence {
		return reject("low_confidence")
	}
	// A danger verdict blocks buys no matter what the model said.
	if decision.Action == "BUY" && inputs.Security.Verdict == security.VerdictDanger {
		return reject("security_danger")
	}
	if decision.SizeUSD.LessThanOrEqual(decimal.Zero) {
		return reject("zero_size")
	}

	verdict := risk.Verdict{Allowed: true, SizeUSD: decision.SizeUSD}
	if r.Risk != nil {
		verdict = r.Risk.Evaluate(ctx, risk.Proposal{
			Mint:      row.Mint,
			Action:    decision.Action,
			SizeUSD:   decision.SizeUSD,
			DataAgeMs: inputs.DataAgeMs,
		})
	}
	verdictJSON, _ := json.Marshal(map[string]any{
		"allowed":  verdict.Allowed,
		"size_usd": verdict.SizeUSD,
		"reasons":  verdict.Reasons,
		"warnings": verdict.Warnings,
	})
	if !verdict.Allowed {
		return r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "rejected", map[string]any{"risk_verdict": verdictJSON})
	}

	row.SizeUSD = verdict.SizeUSD

	// With auto execution off, risk-approved decisions stay pending
	// until a human signs them off through the API.
	if r.Gate != nil && !r.Gate.AutoExecuteEnabled(ctx) {
		if err := r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "pending", map[string]any{
			"risk_verdict": verdictJSON,
			"size_usd":     verdict.SizeUSD,
		}); err != nil {
			return err
		}
		if r.Logger != nil {
			r.Logger.Info("agent: decision parked for manual approval",
				zap.String("decision_id", row.DecisionID),
				zap.String("mint", row.Mint),
				zap.String("action", decision.Action))
		}
		return nil
	}

	row.Status = "approved"
	if err := r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "approved", map[string]any{
		"risk_verdict": verdictJSON,
		"size_usd":     verdict.SizeUSD,
	}); err != nil {
		return err
	}
	_, err := r.execute(ctx, row)
	return err
}

// execute hands an approved decision to the executor and records the
// terminal status on the row.
func (r *Runner) execute(ctx context.Context, row *models.AIDecision) (*models.Trade, error) {
	if r.Executor == nil {
		return nil, nil
	}
	trade, err := r.Executor.Execute(ctx, row)
	if err != nil {
		_ = r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "failed", nil)
		return nil, fmt.Errorf("agent: execute decision %s: %w", row.DecisionID, err)
	}
	if err := r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "executed", nil); err != nil {
		return trade, err
	}

	if r.Notifier != nil && trade != nil {
		title := fmt.Sprintf("%s %s", row.Action, row.Mint)
		msg := fmt.Sprintf("size $%s, confidence %.2f, status %s: %s",
			row.SizeUSD.StringFixed(2), row.Confidence, trade.Status, row.Reasoning)
		if err := r.Notifier.Notify(ctx, title, msg); err != nil && r.Logger != nil {
			r.Logger.Debug("agent: notify failed", zap.Error(err))
		}
	}
	if r.Logger != nil {
		r.Logger.Info("agent: decision executed",
			zap.String("decision_id", row.DecisionID),
			zap.String("mint", row.Mint),
			zap.String("action", row.Action),
			zap.String("size_usd", row.SizeUSD.StringFixed(2)),
		)
	}
	return trade, nil
}

// Approve executes a pending decision after a manual sign-off.
func (r *Runner) Approve(ctx context.Context, decisionID string) (*models.Trade, error) {
	row, err := r.Repo.GetAIDecisionByDecisionID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrDecisionNotFound
	}
	if row.Status != "pending" {
		return nil, fmt.Errorf("%w: %s", ErrDecisionNotPending, row.Status)
	}
	if row.ExpiresAt != nil && row.ExpiresAt.Before(time.Now().UTC()) {
		_ = r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "expired", nil)
		return nil, fmt.Errorf("%w: expired", ErrDecisionNotPending)
	}
	if err := r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "approved", nil); err != nil {
		return nil, err
	}
	row.Status = "approved"
	if row.Action == "HOLD" {
		return nil, nil
	}
	return r.execute(ctx, row)
}

// Reject marks a pending decision as rejected with an operator reason.
func (r *Runner) Reject(ctx context.Context, decisionID, reason string) error {
	row, err := r.Repo.GetAIDecisionByDecisionID(ctx, decisionID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrDecisionNotFound
	}
	if row.Status != "pending" {
		return fmt.Errorf("%w: %s", ErrDecisionNotPending, row.Status)
	}
	if reason == "" {
		reason = "manual_reject"
	}
	verdict, _ := json.Marshal(map[string]any{"allowed": false, "reasons": []string{reason}})
	return r.Repo.UpdateAIDecisionStatus(ctx, row.ID, "rejected", map[string]any{"risk_verdict": verdict})
}

// ClosePosition sells out an open position through a manually issued
// decision, so the resulting trade still carries a decision trail.
func (r *Runner) ClosePosition(ctx context.Context, mint, reason string) (*models.Trade, error) {
	pos, err := r.Repo.GetPositionByMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	if pos == nil || pos.Status != "open" || pos.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNoOpenPosition
	}
	if reason == "" {
		reason = "manual close"
	}

	size := pos.Quantity.Mul(pos.CurrentPrice)
	if snap, err := r.Repo.LatestPriceSnapshot(ctx, mint); err == nil && snap != nil {
		size = pos.Quantity.Mul(snap.PriceUSD)
	}
	row := &models.AIDecision{
		DecisionID: uuid.NewString(),
		Mint:       mint,
		Action:     "SELL",
		Confidence: 1,
		SizeUSD:    size,
		Reasoning:  reason,
		Model:      "manual",
		Status:     "approved",
	}
	if err := r.Repo.InsertAIDecision(ctx, row); err != nil {
		return nil, fmt.Errorf("agent: persist close decision: %w", err)
	}
	return r.execute(ctx, row)
}

// ExpireStale marks pending decisions past their TTL as expired. Called
// from the decision-expiry cron job.
func (r *Runner) ExpireStale(ctx context.Context) (int64, error) {
	if r == nil || r.Repo == nil {
		return 0, nil
	}
	return r.Repo.ExpirePendingDecisions(ctx, time.Now().UTC())
}
