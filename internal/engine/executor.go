package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"numerusx/internal/client/jupiter"
	"numerusx/internal/client/solana"
	"numerusx/internal/config"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// USDCMint is the default base mint trades are quoted against.
const USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

const usdcDecimals = 6

// SwapClient is the Jupiter surface the executor needs.
type SwapClient interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.Quote, error)
	Swap(ctx context.Context, req jupiter.SwapRequest) (*jupiter.SwapResponse, error)
}

// RPCClient is the Solana surface the executor needs.
type RPCClient interface {
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	SignatureStatus(ctx context.Context, signature string) (*solana.SignatureStatus, error)
}

// AuditLog lands trade lifecycle events in the system_logs table.
type AuditLog interface {
	Info(ctx context.Context, component, message string, details map[string]any)
	Error(ctx context.Context, component, message string, details map[string]any)
}

// Executor turns approved decisions into Jupiter swaps. In dry-run mode
// it records simulated trades and moves the position book without
// touching the chain.
type Executor struct {
	Jupiter SwapClient
	Solana  RPCClient
	Repo    repository.Repository
	Book    *Book
	Signer  *Signer
	Logger  *zap.Logger
	Audit   AuditLog
	Config  config.ExecutorConfig
	Chain   config.SolanaConfig
}

// audit mirrors a trade outcome into the system_logs audit trail.
func (e *Executor) audit(ctx context.Context, trade *models.Trade, failure error) {
	if e.Audit == nil || trade == nil {
		return
	}
	details := map[string]any{
		"trade_id": trade.ID,
		"mint":     trade.Mint,
		"side":     trade.Side,
		"size_usd": trade.SizeUSD.StringFixed(2),
		"status":   trade.Status,
	}
	if trade.TxSignature != nil {
		details["tx_signature"] = *trade.TxSignature
	}
	if failure != nil {
		details["error"] = failure.Error()
		e.Audit.Error(ctx, "executor", "trade failed", details)
		return
	}
	e.Audit.Info(ctx, "executor", "trade "+trade.Status, details)
}

// Execute swaps for a BUY or SELL decision and returns the trade row in
// its terminal state. A non-nil error means the trade did not confirm;
// the row, when present, carries the failure detail.
func (e *Executor) Execute(ctx context.Context, decision *models.AIDecision) (*models.Trade, error) {
	if e == nil || e.Repo == nil {
		return nil, fmt.Errorf("executor not configured")
	}
	if decision == nil {
		return nil, fmt.Errorf("executor: nil decision")
	}
	if decision.Action != "BUY" && decision.Action != "SELL" {
		return nil, fmt.Errorf("executor: action %q is not tradable", decision.Action)
	}

	plan, err := e.plan(ctx, decision)
	if err != nil {
		return nil, err
	}

	trade := &models.Trade{
		DecisionID:  decision.ID,
		Mint:        decision.Mint,
		Side:        decision.Action,
		InputMint:   plan.inputMint,
		OutputMint:  plan.outputMint,
		InputAmount: decimal.NewFromUint64(plan.amountRaw),
		PriceUSD:    plan.priceUSD,
		SizeUSD:     plan.sizeUSD,
		SlippageBps: e.slippageBps(),
		Status:      "pending",
	}
	if err := e.Repo.InsertTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("executor: insert trade: %w", err)
	}

	if e.Config.DryRun {
		return e.simulate(ctx, trade, plan)
	}
	return e.executeLive(ctx, trade, plan)
}

// tradePlan is the resolved swap before any network call.
type tradePlan struct {
	inputMint  string
	outputMint string
	amountRaw  uint64
	sizeUSD    decimal.Decimal
	priceUSD   decimal.Decimal
	quantity   decimal.Decimal // token units bought or sold
	decimals   int
}

func (e *Executor) plan(ctx context.Context, decision *models.AIDecision) (*tradePlan, error) {
	baseMint := e.Config.BaseMint
	if baseMint == "" {
		baseMint = USDCMint
	}

	token, err := e.Repo.GetTokenByMint(ctx, decision.Mint)
	if err != nil {
		return nil, fmt.Errorf("executor: token %s: %w", decision.Mint, err)
	}
	tokenDecimals := 9
	if token != nil && token.Decimals > 0 {
		tokenDecimals = token.Decimals
	}

	snap, err := e.Repo.LatestPriceSnapshot(ctx, decision.Mint)
	if err != nil {
		return nil, fmt.Errorf("executor: price for %s: %w", decision.Mint, err)
	}
	if snap == nil || snap.PriceUSD.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("executor: no usable price for %s", decision.Mint)
	}
	price := snap.PriceUSD

	switch decision.Action {
	case "BUY":
		size := decision.SizeUSD
		if e.Config.MaxTradeUSD > 0 {
			maxUSD := decimal.NewFromFloat(e.Config.MaxTradeUSD)
			if size.GreaterThan(maxUSD) {
				size = maxUSD
			}
		}
		if size.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("executor: zero-size buy for %s", decision.Mint)
		}
		raw, err := toRawAmount(size, usdcDecimals)
		if err != nil {
			return nil, fmt.Errorf("executor: buy amount: %w", err)
		}
		return &tradePlan{
			inputMint:  baseMint,
			outputMint: decision.Mint,
			amountRaw:  raw,
			sizeUSD:    size,
			priceUSD:   price,
			quantity:   size.Div(price),
			decimals:   tokenDecimals,
		}, nil

	case "SELL":
		pos, err := e.Repo.GetPositionByMint(ctx, decision.Mint)
		if err != nil {
			return nil, fmt.Errorf("executor: position %s: %w", decision.Mint, err)
		}
		if pos == nil || pos.Status != "open" || pos.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("executor: no open position in %s to sell", decision.Mint)
		}
		qty := pos.Quantity
		raw, err := toRawAmount(qty, tokenDecimals)
		if err != nil {
			return nil, fmt.Errorf("executor: sell amount: %w", err)
		}
		return &tradePlan{
			inputMint:  decision.Mint,
			outputMint: baseMint,
			amountRaw:  raw,
			sizeUSD:    qty.Mul(price),
			priceUSD:   price,
			quantity:   qty,
			decimals:   tokenDecimals,
		}, nil
	}
	return nil, fmt.Errorf("executor: action %q is not tradable", decision.Action)
}

// simulate settles the trade against the book at the snapshot price.
func (e *Executor) simulate(ctx context.Context, trade *models.Trade, plan *tradePlan) (*models.Trade, error) {
	now := time.Now().UTC()
	realized, err := e.Book.ApplyFill(ctx, Fill{
		Mint:     trade.Mint,
		Side:     trade.Side,
		Quantity: plan.quantity,
		PriceUSD: plan.priceUSD,
		At:       now,
	})
	if err != nil {
		return nil, e.fail(ctx, trade, err)
	}
	updates := map[string]any{"executed_at": now}
	if trade.Side == "SELL" {
		updates["realized_pnl"] = realized
		trade.RealizedPnL = &realized
	}
	if err := e.Repo.UpdateTradeStatus(ctx, trade.ID, "simulated", updates); err != nil {
		return nil, err
	}
	trade.Status = "simulated"
	trade.ExecutedAt = &now
	e.log().Info("trade simulated",
		zap.String("mint", trade.Mint),
		zap.String("side", trade.Side),
		zap.String("size_usd", trade.SizeUSD.StringFixed(2)))
	e.audit(ctx, trade, nil)
	return trade, nil
}

func (e *Executor) executeLive(ctx context.Context, trade *models.Trade, plan *tradePlan) (*models.Trade, error) {
	if e.Jupiter == nil || e.Solana == nil || e.Signer == nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("live execution requires jupiter, solana and a wallet key"))
	}

	quote, err := e.Jupiter.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   plan.inputMint,
		OutputMint:  plan.outputMint,
		Amount:      plan.amountRaw,
		SlippageBps: trade.SlippageBps,
	})
	if err != nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("quote: %w", err))
	}
	if err := e.checkImpact(quote); err != nil {
		return nil, e.fail(ctx, trade, err)
	}
	if route, err := json.Marshal(quote.RoutePlan); err == nil {
		trade.Route = datatypes.JSON(route)
	}

	swap, err := e.Jupiter.Swap(ctx, jupiter.SwapRequest{
		Quote:         quote,
		UserPublicKey: e.Chain.WalletPubkey,
		PriorityFee:   e.Chain.PriorityFeeLamports,
	})
	if err != nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("swap: %w", err))
	}

	signed, err := e.Signer.SignTransaction(swap.SwapTransaction)
	if err != nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("sign: %w", err))
	}

	signature, err := e.Solana.SendTransaction(ctx, signed)
	if err != nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("send: %w", err))
	}
	trade.TxSignature = &signature
	if err := e.Repo.UpdateTradeStatus(ctx, trade.ID, "submitted", map[string]any{
		"tx_signature": signature,
		"route":        trade.Route,
	}); err != nil {
		return nil, err
	}
	trade.Status = "submitted"
	e.log().Info("trade submitted",
		zap.String("mint", trade.Mint),
		zap.String("side", trade.Side),
		zap.String("signature", signature))

	if err := e.awaitConfirmation(ctx, signature); err != nil {
		return nil, e.fail(ctx, trade, err)
	}

	now := time.Now().UTC()
	fillPrice := fillPrice(quote, plan, trade.Side)
	realized, err := e.Book.ApplyFill(ctx, Fill{
		Mint:     trade.Mint,
		Side:     trade.Side,
		Quantity: filledQuantity(quote, plan, trade.Side),
		PriceUSD: fillPrice,
		At:       now,
	})
	if err != nil {
		return nil, e.fail(ctx, trade, fmt.Errorf("apply fill: %w", err))
	}

	updates := map[string]any{
		"executed_at":   now,
		"output_amount": outAmount(quote),
		"price_usd":     fillPrice,
	}
	if trade.Side == "SELL" {
		updates["realized_pnl"] = realized
		trade.RealizedPnL = &realized
	}
	if err := e.Repo.UpdateTradeStatus(ctx, trade.ID, "confirmed", updates); err != nil {
		return nil, err
	}
	trade.Status = "confirmed"
	trade.ExecutedAt = &now
	trade.PriceUSD = fillPrice
	e.log().Info("trade confirmed",
		zap.String("mint", trade.Mint),
		zap.String("side", trade.Side),
		zap.String("signature", signature),
		zap.String("size_usd", trade.SizeUSD.StringFixed(2)))
	e.audit(ctx, trade, nil)
	return trade, nil
}

func (e *Executor) checkImpact(quote *jupiter.Quote) error {
	maxBps := e.Config.MaxSlippageBps
	if maxBps <= 0 {
		return nil
	}
	impact, err := strconv.ParseFloat(quote.PriceImpactPct, 64)
	if err != nil {
		return nil
	}
	if impact*10000 > float64(maxBps) {
		return fmt.Errorf("price impact %.2f%% exceeds %d bps limit", impact*100, maxBps)
	}
	return nil
}

// fillPrice derives the effective USD price from the routed amounts,
// falling back to the snapshot price when the quote is unusable.
func fillPrice(quote *jupiter.Quote, plan *tradePlan, side string) decimal.Decimal {
	out, err := decimal.NewFromString(quote.OutAmount)
	if err != nil || out.LessThanOrEqual(decimal.Zero) {
		return plan.priceUSD
	}
	in, err := decimal.NewFromString(quote.InAmount)
	if err != nil || in.LessThanOrEqual(decimal.Zero) {
		return plan.priceUSD
	}
	var usd, qty decimal.Decimal
	if side == "BUY" {
		usd = in.Shift(-usdcDecimals)
		qty = out.Shift(int32(-plan.decimals))
	} else {
		usd = out.Shift(-usdcDecimals)
		qty = in.Shift(int32(-plan.decimals))
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return plan.priceUSD
	}
	return usd.Div(qty)
}

// filledQuantity is the routed token quantity: the out amount on buys,
// the in amount on sells. Falls back to the planned quantity when the
// quote amounts are unusable.
func filledQuantity(quote *jupiter.Quote, plan *tradePlan, side string) decimal.Decimal {
	raw := quote.OutAmount
	if side == "SELL" {
		raw = quote.InAmount
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil || qty.LessThanOrEqual(decimal.Zero) {
		return plan.quantity
	}
	return qty.Shift(int32(-plan.decimals))
}

// ConfirmInFlight resolves trades left in "submitted", typically after
// a restart cut the confirmation poll short. Called from cron.
func (e *Executor) ConfirmInFlight(ctx context.Context) error {
	if e == nil || e.Repo == nil || e.Solana == nil {
		return nil
	}
	trades, err := e.Repo.ListTradesByStatuses(ctx, []string{"submitted"}, 50)
	if err != nil {
		return err
	}
	for i := range trades {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.confirmSubmitted(ctx, &trades[i]); err != nil {
			e.log().Warn("confirm in-flight trade",
				zap.Uint64("trade_id", trades[i].ID), zap.Error(err))
		}
	}
	return nil
}

func (e *Executor) confirmSubmitted(ctx context.Context, trade *models.Trade) error {
	if trade.TxSignature == nil || *trade.TxSignature == "" {
		return e.fail(ctx, trade, fmt.Errorf("submitted trade has no signature"))
	}
	status, err := e.Solana.SignatureStatus(ctx, *trade.TxSignature)
	if err != nil {
		return err
	}
	if status == nil {
		// No status well past the confirmation window means the chain
		// dropped the transaction.
		timeout := e.Chain.ConfirmTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		if time.Since(trade.CreatedAt) > 2*timeout {
			return e.fail(ctx, trade, fmt.Errorf("transaction %s dropped", *trade.TxSignature))
		}
		return nil
	}
	if status.Failed() {
		return e.fail(ctx, trade, fmt.Errorf("transaction %s failed on chain", *trade.TxSignature))
	}
	if !status.Confirmed() {
		return nil
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"executed_at": now,
	}
	qty, price := e.recoveredFill(ctx, trade)
	if qty.GreaterThan(decimal.Zero) && price.GreaterThan(decimal.Zero) {
		realized, err := e.Book.ApplyFill(ctx, Fill{
			Mint:     trade.Mint,
			Side:     trade.Side,
			Quantity: qty,
			PriceUSD: price,
			At:       now,
		})
		if err != nil {
			return e.fail(ctx, trade, fmt.Errorf("apply fill: %w", err))
		}
		updates["price_usd"] = price
		if trade.Side == "SELL" {
			updates["realized_pnl"] = realized
		}
	} else {
		e.log().Warn("confirmed trade without a recoverable fill",
			zap.Uint64("trade_id", trade.ID), zap.String("mint", trade.Mint))
	}
	if err := e.Repo.UpdateTradeStatus(ctx, trade.ID, "confirmed", updates); err != nil {
		return err
	}
	trade.Status = "confirmed"
	e.log().Info("in-flight trade confirmed",
		zap.Uint64("trade_id", trade.ID),
		zap.String("mint", trade.Mint),
		zap.String("signature", *trade.TxSignature))
	e.audit(ctx, trade, nil)
	return nil
}

// recoveredFill rebuilds quantity and price for a trade whose routed
// amounts were never recorded. SELLs recover the exact quantity from
// the raw input amount; BUYs approximate from the planned size and
// price.
func (e *Executor) recoveredFill(ctx context.Context, trade *models.Trade) (decimal.Decimal, decimal.Decimal) {
	price := trade.PriceUSD
	if price.LessThanOrEqual(decimal.Zero) {
		if snap, err := e.Repo.LatestPriceSnapshot(ctx, trade.Mint); err == nil && snap != nil {
			price = snap.PriceUSD
		}
	}
	if trade.Side == "SELL" && trade.InputAmount.GreaterThan(decimal.Zero) {
		decimals := 9
		if token, err := e.Repo.GetTokenByMint(ctx, trade.Mint); err == nil && token != nil && token.Decimals > 0 {
			decimals = token.Decimals
		}
		return trade.InputAmount.Shift(int32(-decimals)), price
	}
	if price.GreaterThan(decimal.Zero) {
		return trade.SizeUSD.Div(price), price
	}
	return decimal.Zero, price
}

func (e *Executor) awaitConfirmation(ctx context.Context, signature string) error {
	timeout := e.Chain.ConfirmTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	poll := e.Chain.ConfirmPoll
	if poll <= 0 {
		poll = 2 * time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			status, err := e.Solana.SignatureStatus(ctx, signature)
			if err != nil {
				e.log().Warn("signature status", zap.String("signature", signature), zap.Error(err))
			} else if status != nil {
				if status.Failed() {
					return fmt.Errorf("transaction %s failed on chain", signature)
				}
				if status.Confirmed() {
					return nil
				}
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("transaction %s not confirmed within %s", signature, timeout)
			}
		}
	}
}

// fail records the terminal failure on the trade row and returns err.
func (e *Executor) fail(ctx context.Context, trade *models.Trade, cause error) error {
	msg := cause.Error()
	if uerr := e.Repo.UpdateTradeStatus(ctx, trade.ID, "failed", map[string]any{"error": msg}); uerr != nil {
		e.log().Warn("record trade failure", zap.Uint64("trade_id", trade.ID), zap.Error(uerr))
	}
	trade.Status = "failed"
	trade.Error = &msg
	e.audit(ctx, trade, cause)
	return cause
}

func (e *Executor) slippageBps() int {
	if e.Config.MaxSlippageBps > 0 {
		return e.Config.MaxSlippageBps
	}
	return 100
}

func (e *Executor) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func outAmount(quote *jupiter.Quote) decimal.Decimal {
	out, err := decimal.NewFromString(quote.OutAmount)
	if err != nil {
		return decimal.Zero
	}
	return out
}

// toRawAmount converts token units to raw base units, truncating any
// sub-lamport remainder.
func toRawAmount(amount decimal.Decimal, decimals int) (uint64, error) {
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount %s rounds to zero base units", amount)
	}
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s overflows uint64 base units", amount)
	}
	return raw.BigInt().Uint64(), nil
}
