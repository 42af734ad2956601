package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// Book maintains the position ledger. Buys raise quantity and shift the
// average entry price; sells realize PnL against it. All fills flow
// through ApplyFill exactly once.
type Book struct {
	Repo repository.Repository
}

// Fill is the normalized result of a confirmed or simulated trade.
type Fill struct {
	Mint     string
	Side     string          // BUY|SELL
	Quantity decimal.Decimal // token units, not raw
	PriceUSD decimal.Decimal
	At       time.Time
}

// ApplyFill updates the position for a fill and returns the realized
// PnL (zero for buys).
func (b *Book) ApplyFill(ctx context.Context, fill Fill) (decimal.Decimal, error) {
	if b == nil || b.Repo == nil {
		return decimal.Zero, fmt.Errorf("position book not configured")
	}
	if fill.Quantity.LessThanOrEqual(decimal.Zero) || fill.PriceUSD.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("position book: invalid fill %s %s@%s", fill.Side, fill.Quantity, fill.PriceUSD)
	}
	if fill.At.IsZero() {
		fill.At = time.Now().UTC()
	}

	pos, err := b.Repo.GetPositionByMint(ctx, fill.Mint)
	if err != nil {
		return decimal.Zero, err
	}

	switch fill.Side {
	case "BUY":
		return decimal.Zero, b.applyBuy(ctx, pos, fill)
	case "SELL":
		return b.applySell(ctx, pos, fill)
	default:
		return decimal.Zero, fmt.Errorf("position book: unknown side %q", fill.Side)
	}
}

func (b *Book) applyBuy(ctx context.Context, pos *models.Position, fill Fill) error {
	cost := fill.Quantity.Mul(fill.PriceUSD)
	if pos == nil || pos.Status != "open" || pos.Quantity.LessThanOrEqual(decimal.Zero) {
		next := &models.Position{
			Mint:          fill.Mint,
			Quantity:      fill.Quantity,
			AvgEntryPrice: fill.PriceUSD,
			CurrentPrice:  fill.PriceUSD,
			CostBasis:     cost,
			Status:        "open",
			OpenedAt:      fill.At,
		}
		if pos != nil {
			// Re-opening a closed position keeps its lifetime realized PnL.
			next.RealizedPnL = pos.RealizedPnL
		}
		return b.Repo.UpsertPosition(ctx, next)
	}

	newQty := pos.Quantity.Add(fill.Quantity)
	newCost := pos.CostBasis.Add(cost)
	pos.Quantity = newQty
	pos.CostBasis = newCost
	pos.AvgEntryPrice = newCost.Div(newQty)
	pos.CurrentPrice = fill.PriceUSD
	pos.UnrealizedPnL = fill.PriceUSD.Sub(pos.AvgEntryPrice).Mul(newQty)
	return b.Repo.UpsertPosition(ctx, pos)
}

func (b *Book) applySell(ctx context.Context, pos *models.Position, fill Fill) (decimal.Decimal, error) {
	if pos == nil || pos.Status != "open" || pos.Quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("position book: no open position in %s to sell", fill.Mint)
	}
	qty := fill.Quantity
	if qty.GreaterThan(pos.Quantity) {
		qty = pos.Quantity
	}

	realized := fill.PriceUSD.Sub(pos.AvgEntryPrice).Mul(qty)
	remaining := pos.Quantity.Sub(qty)

	pos.Quantity = remaining
	pos.CostBasis = pos.AvgEntryPrice.Mul(remaining)
	pos.CurrentPrice = fill.PriceUSD
	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	if remaining.LessThanOrEqual(decimal.Zero) {
		pos.Quantity = decimal.Zero
		pos.CostBasis = decimal.Zero
		pos.UnrealizedPnL = decimal.Zero
		pos.Status = "closed"
		closedAt := fill.At
		pos.ClosedAt = &closedAt
	} else {
		pos.UnrealizedPnL = fill.PriceUSD.Sub(pos.AvgEntryPrice).Mul(remaining)
	}
	if err := b.Repo.UpsertPosition(ctx, pos); err != nil {
		return decimal.Zero, err
	}
	return realized, nil
}

// MarkPrices refreshes CurrentPrice and UnrealizedPnL for all open
// positions from the latest snapshots. Called from the price-refresh
// cron job.
func (b *Book) MarkPrices(ctx context.Context) error {
	if b == nil || b.Repo == nil {
		return nil
	}
	positions, err := b.Repo.ListOpenPositions(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}
	mints := make([]string, 0, len(positions))
	for _, p := range positions {
		mints = append(mints, p.Mint)
	}
	snaps, err := b.Repo.LatestPriceSnapshots(ctx, mints)
	if err != nil {
		return err
	}
	for i := range positions {
		pos := &positions[i]
		snap, ok := snaps[pos.Mint]
		if !ok || snap.PriceUSD.LessThanOrEqual(decimal.Zero) {
			continue
		}
		pos.CurrentPrice = snap.PriceUSD
		pos.UnrealizedPnL = snap.PriceUSD.Sub(pos.AvgEntryPrice).Mul(pos.Quantity)
		if err := b.Repo.UpsertPosition(ctx, pos); err != nil {
			return err
		}
	}
	return nil
}
