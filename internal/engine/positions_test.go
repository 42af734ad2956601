package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

type stubRepo struct {
	repository.Repository

	positions map[string]*models.Position
	snapshots map[string]models.PriceSnapshot
	tokens    map[string]*models.TokenInfo
	trades    []*models.Trade
	updates   map[uint64][]string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		positions: map[string]*models.Position{},
		snapshots: map[string]models.PriceSnapshot{},
		tokens:    map[string]*models.TokenInfo{},
		updates:   map[uint64][]string{},
	}
}

func (s *stubRepo) GetPositionByMint(ctx context.Context, mint string) (*models.Position, error) {
	pos, ok := s.positions[mint]
	if !ok {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

func (s *stubRepo) UpsertPosition(ctx context.Context, item *models.Position) error {
	cp := *item
	s.positions[item.Mint] = &cp
	return nil
}

func (s *stubRepo) ListOpenPositions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	for _, pos := range s.positions {
		if pos.Status == "open" {
			out = append(out, *pos)
		}
	}
	return out, nil
}

func (s *stubRepo) LatestPriceSnapshots(ctx context.Context, mints []string) (map[string]models.PriceSnapshot, error) {
	out := map[string]models.PriceSnapshot{}
	for _, mint := range mints {
		if snap, ok := s.snapshots[mint]; ok {
			out[mint] = snap
		}
	}
	return out, nil
}

func (s *stubRepo) LatestPriceSnapshot(ctx context.Context, mint string) (*models.PriceSnapshot, error) {
	snap, ok := s.snapshots[mint]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *stubRepo) GetTokenByMint(ctx context.Context, mint string) (*models.TokenInfo, error) {
	if tok, ok := s.tokens[mint]; ok {
		return tok, nil
	}
	return &models.TokenInfo{Mint: mint, Decimals: 9}, nil
}

func (s *stubRepo) InsertTrade(ctx context.Context, item *models.Trade) error {
	item.ID = uint64(len(s.trades) + 1)
	s.trades = append(s.trades, item)
	return nil
}

func (s *stubRepo) UpdateTradeStatus(ctx context.Context, id uint64, status string, updates map[string]any) error {
	s.updates[id] = append(s.updates[id], status)
	for _, tr := range s.trades {
		if tr.ID == id {
			tr.Status = status
		}
	}
	return nil
}

func (s *stubRepo) ListTradesByStatuses(ctx context.Context, statuses []string, limit int) ([]models.Trade, error) {
	var out []models.Trade
	for _, tr := range s.trades {
		for _, status := range statuses {
			if tr.Status == status {
				out = append(out, *tr)
			}
		}
	}
	return out, nil
}

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func TestBookOpensPositionOnFirstBuy(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}

	realized, err := book.ApplyFill(context.Background(), Fill{
		Mint: "MintA", Side: "BUY", Quantity: d("100"), PriceUSD: d("2"),
	})
	if err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if !realized.IsZero() {
		t.Fatalf("buy realized %s, want 0", realized)
	}
	pos := repo.positions["MintA"]
	if pos == nil || pos.Status != "open" {
		t.Fatalf("position not opened: %+v", pos)
	}
	if !pos.Quantity.Equal(d("100")) || !pos.AvgEntryPrice.Equal(d("2")) || !pos.CostBasis.Equal(d("200")) {
		t.Fatalf("unexpected position: qty=%s avg=%s basis=%s", pos.Quantity, pos.AvgEntryPrice, pos.CostBasis)
	}
}

func TestBookAveragesEntryAcrossBuys(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("100"), PriceUSD: d("1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("100"), PriceUSD: d("3")}); err != nil {
		t.Fatal(err)
	}

	pos := repo.positions["MintA"]
	if !pos.Quantity.Equal(d("200")) {
		t.Fatalf("quantity = %s, want 200", pos.Quantity)
	}
	if !pos.AvgEntryPrice.Equal(d("2")) {
		t.Fatalf("avg entry = %s, want 2", pos.AvgEntryPrice)
	}
	if !pos.CostBasis.Equal(d("400")) {
		t.Fatalf("cost basis = %s, want 400", pos.CostBasis)
	}
}

func TestBookPartialSellRealizesPnL(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("100"), PriceUSD: d("2")}); err != nil {
		t.Fatal(err)
	}
	realized, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "SELL", Quantity: d("40"), PriceUSD: d("3")})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(d("40")) {
		t.Fatalf("realized = %s, want 40", realized)
	}
	pos := repo.positions["MintA"]
	if pos.Status != "open" {
		t.Fatalf("position closed early: %+v", pos)
	}
	if !pos.Quantity.Equal(d("60")) || !pos.CostBasis.Equal(d("120")) {
		t.Fatalf("after partial sell: qty=%s basis=%s", pos.Quantity, pos.CostBasis)
	}
	if !pos.RealizedPnL.Equal(d("40")) {
		t.Fatalf("position realized = %s, want 40", pos.RealizedPnL)
	}
}

func TestBookFullSellClosesPosition(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("50"), PriceUSD: d("4")}); err != nil {
		t.Fatal(err)
	}
	realized, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "SELL", Quantity: d("50"), PriceUSD: d("3")})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(d("-50")) {
		t.Fatalf("realized = %s, want -50", realized)
	}
	pos := repo.positions["MintA"]
	if pos.Status != "closed" || pos.ClosedAt == nil {
		t.Fatalf("position not closed: %+v", pos)
	}
	if !pos.Quantity.IsZero() || !pos.CostBasis.IsZero() {
		t.Fatalf("closed position retains qty=%s basis=%s", pos.Quantity, pos.CostBasis)
	}
}

func TestBookSellOversizeClampsToQuantity(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("10"), PriceUSD: d("1")}); err != nil {
		t.Fatal(err)
	}
	realized, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "SELL", Quantity: d("25"), PriceUSD: d("2")})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(d("10")) {
		t.Fatalf("realized = %s, want 10 for the 10 held", realized)
	}
	if repo.positions["MintA"].Status != "closed" {
		t.Fatal("position should be closed after selling everything")
	}
}

func TestBookSellWithoutPositionFails(t *testing.T) {
	book := &Book{Repo: newStubRepo()}
	_, err := book.ApplyFill(context.Background(), Fill{Mint: "MintA", Side: "SELL", Quantity: d("5"), PriceUSD: d("1")})
	if err == nil {
		t.Fatal("expected error selling with no open position")
	}
}

func TestBookReopenKeepsLifetimeRealized(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("10"), PriceUSD: d("1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "SELL", Quantity: d("10"), PriceUSD: d("2")}); err != nil {
		t.Fatal(err)
	}
	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("5"), PriceUSD: d("3")}); err != nil {
		t.Fatal(err)
	}

	pos := repo.positions["MintA"]
	if pos.Status != "open" {
		t.Fatalf("position not reopened: %+v", pos)
	}
	if !pos.RealizedPnL.Equal(d("10")) {
		t.Fatalf("lifetime realized = %s, want 10", pos.RealizedPnL)
	}
	if !pos.AvgEntryPrice.Equal(d("3")) {
		t.Fatalf("reopened avg entry = %s, want 3", pos.AvgEntryPrice)
	}
}

func TestBookMarkPrices(t *testing.T) {
	repo := newStubRepo()
	book := &Book{Repo: repo}
	ctx := context.Background()

	if _, err := book.ApplyFill(ctx, Fill{Mint: "MintA", Side: "BUY", Quantity: d("100"), PriceUSD: d("2")}); err != nil {
		t.Fatal(err)
	}
	repo.snapshots["MintA"] = models.PriceSnapshot{
		Mint:       "MintA",
		PriceUSD:   d("2.5"),
		CapturedAt: time.Now(),
	}

	if err := book.MarkPrices(ctx); err != nil {
		t.Fatalf("MarkPrices: %v", err)
	}
	pos := repo.positions["MintA"]
	if !pos.CurrentPrice.Equal(d("2.5")) {
		t.Fatalf("current price = %s, want 2.5", pos.CurrentPrice)
	}
	if !pos.UnrealizedPnL.Equal(d("50")) {
		t.Fatalf("unrealized = %s, want 50", pos.UnrealizedPnL)
	}
}
