package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"numerusx/internal/agent"
	"numerusx/internal/models"
	"numerusx/internal/repository"
	"numerusx/internal/service"
)

type stubRepo struct {
	repository.Repository

	signals   []models.Signal
	sources   []models.SignalSource
	tokens    map[string]*models.TokenInfo
	settings  map[string]*models.SystemSetting
	decisions map[string]*models.AIDecision
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		tokens:    map[string]*models.TokenInfo{},
		settings:  map[string]*models.SystemSetting{},
		decisions: map[string]*models.AIDecision{},
	}
}

func (s *stubRepo) ListSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.Signal, error) {
	if params.Mint != nil {
		var out []models.Signal
		for _, sig := range s.signals {
			if sig.Mint != nil && *sig.Mint == *params.Mint {
				out = append(out, sig)
			}
		}
		return out, nil
	}
	return s.signals, nil
}

func (s *stubRepo) ListSignalSources(ctx context.Context) ([]models.SignalSource, error) {
	return s.sources, nil
}

func (s *stubRepo) GetTokenByMint(ctx context.Context, mint string) (*models.TokenInfo, error) {
	return s.tokens[mint], nil
}

func (s *stubRepo) LatestPriceSnapshot(ctx context.Context, mint string) (*models.PriceSnapshot, error) {
	return nil, nil
}

func (s *stubRepo) GetSecurityReportByMint(ctx context.Context, mint string) (*models.SecurityReport, error) {
	return nil, nil
}

func (s *stubRepo) GetPositionByMint(ctx context.Context, mint string) (*models.Position, error) {
	return nil, nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return s.settings[key], nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	cp := *item
	s.settings[item.Key] = &cp
	return nil
}

func (s *stubRepo) GetAIDecisionByDecisionID(ctx context.Context, decisionID string) (*models.AIDecision, error) {
	return s.decisions[decisionID], nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	return nil, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var resp apiResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, resp
}

func TestListSignalsFiltersByMint(t *testing.T) {
	repo := newStubRepo()
	mintA, mintB := "MintA", "MintB"
	repo.signals = []models.Signal{
		{Mint: &mintA, SignalType: "price_move"},
		{Mint: &mintB, SignalType: "new_token"},
	}
	r := newTestRouter()
	(&SignalHandler{Repo: repo}).Register(r)

	rec, resp := doRequest(t, r, http.MethodGet, "/api/v1/signals?mint=MintA", "")
	if rec.Code != http.StatusOK || resp.Code != 0 {
		t.Fatalf("status %d, code %d", rec.Code, resp.Code)
	}
	items, ok := resp.Data.([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("data = %v, want one signal", resp.Data)
	}
}

func TestGetTokenNotFound(t *testing.T) {
	r := newTestRouter()
	(&TokenHandler{Repo: newStubRepo()}).Register(r)

	rec, resp := doRequest(t, r, http.MethodGet, "/api/v1/tokens/UnknownMint", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp.Message != "token not found" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestGetDecisionWithTrades(t *testing.T) {
	repo := newStubRepo()
	repo.decisions["dec-1"] = &models.AIDecision{ID: 1, DecisionID: "dec-1", Mint: "MintA", Action: "BUY"}
	r := newTestRouter()
	(&DecisionHandler{Repo: repo}).Register(r)

	rec, resp := doRequest(t, r, http.MethodGet, "/api/v1/decisions/dec-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["decision"] == nil {
		t.Fatalf("data = %v", resp.Data)
	}
}

type stubReviewer struct {
	approved []string
	rejected []string
	trade    *models.Trade
	err      error
}

func (s *stubReviewer) Approve(ctx context.Context, decisionID string) (*models.Trade, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = append(s.approved, decisionID)
	return s.trade, nil
}

func (s *stubReviewer) Reject(ctx context.Context, decisionID, reason string) error {
	if s.err != nil {
		return s.err
	}
	s.rejected = append(s.rejected, decisionID+":"+reason)
	return nil
}

func TestApproveDecisionEndpoint(t *testing.T) {
	reviewer := &stubReviewer{trade: &models.Trade{ID: 7, Status: "simulated"}}
	r := newTestRouter()
	(&DecisionHandler{Repo: newStubRepo(), Reviewer: reviewer}).Register(r)

	rec, resp := doRequest(t, r, http.MethodPost, "/api/v1/decisions/dec-1/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(reviewer.approved) != 1 || reviewer.approved[0] != "dec-1" {
		t.Fatalf("approved = %v", reviewer.approved)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["trade"] == nil {
		t.Fatalf("data = %v", resp.Data)
	}
}

func TestApproveDecisionErrorMapping(t *testing.T) {
	r := newTestRouter()
	(&DecisionHandler{
		Repo:     newStubRepo(),
		Reviewer: &stubReviewer{err: agent.ErrDecisionNotFound},
	}).Register(r)
	rec, _ := doRequest(t, r, http.MethodPost, "/api/v1/decisions/missing/approve", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	r = newTestRouter()
	(&DecisionHandler{
		Repo:     newStubRepo(),
		Reviewer: &stubReviewer{err: agent.ErrDecisionNotPending},
	}).Register(r)
	rec, _ = doRequest(t, r, http.MethodPost, "/api/v1/decisions/dec-1/approve", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRejectDecisionEndpoint(t *testing.T) {
	reviewer := &stubReviewer{}
	r := newTestRouter()
	(&DecisionHandler{Repo: newStubRepo(), Reviewer: reviewer}).Register(r)

	rec, _ := doRequest(t, r, http.MethodPost, "/api/v1/decisions/dec-1/reject", `{"reason":"too risky"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(reviewer.rejected) != 1 || reviewer.rejected[0] != "dec-1:too risky" {
		t.Fatalf("rejected = %v", reviewer.rejected)
	}
}

type stubCloser struct {
	closed []string
	err    error
}

func (s *stubCloser) ClosePosition(ctx context.Context, mint, reason string) (*models.Trade, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.closed = append(s.closed, mint)
	return &models.Trade{ID: 3, Mint: mint, Side: "SELL", Status: "confirmed"}, nil
}

func TestClosePositionEndpoint(t *testing.T) {
	closer := &stubCloser{}
	r := newTestRouter()
	(&PositionHandler{Repo: newStubRepo(), Closer: closer}).Register(r)

	rec, resp := doRequest(t, r, http.MethodPost, "/api/v1/positions/MintA/close", `{"reason":"done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(closer.closed) != 1 || closer.closed[0] != "MintA" {
		t.Fatalf("closed = %v", closer.closed)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["trade"] == nil {
		t.Fatalf("data = %v", resp.Data)
	}

	r = newTestRouter()
	(&PositionHandler{Repo: newStubRepo(), Closer: &stubCloser{err: agent.ErrNoOpenPosition}}).Register(r)
	rec, _ = doRequest(t, r, http.MethodPost, "/api/v1/positions/MintB/close", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetSecurityReportNotFound(t *testing.T) {
	r := newTestRouter()
	(&TokenHandler{Repo: newStubRepo()}).Register(r)

	rec, _ := doRequest(t, r, http.MethodGet, "/api/v1/tokens/MintA/security", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPutSwitchTogglesFeature(t *testing.T) {
	repo := newStubRepo()
	settings := &service.SystemSettingsService{Repo: repo}
	r := newTestRouter()
	(&SettingsHandler{Repo: repo, Settings: settings}).Register(r)

	rec, _ := doRequest(t, r, http.MethodPut, "/api/v1/settings/switches/agent", `{"enabled":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if settings.IsEnabled(context.Background(), service.FeatureAgent, true) {
		t.Fatal("switch not persisted")
	}

	rec, _ = doRequest(t, r, http.MethodPut, "/api/v1/settings/switches/nonsense", `{"enabled":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown switch status = %d, want 404", rec.Code)
	}
}
