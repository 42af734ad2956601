package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"numerusx/internal/agent"
	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// DecisionReviewer is the manual-approval surface of the agent runner.
type DecisionReviewer interface {
	Approve(ctx context.Context, decisionID string) (*models.Trade, error)
	Reject(ctx context.Context, decisionID, reason string) error
}

type DecisionHandler struct {
	Repo     repository.Repository
	Reviewer DecisionReviewer
}

func (h *DecisionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/decisions")
	group.GET("", h.listDecisions)
	group.GET("/:decision_id", h.getDecision)
	group.POST("/:decision_id/approve", h.approveDecision)
	group.POST("/:decision_id/reject", h.rejectDecision)
}

// @Summary List AI decisions
// @Tags decisions
// @Param mint query string false "token mint"
// @Param action query string false "BUY, SELL or HOLD"
// @Param status query string false "decision status"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/decisions [get]
func (h *DecisionHandler) listDecisions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListAIDecisionsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Mint:   strQueryPtr(c, "mint"),
		Action: strQueryPtr(c, "action"),
		Status: strQueryPtr(c, "status"),
		Since:  timeQueryPtr(c, "since"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at": "created_at",
			"confidence": "confidence",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListAIDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountAIDecisions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Decision detail with its trades
// @Tags decisions
// @Param decision_id path string true "decision id"
// @Success 200 {object} apiResponse
// @Router /api/v1/decisions/{decision_id} [get]
func (h *DecisionHandler) getDecision(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	decisionID := strings.TrimSpace(c.Param("decision_id"))
	if decisionID == "" {
		Error(c, http.StatusBadRequest, "decision_id is required", nil)
		return
	}
	ctx := c.Request.Context()
	decision, err := h.Repo.GetAIDecisionByDecisionID(ctx, decisionID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if decision == nil {
		Error(c, http.StatusNotFound, "decision not found", nil)
		return
	}
	trades, err := h.Repo.ListTrades(ctx, repository.ListTradesParams{
		Limit:      20,
		DecisionID: &decision.ID,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"decision": decision, "trades": trades}, nil)
}

// @Summary Approve a pending decision and execute it
// @Tags decisions
// @Param decision_id path string true "decision id"
// @Success 200 {object} apiResponse
// @Router /api/v1/decisions/{decision_id}/approve [post]
func (h *DecisionHandler) approveDecision(c *gin.Context) {
	if h.Reviewer == nil {
		Error(c, http.StatusInternalServerError, "reviewer unavailable", nil)
		return
	}
	decisionID := strings.TrimSpace(c.Param("decision_id"))
	trade, err := h.Reviewer.Approve(c.Request.Context(), decisionID)
	switch {
	case errors.Is(err, agent.ErrDecisionNotFound):
		Error(c, http.StatusNotFound, "decision not found", nil)
	case errors.Is(err, agent.ErrDecisionNotPending):
		Error(c, http.StatusConflict, err.Error(), nil)
	case err != nil:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	default:
		Ok(c, gin.H{"trade": trade}, nil)
	}
}

type rejectDecisionRequest struct {
	Reason string `json:"reason"`
}

// @Summary Reject a pending decision
// @Tags decisions
// @Param decision_id path string true "decision id"
// @Param body body rejectDecisionRequest false "rejection reason"
// @Success 200 {object} apiResponse
// @Router /api/v1/decisions/{decision_id}/reject [post]
func (h *DecisionHandler) rejectDecision(c *gin.Context) {
	if h.Reviewer == nil {
		Error(c, http.StatusInternalServerError, "reviewer unavailable", nil)
		return
	}
	var req rejectDecisionRequest
	_ = c.ShouldBindJSON(&req)
	decisionID := strings.TrimSpace(c.Param("decision_id"))
	err := h.Reviewer.Reject(c.Request.Context(), decisionID, strings.TrimSpace(req.Reason))
	switch {
	case errors.Is(err, agent.ErrDecisionNotFound):
		Error(c, http.StatusNotFound, "decision not found", nil)
	case errors.Is(err, agent.ErrDecisionNotPending):
		Error(c, http.StatusConflict, err.Error(), nil)
	case err != nil:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	default:
		Ok(c, gin.H{"decision_id": decisionID, "status": "rejected"}, nil)
	}
}
