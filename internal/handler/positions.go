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

// PositionCloser sells out an open position through the decision trail.
type PositionCloser interface {
	ClosePosition(ctx context.Context, mint, reason string) (*models.Trade, error)
}

type PositionHandler struct {
	Repo   repository.Repository
	Closer PositionCloser
}

func (h *PositionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/positions")
	group.GET("", h.listPositions)
	group.GET("/summary", h.summary)
	group.GET("/history", h.history)
	group.POST("/:mint/close", h.closePosition)
}

// @Summary List positions
// @Tags positions
// @Param status query string false "open or closed"
// @Param mint query string false "token mint"
// @Success 200 {object} apiResponse
// @Router /api/v1/positions [get]
func (h *PositionHandler) listPositions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListPositionsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Status: strQueryPtr(c, "status"),
		Mint:   strQueryPtr(c, "mint"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"opened_at":      "opened_at",
			"unrealized_pnl": "unrealized_pnl",
			"cost_basis":     "cost_basis",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListPositions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPositions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Aggregate portfolio summary
// @Tags positions
// @Success 200 {object} apiResponse
// @Router /api/v1/positions/summary [get]
func (h *PositionHandler) summary(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	sum, err := h.Repo.PositionsSummary(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, sum, nil)
}

// @Summary Portfolio snapshot history
// @Tags positions
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/positions/history [get]
func (h *PositionHandler) history(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListPortfolioSnapshots(c.Request.Context(), repository.ListPortfolioSnapshotsParams{
		Limit:  intQuery(c, "limit", 168),
		Offset: intQuery(c, "offset", 0),
		Since:  timeQueryPtr(c, "since"),
		Until:  timeQueryPtr(c, "until"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type closePositionRequest struct {
	Reason string `json:"reason"`
}

// @Summary Close an open position at market
// @Tags positions
// @Param mint path string true "token mint"
// @Param body body closePositionRequest false "close reason"
// @Success 200 {object} apiResponse
// @Router /api/v1/positions/{mint}/close [post]
func (h *PositionHandler) closePosition(c *gin.Context) {
	if h.Closer == nil {
		Error(c, http.StatusInternalServerError, "closer unavailable", nil)
		return
	}
	mint := strings.TrimSpace(c.Param("mint"))
	if mint == "" {
		Error(c, http.StatusBadRequest, "mint is required", nil)
		return
	}
	var req closePositionRequest
	_ = c.ShouldBindJSON(&req)
	trade, err := h.Closer.ClosePosition(c.Request.Context(), mint, strings.TrimSpace(req.Reason))
	switch {
	case errors.Is(err, agent.ErrNoOpenPosition):
		Error(c, http.StatusNotFound, "no open position for mint", nil)
	case err != nil:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	default:
		Ok(c, gin.H{"trade": trade}, nil)
	}
}
