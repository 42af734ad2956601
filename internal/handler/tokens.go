package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"numerusx/internal/models"
	"numerusx/internal/repository"
)

// SecurityChecker fetches a fresh report when a cached one will not do.
type SecurityChecker interface {
	Refresh(ctx context.Context, mint string) (*models.SecurityReport, error)
}

type TokenHandler struct {
	Repo    repository.Repository
	Checker SecurityChecker
}

func (h *TokenHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/tokens")
	group.GET("", h.listTokens)
	group.GET("/:mint", h.getToken)
	group.GET("/:mint/snapshots", h.listSnapshots)
	group.GET("/:mint/security", h.getSecurity)
}

// @Summary List tracked tokens
// @Tags tokens
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Param active query bool false "only active tokens"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens [get]
func (h *TokenHandler) listTokens(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTokensParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Active: boolQueryPtr(c, "active"),
		Symbol: strQueryPtr(c, "symbol"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"discovered_at": "discovered_at",
			"updated_at":    "updated_at",
			"symbol":        "symbol",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListTokens(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTokens(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

type tokenDetail struct {
	Token    *models.TokenInfo      `json:"token"`
	Price    *models.PriceSnapshot  `json:"price,omitempty"`
	Security *models.SecurityReport `json:"security,omitempty"`
	Position *models.Position       `json:"position,omitempty"`
}

// @Summary Token detail with latest price, security report and position
// @Tags tokens
// @Param mint path string true "token mint"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{mint} [get]
func (h *TokenHandler) getToken(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	mint := strings.TrimSpace(c.Param("mint"))
	if mint == "" {
		Error(c, http.StatusBadRequest, "mint is required", nil)
		return
	}
	ctx := c.Request.Context()
	token, err := h.Repo.GetTokenByMint(ctx, mint)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if token == nil {
		Error(c, http.StatusNotFound, "token not found", nil)
		return
	}
	detail := tokenDetail{Token: token}
	if snap, err := h.Repo.LatestPriceSnapshot(ctx, mint); err == nil {
		detail.Price = snap
	}
	if report, err := h.Repo.GetSecurityReportByMint(ctx, mint); err == nil {
		detail.Security = report
	}
	if pos, err := h.Repo.GetPositionByMint(ctx, mint); err == nil {
		detail.Position = pos
	}
	Ok(c, detail, nil)
}

// @Summary Price snapshot history for a mint
// @Tags tokens
// @Param mint path string true "token mint"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "max rows"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{mint}/snapshots [get]
func (h *TokenHandler) listSnapshots(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	mint := strings.TrimSpace(c.Param("mint"))
	if mint == "" {
		Error(c, http.StatusBadRequest, "mint is required", nil)
		return
	}
	since := timeQueryPtr(c, "since")
	var sinceTime = defaultSince(since)
	limit := intQuery(c, "limit", 200)
	items, err := h.Repo.ListPriceSnapshots(c.Request.Context(), mint, sinceTime, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Security report for a mint
// @Tags tokens
// @Param mint path string true "token mint"
// @Param refresh query bool false "force a fresh report"
// @Success 200 {object} apiResponse
// @Router /api/v1/tokens/{mint}/security [get]
func (h *TokenHandler) getSecurity(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	mint := strings.TrimSpace(c.Param("mint"))
	if mint == "" {
		Error(c, http.StatusBadRequest, "mint is required", nil)
		return
	}
	ctx := c.Request.Context()
	if refresh := boolQueryPtr(c, "refresh"); refresh != nil && *refresh && h.Checker != nil {
		report, err := h.Checker.Refresh(ctx, mint)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, report, nil)
		return
	}
	report, err := h.Repo.GetSecurityReportByMint(ctx, mint)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if report == nil {
		Error(c, http.StatusNotFound, "no security report for mint", nil)
		return
	}
	Ok(c, report, nil)
}
