package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"numerusx/internal/repository"
)

type AnalyticsHandler struct {
	Repo repository.Repository
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/analytics")
	group.GET("/overview", h.overview)
	group.GET("/daily", h.daily)
}

// @Summary Decision and trade totals
// @Tags analytics
// @Success 200 {object} apiResponse
// @Router /api/v1/analytics/overview [get]
func (h *AnalyticsHandler) overview(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	overview, err := h.Repo.AnalyticsOverview(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, overview, nil)
}

// @Summary Daily trading stats
// @Tags analytics
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/analytics/daily [get]
func (h *AnalyticsHandler) daily(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListDailyStats(c.Request.Context(), repository.ListDailyStatsParams{
		Limit:  intQuery(c, "limit", 90),
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
