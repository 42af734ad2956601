package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"numerusx/internal/repository"
)

type SignalHandler struct {
	Repo repository.Repository
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/signals")
	group.GET("", h.listSignals)
	group.GET("/sources", h.listSources)
}

// @Summary List signals
// @Tags signals
// @Param type query string false "signal type"
// @Param source query string false "collector name"
// @Param mint query string false "token mint"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/signals [get]
func (h *SignalHandler) listSignals(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListSignals(c.Request.Context(), repository.ListSignalsParams{
		Limit:   limit,
		Offset:  offset,
		Type:    strQueryPtr(c, "type"),
		Source:  strQueryPtr(c, "source"),
		Mint:    strQueryPtr(c, "mint"),
		Since:   timeQueryPtr(c, "since"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

// @Summary List signal sources with health
// @Tags signals
// @Success 200 {object} apiResponse
// @Router /api/v1/signals/sources [get]
func (h *SignalHandler) listSources(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListSignalSources(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
