package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"numerusx/internal/repository"
)

type LogHandler struct {
	Repo repository.Repository
}

func (h *LogHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/logs", h.listLogs)
}

// @Summary List system log entries
// @Tags logs
// @Param level query string false "log level"
// @Param component query string false "component name"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/logs [get]
func (h *LogHandler) listLogs(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSystemLogsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		Level:     strQueryPtr(c, "level"),
		Component: strQueryPtr(c, "component"),
		Since:     timeQueryPtr(c, "since"),
		OrderBy:   "created_at",
		Asc:       boolPtr(false),
	}
	items, err := h.Repo.ListSystemLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSystemLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}
