package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"numerusx/internal/repository"
)

type TradeHandler struct {
	Repo repository.Repository
}

func (h *TradeHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/trades")
	group.GET("", h.listTrades)
	group.GET("/:id", h.getTrade)
}

// @Summary List trades
// @Tags trades
// @Param mint query string false "token mint"
// @Param side query string false "BUY or SELL"
// @Param status query string false "trade status"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} apiResponse
// @Router /api/v1/trades [get]
func (h *TradeHandler) listTrades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListTradesParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Mint:   strQueryPtr(c, "mint"),
		Side:   strQueryPtr(c, "side"),
		Status: strQueryPtr(c, "status"),
		Since:  timeQueryPtr(c, "since"),
		OrderBy: parseOrder(c.Query("order_by"), map[string]string{
			"created_at":  "created_at",
			"executed_at": "executed_at",
			"size_usd":    "size_usd",
		}),
		Asc: boolQueryPtr(c, "ascending"),
	}
	items, err := h.Repo.ListTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountTrades(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Trade detail
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Router /api/v1/trades/{id} [get]
func (h *TradeHandler) getTrade(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid trade id", nil)
		return
	}
	trade, err := h.Repo.GetTradeByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if trade == nil {
		Error(c, http.StatusNotFound, "trade not found", nil)
		return
	}
	Ok(c, trade, nil)
}
