package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/service"
)

type WatchlistHandler struct {
	watchlist service.WatchlistService
}

func NewWatchlistHandler(watchlist service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist}
}

func (h *WatchlistHandler) List(c *gin.Context) {
	entries, err := h.watchlist.List(c.Request.Context(), principal(c).ID)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "watchlist fetched", entries)
}

type watchRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
}

func (h *WatchlistHandler) Add(c *gin.Context) {
	var req watchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	entry, err := h.watchlist.Add(c.Request.Context(), principal(c).ID, req.ProductID)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusCreated, "added to watchlist", entry)
}

func (h *WatchlistHandler) Remove(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	if err := h.watchlist.Remove(c.Request.Context(), principal(c).ID, id); err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "removed from watchlist", nil)
}

func (h *WatchlistHandler) Clear(c *gin.Context) {
	res, err := h.watchlist.Clear(c.Request.Context(), principal(c).ID)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "watchlist cleared", res)
}

func (h *WatchlistHandler) MoveToCart(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	var in service.MoveToCartInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			legacyFail(c, bindErr(err))
			return
		}
	}
	item, err := h.watchlist.MoveToCart(c.Request.Context(), principal(c).ID, id, in)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "moved to cart", item)
}
