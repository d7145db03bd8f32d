package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type CartHandler struct {
	cart service.CartService
}

func NewCartHandler(cart service.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

func (h *CartHandler) List(c *gin.Context) {
	view, err := h.cart.List(c.Request.Context(), principal(c).ID)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "cart fetched", view)
}

func (h *CartHandler) Add(c *gin.Context) {
	var in service.AddToCartInput
	if err := c.ShouldBindJSON(&in); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	item, err := h.cart.Add(c.Request.Context(), principal(c).ID, in)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "added to cart", item)
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	item, err := h.cart.UpdateQuantity(c.Request.Context(), principal(c).ID, id, req.Quantity)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "cart updated", item)
}

func (h *CartHandler) Remove(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	if err := h.cart.Remove(c.Request.Context(), principal(c).ID, id); err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "item removed", nil)
}

// Clear reports partial failures with 207 and the per-outcome counts.
func (h *CartHandler) Clear(c *gin.Context) {
	res, err := h.cart.Clear(c.Request.Context(), principal(c).ID)
	if err != nil && res.Deleted == 0 && res.Failed == 0 {
		legacyFail(c, err)
		return
	}
	if res.Failed > 0 {
		c.JSON(http.StatusMultiStatus, gin.H{"error": true, "msg": "some items could not be removed", "data": res})
		return
	}
	legacyOK(c, http.StatusOK, "cart cleared", res)
}
