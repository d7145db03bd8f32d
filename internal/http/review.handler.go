package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type ReviewHandler struct {
	reviews service.ReviewService
}

func NewReviewHandler(reviews service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) ListByProduct(c *gin.Context) {
	id, err := uuidParam(c, "productId")
	if err != nil {
		fail(c, err)
		return
	}
	res, err := h.reviews.ListByProduct(c.Request.Context(), id, pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *ReviewHandler) Create(c *gin.Context) {
	var in service.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	rv, err := h.reviews.Create(c.Request.Context(), principal(c).ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, rv)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), principal(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}
