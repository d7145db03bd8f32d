package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type previewRequest struct {
	Items []service.LineRequest `json:"items" binding:"dive"`
}

func (h *OrderHandler) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	q, err := h.orders.Preview(c.Request.Context(), principal(c).ID, req.Items)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, q)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var in service.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	order, err := h.orders.CreateOrder(c.Request.Context(), principal(c).ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	res, err := h.orders.ListForUser(c.Request.Context(), principal(c).ID, pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// GET /api/orders/all?status=
func (h *OrderHandler) ListAll(c *gin.Context) {
	var status *domain.OrderStatus
	if raw := c.Query("status"); raw != "" {
		s, err := domain.ParseOrderStatus(raw)
		if err != nil {
			fail(c, err)
			return
		}
		status = &s
	}
	res, err := h.orders.ListAll(c.Request.Context(), status, pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	order, err := h.orders.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

func (h *OrderHandler) UpdatePayment(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	status, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	order, err := h.orders.UpdatePaymentStatus(c.Request.Context(), id, status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}
