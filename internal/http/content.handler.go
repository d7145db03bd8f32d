package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type ContentHandler struct {
	content service.ContentService
}

func NewContentHandler(content service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

func (h *ContentHandler) ActiveBanners(c *gin.Context) {
	h.banners(c, true)
}

func (h *ContentHandler) AllBanners(c *gin.Context) {
	h.banners(c, false)
}

func (h *ContentHandler) banners(c *gin.Context, activeOnly bool) {
	banners, err := h.content.Banners(c.Request.Context(), activeOnly)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, banners)
}

func (h *ContentHandler) CreateBanner(c *gin.Context) {
	var in service.BannerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	b, err := h.content.CreateBanner(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, b)
}

func (h *ContentHandler) UpdateBanner(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var in service.BannerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	b, err := h.content.UpdateBanner(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, b)
}

func (h *ContentHandler) DeleteBanner(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.content.DeleteBanner(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *ContentHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	sub, err := h.content.Subscribe(c.Request.Context(), req.Email)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusCreated, "subscribed", sub)
}

func (h *ContentHandler) Unsubscribe(c *gin.Context) {
	if err := h.content.Unsubscribe(c.Request.Context(), c.Param("email")); err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "unsubscribed", nil)
}

func (h *ContentHandler) Subscribers(c *gin.Context) {
	subs, err := h.content.Subscribers(c.Request.Context())
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "subscribers fetched", subs)
}

func (h *ContentHandler) SubmitContact(c *gin.Context) {
	var in service.ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	contact, err := h.content.SubmitContact(c.Request.Context(), in)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusCreated, "message received", contact)
}

func (h *ContentHandler) Contacts(c *gin.Context) {
	res, err := h.content.Contacts(c.Request.Context(), pageQuery(c))
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "contacts fetched", res)
}

func (h *ContentHandler) ResolveContact(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	if err := h.content.ResolveContact(c.Request.Context(), id); err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "contact resolved", nil)
}

func (h *ContentHandler) DeleteContact(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		legacyFail(c, err)
		return
	}
	if err := h.content.DeleteContact(c.Request.Context(), id); err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "contact deleted", nil)
}
