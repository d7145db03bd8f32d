package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type AuthHandler struct {
	auth  service.AuthService
	admin service.AdminService
}

func NewAuthHandler(auth service.AuthService, admin service.AdminService) *AuthHandler {
	return &AuthHandler{auth: auth, admin: admin}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var in service.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	res, err := h.auth.Signup(c.Request.Context(), in)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusCreated, "signup successful", res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		legacyFail(c, bindErr(err))
		return
	}
	res, err := h.auth.Login(c.Request.Context(), in)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "login successful", res)
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.auth.Me(c.Request.Context(), principal(c).ID)
	if err != nil {
		legacyFail(c, err)
		return
	}
	legacyOK(c, http.StatusOK, "profile fetched", u)
}

// Admin endpoints answer with the {success, data} envelope.

func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, bindErr(err))
		return
	}
	res, err := h.auth.AdminLogin(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *AuthHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

func (h *AuthHandler) Users(c *gin.Context) {
	res, err := h.admin.Users(c.Request.Context(), pageQuery(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
