package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

// Two response shapes are served. Catalog, search, banners, reviews, orders and admin use
// {success, data} / {success: false, message}. Cart, watchlist, newsletter, contacts and auth
// use {msg, data} / {error, msg}. Existing clients depend on both.

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTotalsMismatch), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// message hides internal errors from clients and logs them instead.
func message(c *gin.Context, err error, status int) string {
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "err", err)
		_ = c.Error(err)
		return "internal server error"
	}
	return err.Error()
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message(c, err, status)})
}

func legacyOK(c *gin.Context, status int, msg string, data any) {
	body := gin.H{"msg": msg}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func legacyFail(c *gin.Context, err error) {
	status := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"error": true, "msg": message(c, err, status)})
}
