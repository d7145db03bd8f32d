package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/notify"
)

const principalKey = "principal"

type Authn struct {
	tokens notify.TokenParser
}

func NewAuthn(tokens notify.TokenParser) *Authn {
	return &Authn{tokens: tokens}
}

// RequireUser accepts any valid token, user or admin.
func (a *Authn) RequireUser() gin.HandlerFunc {
	return a.require(false)
}

func (a *Authn) RequireAdmin() gin.HandlerFunc {
	return a.require(true)
}

func (a *Authn) require(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		p, err := a.tokens.ParseToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}
		if admin && !p.IsAdmin() {
			forbidden(c, "insufficient_scope", "admin access required")
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the caller stored by RequireUser or RequireAdmin.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// SetPrincipal is used by handler tests to skip token parsing.
func SetPrincipal(c *gin.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": code, "message": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": code, "message": desc})
}
