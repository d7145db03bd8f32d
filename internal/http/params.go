package http

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/http/middleware"
)

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %s", domain.ErrInvalidInput, name)
	}
	return id, nil
}

// pageQuery reads page and limit; the services clamp them.
func pageQuery(c *gin.Context) domain.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return domain.Page{Number: page, Size: limit}
}

func decimalQuery(c *gin.Context, name string) (*decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, name)
	}
	return &d, nil
}

func bindErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func principal(c *gin.Context) domain.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}
