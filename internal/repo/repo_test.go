package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"storefront/internal/domain"
)

func TestSearchSQL_WeightsAndOrdering(t *testing.T) {
	count, query := searchSQL(domain.SortPriceAsc)

	for _, w := range searchWeights {
		assert.Contains(t, query, fmt.Sprintf("CASE WHEN %s ILIKE $1 THEN %d ELSE 0 END", w.column, w.weight))
	}
	assert.Contains(t, count, "s.relevance > 0")
	assert.True(t, strings.HasSuffix(query, "ORDER BY s.relevance DESC, s.price ASC, s.id LIMIT $2 OFFSET $3"), query)

	_, query = searchSQL(domain.ProductSort("bogus"))
	assert.Contains(t, query, "s.relevance DESC, s.created_at DESC")
}

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%almond%", containsPattern("  almond "))
	assert.Equal(t, `%50\% off\_now%`, containsPattern("50% off_now"))
	assert.Equal(t, `%a\\b%`, containsPattern(`a\b`))
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(sql.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}), domain.ErrAlreadyExists)
	assert.ErrorIs(t, mapErr(&pgconn.PgError{Code: "23503"}), domain.ErrInvalidInput)
	assert.ErrorIs(t, mapErr(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23514"})), domain.ErrInvalidInput)

	other := errors.New("conn refused")
	assert.Equal(t, other, mapErr(other))
}

func TestArgsPlaceholders(t *testing.T) {
	var a args
	assert.Equal(t, "$1", a.add("x"))
	assert.Equal(t, "$2", a.add(2))
	assert.Len(t, a, 2)
}

func TestProductWhere(t *testing.T) {
	var a args
	minPrice := domainDecimal("10")
	where := productWhere(domain.ProductFilter{Brand: "Nutraj", MinPrice: &minPrice, InStock: true}, &a)
	assert.Equal(t, " WHERE p.brand ILIKE $1 AND p.price >= $2 AND p.stock > 0", where)

	var none args
	assert.Empty(t, productWhere(domain.ProductFilter{}, &none))
}
