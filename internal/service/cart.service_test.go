package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

func TestCartAdd_DuplicateSumsQuantity(t *testing.T) {
	p := product("almonds", 499, 20)
	cart := newFakeCart()
	svc := NewCartService(cart, newFakeProducts(p), logging.Discard())
	user := uuid.New()

	_, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	item, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	assert.Len(t, cart.rows, 1)
	assert.Equal(t, 5, item.Quantity)
	assert.True(t, item.Subtotal.Equal(decimal.NewFromInt(2495)))
}

func TestCartAdd_VariantPriceAndLabel(t *testing.T) {
	p := product("almonds", 499, 20)
	big := decimal.NewFromInt(949)
	p.Variants = []domain.Variant{{Label: "500g", Price: &big, Stock: 5}}
	cart := newFakeCart()
	svc := NewCartService(cart, newFakeProducts(p), logging.Discard())
	user := uuid.New()

	item, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID, Variant: "500G"})
	require.NoError(t, err)
	assert.Equal(t, "500g", item.Variant)
	assert.Equal(t, 1, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(big))

	// a plain add of the same product is a separate line
	_, err = svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, cart.rows, 2)
}

func TestCartAdd_Rejects(t *testing.T) {
	p := product("almonds", 499, 20)
	svc := NewCartService(newFakeCart(), newFakeProducts(p), logging.Discard())

	_, err := svc.Add(context.Background(), uuid.New(), AddToCartInput{ProductID: p.ID, Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(context.Background(), uuid.New(), AddToCartInput{ProductID: p.ID, Variant: "2kg"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Add(context.Background(), uuid.New(), AddToCartInput{ProductID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCartList_Summary(t *testing.T) {
	a, b := product("a", 100, 5), product("b", 40, 5)
	svc := NewCartService(newFakeCart(), newFakeProducts(a, b), logging.Discard())
	user := uuid.New()
	_, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), user, AddToCartInput{ProductID: b.ID, Quantity: 3})
	require.NoError(t, err)

	view, err := svc.List(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Count)
	assert.True(t, view.Subtotal.Equal(decimal.NewFromInt(320)))
	for _, it := range view.Items {
		assert.NotNil(t, it.Product)
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	p := product("a", 100, 5)
	svc := NewCartService(newFakeCart(), newFakeProducts(p), logging.Discard())
	user := uuid.New()
	item, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID})
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(context.Background(), user, item.ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := svc.UpdateQuantity(context.Background(), user, item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)

	assert.ErrorIs(t, svc.Remove(context.Background(), uuid.New(), item.ID), domain.ErrNotFound)
	assert.NoError(t, svc.Remove(context.Background(), user, item.ID))
	assert.ErrorIs(t, svc.Remove(context.Background(), user, item.ID), domain.ErrNotFound)
}

func TestCartClear_PartialFailure(t *testing.T) {
	a, b, c := product("a", 1, 5), product("b", 2, 5), product("c", 3, 5)
	cart := newFakeCart()
	svc := NewCartService(cart, newFakeProducts(a, b, c), logging.Discard())
	user := uuid.New()

	var failing uuid.UUID
	for i, p := range []domain.Product{a, b, c} {
		item, err := svc.Add(context.Background(), user, AddToCartInput{ProductID: p.ID})
		require.NoError(t, err)
		if i == 1 {
			failing = item.ID
		}
	}
	cart.failOn[failing] = true

	res, err := svc.Clear(context.Background(), user)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, domain.BulkResult{Deleted: 2, Failed: 1}, res)
	assert.Len(t, cart.rows, 1)
	assert.Contains(t, cart.rows, failing)
}

func TestCartClear_Empty(t *testing.T) {
	svc := NewCartService(newFakeCart(), newFakeProducts(), logging.Discard())

	res, err := svc.Clear(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, res.Deleted)
}
