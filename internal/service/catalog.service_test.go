package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type fakeCategories struct {
	repo.CategoryRepo
	rows map[uuid.UUID]*domain.Category
}

func (f *fakeCategories) FindById(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

type catalogProducts struct {
	*fakeProducts
	searchedWith domain.Page
}

func (c *catalogProducts) Create(_ context.Context, p *domain.Product) error {
	c.items[p.ID] = *p
	return nil
}

func (c *catalogProducts) Search(_ context.Context, _ string, _ domain.ProductSort, page domain.Page) ([]domain.Product, int, error) {
	c.searchedWith = page
	return nil, 0, nil
}

func newCatalog() (CatalogService, *catalogProducts, *domain.Category) {
	cat := &domain.Category{ID: uuid.New(), Name: "Spices"}
	products := &catalogProducts{fakeProducts: newFakeProducts()}
	svc := NewCatalogService(products, &fakeCategories{rows: map[uuid.UUID]*domain.Category{cat.ID: cat}}, PageLimits{Default: 12, Max: 50})
	return svc, products, cat
}

func TestCreateProduct(t *testing.T) {
	svc, _, cat := newCatalog()

	p, err := svc.CreateProduct(context.Background(), ProductInput{
		Name: "  Kashmiri Saffron 1g ", CategoryID: cat.ID, Price: decimal.RequireFromString("899.999"), Stock: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kashmiri Saffron 1g", p.Name)
	assert.Equal(t, "kashmiri-saffron-1g", p.Slug)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(900)))
}

func TestCreateProduct_Rejects(t *testing.T) {
	svc, _, cat := newCatalog()
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "x", CategoryID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "x", CategoryID: cat.ID, Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "x", CategoryID: cat.ID, Variants: []domain.Variant{{Label: " "}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "x", CategoryID: cat.ID, Variants: []domain.Variant{{Label: "1kg", Stock: -2}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_ValidatesAndClamps(t *testing.T) {
	svc, products, _ := newCatalog()

	_, err := svc.Search(context.Background(), "   ", domain.SortNewest, domain.Page{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := svc.Search(context.Background(), "saffron", domain.SortNewest, domain.Page{Number: 0, Size: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Number: 1, Size: 50}, products.searchedWith)
	assert.NotNil(t, res.Items)
	assert.Zero(t, res.TotalPages)
}
