package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

// PageLimits bounds listing and search page sizes.
type PageLimits struct {
	Default int
	Max     int
}

func (l PageLimits) Clamp(p domain.Page) domain.Page {
	return domain.NewPage(p.Number, p.Size, l.Default, l.Max)
}

type ProductInput struct {
	Name        string           `json:"name" binding:"required"`
	Brand       string           `json:"brand"`
	CategoryID  uuid.UUID        `json:"categoryId" binding:"required"`
	Subcategory string           `json:"subcategory"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `json:"price"`
	Images      []string         `json:"images"`
	Variants    []domain.Variant `json:"variants"`
	Stock       int              `json:"stock"`
}

type CategoryInput struct {
	Name          string   `json:"name" binding:"required"`
	Image         string   `json:"image"`
	Subcategories []string `json:"subcategories"`
}

type CatalogService interface {
	ListProducts(ctx context.Context, f domain.ProductFilter) (domain.PageResult[domain.Product], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, sort domain.ProductSort, page domain.Page) (domain.PageResult[domain.Product], error)

	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	products   repo.ProductRepo
	categories repo.CategoryRepo
	limits     PageLimits
	now        func() time.Time
}

func NewCatalogService(products repo.ProductRepo, categories repo.CategoryRepo, limits PageLimits) CatalogService {
	return &catalogService{products: products, categories: categories, limits: limits, now: time.Now}
}

func (s *catalogService) ListProducts(ctx context.Context, f domain.ProductFilter) (domain.PageResult[domain.Product], error) {
	f.Page = s.limits.Clamp(f.Page)
	items, total, err := s.products.List(ctx, f)
	if err != nil {
		return domain.PageResult[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return domain.NewPageResult(items, total, f.Page), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindById(ctx, id)
}

func (s *catalogService) validateProduct(ctx context.Context, in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() || in.Stock < 0 {
		return fmt.Errorf("%w: price and stock must not be negative", domain.ErrInvalidInput)
	}
	for _, v := range in.Variants {
		if strings.TrimSpace(v.Label) == "" || v.Stock < 0 || (v.Price != nil && v.Price.IsNegative()) {
			return fmt.Errorf("%w: invalid variant", domain.ErrInvalidInput)
		}
	}
	if _, err := s.categories.FindById(ctx, in.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: unknown category", domain.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.validateProduct(ctx, in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &domain.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        domain.Slugify(in.Name),
		Brand:       in.Brand,
		CategoryID:  in.CategoryID,
		Subcategory: in.Subcategory,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Images:      in.Images,
		Variants:    in.Variants,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.products.FindById(ctx, p.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := s.validateProduct(ctx, in); err != nil {
		return nil, err
	}
	p, err := s.products.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = domain.Slugify(in.Name)
	p.Brand = in.Brand
	p.CategoryID = in.CategoryID
	p.Subcategory = in.Subcategory
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Images = in.Images
	p.Variants = in.Variants
	p.Stock = in.Stock
	p.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.products.FindById(ctx, id)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *catalogService) Search(ctx context.Context, query string, sort domain.ProductSort, page domain.Page) (domain.PageResult[domain.Product], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.PageResult[domain.Product]{}, fmt.Errorf("%w: search query required", domain.ErrInvalidInput)
	}
	page = s.limits.Clamp(page)
	items, total, err := s.products.Search(ctx, query, sort, page)
	if err != nil {
		return domain.PageResult[domain.Product]{}, fmt.Errorf("search products: %w", err)
	}
	return domain.NewPageResult(items, total, page), nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cats == nil {
		cats = []domain.Category{}
	}
	return cats, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categories.FindById(ctx, id)
}

func (s *catalogService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	now := s.now().UTC()
	c := &domain.Category{
		ID:            uuid.New(),
		Name:          name,
		Slug:          domain.Slugify(name),
		Image:         in.Image,
		Subcategories: in.Subcategories,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	c, err := s.categories.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Slug = domain.Slugify(name)
	c.Image = in.Image
	c.Subcategories = in.Subcategories
	c.UpdatedAt = s.now().UTC()
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categories.Delete(ctx, id)
}
