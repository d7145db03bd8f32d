package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type AddToCartInput struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Variant   string    `json:"variant"`
	Quantity  int       `json:"quantity"`
}

type CartView struct {
	Items    []domain.CartItem `json:"items"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

type CartService interface {
	List(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Add(ctx context.Context, userID uuid.UUID, in AddToCartInput) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (domain.BulkResult, error)
}

type cartService struct {
	cart     repo.CartRepo
	products repo.ProductRepo
	log      *slog.Logger
	now      func() time.Time
}

func NewCartService(cart repo.CartRepo, products repo.ProductRepo, log *slog.Logger) CartService {
	return &cartService{cart: cart, products: products, log: log, now: time.Now}
}

func (s *cartService) List(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	view := &CartView{Items: make([]domain.CartItem, 0, len(items)), Subtotal: decimal.Zero}
	for _, it := range items {
		if p, ok := products[it.ProductID]; ok {
			it.Product = &p
		}
		it.ComputeSubtotal()
		view.Items = append(view.Items, it)
		view.Count += it.Quantity
		view.Subtotal = view.Subtotal.Add(it.Subtotal)
	}
	return view, nil
}

// Add snapshots the current unit price. Repeated adds of the same product and variant
// accumulate on a single row.
func (s *cartService) Add(ctx context.Context, userID uuid.UUID, in AddToCartInput) (*domain.CartItem, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	p, err := s.products.FindById(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	price, err := p.PriceFor(in.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidInput, in.Variant)
	}
	variant := ""
	if v, ok := p.Variant(in.Variant); ok {
		variant = v.Label
	}

	now := s.now().UTC()
	item, err := s.cart.Upsert(ctx, &domain.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: p.ID,
		Variant:   variant,
		Quantity:  in.Quantity,
		UnitPrice: price,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	item.Product = p
	return item, nil
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	return s.cart.UpdateQuantity(ctx, userID, itemID, quantity)
}

func (s *cartService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cart.Delete(ctx, userID, itemID)
}

// Clear deletes each line on its own. Lines already removed stay removed when a later
// delete fails; the joined error lists every failure.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) (domain.BulkResult, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return domain.BulkResult{}, fmt.Errorf("list cart: %w", err)
	}

	var res domain.BulkResult
	var errs []error
	for _, it := range items {
		if err := s.cart.Delete(ctx, userID, it.ID); err != nil {
			res.Failed++
			errs = append(errs, fmt.Errorf("delete cart item %s: %w", it.ID, err))
			continue
		}
		res.Deleted++
	}
	if len(errs) > 0 {
		s.log.Warn("cart clear partially failed", "user_id", userID, "deleted", res.Deleted, "failed", res.Failed)
	}
	return res, errors.Join(errs...)
}
