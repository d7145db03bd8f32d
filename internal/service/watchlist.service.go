package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type MoveToCartInput struct {
	Variant  string `json:"variant"`
	Quantity int    `json:"quantity"`
}

type WatchlistService interface {
	Add(ctx context.Context, userID, productID uuid.UUID) (*domain.WatchlistEntry, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error)
	Remove(ctx context.Context, userID, entryID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) (domain.BulkResult, error)
	MoveToCart(ctx context.Context, userID, entryID uuid.UUID, in MoveToCartInput) (*domain.CartItem, error)
}

type watchlistService struct {
	watchlist repo.WatchlistRepo
	products  repo.ProductRepo
	cart      CartService
	now       func() time.Time
}

func NewWatchlistService(watchlist repo.WatchlistRepo, products repo.ProductRepo, cart CartService) WatchlistService {
	return &watchlistService{watchlist: watchlist, products: products, cart: cart, now: time.Now}
}

// Add rejects a product that is already saved with ErrAlreadyExists.
func (s *watchlistService) Add(ctx context.Context, userID, productID uuid.UUID) (*domain.WatchlistEntry, error) {
	p, err := s.products.FindById(ctx, productID)
	if err != nil {
		return nil, err
	}
	e := &domain.WatchlistEntry{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.watchlist.Add(ctx, e); err != nil {
		return nil, fmt.Errorf("add to watchlist: %w", err)
	}
	e.Product = p
	return e, nil
}

func (s *watchlistService) List(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error) {
	entries, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	products, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load watchlist products: %w", err)
	}
	out := make([]domain.WatchlistEntry, 0, len(entries))
	for _, e := range entries {
		if p, ok := products[e.ProductID]; ok {
			e.Product = &p
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *watchlistService) Remove(ctx context.Context, userID, entryID uuid.UUID) error {
	return s.watchlist.Delete(ctx, userID, entryID)
}

func (s *watchlistService) Clear(ctx context.Context, userID uuid.UUID) (domain.BulkResult, error) {
	n, err := s.watchlist.DeleteByUser(ctx, userID)
	if err != nil {
		return domain.BulkResult{}, fmt.Errorf("clear watchlist: %w", err)
	}
	return domain.BulkResult{Deleted: n}, nil
}

// MoveToCart removes the entry only once the cart add has succeeded.
func (s *watchlistService) MoveToCart(ctx context.Context, userID, entryID uuid.UUID, in MoveToCartInput) (*domain.CartItem, error) {
	e, err := s.watchlist.FindById(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	item, err := s.cart.Add(ctx, userID, AddToCartInput{ProductID: e.ProductID, Variant: in.Variant, Quantity: in.Quantity})
	if err != nil {
		return nil, err
	}
	if err := s.watchlist.Delete(ctx, userID, entryID); err != nil {
		return nil, fmt.Errorf("remove moved watchlist entry: %w", err)
	}
	return item, nil
}
