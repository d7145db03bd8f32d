package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type ReviewInput struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Rating    int       `json:"rating" binding:"required"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment"`
}

type ReviewService interface {
	Create(ctx context.Context, userID uuid.UUID, in ReviewInput) (*domain.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, page domain.Page) (domain.PageResult[domain.Review], error)
	Delete(ctx context.Context, caller domain.Principal, id uuid.UUID) error
}

type reviewService struct {
	reviews  repo.ReviewRepo
	products repo.ProductRepo
	users    repo.UserRepo
	limits   PageLimits
	now      func() time.Time
}

func NewReviewService(reviews repo.ReviewRepo, products repo.ProductRepo, users repo.UserRepo, limits PageLimits) ReviewService {
	return &reviewService{reviews: reviews, products: products, users: users, limits: limits, now: time.Now}
}

func (s *reviewService) Create(ctx context.Context, userID uuid.UUID, in ReviewInput) (*domain.Review, error) {
	rv := &domain.Review{
		ID:        uuid.New(),
		ProductID: in.ProductID,
		UserID:    userID,
		Rating:    in.Rating,
		Title:     strings.TrimSpace(in.Title),
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: s.now().UTC(),
	}
	if err := rv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: rating must be 1-5 and comment at most %d characters", err, domain.MaxReviewLength)
	}
	if _, err := s.products.FindById(ctx, in.ProductID); err != nil {
		return nil, err
	}
	user, err := s.users.FindById(ctx, userID)
	if err != nil {
		return nil, err
	}
	rv.UserName = user.Name

	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return rv, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID uuid.UUID, page domain.Page) (domain.PageResult[domain.Review], error) {
	page = s.limits.Clamp(page)
	reviews, total, err := s.reviews.ListByProduct(ctx, productID, page)
	if err != nil {
		return domain.PageResult[domain.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return domain.NewPageResult(reviews, total, page), nil
}

// Delete is allowed for the author and for admins.
func (s *reviewService) Delete(ctx context.Context, caller domain.Principal, id uuid.UUID) error {
	rv, err := s.reviews.FindById(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && rv.UserID != caller.ID {
		return domain.ErrForbidden
	}
	return s.reviews.Delete(ctx, id)
}
