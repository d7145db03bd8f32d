package service

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type AdminService interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
	Users(ctx context.Context, page domain.Page) (domain.PageResult[domain.User], error)
}

type adminService struct {
	users    repo.UserRepo
	products repo.ProductRepo
	orders   repo.OrderRepo
	limits   PageLimits
}

func NewAdminService(users repo.UserRepo, products repo.ProductRepo, orders repo.OrderRepo, limits PageLimits) AdminService {
	return &adminService{users: users, products: products, orders: orders, limits: limits}
}

func (s *adminService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	products, err := s.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	byStatus, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	revenue, err := s.orders.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}

	stats := &domain.DashboardStats{
		Users:          users,
		Products:       products,
		OrdersByStatus: byStatus,
		Revenue:        revenue.StringFixed(2),
	}
	for _, n := range byStatus {
		stats.Orders += n
	}
	return stats, nil
}

func (s *adminService) Users(ctx context.Context, page domain.Page) (domain.PageResult[domain.User], error) {
	page = s.limits.Clamp(page)
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return domain.PageResult[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return domain.NewPageResult(users, total, page), nil
}
