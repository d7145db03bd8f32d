package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/repo"
)

var tracer = otel.Tracer("storefront/service")

type LineRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Variant   string    `json:"variant"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateOrderInput struct {
	// Items defaults to the caller's cart when empty.
	Items   []LineRequest      `json:"items"`
	Address domain.Address     `json:"shippingAddress" binding:"required"`
	Payment domain.PaymentInfo `json:"payment"`
	// PaymentCaptured marks the order paid at creation, e.g. after a client-side capture.
	PaymentCaptured bool `json:"paymentCaptured"`
	// Totals are what the client displayed; they are checked, never trusted.
	Totals *domain.Totals `json:"totals"`
}

type Quote struct {
	Items []domain.OrderItem `json:"items"`
	domain.Totals
}

type OrderService interface {
	Preview(ctx context.Context, userID uuid.UUID, lines []LineRequest) (*Quote, error)
	CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, caller domain.Principal, id uuid.UUID) (*domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, page domain.Page) (domain.PageResult[domain.Order], error)
	ListAll(ctx context.Context, status *domain.OrderStatus, page domain.Page) (domain.PageResult[domain.Order], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	// CancelStale cancels an order still pending with an incomplete payment. It reports false
	// when the order has moved on since it was found.
	CancelStale(ctx context.Context, id uuid.UUID) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type OrderOptions struct {
	Rules        domain.CheckoutRules
	Policy       domain.TransitionPolicy
	StrictTotals bool
	Limits       PageLimits
}

type orderService struct {
	tx        repo.Transactor
	orderRepo repo.OrderRepo
	products  repo.ProductRepo
	cart      repo.CartRepo
	notifier  notify.Notifier
	opts      OrderOptions
	log       *slog.Logger
	now       func() time.Time
}

func NewOrderService(
	tx repo.Transactor,
	orderRepo repo.OrderRepo,
	products repo.ProductRepo,
	cart repo.CartRepo,
	notifier notify.Notifier,
	opts OrderOptions,
	log *slog.Logger,
) OrderService {
	if opts.Policy == nil {
		opts.Policy = domain.PermissiveTransitions{}
	}
	return &orderService{
		tx:        tx,
		orderRepo: orderRepo,
		products:  products,
		cart:      cart,
		notifier:  notifier,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// resolveLines prices the request from the catalog. An empty request uses the cart.
func (s *orderService) resolveLines(ctx context.Context, userID uuid.UUID, lines []LineRequest) ([]domain.OrderItem, error) {
	if len(lines) == 0 {
		cart, err := s.cart.ListByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		for _, it := range cart {
			lines = append(lines, LineRequest{ProductID: it.ProductID, Variant: it.Variant, Quantity: it.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.FindMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
		}
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidInput, l.ProductID)
		}
		price, err := p.PriceFor(l.Variant)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown variant %q for %s", domain.ErrInvalidInput, l.Variant, p.ID)
		}
		label := l.Variant
		if v, ok := p.Variant(l.Variant); ok {
			label = v.Label
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.FirstImage(),
			Variant:   label,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}
	return items, nil
}

func (s *orderService) Preview(ctx context.Context, userID uuid.UUID, lines []LineRequest) (*Quote, error) {
	items, err := s.resolveLines(ctx, userID, lines)
	if err != nil {
		return nil, err
	}
	return &Quote{Items: items, Totals: s.opts.Rules.Compute(items)}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	items, err := s.resolveLines(ctx, userID, in.Items)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	totals := s.opts.Rules.Compute(items)

	if in.Totals != nil && !in.Totals.Matches(totals) {
		if s.opts.StrictTotals {
			span.SetStatus(codes.Error, domain.ErrTotalsMismatch.Error())
			return nil, fmt.Errorf("%w: client total %s, computed %s", domain.ErrTotalsMismatch, in.Totals.Total, totals.Total)
		}
		s.log.Warn("client totals replaced", "user_id", userID, "client_total", in.Totals.Total.String(), "total", totals.Total.String())
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Items:         items,
		Totals:        totals,
		Address:       in.Address,
		Payment:       in.Payment,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PaymentCaptured {
		order.PaymentStatus = domain.PaymentPaid
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.reserveStock(ctx, tx, items); err != nil {
			return err
		}
		return s.orderRepo.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create order: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	// the order stands even if the cart cannot be cleared
	if _, err := s.cart.DeleteByUser(ctx, userID); err != nil {
		s.log.Warn("clear cart after checkout failed", "user_id", userID, "order_id", order.ID, "err", err)
	}

	s.log.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total.String())
	return order, nil
}

func (s *orderService) Get(ctx context.Context, caller domain.Principal, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && order.UserID != caller.ID {
		// other users' orders are indistinguishable from missing ones
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID, page domain.Page) (domain.PageResult[domain.Order], error) {
	page = s.opts.Limits.Clamp(page)
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, page)
	if err != nil {
		return domain.PageResult[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return domain.NewPageResult(orders, total, page), nil
}

func (s *orderService) ListAll(ctx context.Context, status *domain.OrderStatus, page domain.Page) (domain.PageResult[domain.Order], error) {
	page = s.opts.Limits.Clamp(page)
	orders, total, err := s.orderRepo.List(ctx, status, page)
	if err != nil {
		return domain.PageResult[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return domain.NewPageResult(orders, total, page), nil
}

func (s *orderService) reserveStock(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) error {
	for _, it := range domain.StockOrder(items) {
		if err := s.products.ReserveStock(ctx, tx, it.ProductID, it.Variant, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderService) releaseStock(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) error {
	for _, it := range domain.StockOrder(items) {
		if err := s.products.ReleaseStock(ctx, tx, it.ProductID, it.Variant, it.Quantity); err != nil {
			return fmt.Errorf("release stock: %w", err)
		}
	}
	return nil
}

// adjustStock gives the units back when an order enters cancelled and takes them again
// when it leaves cancelled.
func (s *orderService) adjustStock(ctx context.Context, tx *sql.Tx, from, to domain.OrderStatus, items []domain.OrderItem) error {
	switch {
	case from != domain.OrderCancelled && to == domain.OrderCancelled:
		return s.releaseStock(ctx, tx, items)
	case from == domain.OrderCancelled && to != domain.OrderCancelled:
		return s.reserveStock(ctx, tx, items)
	}
	return nil
}

func (s *orderService) notifyStatus(ctx context.Context, order *domain.Order, at time.Time) {
	s.notifier.Notify(ctx, domain.NewStatusEvent(domain.UserRoom(order.UserID), order, at))
	s.notifier.Notify(ctx, domain.NewStatusEvent(domain.AdminRoom, order, at))
}

// UpdateStatus records the new status, then notifies the owner's room and the admin room.
// Nothing is emitted when the write fails.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "order.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id.String()), attribute.String("order.status", string(status)))

	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrInvalidInput, status)
	}

	current, err := s.orderRepo.FindById(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !s.opts.Policy.Allowed(current.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, current.Status, status)
	}

	at := s.now().UTC()
	var order *domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		updated, err := s.orderRepo.UpdateOrderStatus(ctx, tx, id, current.Status, status, at)
		if err != nil {
			return err
		}
		if err := s.adjustStock(ctx, tx, current.Status, status, updated.Items); err != nil {
			return err
		}
		order = updated
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s was modified while updating", domain.ErrConflict, id)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	s.notifyStatus(ctx, order, at)
	s.log.Info("order status updated", "order_id", order.ID, "from", current.Status, "to", order.Status)
	return order, nil
}

func (s *orderService) CancelStale(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := tracer.Start(ctx, "order.cancel_stale")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", id.String()))

	at := s.now().UTC()
	var order *domain.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		cancelled, err := s.orderRepo.CancelStale(ctx, tx, id, at)
		if err != nil {
			return err
		}
		order = cancelled
		return s.releaseStock(ctx, tx, cancelled.Items)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("cancel stale order: %w", err)
	}

	s.notifyStatus(ctx, order, at)
	s.log.Info("stale order cancelled", "order_id", order.ID, "user_id", order.UserID)
	return true, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, status)
	}
	order, err := s.orderRepo.UpdatePaymentStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.log.Info("payment status updated", "order_id", order.ID, "payment_status", order.PaymentStatus)
	return order, nil
}

// Delete removes the order. Units held by an order that was not cancelled go back to stock.
func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		deleted, err := s.orderRepo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if deleted.Status == domain.OrderCancelled {
			return nil
		}
		return s.releaseStock(ctx, tx, deleted.Items)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete order: %w", err)
	}
	s.log.Warn("order deleted", "order_id", id)
	return nil
}
