package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type OrderRepo interface {
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page domain.Page) ([]domain.Order, int, error)
	List(ctx context.Context, status *domain.OrderStatus, page domain.Page) ([]domain.Order, int, error)
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to domain.OrderStatus, at time.Time) (*domain.Order, error)
	CancelStale(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, at time.Time) (*domain.Order, error)
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	FindStuckOrders(ctx context.Context, olderThan time.Duration) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, items, subtotal, shipping, tax, total, address, payment,
	status, payment_status, created_at, updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	var items, address, payment []byte
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&items,
		&o.Subtotal,
		&o.Shipping,
		&o.Tax,
		&o.Total,
		&address,
		&payment,
		&o.Status,
		&o.PaymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := fromJSON(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := fromJSON(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if err := fromJSON(payment, &o.Payment); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	return &o, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	items, err := toJSON(order.Items)
	if err != nil {
		return err
	}
	address, err := toJSON(order.Address)
	if err != nil {
		return err
	}
	payment, err := toJSON(order.Payment)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		order.ID, order.UserID, items, order.Subtotal, order.Shipping, order.Tax, order.Total,
		address, payment, order.Status, order.PaymentStatus, order.CreatedAt, order.UpdatedAt,
	)
	return mapErr(err)
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, page domain.Page) ([]domain.Order, int, error) {
	return r.list(ctx, "user_id", userID, page)
}

func (r *orderRepo) List(ctx context.Context, status *domain.OrderStatus, page domain.Page) ([]domain.Order, int, error) {
	if status == nil {
		return r.list(ctx, "", nil, page)
	}
	return r.list(ctx, "status", *status, page)
}

func (r *orderRepo) list(ctx context.Context, column string, value any, page domain.Page) ([]domain.Order, int, error) {
	var a args
	where := ""
	if column != "" {
		where = " WHERE " + column + " = " + a.add(value)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, a...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY created_at DESC, id LIMIT " + a.add(page.Size) + " OFFSET " + a.add(page.Offset())
	rows, err := r.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

// UpdateOrderStatus moves the order from one status to another. ErrNotFound means the
// order is gone or no longer has status from.
func (r *orderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from, to domain.OrderStatus, at time.Time) (*domain.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx,
		"UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4 RETURNING "+orderColumns,
		id, to, at, from,
	))
}

// CancelStale cancels the order only while it is still pending with an incomplete payment.
// ErrNotFound means it moved on since it was found.
func (r *orderRepo) CancelStale(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (*domain.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx,
		"UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4 AND payment_status IN ($5, $6) RETURNING "+orderColumns,
		id, domain.OrderCancelled, at, domain.OrderPending, domain.PaymentPending, domain.PaymentFailed,
	))
}

func (r *orderRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, at time.Time) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		"UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1 RETURNING "+orderColumns,
		id, status, at,
	))
}

// Delete removes the order and returns it as it was.
func (r *orderRepo) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx, "DELETE FROM orders WHERE id = $1 RETURNING "+orderColumns, id))
}

func (r *orderRepo) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for rows.Next() {
		var status domain.OrderStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Revenue sums totals of paid orders that were not cancelled.
func (r *orderRepo) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total), 0) FROM orders WHERE payment_status = $1 AND status <> $2",
		domain.PaymentPaid, domain.OrderCancelled,
	).Scan(&sum)
	return sum, mapErr(err)
}

// FindStuckOrders returns pending orders whose payment never completed within olderThan.
func (r *orderRepo) FindStuckOrders(ctx context.Context, olderThan time.Duration) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND payment_status IN ($2, $3) AND created_at < $4",
		domain.OrderPending, domain.PaymentPending, domain.PaymentFailed, time.Now().Add(-olderThan),
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
