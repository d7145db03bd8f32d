package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type CartRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error)
	FindById(ctx context.Context, userID, id uuid.UUID) (*domain.CartItem, error)
	// Upsert inserts the line or adds its quantity to the existing (user, product, variant) row.
	Upsert(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, id uuid.UUID, quantity int) (*domain.CartItem, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

const cartColumns = `id, user_id, product_id, variant, quantity, unit_price, created_at, updated_at`

func scanCartItem(row scanner) (*domain.CartItem, error) {
	var c domain.CartItem
	if err := row.Scan(&c.ID, &c.UserID, &c.ProductID, &c.Variant, &c.Quantity, &c.UnitPrice, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	c.ComputeSubtotal()
	return &c, nil
}

func (r *cartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *cartRepo) FindById(ctx context.Context, userID, id uuid.UUID) (*domain.CartItem, error) {
	return scanCartItem(r.db.QueryRowContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *cartRepo) Upsert(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	return scanCartItem(r.db.QueryRowContext(ctx, `
		INSERT INTO cart_items (`+cartColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, product_id, variant) DO UPDATE
			SET quantity = cart_items.quantity + EXCLUDED.quantity,
			    unit_price = EXCLUDED.unit_price,
			    updated_at = EXCLUDED.updated_at
		RETURNING `+cartColumns,
		item.ID, item.UserID, item.ProductID, item.Variant, item.Quantity, item.UnitPrice, item.CreatedAt, item.UpdatedAt,
	))
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, userID, id uuid.UUID, quantity int) (*domain.CartItem, error) {
	return scanCartItem(r.db.QueryRowContext(ctx, `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+cartColumns,
		id, userID, quantity,
	))
}

func (r *cartRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *cartRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
