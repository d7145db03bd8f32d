package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type ReviewRepo interface {
	Create(ctx context.Context, r *domain.Review) error
	ListByProduct(ctx context.Context, productID uuid.UUID, page domain.Page) ([]domain.Review, int, error)
	FindById(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) ReviewRepo {
	return &reviewRepo{db: db}
}

const reviewColumns = `id, product_id, user_id, user_name, rating, title, comment, created_at`

func scanReview(row scanner) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Title, &rv.Comment, &rv.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &rv, nil
}

// refreshRating recomputes the product aggregate from its reviews.
func refreshRating(ctx context.Context, tx *sql.Tx, productID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products SET
			rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews WHERE product_id = $1), 0),
			review_count = (SELECT COUNT(*) FROM reviews WHERE product_id = $1)
		WHERE id = $1`, productID)
	return mapErr(err)
}

func (r *reviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO reviews ("+reviewColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		rv.ID, rv.ProductID, rv.UserID, rv.UserName, rv.Rating, rv.Title, rv.Comment, rv.CreatedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	if err := refreshRating(ctx, tx, rv.ProductID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID, page domain.Page) ([]domain.Review, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE product_id = $1", productID).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		productID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *rv)
	}
	return out, total, rows.Err()
}

func (r *reviewRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = $1", id))
}

func (r *reviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var productID uuid.UUID
	if err := tx.QueryRowContext(ctx, "DELETE FROM reviews WHERE id = $1 RETURNING product_id", id).Scan(&productID); err != nil {
		return mapErr(err)
	}
	if err := refreshRating(ctx, tx, productID); err != nil {
		return err
	}
	return tx.Commit()
}
