package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type WatchlistRepo interface {
	// Add rejects an existing (user, product) pair with ErrAlreadyExists.
	Add(ctx context.Context, entry *domain.WatchlistEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error)
	FindById(ctx context.Context, userID, id uuid.UUID) (*domain.WatchlistEntry, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type watchlistRepo struct {
	db *sql.DB
}

func NewWatchlistRepo(db *sql.DB) WatchlistRepo {
	return &watchlistRepo{db: db}
}

func (r *watchlistRepo) Add(ctx context.Context, e *domain.WatchlistEntry) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO watchlist (id, user_id, product_id, created_at) VALUES ($1, $2, $3, $4)",
		e.ID, e.UserID, e.ProductID, e.CreatedAt,
	)
	return mapErr(err)
}

func (r *watchlistRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.WatchlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, product_id, created_at FROM watchlist WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.WatchlistEntry
	for rows.Next() {
		var e domain.WatchlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *watchlistRepo) FindById(ctx context.Context, userID, id uuid.UUID) (*domain.WatchlistEntry, error) {
	var e domain.WatchlistEntry
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, product_id, created_at FROM watchlist WHERE id = $1 AND user_id = $2", id, userID,
	).Scan(&e.ID, &e.UserID, &e.ProductID, &e.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (r *watchlistRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM watchlist WHERE id = $1 AND user_id = $2", id, userID))
}

func (r *watchlistRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM watchlist WHERE user_id = $1", userID)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
