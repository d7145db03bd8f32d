package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type CategoryRepo interface {
	List(ctx context.Context) ([]domain.Category, error)
	FindById(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) CategoryRepo {
	return &categoryRepo{db: db}
}

const categoryColumns = `id, name, slug, image, subcategories, created_at, updated_at`

func scanCategory(row scanner) (domain.Category, error) {
	var c domain.Category
	var subs []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Image, &subs, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	if err := fromJSON(subs, &c.Subcategories); err != nil {
		return c, fmt.Errorf("decode subcategories: %w", err)
	}
	if c.Subcategories == nil {
		c.Subcategories = []string{}
	}
	return c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name")
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoryRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = $1", id))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *categoryRepo) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE slug = $1", slug))
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *categoryRepo) Create(ctx context.Context, c *domain.Category) error {
	subs, err := toJSON(nonNil(c.Subcategories))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		c.ID, c.Name, c.Slug, c.Image, subs, c.CreatedAt, c.UpdatedAt,
	)
	return mapErr(err)
}

func (r *categoryRepo) Update(ctx context.Context, c *domain.Category) error {
	subs, err := toJSON(nonNil(c.Subcategories))
	if err != nil {
		return err
	}
	return affected(r.db.ExecContext(ctx,
		"UPDATE categories SET name = $2, slug = $3, image = $4, subcategories = $5, updated_at = $6 WHERE id = $1",
		c.ID, c.Name, c.Slug, c.Image, subs, c.UpdatedAt,
	))
}

// Delete fails with ErrInvalidInput while products still reference the category.
func (r *categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id))
}
