package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type ProductRepo interface {
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error)
	Search(ctx context.Context, query string, sort domain.ProductSort, page domain.Page) ([]domain.Product, int, error)
	FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	ReserveStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, variant string, quantity int) error
	ReleaseStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, variant string, quantity int) error
}

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = `p.id, p.name, p.slug, p.brand, p.category_id, p.subcategory, p.description,
	p.price, p.images, p.variants, p.stock, p.rating, p.review_count, p.created_at, p.updated_at, c.name AS category_name`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id`

// Search relevance weights per matched field.
var searchWeights = []struct {
	column string
	weight int
}{
	{"p.name", 10},
	{"p.brand", 7},
	{"c.name", 5},
	{"p.subcategory", 3},
	{"p.description", 1},
}

var productOrder = map[domain.ProductSort]string{
	domain.SortNewest:    "created_at DESC",
	domain.SortPriceAsc:  "price ASC",
	domain.SortPriceDesc: "price DESC",
	domain.SortRating:    "rating DESC",
	domain.SortName:      "name ASC",
}

func orderBy(sort domain.ProductSort) string {
	if o, ok := productOrder[sort]; ok {
		return o
	}
	return productOrder[domain.SortNewest]
}

func scanProduct(row scanner, extra ...any) (domain.Product, error) {
	var p domain.Product
	var images, variants []byte
	dest := []any{
		&p.ID, &p.Name, &p.Slug, &p.Brand, &p.CategoryID, &p.Subcategory, &p.Description,
		&p.Price, &images, &variants, &p.Stock, &p.Rating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
		&p.CategoryName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return p, err
	}
	if err := fromJSON(images, &p.Images); err != nil {
		return p, fmt.Errorf("decode images: %w", err)
	}
	if err := fromJSON(variants, &p.Variants); err != nil {
		return p, fmt.Errorf("decode variants: %w", err)
	}
	return p, nil
}

func productWhere(f domain.ProductFilter, a *args) string {
	var conds []string
	if f.CategoryID != nil {
		conds = append(conds, "p.category_id = "+a.add(*f.CategoryID))
	}
	if f.Subcategory != "" {
		conds = append(conds, "p.subcategory ILIKE "+a.add(f.Subcategory))
	}
	if f.Brand != "" {
		conds = append(conds, "p.brand ILIKE "+a.add(f.Brand))
	}
	if f.MinPrice != nil {
		conds = append(conds, "p.price >= "+a.add(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.price <= "+a.add(*f.MaxPrice))
	}
	if f.InStock {
		conds = append(conds, "p.stock > 0")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *productRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int, error) {
	var a args
	where := productWhere(f, &a)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+productFrom+where, a...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	query := "SELECT " + productColumns + productFrom + where +
		" ORDER BY p." + orderBy(f.Sort) + ", p.id LIMIT " + a.add(f.Page.Size) + " OFFSET " + a.add(f.Page.Offset())

	rows, err := r.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// searchSQL scores each row by summing the weights of the matching fields; $1 is the pattern.
func searchSQL(sort domain.ProductSort) (count, query string) {
	terms := make([]string, 0, len(searchWeights))
	for _, w := range searchWeights {
		terms = append(terms, fmt.Sprintf("CASE WHEN %s ILIKE $1 THEN %d ELSE 0 END", w.column, w.weight))
	}
	scored := "SELECT " + productColumns + ", (" + strings.Join(terms, " + ") + ") AS relevance" + productFrom

	count = "SELECT COUNT(*) FROM (" + scored + ") s WHERE s.relevance > 0"
	query = "SELECT * FROM (" + scored + ") s WHERE s.relevance > 0" +
		" ORDER BY s.relevance DESC, s." + orderBy(sort) + ", s.id LIMIT $2 OFFSET $3"
	return count, query
}

func (r *productRepo) Search(ctx context.Context, q string, sort domain.ProductSort, page domain.Page) ([]domain.Product, int, error) {
	pattern := containsPattern(q)
	countSQL, querySQL := searchSQL(sort)

	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, pattern).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	rows, err := r.db.QueryContext(ctx, querySQL, pattern, page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var relevance int
		p, err := scanProduct(rows, &relevance)
		if err != nil {
			return nil, 0, err
		}
		p.Relevance = relevance
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *productRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+productFrom+" WHERE p.id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *productRepo) FindMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	out := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+productFrom+" WHERE p.id = ANY($1::uuid[])", uuidStrings(ids))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	images, err := toJSON(nonNil(p.Images))
	if err != nil {
		return err
	}
	variants, err := toJSON(nonNilVariants(p.Variants))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, slug, brand, category_id, subcategory, description, price,
			images, variants, stock, rating, review_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, 0, $12, $13)`,
		p.ID, p.Name, p.Slug, p.Brand, p.CategoryID, p.Subcategory, p.Description, p.Price,
		images, variants, p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	return mapErr(err)
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	images, err := toJSON(nonNil(p.Images))
	if err != nil {
		return err
	}
	variants, err := toJSON(nonNilVariants(p.Variants))
	if err != nil {
		return err
	}
	return affected(r.db.ExecContext(ctx, `
		UPDATE products SET name = $2, slug = $3, brand = $4, category_id = $5, subcategory = $6,
			description = $7, price = $8, images = $9, variants = $10, stock = $11, updated_at = $12
		WHERE id = $1`,
		p.ID, p.Name, p.Slug, p.Brand, p.CategoryID, p.Subcategory, p.Description, p.Price,
		images, variants, p.Stock, p.UpdatedAt,
	))
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id))
}

func (r *productRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n)
	return n, mapErr(err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilVariants(v []domain.Variant) []domain.Variant {
	if v == nil {
		return []domain.Variant{}
	}
	return v
}

// variantStockSQL adjusts the stock of the variant labelled $3 by sign*$2, leaving the
// other variants and their order untouched. An empty label leaves variants as they are.
func variantStockSQL(sign string) string {
	return "CASE WHEN $3::text = '' THEN variants ELSE (" +
		"SELECT COALESCE(jsonb_agg(CASE WHEN v->>'label' = $3::text " +
		"THEN jsonb_set(v, '{stock}', to_jsonb(COALESCE((v->>'stock')::int, 0) " + sign + " $2)) ELSE v END ORDER BY ord), '[]'::jsonb) " +
		"FROM jsonb_array_elements(variants) WITH ORDINALITY AS t(v, ord)) END"
}

var (
	reserveStockSQL = "UPDATE products SET stock = stock - $2, variants = " + variantStockSQL("-") +
		", updated_at = NOW() WHERE id = $1 AND stock >= $2 AND ($3::text = '' OR EXISTS (" +
		"SELECT 1 FROM jsonb_array_elements(variants) v WHERE v->>'label' = $3::text AND COALESCE((v->>'stock')::int, 0) >= $2))"
	releaseStockSQL = "UPDATE products SET stock = stock + $2, variants = " + variantStockSQL("+") +
		", updated_at = NOW() WHERE id = $1"
)

// ReserveStock decrements product stock, and the variant's stock when one is named, inside
// the checkout transaction.
func (r *productRepo) ReserveStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, variant string, quantity int) error {
	res, err := tx.ExecContext(ctx, reserveStockSQL, id, quantity, variant)
	if err := affected(res, err); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, id)
		}
		return err
	}
	return nil
}

// ReleaseStock gives reserved units back. A product deleted since the order was placed is
// skipped.
func (r *productRepo) ReleaseStock(ctx context.Context, tx *sql.Tx, id uuid.UUID, variant string, quantity int) error {
	if _, err := tx.ExecContext(ctx, releaseStockSQL, id, quantity, variant); err != nil {
		return mapErr(err)
	}
	return nil
}
