package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type BannerRepo interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Banner, error)
	Create(ctx context.Context, b *domain.Banner) error
	Update(ctx context.Context, b *domain.Banner) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type bannerRepo struct {
	db *sql.DB
}

func NewBannerRepo(db *sql.DB) BannerRepo {
	return &bannerRepo{db: db}
}

func (r *bannerRepo) List(ctx context.Context, activeOnly bool) ([]domain.Banner, error) {
	query := "SELECT id, title, subtitle, image, link, position, active, created_at, updated_at FROM banners"
	if activeOnly {
		query += " WHERE active"
	}
	rows, err := r.db.QueryContext(ctx, query+" ORDER BY position, created_at")
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Banner
	for rows.Next() {
		var b domain.Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.Subtitle, &b.Image, &b.Link, &b.Position, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *bannerRepo) Create(ctx context.Context, b *domain.Banner) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO banners (id, title, subtitle, image, link, position, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		b.ID, b.Title, b.Subtitle, b.Image, b.Link, b.Position, b.Active, b.CreatedAt, b.UpdatedAt,
	)
	return mapErr(err)
}

func (r *bannerRepo) Update(ctx context.Context, b *domain.Banner) error {
	return affected(r.db.ExecContext(ctx,
		"UPDATE banners SET title = $2, subtitle = $3, image = $4, link = $5, position = $6, active = $7, updated_at = $8 WHERE id = $1",
		b.ID, b.Title, b.Subtitle, b.Image, b.Link, b.Position, b.Active, b.UpdatedAt,
	))
}

func (r *bannerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM banners WHERE id = $1", id))
}

type SubscriberRepo interface {
	// Subscribe rejects a known email with ErrAlreadyExists.
	Subscribe(ctx context.Context, s *domain.Subscriber) error
	List(ctx context.Context) ([]domain.Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
}

type subscriberRepo struct {
	db *sql.DB
}

func NewSubscriberRepo(db *sql.DB) SubscriberRepo {
	return &subscriberRepo{db: db}
}

func (r *subscriberRepo) Subscribe(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO subscribers (id, email, created_at) VALUES ($1, $2, $3)",
		s.ID, strings.ToLower(s.Email), s.CreatedAt,
	)
	return mapErr(err)
}

func (r *subscriberRepo) List(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC")
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Subscriber
	for rows.Next() {
		var s domain.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *subscriberRepo) Unsubscribe(ctx context.Context, email string) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM subscribers WHERE email = $1", strings.ToLower(email)))
}

type ContactRepo interface {
	Create(ctx context.Context, c *domain.Contact) error
	List(ctx context.Context, page domain.Page) ([]domain.Contact, int, error)
	MarkResolved(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type contactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) ContactRepo {
	return &contactRepo{db: db}
}

func (r *contactRepo) Create(ctx context.Context, c *domain.Contact) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO contacts (id, name, email, subject, message, resolved, created_at) VALUES ($1, $2, $3, $4, $5, FALSE, $6)",
		c.ID, c.Name, c.Email, c.Subject, c.Message, c.CreatedAt,
	)
	return mapErr(err)
}

func (r *contactRepo) List(ctx context.Context, page domain.Page) ([]domain.Contact, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, email, subject, message, resolved, created_at FROM contacts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2",
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Resolved, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *contactRepo) MarkResolved(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "UPDATE contacts SET resolved = TRUE WHERE id = $1", id))
}

func (r *contactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = $1", id))
}
