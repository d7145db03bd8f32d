package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page domain.Page) ([]domain.User, int, error)
	Count(ctx context.Context) (int, error)
}

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, phone, password_hash, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Name, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	return mapErr(err)
}

func (r *userRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", strings.ToLower(email)))
}

func (r *userRepo) List(ctx context.Context, page domain.Page) ([]domain.User, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2", page.Size, page.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, mapErr(err)
}

type AdminRepo interface {
	Create(ctx context.Context, a *domain.Admin) error
	FindById(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

type adminRepo struct {
	db *sql.DB
}

func NewAdminRepo(db *sql.DB) AdminRepo {
	return &adminRepo{db: db}
}

func scanAdmin(row scanner) (*domain.Admin, error) {
	var a domain.Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *adminRepo) Create(ctx context.Context, a *domain.Admin) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO admins (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		a.ID, a.Name, strings.ToLower(a.Email), a.PasswordHash, a.CreatedAt,
	)
	return mapErr(err)
}

func (r *adminRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM admins WHERE id = $1", id))
}

func (r *adminRepo) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return scanAdmin(r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM admins WHERE email = $1", strings.ToLower(email)))
}
