package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

const minPasswordLength = 6

type SignupInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token string        `json:"token"`
	User  *domain.User  `json:"user,omitempty"`
	Admin *domain.Admin `json:"admin,omitempty"`
}

type TokenConfig struct {
	Secret   string
	Issuer   string
	TTL      time.Duration
	AdminTTL time.Duration
}

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	AdminLogin(ctx context.Context, in LoginInput) (*AuthResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ParseToken(raw string) (domain.Principal, error)
}

type authService struct {
	users  repo.UserRepo
	admins repo.AdminRepo
	cfg    TokenConfig
	now    func() time.Time
}

func NewAuthService(users repo.UserRepo, admins repo.AdminRepo, cfg TokenConfig) AuthService {
	return &authService{users: users, admins: admins, cfg: cfg, now: time.Now}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	token, err := s.issue(u.ID, domain.RoleUser, s.cfg.TTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := s.issue(u.ID, domain.RoleUser, s.cfg.TTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *authService) AdminLogin(ctx context.Context, in LoginInput) (*AuthResult, error) {
	a, err := s.admins.FindByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(in.Password)) != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := s.issue(a.ID, domain.RoleAdmin, s.cfg.AdminTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Admin: a}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.FindById(ctx, userID)
}

func (s *authService) issue(subject uuid.UUID, role domain.Role, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) ParseToken(raw string) (domain.Principal, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithLeeway(30*time.Second))
	if err != nil || !token.Valid {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return domain.Principal{}, domain.ErrUnauthorized
	}
	if c.Role != domain.RoleAdmin {
		c.Role = domain.RoleUser
	}
	return domain.Principal{ID: id, Role: c.Role}, nil
}
