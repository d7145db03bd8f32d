package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

type BannerInput struct {
	Title    string `json:"title" binding:"required"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image" binding:"required"`
	Link     string `json:"link"`
	Position int    `json:"position"`
	Active   *bool  `json:"active"`
}

type ContactInput struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

// ContentService covers the storefront's editorial surfaces: banners, newsletter, contact form.
type ContentService interface {
	Banners(ctx context.Context, activeOnly bool) ([]domain.Banner, error)
	CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error)
	DeleteBanner(ctx context.Context, id uuid.UUID) error

	Subscribe(ctx context.Context, email string) (*domain.Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	Subscribers(ctx context.Context) ([]domain.Subscriber, error)

	SubmitContact(ctx context.Context, in ContactInput) (*domain.Contact, error)
	Contacts(ctx context.Context, page domain.Page) (domain.PageResult[domain.Contact], error)
	ResolveContact(ctx context.Context, id uuid.UUID) error
	DeleteContact(ctx context.Context, id uuid.UUID) error
}

type contentService struct {
	banners     repo.BannerRepo
	subscribers repo.SubscriberRepo
	contacts    repo.ContactRepo
	limits      PageLimits
	now         func() time.Time
}

func NewContentService(banners repo.BannerRepo, subscribers repo.SubscriberRepo, contacts repo.ContactRepo, limits PageLimits) ContentService {
	return &contentService{banners: banners, subscribers: subscribers, contacts: contacts, limits: limits, now: time.Now}
}

func (s *contentService) Banners(ctx context.Context, activeOnly bool) ([]domain.Banner, error) {
	banners, err := s.banners.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	if banners == nil {
		banners = []domain.Banner{}
	}
	return banners, nil
}

func (s *contentService) CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	now := s.now().UTC()
	b := &domain.Banner{
		ID:        uuid.New(),
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		Image:     in.Image,
		Link:      in.Link,
		Position:  in.Position,
		Active:    in.Active == nil || *in.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.banners.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create banner: %w", err)
	}
	return b, nil
}

func (s *contentService) UpdateBanner(ctx context.Context, id uuid.UUID, in BannerInput) (*domain.Banner, error) {
	b := &domain.Banner{
		ID:        id,
		Title:     in.Title,
		Subtitle:  in.Subtitle,
		Image:     in.Image,
		Link:      in.Link,
		Position:  in.Position,
		Active:    in.Active == nil || *in.Active,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.banners.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *contentService) DeleteBanner(ctx context.Context, id uuid.UUID) error {
	return s.banners.Delete(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return strings.ToLower(addr.Address), nil
}

// Subscribe rejects an address that is already on the list with ErrAlreadyExists.
func (s *contentService) Subscribe(ctx context.Context, email string) (*domain.Subscriber, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	sub := &domain.Subscriber{ID: uuid.New(), Email: email, CreatedAt: s.now().UTC()}
	if err := s.subscribers.Subscribe(ctx, sub); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

func (s *contentService) Unsubscribe(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	return s.subscribers.Unsubscribe(ctx, email)
}

func (s *contentService) Subscribers(ctx context.Context) ([]domain.Subscriber, error) {
	subs, err := s.subscribers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	if subs == nil {
		subs = []domain.Subscriber{}
	}
	return subs, nil
}

func (s *contentService) SubmitContact(ctx context.Context, in ContactInput) (*domain.Contact, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	c := &domain.Contact{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Subject:   strings.TrimSpace(in.Subject),
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: s.now().UTC(),
	}
	if c.Name == "" || c.Message == "" {
		return nil, fmt.Errorf("%w: name and message required", domain.ErrInvalidInput)
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

func (s *contentService) Contacts(ctx context.Context, page domain.Page) (domain.PageResult[domain.Contact], error) {
	page = s.limits.Clamp(page)
	contacts, total, err := s.contacts.List(ctx, page)
	if err != nil {
		return domain.PageResult[domain.Contact]{}, fmt.Errorf("list contacts: %w", err)
	}
	return domain.NewPageResult(contacts, total, page), nil
}

func (s *contentService) ResolveContact(ctx context.Context, id uuid.UUID) error {
	return s.contacts.MarkResolved(ctx, id)
}

func (s *contentService) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.contacts.Delete(ctx, id)
}
