package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repo"
)

var errStore = errors.New("store unavailable")

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeProducts struct {
	repo.ProductRepo
	mu           sync.Mutex
	items        map[uuid.UUID]domain.Product
	reserved     map[uuid.UUID]int
	reserveOrder []uuid.UUID
}

func newFakeProducts(ps ...domain.Product) *fakeProducts {
	f := &fakeProducts{items: map[uuid.UUID]domain.Product{}, reserved: map[uuid.UUID]int{}}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProducts) FindById(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) FindMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	out := map[uuid.UUID]domain.Product{}
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeProducts) ReserveStock(_ context.Context, _ *sql.Tx, id uuid.UUID, _ string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok || p.Stock < qty {
		return domain.ErrInsufficientStock
	}
	p.Stock -= qty
	f.items[id] = p
	f.reserved[id] += qty
	f.reserveOrder = append(f.reserveOrder, id)
	return nil
}

func (f *fakeProducts) ReleaseStock(_ context.Context, _ *sql.Tx, id uuid.UUID, _ string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.items[id]; ok {
		p.Stock += qty
		f.items[id] = p
	}
	f.reserved[id] -= qty
	return nil
}

func (f *fakeProducts) stock(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Stock
}

type cartKey struct {
	user, product uuid.UUID
	variant       string
}

type fakeCart struct {
	repo.CartRepo
	rows      map[uuid.UUID]*domain.CartItem
	failOn    map[uuid.UUID]bool
	clearErr  error
	clearedBy []uuid.UUID
}

func newFakeCart() *fakeCart {
	return &fakeCart{rows: map[uuid.UUID]*domain.CartItem{}, failOn: map[uuid.UUID]bool{}}
}

func (f *fakeCart) key(it *domain.CartItem) cartKey {
	return cartKey{it.UserID, it.ProductID, strings.ToLower(it.Variant)}
}

func (f *fakeCart) Upsert(_ context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	for _, row := range f.rows {
		if f.key(row) == f.key(item) {
			row.Quantity += item.Quantity
			row.UnitPrice = item.UnitPrice
			row.ComputeSubtotal()
			cp := *row
			return &cp, nil
		}
	}
	cp := *item
	cp.ComputeSubtotal()
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCart) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.CartItem, error) {
	var out []domain.CartItem
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeCart) UpdateQuantity(_ context.Context, userID, id uuid.UUID, qty int) (*domain.CartItem, error) {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrNotFound
	}
	row.Quantity = qty
	row.ComputeSubtotal()
	cp := *row
	return &cp, nil
}

func (f *fakeCart) Delete(_ context.Context, userID, id uuid.UUID) error {
	if f.failOn[id] {
		return errStore
	}
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeCart) DeleteByUser(_ context.Context, userID uuid.UUID) (int, error) {
	f.clearedBy = append(f.clearedBy, userID)
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	n := 0
	for id, row := range f.rows {
		if row.UserID == userID {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeOrders struct {
	repo.OrderRepo
	rows      map[uuid.UUID]*domain.Order
	updateErr error
	stuck     []domain.Order
	// beforeWrite runs between the service's read and its conditional write
	beforeWrite func()
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{rows: map[uuid.UUID]*domain.Order{}}
}

func (f *fakeOrders) CreateOrder(_ context.Context, _ *sql.Tx, o *domain.Order) error {
	cp := *o
	f.rows[o.ID] = &cp
	return nil
}

func (f *fakeOrders) FindById(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) UpdateOrderStatus(_ context.Context, _ *sql.Tx, id uuid.UUID, from, to domain.OrderStatus, at time.Time) (*domain.Order, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	o, ok := f.rows[id]
	if !ok || o.Status != from {
		return nil, domain.ErrNotFound
	}
	o.Status = to
	o.UpdatedAt = at
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) CancelStale(_ context.Context, _ *sql.Tx, id uuid.UUID, at time.Time) (*domain.Order, error) {
	if f.beforeWrite != nil {
		f.beforeWrite()
	}
	o, ok := f.rows[id]
	if !ok || o.Status != domain.OrderPending ||
		(o.PaymentStatus != domain.PaymentPending && o.PaymentStatus != domain.PaymentFailed) {
		return nil, domain.ErrNotFound
	}
	o.Status = domain.OrderCancelled
	o.UpdatedAt = at
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) Delete(_ context.Context, _ *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	o, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(f.rows, id)
	return o, nil
}

func (f *fakeOrders) FindStuckOrders(context.Context, time.Duration) ([]domain.Order, error) {
	return f.stuck, nil
}

type fakeWatchlist struct {
	repo.WatchlistRepo
	rows map[uuid.UUID]*domain.WatchlistEntry
}

func newFakeWatchlist() *fakeWatchlist {
	return &fakeWatchlist{rows: map[uuid.UUID]*domain.WatchlistEntry{}}
}

func (f *fakeWatchlist) Add(_ context.Context, e *domain.WatchlistEntry) error {
	for _, row := range f.rows {
		if row.UserID == e.UserID && row.ProductID == e.ProductID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeWatchlist) FindById(_ context.Context, userID, id uuid.UUID) (*domain.WatchlistEntry, error) {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return nil, domain.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeWatchlist) Delete(_ context.Context, userID, id uuid.UUID) error {
	row, ok := f.rows[id]
	if !ok || row.UserID != userID {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeUsers struct {
	repo.UserRepo
	rows map[uuid.UUID]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	for _, row := range f.rows {
		if row.Email == u.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	f.rows[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindById(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.rows {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeReviews struct {
	repo.ReviewRepo
	rows map[uuid.UUID]*domain.Review
}

func (f *fakeReviews) Create(_ context.Context, r *domain.Review) error {
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeReviews) FindById(_ context.Context, id uuid.UUID) (*domain.Review, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeReviews) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) rooms() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Room)
	}
	return out
}

func product(name string, price int64, stock int) domain.Product {
	return domain.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  decimal.NewFromInt(price),
		Stock:  stock,
		Images: []string{"/img/" + name + ".jpg"},
	}
}
