package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

func domainDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Wrap(db, logging.Discard()).Migrate(ctx))
	return db
}

type seeded struct {
	user     *domain.User
	category *domain.Category
	products []domain.Product
}

func seed(t *testing.T, db *sql.DB) seeded {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	u := &domain.User{ID: uuid.New(), Name: "Asha", Email: "asha@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewUserRepo(db).Create(ctx, u))

	cat := &domain.Category{ID: uuid.New(), Name: "Dry Fruits", Slug: "dry-fruits", Subcategories: []string{"Almonds"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewCategoryRepo(db).Create(ctx, cat))

	mk := func(name, brand, sub, desc string, price int64, stock int) domain.Product {
		return domain.Product{
			ID: uuid.New(), Name: name, Slug: domain.Slugify(name), Brand: brand, CategoryID: cat.ID,
			Subcategory: sub, Description: desc, Price: decimal.NewFromInt(price), Stock: stock,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	products := []domain.Product{
		mk("California Almonds", "Nutraj", "Almonds", "crunchy", 499, 10),
		mk("Trail Mix", "Almond House", "Mixes", "nuts and seeds", 299, 5),
		mk("Cashews", "Happilo", "Cashews", "pairs well with almond milk", 649, 1),
	}
	repo := NewProductRepo(db)
	for i := range products {
		require.NoError(t, repo.Create(ctx, &products[i]))
	}
	return seeded{user: u, category: cat, products: products}
}

func TestPostgresRepositories(t *testing.T) {
	db := startPostgres(t)
	s := seed(t, db)
	ctx := context.Background()
	products := NewProductRepo(db)

	t.Run("search ranks by field weight", func(t *testing.T) {
		got, total, err := products.Search(ctx, "almond", domain.SortNewest, domain.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 3)
		// name+subcategory, brand, description
		assert.Equal(t, "California Almonds", got[0].Name)
		assert.Equal(t, 13, got[0].Relevance)
		assert.Equal(t, "Trail Mix", got[1].Name)
		assert.Equal(t, "Cashews", got[2].Name)
		assert.Equal(t, "Dry Fruits", got[0].CategoryName)

		none, total, err := products.Search(ctx, "pistachio", domain.SortNewest, domain.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, none)
	})

	t.Run("list filters and pages", func(t *testing.T) {
		minPrice := decimal.NewFromInt(300)
		got, total, err := products.List(ctx, domain.ProductFilter{MinPrice: &minPrice, Sort: domain.SortPriceAsc, Page: domain.Page{Number: 1, Size: 1}})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 1)
		assert.Equal(t, "California Almonds", got[0].Name)
	})

	t.Run("cart upsert accumulates", func(t *testing.T) {
		cart := NewCartRepo(db)
		now := time.Now().UTC()
		line := func(qty int) *domain.CartItem {
			return &domain.CartItem{ID: uuid.New(), UserID: s.user.ID, ProductID: s.products[0].ID, Quantity: qty,
				UnitPrice: s.products[0].Price, CreatedAt: now, UpdatedAt: now}
		}
		first, err := cart.Upsert(ctx, line(2))
		require.NoError(t, err)
		second, err := cart.Upsert(ctx, line(3))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 5, second.Quantity)

		assert.ErrorIs(t, cart.Delete(ctx, uuid.New(), first.ID), domain.ErrNotFound)
		n, err := cart.DeleteByUser(ctx, s.user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("watchlist rejects duplicates", func(t *testing.T) {
		wl := NewWatchlistRepo(db)
		entry := func() *domain.WatchlistEntry {
			return &domain.WatchlistEntry{ID: uuid.New(), UserID: s.user.ID, ProductID: s.products[1].ID, CreatedAt: time.Now().UTC()}
		}
		require.NoError(t, wl.Add(ctx, entry()))
		assert.ErrorIs(t, wl.Add(ctx, entry()), domain.ErrAlreadyExists)
	})

	t.Run("checkout reserves stock atomically", func(t *testing.T) {
		tx := NewTransactor(db)
		orders := NewOrderRepo(db)
		cashews := s.products[2]
		newOrder := func() *domain.Order {
			now := time.Now().UTC()
			return &domain.Order{
				ID: uuid.New(), UserID: s.user.ID,
				Items:  []domain.OrderItem{{ProductID: cashews.ID, Name: cashews.Name, Quantity: 1, UnitPrice: cashews.Price}},
				Totals: domain.DefaultCheckoutRules().Compute([]domain.OrderItem{{UnitPrice: cashews.Price, Quantity: 1}}),
				Status: domain.OrderPending, PaymentStatus: domain.PaymentPending,
				CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now,
			}
		}
		place := func(o *domain.Order) error {
			return tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
				if err := products.ReserveStock(ctx, tx, cashews.ID, "", 1); err != nil {
					return err
				}
				return orders.CreateOrder(ctx, tx, o)
			})
		}

		first := newOrder()
		require.NoError(t, place(first))
		second := newOrder()
		assert.ErrorIs(t, place(second), domain.ErrInsufficientStock)

		_, err := orders.FindById(ctx, second.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		p, err := products.FindById(ctx, cashews.ID)
		require.NoError(t, err)
		assert.Zero(t, p.Stock)

		got, err := orders.FindById(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.Total.Equal(first.Total), "total %s", got.Total)
		assert.Equal(t, first.Items[0].ProductID, got.Items[0].ProductID)

		stuck, err := orders.FindStuckOrders(ctx, 24*time.Hour)
		require.NoError(t, err)
		require.Len(t, stuck, 1)
		assert.Equal(t, first.ID, stuck[0].ID)

		inTx := func(fn func(ctx context.Context, tx *sql.Tx) error) error { return tx.WithinTx(ctx, fn) }

		// a paid order is no longer stale even though the snapshot listed it
		_, err = orders.UpdatePaymentStatus(ctx, first.ID, domain.PaymentPaid, time.Now().UTC())
		require.NoError(t, err)
		err = inTx(func(ctx context.Context, tx *sql.Tx) error {
			_, err := orders.CancelStale(ctx, tx, first.ID, time.Now().UTC())
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = inTx(func(ctx context.Context, tx *sql.Tx) error {
			updated, err := orders.UpdateOrderStatus(ctx, tx, first.ID, domain.OrderPending, domain.OrderShipped, time.Now().UTC())
			if err == nil {
				assert.Equal(t, domain.OrderShipped, updated.Status)
			}
			return err
		})
		require.NoError(t, err)

		// the expected current status no longer holds
		err = inTx(func(ctx context.Context, tx *sql.Tx) error {
			_, err := orders.UpdateOrderStatus(ctx, tx, first.ID, domain.OrderPending, domain.OrderCancelled, time.Now().UTC())
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = inTx(func(ctx context.Context, tx *sql.Tx) error {
			if err := products.ReleaseStock(ctx, tx, cashews.ID, "", 1); err != nil {
				return err
			}
			deleted, err := orders.Delete(ctx, tx, first.ID)
			if err == nil {
				assert.Equal(t, domain.OrderShipped, deleted.Status)
			}
			return err
		})
		require.NoError(t, err)
		p, err = products.FindById(ctx, cashews.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Stock)

		err = inTx(func(ctx context.Context, tx *sql.Tx) error {
			_, err := orders.Delete(ctx, tx, first.ID)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("stale pending order is cancelled", func(t *testing.T) {
		tx := NewTransactor(db)
		orders := NewOrderRepo(db)
		now := time.Now().UTC()
		o := &domain.Order{
			ID: uuid.New(), UserID: s.user.ID,
			Items:  []domain.OrderItem{{ProductID: s.products[1].ID, Name: s.products[1].Name, Quantity: 1, UnitPrice: s.products[1].Price}},
			Status: domain.OrderPending, PaymentStatus: domain.PaymentFailed,
			CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now,
		}
		err := tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return orders.CreateOrder(ctx, tx, o)
		})
		require.NoError(t, err)

		err = tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			cancelled, err := orders.CancelStale(ctx, tx, o.ID, time.Now().UTC())
			if err == nil {
				assert.Equal(t, domain.OrderCancelled, cancelled.Status)
				assert.Len(t, cancelled.Items, 1)
			}
			return err
		})
		require.NoError(t, err)
	})

	t.Run("variant stock is reserved and released", func(t *testing.T) {
		tx := NewTransactor(db)
		now := time.Now().UTC()
		raisins := domain.Product{
			ID: uuid.New(), Name: "Golden Raisins", Slug: "golden-raisins", CategoryID: s.category.ID,
			Price: decimal.NewFromInt(199), Stock: 10,
			Variants:  []domain.Variant{{Label: "250g", Stock: 2}, {Label: "500g", Stock: 8}},
			CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, products.Create(ctx, &raisins))

		reserve := func(variant string, qty int) error {
			return tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
				return products.ReserveStock(ctx, tx, raisins.ID, variant, qty)
			})
		}
		require.NoError(t, reserve("250g", 2))
		// product stock would cover it, the variant cannot
		assert.ErrorIs(t, reserve("250g", 1), domain.ErrInsufficientStock)
		assert.ErrorIs(t, reserve("1kg", 1), domain.ErrInsufficientStock)

		got, err := products.FindById(ctx, raisins.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, got.Stock)
		require.Len(t, got.Variants, 2)
		assert.Equal(t, "250g", got.Variants[0].Label)
		assert.Zero(t, got.Variants[0].Stock)
		assert.Equal(t, 8, got.Variants[1].Stock)

		err = tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return products.ReleaseStock(ctx, tx, raisins.ID, "250g", 2)
		})
		require.NoError(t, err)
		got, err = products.FindById(ctx, raisins.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, got.Stock)
		assert.Equal(t, 2, got.Variants[0].Stock)
	})

	t.Run("reviews refresh product rating", func(t *testing.T) {
		reviews := NewReviewRepo(db)
		pid := s.products[0].ID
		for _, rating := range []int{5, 4} {
			require.NoError(t, reviews.Create(ctx, &domain.Review{
				ID: uuid.New(), ProductID: pid, UserID: s.user.ID, UserName: s.user.Name, Rating: rating, CreatedAt: time.Now().UTC(),
			}))
		}
		p, err := products.FindById(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, 2, p.ReviewCount)
		assert.True(t, p.Rating.Equal(decimal.RequireFromString("4.5")), "rating %s", p.Rating)
	})

	t.Run("newsletter rejects duplicate email", func(t *testing.T) {
		subs := NewSubscriberRepo(db)
		require.NoError(t, subs.Subscribe(ctx, &domain.Subscriber{ID: uuid.New(), Email: "News@Example.com", CreatedAt: time.Now()}))
		err := subs.Subscribe(ctx, &domain.Subscriber{ID: uuid.New(), Email: "news@example.com", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})
}
