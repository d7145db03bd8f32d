package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/repo"
	"storefront/internal/service"
)

type seedProduct struct {
	name, brand, sub, desc string
	price                  string
	stock                  int
	variants               []domain.Variant
}

var catalog = map[string][]seedProduct{
	"Dry Fruits": {
		{name: "California Almonds", brand: "Nutraj", sub: "Almonds", desc: "Crunchy whole almonds", price: "499", stock: 120,
			variants: []domain.Variant{{Label: "250g", Price: price("499"), Stock: 80}, {Label: "500g", Price: price("949"), Stock: 40}}},
		{name: "Premium Cashews W240", brand: "Happilo", sub: "Cashews", desc: "Large whole cashew kernels", price: "649", stock: 90},
		{name: "Afghan Raisins", brand: "Nutraj", sub: "Raisins", desc: "Seedless golden raisins", price: "249", stock: 200},
	},
	"Spices": {
		{name: "Kashmiri Saffron", brand: "Lion", sub: "Saffron", desc: "Hand picked saffron threads", price: "899", stock: 30},
		{name: "Green Cardamom", brand: "Catch", sub: "Whole Spices", desc: "Bold aromatic cardamom pods", price: "399", stock: 75},
	},
	"Seeds": {
		{name: "Roasted Pumpkin Seeds", brand: "Happilo", sub: "Pumpkin", desc: "Lightly salted pumpkin seeds", price: "299", stock: 150},
		{name: "Chia Seeds", brand: "True Elements", sub: "Chia", desc: "Raw chia seeds rich in omega-3", price: "199", stock: 0},
	},
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func main() {
	configDir := flag.String("config", "configs", "config directory")
	envName := flag.String("env", "local", "config environment")
	adminEmail := flag.String("admin-email", "admin@storefront.local", "seeded admin email")
	adminPassword := flag.String("admin-password", "admin123", "seeded admin password")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.Load(*configDir, *envName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Init("seed", cfg.App.LogLevel, "")
	l := logging.New("seed")

	store, err := database.Open(ctx, cfg, l)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db := store.DB()

	limits := service.PageLimits{Default: cfg.Search.DefaultPageSize, Max: cfg.Search.MaxPageSize}
	catalogSvc := service.NewCatalogService(repo.NewProductRepo(db), repo.NewCategoryRepo(db), limits)
	contentSvc := service.NewContentService(repo.NewBannerRepo(db), repo.NewSubscriberRepo(db), repo.NewContactRepo(db), limits)

	products := 0
	for name, items := range catalog {
		subs := make([]string, 0, len(items))
		for _, it := range items {
			subs = append(subs, it.sub)
		}
		cat, err := catalogSvc.CreateCategory(ctx, service.CategoryInput{Name: name, Subcategories: subs})
		if errors.Is(err, domain.ErrAlreadyExists) {
			// products of an existing category are left alone
			l.Info("category exists", "name", name)
			continue
		}
		if err != nil {
			log.Fatalf("create category %q: %v", name, err)
		}

		for _, it := range items {
			_, err := catalogSvc.CreateProduct(ctx, service.ProductInput{
				Name:        it.name,
				Brand:       it.brand,
				CategoryID:  cat.ID,
				Subcategory: it.sub,
				Description: it.desc,
				Price:       decimal.RequireFromString(it.price),
				Images:      []string{"/images/" + domain.Slugify(it.name) + ".jpg"},
				Variants:    it.variants,
				Stock:       it.stock,
			})
			if err != nil {
				log.Fatalf("create product %q: %v", it.name, err)
			}
			products++
		}
	}

	banners, err := contentSvc.Banners(ctx, false)
	if err != nil {
		log.Fatalf("list banners: %v", err)
	}
	if len(banners) == 0 {
		for i, title := range []string{"Festive Dry Fruit Hampers", "Free shipping over 500"} {
			if _, err := contentSvc.CreateBanner(ctx, service.BannerInput{
				Title:    title,
				Image:    "/images/banner-" + domain.Slugify(title) + ".jpg",
				Link:     "/products",
				Position: i,
			}); err != nil {
				log.Fatalf("create banner: %v", err)
			}
		}
	}

	hash, err := service.HashPassword(*adminPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	err = repo.NewAdminRepo(db).Create(ctx, &domain.Admin{
		ID:           uuid.New(),
		Name:         "Store Admin",
		Email:        *adminEmail,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		l.Info("admin exists", "email", *adminEmail)
	case err != nil:
		log.Fatalf("create admin: %v", err)
	}

	l.Info("seed complete", "products", products)
}
