package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/http/middleware"
)

// HealthChecker reports store health for /healthz.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type RouterDeps struct {
	Log            *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration

	Authn     *middleware.Authn
	Health    HealthChecker
	Realtime  http.Handler
	Auth      *AuthHandler
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Orders    *OrderHandler
	Watchlist *WatchlistHandler
	Reviews   *ReviewHandler
	Content   *ContentHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.Logging(d.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowAllOrigins:  len(d.AllowedOrigins) == 0,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: len(d.AllowedOrigins) > 0,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		stats := d.Health.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if d.Realtime != nil {
		r.GET("/ws", gin.WrapH(d.Realtime))
	}

	user := d.Authn.RequireUser()
	admin := d.Authn.RequireAdmin()

	api := r.Group("/api", middleware.Timeout(d.RequestTimeout))
	{
		auth := api.Group("/auth")
		auth.POST("/signup", d.Auth.Signup)
		auth.POST("/login", d.Auth.Login)
		auth.GET("/me", user, d.Auth.Me)

		products := api.Group("/products")
		products.GET("", d.Catalog.ListProducts)
		products.GET("/:id", d.Catalog.GetProduct)
		products.POST("", admin, d.Catalog.CreateProduct)
		products.PUT("/:id", admin, d.Catalog.UpdateProduct)
		products.DELETE("/:id", admin, d.Catalog.DeleteProduct)

		categories := api.Group("/categories")
		categories.GET("", d.Catalog.ListCategories)
		categories.GET("/:id", d.Catalog.GetCategory)
		categories.POST("", admin, d.Catalog.CreateCategory)
		categories.PUT("/:id", admin, d.Catalog.UpdateCategory)
		categories.DELETE("/:id", admin, d.Catalog.DeleteCategory)

		api.GET("/search", d.Catalog.Search)

		cart := api.Group("/cart", user)
		cart.GET("", d.Cart.List)
		cart.POST("", d.Cart.Add)
		cart.PUT("/:id", d.Cart.UpdateQuantity)
		cart.DELETE("/:id", d.Cart.Remove)
		cart.DELETE("", d.Cart.Clear)

		orders := api.Group("/orders", user)
		orders.POST("/preview", d.Orders.Preview)
		orders.POST("", d.Orders.Create)
		orders.GET("", d.Orders.ListMine)
		orders.GET("/all", admin, d.Orders.ListAll)
		orders.GET("/:id", d.Orders.Get)
		orders.PUT("/:id/status", admin, d.Orders.UpdateStatus)
		orders.PUT("/:id/payment", admin, d.Orders.UpdatePayment)
		orders.DELETE("/:id", admin, d.Orders.Delete)

		watchlist := api.Group("/watchlist", user)
		watchlist.GET("", d.Watchlist.List)
		watchlist.POST("", d.Watchlist.Add)
		watchlist.DELETE("/:id", d.Watchlist.Remove)
		watchlist.DELETE("", d.Watchlist.Clear)
		watchlist.POST("/:id/move-to-cart", d.Watchlist.MoveToCart)

		reviews := api.Group("/productReviews")
		reviews.GET("/:productId", d.Reviews.ListByProduct)
		reviews.POST("", user, d.Reviews.Create)
		reviews.DELETE("/:id", user, d.Reviews.Delete)

		banners := api.Group("/banners")
		banners.GET("", d.Content.ActiveBanners)
		banners.GET("/all", admin, d.Content.AllBanners)
		banners.POST("", admin, d.Content.CreateBanner)
		banners.PUT("/:id", admin, d.Content.UpdateBanner)
		banners.DELETE("/:id", admin, d.Content.DeleteBanner)

		newsletter := api.Group("/newsletter")
		newsletter.POST("", d.Content.Subscribe)
		newsletter.DELETE("/:email", d.Content.Unsubscribe)
		newsletter.GET("", admin, d.Content.Subscribers)

		contacts := api.Group("/contacts")
		contacts.POST("", d.Content.SubmitContact)
		contacts.GET("", admin, d.Content.Contacts)
		contacts.PUT("/:id/resolve", admin, d.Content.ResolveContact)
		contacts.DELETE("/:id", admin, d.Content.DeleteContact)

		adminGroup := api.Group("/admin")
		adminGroup.POST("/login", d.Auth.AdminLogin)
		adminGroup.GET("/stats", admin, d.Auth.Stats)
		adminGroup.GET("/users", admin, d.Auth.Users)
	}

	return r
}
