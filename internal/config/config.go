package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"http"`

	Database struct {
		URL             string        `koanf:"url"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		Migrate         bool          `koanf:"migrate"`
	} `koanf:"database"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		Channel  string `koanf:"channel"`
	} `koanf:"redis"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		TTL       time.Duration `koanf:"ttl"`
		AdminTTL  time.Duration `koanf:"admin_ttl"`
	} `koanf:"security"`

	CORS struct {
		AllowedOrigins []string `koanf:"allowed_origins"`
	} `koanf:"cors"`

	Checkout struct {
		FreeShippingThreshold float64 `koanf:"free_shipping_threshold"`
		ShippingFee           float64 `koanf:"shipping_fee"`
		TaxRate               float64 `koanf:"tax_rate"`
		StrictTotals          bool    `koanf:"strict_totals"`
	} `koanf:"checkout"`

	Orders struct {
		StrictTransitions bool          `koanf:"strict_transitions"`
		PaymentTimeout    time.Duration `koanf:"payment_timeout"`
		SweepInterval     time.Duration `koanf:"sweep_interval"`
	} `koanf:"orders"`

	Search struct {
		DefaultPageSize int `koanf:"default_page_size"`
		MaxPageSize     int `koanf:"max_page_size"`
	} `koanf:"search"`

	Realtime struct {
		AllowAnonymousJoin bool `koanf:"allow_anonymous_join"`
		SendBuffer         int  `koanf:"send_buffer"`
	} `koanf:"realtime"`

	Tracing struct {
		Enabled bool `koanf:"enabled"`
		Stdout  bool `koanf:"stdout"`
	} `koanf:"tracing"`
}

// Load reads <dir>/base.yaml, the optional <dir>/<envName>.yaml, then STOREFRONT_* variables
// (nested with __, e.g. STOREFRONT_DATABASE__URL).
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", dir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// missing env file is fine for local runs
	envFile := fmt.Sprintf("%s/%s.yaml", dir, envName)
	if _, err := os.Stat(envFile); err == nil {
		if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envName, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if cfg.App.Env == "" {
		cfg.App.Env = envName
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ToLower(s)
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "storefront"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 5 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 10 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 5 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 16
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 16
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "storefront:order-status"
	}
	if c.Security.Issuer == "" {
		c.Security.Issuer = "storefront"
	}
	if c.Security.TTL == 0 {
		c.Security.TTL = 7 * 24 * time.Hour
	}
	if c.Security.AdminTTL == 0 {
		c.Security.AdminTTL = 12 * time.Hour
	}
	if c.Search.DefaultPageSize == 0 {
		c.Search.DefaultPageSize = 12
	}
	if c.Search.MaxPageSize == 0 {
		c.Search.MaxPageSize = 50
	}
	if c.Orders.SweepInterval == 0 {
		c.Orders.SweepInterval = 10 * time.Minute
	}
	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 32
	}
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if c.Checkout.FreeShippingThreshold < 0 || c.Checkout.ShippingFee < 0 || c.Checkout.TaxRate < 0 {
		return fmt.Errorf("checkout values must not be negative")
	}
	if c.Search.MaxPageSize < c.Search.DefaultPageSize {
		return fmt.Errorf("search.max_page_size must be >= search.default_page_size")
	}
	return nil
}

func (c Config) CheckoutRules() domain.CheckoutRules {
	return domain.CheckoutRules{
		FreeShippingThreshold: decimal.NewFromFloat(c.Checkout.FreeShippingThreshold),
		ShippingFee:           decimal.NewFromFloat(c.Checkout.ShippingFee),
		TaxRate:               decimal.NewFromFloat(c.Checkout.TaxRate),
	}
}
