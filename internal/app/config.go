package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (GROSNACK_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty runs in local-only mode" flag:"database-url"`

	DeliveryFee string `default:"5.99" usage:"Flat delivery fee applied once a schedule is attached" flag:"delivery-fee"`
	MonthlyGoal string `default:"500"  usage:"Monthly spending goal shown in user metrics" flag:"monthly-goal"`

	StockSyncInterval time.Duration `default:"1m" usage:"Catalog to stock ledger reconciliation interval" flag:"stock-sync-interval"`

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig

	deliveryFee decimal.Decimal
	monthlyGoal decimal.Decimal
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform defaults. DatabaseURL may stay empty: the server then
// runs purely on the in-memory backends.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GROSNACK",
		Files:     []string{"config.yaml", "/etc/grosnack/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	var err error
	if cfg.deliveryFee, err = decimal.NewFromString(cfg.DeliveryFee); err != nil {
		return nil, errors.Wrapf(err, "parse delivery fee %q", cfg.DeliveryFee)
	}
	if cfg.monthlyGoal, err = decimal.NewFromString(cfg.MonthlyGoal); err != nil {
		return nil, errors.Wrapf(err, "parse monthly goal %q", cfg.MonthlyGoal)
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// GROSNACK_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
