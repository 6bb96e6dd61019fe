package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fisly/internal/ocr"
	"github.com/MrJamesThe3rd/fisly/internal/product/catalog"
	"github.com/MrJamesThe3rd/fisly/internal/resilience"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"fisly"`
		Port     int    `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"fisly"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	OCR struct {
		MerchantMin float64 `envconfig:"OCR_MERCHANT_MIN" default:"0.85"`
		DateMin     float64 `envconfig:"OCR_DATE_MIN" default:"0.80"`
		TotalMin    float64 `envconfig:"OCR_TOTAL_MIN" default:"0.90"`
		ItemsMin    float64 `envconfig:"OCR_ITEMS_MIN" default:"0.80"`
		AutoAccept  float64 `envconfig:"OCR_AUTO_ACCEPT" default:"0.95"`
	}

	Matching struct {
		FuzzyThreshold     float64 `envconfig:"MATCH_FUZZY_THRESHOLD" default:"0.8"`
		MerchantSimilarity float64 `envconfig:"MERCHANT_MIN_SIMILARITY" default:"0.75"`
	}

	Receipt struct {
		ReconcileTolerance decimal.Decimal `envconfig:"RECONCILE_TOLERANCE" default:"0.05"`
	}

	Catalog struct {
		catalog.Config

		CachePath string        `envconfig:"CATALOG_CACHE_PATH"`
		CacheTTL  time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"24h"`
	}

	Resilience resilience.Config

	Locale struct {
		Language string `envconfig:"LOCALE" default:"tr-TR"`
		Currency string `envconfig:"CURRENCY" default:"TRY"`
		Timezone string `envconfig:"TIMEZONE" default:"Europe/Istanbul"`
	}

	Taxonomy struct {
		Path string `envconfig:"TAXONOMY_PATH"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Thresholds() ocr.Thresholds {
	return ocr.Thresholds{
		Merchant:   c.OCR.MerchantMin,
		Date:       c.OCR.DateMin,
		Total:      c.OCR.TotalMin,
		Items:      c.OCR.ItemsMin,
		AutoAccept: c.OCR.AutoAccept,
	}
}

// Location is the time zone analytics periods are bucketed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Locale.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.Locale.Timezone, err)
	}

	return loc, nil
}

// Load reads the environment, after applying a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
