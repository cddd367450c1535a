// Package config содержит логику чтения конфигурации сервиса tableside.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса tableside.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	DatabaseURI  string `env:"DATABASE_URI"`
	APIBaseURL   string `env:"API_BASE_URL"`
	RestaurantID string `env:"RESTAURANT_ID"`

	StaffToken     string `env:"STAFF_TOKEN"`
	SessionSecret  string `env:"SESSION_SECRET" envDefault:"change-me"`
	NATSURL        string `env:"NATS_URL"`
	PlaceOrderLink string `env:"PLACE_ORDER_LINK"`
	UPIID          string `env:"UPI_ID"`
	UPIPayeeName   string `env:"UPI_PAYEE_NAME"`

	TablesPollInterval time.Duration `env:"TABLES_POLL_INTERVAL" envDefault:"30s"`
	OrdersPollInterval time.Duration `env:"ORDERS_POLL_INTERVAL" envDefault:"15s"`
	BillsPollInterval  time.Duration `env:"BILLS_POLL_INTERVAL" envDefault:"20s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	ReadRetries        int           `env:"READ_RETRIES" envDefault:"2"`
	ConflictRetries    int           `env:"CONFLICT_RETRIES" envDefault:"2"`
	LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAPIBaseURL := cfg.APIBaseURL
	envRestaurantID := cfg.RestaurantID

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.APIBaseURL, "b", "", "restaurant backend base URL")
	flag.StringVar(&cfg.RestaurantID, "r", "", "restaurant id")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAPIBaseURL != "" {
		cfg.APIBaseURL = envAPIBaseURL
	}
	if envRestaurantID != "" {
		cfg.RestaurantID = envRestaurantID
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("backend base URL is required (-b or API_BASE_URL)")
	}
	if c.RestaurantID == "" {
		return errors.New("restaurant id is required (-r or RESTAURANT_ID)")
	}
	return nil
}
