package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/gst-invoice/internal/gst"
	"github.com/noah-isme/gst-invoice/internal/seed"
)

// Quantity policies accepted by QUANTITY_POLICY.
const (
	QuantityPolicyCap      = "cap"
	QuantityPolicyUncapped = "uncapped"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	DBAutoMigrate      bool
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	Seller gst.Seller
	Bank   gst.BankDetails

	InvoiceNumberPrefix  string
	QuantityPolicy       string
	InitialRateOverride  *decimal.Decimal
	DefaultPaymentTerms  string
	DefaultTransportMode string
	LowStockThreshold    int
	SeedFallbackEnabled  bool

	CatalogCacheTTL  time.Duration
	DraftTTL         time.Duration
	DocumentCacheTTL time.Duration
	IdempotencyTTL   time.Duration
	LockTTL          time.Duration
	LockRetryBackoff time.Duration

	StoreTimeout             time.Duration
	StoreBreakerMinRequests  int
	StoreBreakerFailureRatio float64
	StoreBreakerOpenFor      time.Duration

	RateLimit string

	AuthJWTSecret        string
	AuthIssuer           string
	AuthAudience         string
	AuthTokenTTL         time.Duration
	OperatorUsername     string
	OperatorPasswordHash string

	AsyncRenderEnabled bool
	WorkerConcurrency  int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaultSeller := seed.DefaultSeller()
	defaultBank := seed.DefaultBank()

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DBAutoMigrate:      parseBool(k.String("DB_AUTO_MIGRATE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),
		Seller: gst.Seller{
			Name:      valueOrDefault(k.String("SELLER_NAME"), defaultSeller.Name),
			Address:   valueOrDefault(k.String("SELLER_ADDRESS"), defaultSeller.Address),
			City:      valueOrDefault(k.String("SELLER_CITY"), defaultSeller.City),
			State:     valueOrDefault(k.String("SELLER_STATE"), defaultSeller.State),
			StateCode: valueOrDefault(k.String("SELLER_STATE_CODE"), defaultSeller.StateCode),
			Pincode:   valueOrDefault(k.String("SELLER_PINCODE"), defaultSeller.Pincode),
			GSTNo:     valueOrDefault(k.String("SELLER_GSTIN"), defaultSeller.GSTNo),
			PAN:       valueOrDefault(k.String("SELLER_PAN"), defaultSeller.PAN),
			Phone:     valueOrDefault(k.String("SELLER_PHONE"), defaultSeller.Phone),
			Email:     valueOrDefault(k.String("SELLER_EMAIL"), defaultSeller.Email),
		},
		Bank: gst.BankDetails{
			BankName:      valueOrDefault(k.String("BANK_NAME"), defaultBank.BankName),
			AccountName:   valueOrDefault(k.String("BANK_ACCOUNT_NAME"), defaultBank.AccountName),
			AccountNumber: valueOrDefault(k.String("BANK_ACCOUNT_NUMBER"), defaultBank.AccountNumber),
			IFSC:          valueOrDefault(k.String("BANK_IFSC"), defaultBank.IFSC),
			Branch:        valueOrDefault(k.String("BANK_BRANCH"), defaultBank.Branch),
		},
		InvoiceNumberPrefix:      valueOrDefault(k.String("INVOICE_NUMBER_PREFIX"), "INV"),
		QuantityPolicy:           strings.ToLower(valueOrDefault(k.String("QUANTITY_POLICY"), QuantityPolicyCap)),
		DefaultPaymentTerms:      valueOrDefault(k.String("DEFAULT_PAYMENT_TERMS"), "30days"),
		DefaultTransportMode:     valueOrDefault(k.String("DEFAULT_TRANSPORT_MODE"), "road"),
		LowStockThreshold:        parseInt(k.String("LOW_STOCK_THRESHOLD"), 50),
		SeedFallbackEnabled:      parseBoolDefault(k.String("SEED_FALLBACK_ENABLED"), true),
		CatalogCacheTTL:          parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		DraftTTL:                 parseDuration(k.String("DRAFT_TTL"), "72h"),
		DocumentCacheTTL:         parseDuration(k.String("DOCUMENT_CACHE_TTL"), "24h"),
		IdempotencyTTL:           parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:                  parseDuration(k.String("LOCK_TTL"), "10s"),
		LockRetryBackoff:         parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		StoreTimeout:             parseDuration(k.String("STORE_TIMEOUT"), "3s"),
		StoreBreakerMinRequests:  parseInt(k.String("STORE_BREAKER_MIN_REQUESTS"), 5),
		StoreBreakerFailureRatio: parseFloat(k.String("STORE_BREAKER_FAILURE_RATIO"), 0.5),
		StoreBreakerOpenFor:      parseDuration(k.String("STORE_BREAKER_OPEN_FOR"), "30s"),
		RateLimit:                valueOrDefault(k.String("RATE_LIMIT"), "300-M"),
		AuthJWTSecret:            k.String("AUTH_JWT_SECRET"),
		AuthIssuer:               valueOrDefault(k.String("AUTH_ISSUER"), "gst-invoice"),
		AuthAudience:             valueOrDefault(k.String("AUTH_AUDIENCE"), "gst-invoice-api"),
		AuthTokenTTL:             parseDuration(k.String("AUTH_TOKEN_TTL"), "12h"),
		OperatorUsername:         valueOrDefault(k.String("OPERATOR_USERNAME"), "operator"),
		OperatorPasswordHash:     strings.TrimSpace(k.String("OPERATOR_PASSWORD_HASH")),
		AsyncRenderEnabled:       parseBool(k.String("ASYNC_RENDER_ENABLED")),
		WorkerConcurrency:        parseInt(k.String("WORKER_CONCURRENCY"), 4),
	}

	if raw := strings.TrimSpace(k.String("INVOICE_INITIAL_RATE_OVERRIDE")); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("INVOICE_INITIAL_RATE_OVERRIDE: %w", err)
		}
		if rate.IsNegative() {
			return nil, errors.New("INVOICE_INITIAL_RATE_OVERRIDE must not be negative")
		}
		cfg.InitialRateOverride = &rate
	}

	switch cfg.QuantityPolicy {
	case QuantityPolicyCap, QuantityPolicyUncapped:
	default:
		return nil, fmt.Errorf("QUANTITY_POLICY must be %q or %q", QuantityPolicyCap, QuantityPolicyUncapped)
	}
	if !gst.ValidStateCode(cfg.Seller.StateCode) {
		return nil, fmt.Errorf("SELLER_STATE_CODE %q is not a GST state code", cfg.Seller.StateCode)
	}
	if cfg.AuthJWTSecret != "" && cfg.OperatorPasswordHash == "" {
		return nil, errors.New("OPERATOR_PASSWORD_HASH is required when AUTH_JWT_SECRET is set")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// AuthEnabled reports whether operator authentication guards mutating routes.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.AuthJWTSecret) != ""
}

// Uncapped reports whether line quantities may exceed stock.
func (c *Config) Uncapped() bool {
	return c.QuantityPolicy == QuantityPolicyUncapped
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
