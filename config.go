package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/smarte-commerce/ecomm-shipping-sub000/cache"
	"github.com/smarte-commerce/ecomm-shipping-sub000/database"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
	aws_pkg "github.com/smarte-commerce/ecomm-shipping-sub000/pkg/aws"
	"github.com/smarte-commerce/ecomm-shipping-sub000/services"
)

// Config holds all configuration for the shipping service.
type Config struct {
	Env  string
	Port string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	ShippoAPIKey    string
	ShippoBaseURL   string
	EasyPostAPIKey  string
	EasyPostBaseURL string

	ShippingSNSTopicARN string
	UseAWSSecrets       bool
	CloudWatchEnabled   bool
	CloudWatchNamespace string

	// Warehouse / origin address defaults
	OriginName       string
	OriginStreet1    string
	OriginCity       string
	OriginState      string
	OriginPostalCode string
	OriginCountry    string
	OriginPhone      string

	// Quote cache: "memory" or "redis"
	CacheBackend string
	RedisURL     string
	CacheTTL     time.Duration
	CacheSize    int

	MaxProviders     int
	ProviderTimeout  time.Duration
	OverallTimeout   time.Duration
	ProviderRetries  int
	ProviderRPS      float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CostScale        decimal.Decimal

	InsuranceThreshold decimal.Decimal
	InsuranceRate      decimal.Decimal
	FuelSurchargeRate  decimal.Decimal
	DefaultCurrency    string

	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// secretSource is the part of the Secrets Manager client LoadConfig needs.
type secretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from .env and environment variables, with
// an optional Secrets Manager overlay when AWS_USE_SECRETS=true.
func LoadConfig(ctx context.Context) (*Config, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseAWSSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("secrets overlay: %w", err)
		}
		applySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFromEnv() (*Config, error) {
	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8091"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		ShippoAPIKey:    os.Getenv("SHIPPO_API_KEY"),
		ShippoBaseURL:   os.Getenv("SHIPPO_BASE_URL"),
		EasyPostAPIKey:  os.Getenv("EASYPOST_API_KEY"),
		EasyPostBaseURL: os.Getenv("EASYPOST_BASE_URL"),

		ShippingSNSTopicARN: os.Getenv("SHIPPING_SNS_TOPIC_ARN"),
		UseAWSSecrets:       os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_METRICS_ENABLED") == "true",
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "ECommerce/Shipping"),

		OriginName:       getEnv("ORIGIN_NAME", "ShopSwift Warehouse"),
		OriginStreet1:    getEnv("ORIGIN_STREET1", "123 Warehouse Blvd"),
		OriginCity:       getEnv("ORIGIN_CITY", "San Francisco"),
		OriginState:      getEnv("ORIGIN_STATE", "CA"),
		OriginPostalCode: getEnv("ORIGIN_POSTAL_CODE", "94105"),
		OriginCountry:    getEnv("ORIGIN_COUNTRY", "US"),
		OriginPhone:      getEnv("ORIGIN_PHONE", "+14155550100"),

		CacheBackend:    getEnv("QUOTE_CACHE_BACKEND", "memory"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
	}

	var err error
	if cfg.CacheTTL, err = getDuration("QUOTE_CACHE_TTL", cache.DefaultTTL); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = getInt("QUOTE_CACHE_SIZE", 10000); err != nil {
		return nil, err
	}
	if cfg.MaxProviders, err = getInt("QUOTE_MAX_PROVIDERS", 5); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getDuration("QUOTE_PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.OverallTimeout, err = getDuration("QUOTE_OVERALL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProviderRetries, err = getInt("QUOTE_PROVIDER_RETRIES", services.DefaultRetryPolicy().MaxRetries); err != nil {
		return nil, err
	}
	if cfg.ProviderRPS, err = getFloat("QUOTE_PROVIDER_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold, err = getInt("QUOTE_BREAKER_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.BreakerCooldown, err = getDuration("QUOTE_BREAKER_COOLDOWN", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CostScale, err = getDecimal("QUOTE_COST_SCALE", "10"); err != nil {
		return nil, err
	}
	if cfg.InsuranceThreshold, err = getDecimal("INSURANCE_THRESHOLD", "1000"); err != nil {
		return nil, err
	}
	if cfg.InsuranceRate, err = getDecimal("INSURANCE_RATE", "0.01"); err != nil {
		return nil, err
	}
	if cfg.FuelSurchargeRate, err = getDecimal("FUEL_SURCHARGE_RATE", "0.10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 40); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySecrets overrides DB credentials and provider keys. Missing or
// unreadable secrets leave the environment values in place.
func applySecrets(ctx context.Context, cfg *Config, sm secretSource) {
	if m, err := sm.GetSecretMap(ctx, "shipping/DB_CREDENTIALS"); err == nil {
		overlay := map[string]*string{
			"POSTGRES_USER":     &cfg.PostgresUser,
			"POSTGRES_PASSWORD": &cfg.PostgresPassword,
			"POSTGRES_DB":       &cfg.PostgresDB,
			"POSTGRES_HOST":     &cfg.PostgresHost,
			"POSTGRES_PORT":     &cfg.PostgresPort,
		}
		for key, dst := range overlay {
			if v := m[key]; v != "" {
				*dst = v
			}
		}
	}
	if v, err := sm.GetSecret(ctx, "shipping/SHIPPO_API_KEY"); err == nil && v != "" {
		cfg.ShippoAPIKey = v
	}
	if v, err := sm.GetSecret(ctx, "shipping/EASYPOST_API_KEY"); err == nil && v != "" {
		cfg.EasyPostAPIKey = v
	}
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("QUOTE_CACHE_BACKEND must be memory or redis, got %q", c.CacheBackend)
	}
	return nil
}

// OriginAddress builds an Address struct from origin config values.
func (c *Config) OriginAddress() models.Address {
	return models.Address{
		Name:       c.OriginName,
		Street1:    c.OriginStreet1,
		City:       c.OriginCity,
		State:      c.OriginState,
		PostalCode: c.OriginPostalCode,
		Country:    c.OriginCountry,
		Phone:      c.OriginPhone,
	}
}

func (c *Config) PostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		TimeZone: c.PostgresTimeZone,
	}
}

func (c *Config) AggregatorConfig() services.AggregatorConfig {
	retry := services.DefaultRetryPolicy()
	retry.MaxRetries = c.ProviderRetries
	return services.AggregatorConfig{
		MaxProviders:    c.MaxProviders,
		ProviderTimeout: c.ProviderTimeout,
		OverallTimeout:  c.OverallTimeout,
		Retry:           retry,
		Breaker: services.BreakerConfig{
			FailureThreshold: c.BreakerThreshold,
			Cooldown:         c.BreakerCooldown,
		},
		ProviderRPS:             c.ProviderRPS,
		CacheTTL:                c.CacheTTL,
		CostNormalizationFactor: c.CostScale,
		DefaultCurrency:         c.DefaultCurrency,
		DefaultOrigin:           c.OriginAddress(),
	}
}

func (c *Config) RateEngineConfig() services.RateEngineConfig {
	return services.RateEngineConfig{
		InsuranceThreshold: c.InsuranceThreshold,
		InsuranceRate:      c.InsuranceRate,
		FuelSurchargeRate:  c.FuelSurchargeRate,
		Currency:           c.DefaultCurrency,
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
