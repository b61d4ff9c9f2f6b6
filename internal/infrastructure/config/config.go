package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Shipping  ShippingConfig
	Carriers  CarriersConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool // Share carrier tokens across instances through Redis
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing export
	MetricsEnabled    bool    // Whether to enable metrics export
	LogsEnabled       bool    // Whether to bridge zap logs to the collector
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// ShippingConfig holds quote engine settings
type ShippingConfig struct {
	CarrierTimeout               time.Duration // Per-carrier quote deadline
	MaxConcurrentCarriers        int
	SmallParcelExcludesBulkBoxes bool
	SmallParcelMaxWeightLb       float64
	WeightPerKitLb               float64
	TestParcelWeightLb           float64
	Locale                       string // BCP 47 tag used for price labels
	Origin                       OriginConfig
}

// OriginConfig is the ship-from address sent to carriers
type OriginConfig struct {
	Country    string
	State      string
	City       string
	PostalCode string
}

// CarriersConfig holds one section per rate provider
type CarriersConfig struct {
	USPS CarrierConfig
	UPS  CarrierConfig
	TQL  CarrierConfig
}

// CarrierConfig holds the credentials and endpoints of one rate provider.
// Fields a provider does not use are ignored.
type CarrierConfig struct {
	Enabled           bool
	BaseURL           string
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	AccountNumber     string
	SubscriptionKey   string
	Timeout           time.Duration
	TokenSafetyMargin time.Duration
	KitFlatRateCents  int64
}

// Shipping defaults
const (
	DefaultCarrierTimeout = 15 * time.Second
	MinCarrierTimeout     = 1 * time.Second
	MaxCarrierTimeout     = 60 * time.Second
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FD_ prefix (e.g., FD_CARRIERS_UPS_CLIENT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/forcedowels")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("FD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true cannot be detected as "empty" later
	v.SetDefault("shipping.small_parcel_excludes_bulk_boxes", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("carriers.usps.enabled", true)
	v.SetDefault("carriers.ups.enabled", true)
	v.SetDefault("carriers.tql.enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Shipping: ShippingConfig{
			CarrierTimeout:               v.GetDuration("shipping.carrier_timeout"),
			MaxConcurrentCarriers:        v.GetInt("shipping.max_concurrent_carriers"),
			SmallParcelExcludesBulkBoxes: v.GetBool("shipping.small_parcel_excludes_bulk_boxes"),
			SmallParcelMaxWeightLb:       v.GetFloat64("shipping.small_parcel_max_weight_lb"),
			WeightPerKitLb:               v.GetFloat64("shipping.weight_per_kit_lb"),
			TestParcelWeightLb:           v.GetFloat64("shipping.test_parcel_weight_lb"),
			Locale:                       v.GetString("shipping.locale"),
			Origin: OriginConfig{
				Country:    v.GetString("shipping.origin.country"),
				State:      v.GetString("shipping.origin.state"),
				City:       v.GetString("shipping.origin.city"),
				PostalCode: v.GetString("shipping.origin.postal_code"),
			},
		},
		Carriers: CarriersConfig{
			USPS: loadCarrier(v, "carriers.usps"),
			UPS:  loadCarrier(v, "carriers.ups"),
			TQL:  loadCarrier(v, "carriers.tql"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCarrier(v *viper.Viper, prefix string) CarrierConfig {
	return CarrierConfig{
		Enabled:           v.GetBool(prefix + ".enabled"),
		BaseURL:           v.GetString(prefix + ".base_url"),
		ClientID:          v.GetString(prefix + ".client_id"),
		ClientSecret:      v.GetString(prefix + ".client_secret"),
		Username:          v.GetString(prefix + ".username"),
		Password:          v.GetString(prefix + ".password"),
		AccountNumber:     v.GetString(prefix + ".account_number"),
		SubscriptionKey:   v.GetString(prefix + ".subscription_key"),
		Timeout:           v.GetDuration(prefix + ".timeout"),
		TokenSafetyMargin: v.GetDuration(prefix + ".token_safety_margin"),
		KitFlatRateCents:  v.GetInt64(prefix + ".kit_flat_rate_cents"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "forcedowels-shipping"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Must outlast the slowest carrier call
		cfg.HTTP.WriteTimeout = 75 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 60
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"http://localhost:3000"}
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 && cfg.App.Env == "development" {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if cfg.Shipping.CarrierTimeout == 0 {
		cfg.Shipping.CarrierTimeout = DefaultCarrierTimeout
	}
	if cfg.Shipping.MaxConcurrentCarriers == 0 {
		cfg.Shipping.MaxConcurrentCarriers = 8
	}
	if cfg.Shipping.SmallParcelMaxWeightLb == 0 {
		cfg.Shipping.SmallParcelMaxWeightLb = 70
	}
	if cfg.Shipping.WeightPerKitLb == 0 {
		cfg.Shipping.WeightPerKitLb = 1.6
	}
	if cfg.Shipping.TestParcelWeightLb == 0 {
		cfg.Shipping.TestParcelWeightLb = 1
	}
	if cfg.Shipping.Locale == "" {
		cfg.Shipping.Locale = "en-US"
	}
	if cfg.Shipping.Origin.Country == "" {
		cfg.Shipping.Origin.Country = "US"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Shipping.CarrierTimeout < MinCarrierTimeout || c.Shipping.CarrierTimeout > MaxCarrierTimeout {
		return fmt.Errorf("shipping.carrier_timeout must be between %s and %s, got %s",
			MinCarrierTimeout, MaxCarrierTimeout, c.Shipping.CarrierTimeout)
	}
	if c.Shipping.MaxConcurrentCarriers < 0 {
		return fmt.Errorf("shipping.max_concurrent_carriers cannot be negative")
	}
	if c.Shipping.SmallParcelMaxWeightLb < 0 || c.Shipping.WeightPerKitLb < 0 || c.Shipping.TestParcelWeightLb < 0 {
		return fmt.Errorf("shipping weights cannot be negative")
	}
	if c.HTTP.WriteTimeout <= c.Shipping.CarrierTimeout {
		return fmt.Errorf("http.write_timeout (%s) must exceed shipping.carrier_timeout (%s)",
			c.HTTP.WriteTimeout, c.Shipping.CarrierTimeout)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Shipping.Origin.PostalCode == "" {
			return fmt.Errorf("shipping.origin.postal_code is required in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
