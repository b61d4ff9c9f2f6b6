package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	shippingapp "github.com/forcedowels/backend/internal/application/shipping"
	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/cache"
	"github.com/forcedowels/backend/internal/infrastructure/config"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
	"github.com/forcedowels/backend/internal/infrastructure/logger"
	"github.com/forcedowels/backend/internal/infrastructure/telemetry"
	"github.com/forcedowels/backend/internal/interfaces/http/handler"
	"github.com/forcedowels/backend/internal/interfaces/http/middleware"
	"github.com/forcedowels/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = telemetry.DefaultServiceVersion

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		log = bridgedLogger(logCfg, logProvider, cfg.Telemetry.ServiceName, log)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting shipping rate service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	meter := meterProvider.Meter("forcedowels/shipping")
	metrics, err := telemetry.NewShippingMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create shipping metrics", zap.Error(err))
	}

	store, err := cache.NewTokenStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create token store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing token store", zap.Error(err))
		}
	}()

	tokens := credential.NewCache(store,
		credential.WithLogger(log),
		credential.WithRefreshRecorder(metrics),
	)

	clients := buildCarrierClients(cfg, tokens, log)
	quotes, err := newQuoteService(cfg, clients, metrics, log)
	if err != nil {
		log.Fatal("Failed to create quote service", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{}
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		checks["token_store"] = pinger.Ping
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	engine, err := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			MaxAge:        12 * time.Hour,
		},
		Security:       securityConfig(cfg.App.Env),
		RateLimiter:    limiter,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		Logger:         log,
	}, router.Handlers{
		System: handler.NewSystemHandler(handler.SystemHandlerConfig{
			Name:     cfg.App.Name,
			Version:  version,
			Carriers: carrierIDs(clients),
			Checks:   checks,
		}),
		Shipping: handler.NewShippingHandler(quotes),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// bridgedLogger tees the local log output into the OTLP log exporter.
func bridgedLogger(cfg *logger.Config, lp *telemetry.LoggerProvider, serviceName string, fallback *zap.Logger) *zap.Logger {
	base, err := logger.NewCore(cfg)
	if err != nil {
		fallback.Warn("Log bridge disabled", zap.Error(err))
		return fallback
	}
	otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    serviceName,
		LoggerProvider: lp,
		Level:          logger.ParseLevel(cfg.Level),
	})
	return telemetry.NewBridgedLogger(base, otelCore,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

func newQuoteService(cfg *config.Config, clients []shipping.CarrierClient, metrics *telemetry.ShippingMetrics, log *zap.Logger) (*shippingapp.QuoteService, error) {
	resolverCfg := shipping.DefaultResolverConfig()
	if cfg.Shipping.WeightPerKitLb > 0 {
		resolverCfg.WeightPerKitLb = cfg.Shipping.WeightPerKitLb
	}
	if cfg.Shipping.TestParcelWeightLb > 0 {
		resolverCfg.TestParcelWeightLb = cfg.Shipping.TestParcelWeightLb
	}
	resolver, err := shipping.NewPackagingResolver(resolverCfg)
	if err != nil {
		return nil, err
	}

	eligibility := shipping.NewEligibilityRouter(resolver, shipping.EligibilityPolicy{
		SmallParcelExcludesBulkBoxes: cfg.Shipping.SmallParcelExcludesBulkBoxes,
		SmallParcelMaxWeightLb:       cfg.Shipping.SmallParcelMaxWeightLb,
	})

	locale, err := language.Parse(cfg.Shipping.Locale)
	if err != nil {
		log.Warn("Invalid shipping locale, using en-US",
			zap.String("locale", cfg.Shipping.Locale), zap.Error(err))
		locale = language.AmericanEnglish
	}

	aggregator := shippingapp.NewRateAggregator(shippingapp.AggregatorConfig{
		Clients:           clients,
		PerCarrierTimeout: cfg.Shipping.CarrierTimeout,
		MaxConcurrent:     cfg.Shipping.MaxConcurrentCarriers,
		Locale:            locale,
		Metrics:           metrics,
		Logger:            log,
	})

	return shippingapp.NewQuoteService(shippingapp.QuoteServiceConfig{
		Resolver:   resolver,
		Router:     eligibility,
		Aggregator: aggregator,
		Metrics:    metrics,
		Logger:     log,
	})
}

func securityConfig(env string) middleware.SecurityConfig {
	sec := middleware.DefaultSecurityConfig()
	sec.HSTSEnabled = env == "production"
	return sec
}
