package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// DefaultServiceVersion is reported when no build version is configured.
const DefaultServiceVersion = "1.0.0"

// shutdownTimeout bounds the final flush of every provider.
const shutdownTimeout = 10 * time.Second

// newServiceResource describes this service to the collector.
func newServiceResource(name, version string) (*resource.Resource, error) {
	if version == "" {
		version = DefaultServiceVersion
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// shutdownProvider flushes and stops one SDK provider. A nil stop means the
// signal was never enabled.
func shutdownProvider(ctx context.Context, logger *zap.Logger, signal string, stop func(context.Context) error) error {
	if stop == nil {
		logger.Debug("Telemetry signal disabled, nothing to shut down", zap.String("signal", signal))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		logger.Error("Telemetry shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	logger.Info("Telemetry provider shut down", zap.String("signal", signal))
	return nil
}
