// Package shipping orchestrates packaging, carrier routing and rate
// aggregation into the rate quote use case.
package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrServiceMisconfigured is returned by NewQuoteService when a dependency is missing
var ErrServiceMisconfigured = errors.New("quote service: resolver, router and aggregator are required")

// QuoteServiceConfig holds the dependencies of a QuoteService
type QuoteServiceConfig struct {
	Resolver   *shipping.PackagingResolver
	Router     *shipping.EligibilityRouter
	Aggregator *RateAggregator
	Metrics    *telemetry.ShippingMetrics
	Clock      func() time.Time
	Logger     *zap.Logger
}

// QuoteService turns a cart and a destination into sorted carrier quotes
type QuoteService struct {
	resolver   *shipping.PackagingResolver
	router     *shipping.EligibilityRouter
	aggregator *RateAggregator
	metrics    *telemetry.ShippingMetrics
	now        func() time.Time
	logger     *zap.Logger
}

// NewQuoteService creates a QuoteService
func NewQuoteService(config QuoteServiceConfig) (*QuoteService, error) {
	if config.Resolver == nil || config.Router == nil || config.Aggregator == nil {
		return nil, ErrServiceMisconfigured
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := config.Clock
	if clock == nil {
		clock = timeNowUTC
	}

	return &QuoteService{
		resolver:   config.Resolver,
		router:     config.Router,
		aggregator: config.Aggregator,
		metrics:    config.Metrics,
		now:        clock,
		logger:     logger,
	}, nil
}

// GetRates resolves the packaging for req.Items, routes it to the eligible
// carriers and returns their quotes sorted by price. Validation failures are
// reported before any carrier is contacted. When no carrier produces a quote
// the error is a *shipping.NoRatesAvailableError.
func (s *QuoteService) GetRates(ctx context.Context, req GetRatesRequest) (result *QuoteResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "shipping.get_rates",
		telemetry.SpanAttrCountry.String(req.Destination.Country),
		telemetry.SpanAttrPostalCode.String(req.Destination.PostalCode),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	plan, err := s.resolve(req.Items)
	if err == nil {
		err = req.Destination.Validate()
	}
	if err != nil {
		s.metrics.RecordQuoteRequest(ctx, telemetry.ResultInvalid)
		return nil, err
	}

	decision := s.router.Route(plan)
	for _, skipped := range decision.Skipped {
		log := s.logger.Debug
		if skipped.Reason == shipping.SkipReasonParcelsInFreight {
			log = s.logger.Warn
		}
		log("Carrier not quoted",
			zap.String("carrier", string(skipped.CarrierID)),
			zap.String("reason", skipped.Reason))
	}

	quoteID := uuid.New()
	span.SetAttributes(telemetry.SpanAttrQuoteID.String(quoteID.String()))
	logger := s.logger.With(zap.String("quote_id", quoteID.String()))
	logger.Info("Requesting carrier rates",
		zap.Int("parcels", len(plan.Parcels)),
		zap.Int("pallets", len(plan.Pallets)),
		zap.Any("carriers", decision.CarrierIDs()))

	agg, err := s.aggregator.Aggregate(ctx, decision.Selections, req.Destination)
	if err != nil {
		outcome := telemetry.ResultFailure
		var noRates *shipping.NoRatesAvailableError
		if errors.As(err, &noRates) {
			outcome = telemetry.ResultNoRates
			logger.Warn("No carrier rates available", zap.Any("failures", noRates.Failures))
		}
		s.metrics.RecordQuoteRequest(ctx, outcome)
		return nil, err
	}

	s.metrics.RecordQuoteRequest(ctx, telemetry.ResultSuccess)
	span.SetAttributes(telemetry.SpanAttrQuoteCount.Int(len(agg.Quotes)))

	carrierErrors := agg.CarrierErrors
	if carrierErrors == nil {
		carrierErrors = []shipping.CarrierFailure{}
	}
	logger.Info("Carrier rates resolved",
		zap.Int("quotes", len(agg.Quotes)),
		zap.Int("failed_carriers", len(carrierErrors)))

	return &QuoteResult{
		QuoteID:       quoteID,
		ResolvedAt:    s.now(),
		Quotes:        agg.Quotes,
		PackagePlan:   plan,
		CarrierErrors: carrierErrors,
		Skipped:       decision.Skipped,
	}, nil
}

// PreviewPlan resolves and routes items without any carrier I/O
func (s *QuoteService) PreviewPlan(items []shipping.CartItem) (*PlanPreview, error) {
	plan, err := s.resolve(items)
	if err != nil {
		return nil, err
	}
	decision := s.router.Route(plan)
	return &PlanPreview{
		PackagePlan: plan,
		Selections:  decision.Selections,
		Skipped:     decision.Skipped,
		TotalWeight: plan.TotalWeightLb(),
	}, nil
}

// resolve validates items and builds the package plan.
func (s *QuoteService) resolve(items []shipping.CartItem) (shipping.PackagePlan, error) {
	if len(items) == 0 {
		return shipping.PackagePlan{}, shipping.NewValidationError("items", "at least one item is required")
	}
	plan, err := s.resolver.Resolve(items)
	if err != nil {
		return shipping.PackagePlan{}, err
	}
	if plan.Totals.BulkUnits+plan.Totals.KitQty+plan.Totals.TestQty <= 0 || plan.IsEmpty() {
		return shipping.PackagePlan{}, shipping.NewValidationError("items", "total quantity must be positive")
	}
	return plan, nil
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
