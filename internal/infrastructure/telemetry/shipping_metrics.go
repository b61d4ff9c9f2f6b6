package telemetry

import (
	"context"
	"errors"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"go.opentelemetry.io/otel/metric"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoRates = "no_rates"
	ResultInvalid = "invalid"
)

// ErrMeterNil is returned when a metrics constructor receives a nil meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// ShippingMetrics records quote engine activity. A nil *ShippingMetrics is
// valid and records nothing.
type ShippingMetrics struct {
	quoteRequests   *Counter
	carrierRequests *Counter
	carrierDuration *DurationHistogram
	droppedOffers   *Counter
	tokenRefreshes  *Counter
}

// NewShippingMetrics creates the shipping instruments on meter.
func NewShippingMetrics(meter metric.Meter) (*ShippingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   ShippingMetrics
		err error
	)

	if m.quoteRequests, err = NewCounter(meter,
		"shipping_quote_requests_total",
		"Total number of rate quote requests",
		"{request}",
	); err != nil {
		return nil, err
	}

	if m.carrierRequests, err = NewCounter(meter,
		"shipping_carrier_requests_total",
		"Total number of carrier rate calls",
		"{call}",
	); err != nil {
		return nil, err
	}

	if m.carrierDuration, err = NewDurationHistogram(meter,
		"shipping_carrier_duration_seconds",
		"Carrier rate call latency in seconds",
		CarrierDurationBuckets,
	); err != nil {
		return nil, err
	}

	if m.droppedOffers, err = NewCounter(meter,
		"shipping_dropped_offers_total",
		"Malformed carrier offers dropped during normalization",
		"{offer}",
	); err != nil {
		return nil, err
	}

	if m.tokenRefreshes, err = NewCounter(meter,
		"shipping_token_refresh_total",
		"Carrier credential exchanges",
		"{exchange}",
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordQuoteRequest counts one GetRates call by result.
func (m *ShippingMetrics) RecordQuoteRequest(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.quoteRequests.Inc(ctx, AttrResult.String(result))
}

// RecordCarrierOutcome records the result, latency and dropped offers of one carrier call.
func (m *ShippingMetrics) RecordCarrierOutcome(ctx context.Context, outcome shipping.CarrierOutcome) {
	if m == nil {
		return
	}
	carrier := AttrCarrier.String(string(outcome.CarrierID))

	if outcome.Err != nil {
		failure := shipping.FailureFromError(outcome.CarrierID, outcome.Err)
		m.carrierRequests.Inc(ctx, carrier, AttrResult.String(ResultFailure), AttrFailureKind.String(failure.Kind))
	} else {
		m.carrierRequests.Inc(ctx, carrier, AttrResult.String(ResultSuccess))
	}
	m.carrierDuration.Observe(ctx, outcome.Duration, carrier)

	if outcome.Dropped > 0 {
		m.droppedOffers.Add(ctx, int64(outcome.Dropped), carrier)
	}
}

// RecordTokenRefresh counts one credential exchange.
func (m *ShippingMetrics) RecordTokenRefresh(ctx context.Context, carrier shipping.CarrierID, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.tokenRefreshes.Inc(ctx, AttrCarrier.String(string(carrier)), AttrResult.String(result))
}
