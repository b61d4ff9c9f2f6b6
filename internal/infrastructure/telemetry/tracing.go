package telemetry

import (
	"context"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for application spans
const TracerName = "forcedowels-shipping"

// Span attribute keys
var (
	SpanAttrCarrier       = attribute.Key("shipping.carrier")
	SpanAttrPackageCount  = attribute.Key("shipping.package_count")
	SpanAttrQuoteCount    = attribute.Key("shipping.quote_count")
	SpanAttrDroppedOffers = attribute.Key("shipping.dropped_offers")
	SpanAttrPostalCode    = attribute.Key("shipping.destination.postal_code")
	SpanAttrCountry       = attribute.Key("shipping.destination.country")
	SpanAttrQuoteID       = attribute.Key("shipping.quote_id")
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span on the global tracer provider.
//
//	ctx, span := telemetry.StartSpan(ctx, "shipping.get_rates")
//	defer func() { telemetry.EndSpan(span, err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartCarrierSpan starts the client span around one carrier rating call.
func StartCarrierSpan(ctx context.Context, carrier shipping.CarrierID, packages int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "shipping.carrier_quote",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			SpanAttrCarrier.String(string(carrier)),
			SpanAttrPackageCount.Int(packages),
		),
	)
}

// EndSpan adds attrs, sets the status from err and ends the span.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
