package shipping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// Per-carrier timeout bounds
const (
	DefaultPerCarrierTimeout = 15 * time.Second
	MinPerCarrierTimeout     = time.Second
	MaxPerCarrierTimeout     = 60 * time.Second

	// DefaultMaxConcurrentCarriers limits in-flight carrier calls per request
	DefaultMaxConcurrentCarriers = 8
)

// AggregatorConfig holds the dependencies of a RateAggregator
type AggregatorConfig struct {
	Clients           []shipping.CarrierClient
	PerCarrierTimeout time.Duration
	MaxConcurrent     int
	Locale            language.Tag
	Metrics           *telemetry.ShippingMetrics
	Logger            *zap.Logger
}

// AggregateResult is the joined, normalized outcome of one fan-out
type AggregateResult struct {
	// Quotes are sorted ascending by price; ties keep carrier submission order
	Quotes []shipping.RateQuote
	// Outcomes has one entry per selection, in selection order
	Outcomes []shipping.CarrierOutcome
	// CarrierErrors lists only the carriers that failed
	CarrierErrors []shipping.CarrierFailure
}

// RateAggregator queries every selected carrier concurrently and joins on all
// of them. One carrier's failure never cancels or hides another's quotes.
type RateAggregator struct {
	clients       map[shipping.CarrierID]shipping.CarrierClient
	timeout       time.Duration
	maxConcurrent int
	locale        language.Tag
	metrics       *telemetry.ShippingMetrics
	logger        *zap.Logger
}

// NewRateAggregator creates a RateAggregator
func NewRateAggregator(config AggregatorConfig) *RateAggregator {
	clients := make(map[shipping.CarrierID]shipping.CarrierClient, len(config.Clients))
	for _, c := range config.Clients {
		if c != nil {
			clients[c.CarrierID()] = c
		}
	}

	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCarriers
	}

	locale := config.Locale
	if locale == language.Und {
		locale = language.AmericanEnglish
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateAggregator{
		clients:       clients,
		timeout:       ClampPerCarrierTimeout(config.PerCarrierTimeout),
		maxConcurrent: maxConcurrent,
		locale:        locale,
		metrics:       config.Metrics,
		logger:        logger,
	}
}

// ClampPerCarrierTimeout applies the default and bounds to a per-carrier timeout
func ClampPerCarrierTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultPerCarrierTimeout
	case d < MinPerCarrierTimeout:
		return MinPerCarrierTimeout
	case d > MaxPerCarrierTimeout:
		return MaxPerCarrierTimeout
	default:
		return d
	}
}

// Carriers returns the ids of the registered carrier clients
func (a *RateAggregator) Carriers() []shipping.CarrierID {
	ids := make([]shipping.CarrierID, 0, len(a.clients))
	for id := range a.clients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Aggregate quotes every selection against dest. It returns a
// *shipping.NoRatesAvailableError when no carrier produced a usable quote.
func (a *RateAggregator) Aggregate(ctx context.Context, selections []shipping.CarrierSelection, dest shipping.Destination) (*AggregateResult, error) {
	outcomes := make([]shipping.CarrierOutcome, len(selections))

	// errgroup without a shared context: a failing branch must not cancel siblings
	var g errgroup.Group
	g.SetLimit(a.maxConcurrent)
	for i, sel := range selections {
		g.Go(func() error {
			outcomes[i] = a.quoteCarrier(ctx, sel, dest)
			return nil
		})
	}
	_ = g.Wait()

	result := &AggregateResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Failed() {
			result.CarrierErrors = append(result.CarrierErrors, shipping.FailureFromError(o.CarrierID, o.Err))
			continue
		}
		result.Quotes = append(result.Quotes, o.Quotes...)
	}
	sort.SliceStable(result.Quotes, func(i, j int) bool {
		return result.Quotes[i].PriceCents < result.Quotes[j].PriceCents
	})

	if len(result.Quotes) == 0 {
		return nil, shipping.NewNoRatesAvailableError(outcomes)
	}
	return result, nil
}

type callResult struct {
	quotes []shipping.RateQuote
	err    error
}

// quoteCarrier runs one carrier call under its own deadline. A client that
// ignores cancellation is abandoned when the deadline passes.
func (a *RateAggregator) quoteCarrier(ctx context.Context, sel shipping.CarrierSelection, dest shipping.Destination) shipping.CarrierOutcome {
	start := time.Now()
	outcome := shipping.CarrierOutcome{CarrierID: sel.CarrierID}
	logger := a.logger.With(zap.String("carrier", string(sel.CarrierID)))

	ctx, span := telemetry.StartCarrierSpan(ctx, sel.CarrierID, len(sel.Packages))
	defer func() {
		outcome.Duration = time.Since(start)
		a.metrics.RecordCarrierOutcome(ctx, outcome)
		telemetry.EndSpan(span, outcome.Err,
			telemetry.SpanAttrQuoteCount.Int(len(outcome.Quotes)),
			telemetry.SpanAttrDroppedOffers.Int(outcome.Dropped))
	}()

	client, ok := a.clients[sel.CarrierID]
	if !ok {
		outcome.Err = fmt.Errorf("%w: %s", shipping.ErrCarrierNotConfigured, sel.CarrierID)
		logger.Warn("No client registered for selected carrier")
		return outcome
	}

	res := a.call(ctx, client, sel, dest)

	var partial *shipping.PartialQuoteError
	switch {
	case res.err == nil:
	case errors.As(res.err, &partial):
		outcome.Dropped = partial.Dropped
		logger.Warn("Dropped malformed carrier offers",
			zap.Int("dropped", partial.Dropped),
			zap.Strings("reasons", partial.Reasons))
	default:
		outcome.Err = asCarrierError(sel.CarrierID, res.err)
		logger.Warn("Carrier quote failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(outcome.Err))
		return outcome
	}

	quotes, dropped := normalizeQuotes(sel.CarrierID, res.quotes, a.locale)
	outcome.Quotes = quotes
	outcome.Dropped += dropped

	logger.Debug("Carrier quote completed",
		zap.Int("quotes", len(quotes)),
		zap.Int("dropped", outcome.Dropped),
		zap.Duration("elapsed", time.Since(start)))
	return outcome
}

// call invokes the client in its own goroutine so that a hung or panicking
// client becomes a carrier error instead of stalling the join.
func (a *RateAggregator) call(ctx context.Context, client shipping.CarrierClient, sel shipping.CarrierSelection, dest shipping.Destination) callResult {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: shipping.NewCarrierRequestError(sel.CarrierID, 0,
					fmt.Errorf("carrier client panicked: %v", r))}
			}
		}()
		quotes, err := client.Quote(callCtx, dest, sel.Packages)
		done <- callResult{quotes: quotes, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return callResult{err: shipping.NewCarrierRequestError(sel.CarrierID, 0,
				fmt.Errorf("%w after %s", shipping.ErrCarrierTimeout, a.timeout))}
		}
		return callResult{err: shipping.NewCarrierRequestError(sel.CarrierID, 0, callCtx.Err())}
	}
}

// asCarrierError keeps typed carrier errors and wraps anything else as a
// request failure.
func asCarrierError(carrier shipping.CarrierID, err error) error {
	var (
		authErr *shipping.AuthError
		reqErr  *shipping.CarrierRequestError
	)
	if errors.As(err, &authErr) || errors.As(err, &reqErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shipping.NewCarrierRequestError(carrier, 0, fmt.Errorf("%w: %v", shipping.ErrCarrierTimeout, err))
	}
	return shipping.NewCarrierRequestError(carrier, 0, err)
}
