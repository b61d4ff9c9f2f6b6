package shipping

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrValidation           = errors.New("shipping: validation failed")
	ErrAuthFailed           = errors.New("shipping: carrier authentication failed")
	ErrCarrierRequestFailed = errors.New("shipping: carrier request failed")
	ErrCarrierInvalidResp   = errors.New("shipping: invalid carrier response")
	ErrCarrierTimeout       = errors.New("shipping: carrier request timed out")
	ErrCarrierNotConfigured = errors.New("shipping: carrier not configured")
	ErrPartialQuote         = errors.New("shipping: carrier returned malformed offers")
	ErrNoRatesAvailable     = errors.New("shipping: no rates available")
)

// Failure kinds reported in CarrierFailure.Kind.
const (
	FailureKindAuth          = "auth"
	FailureKindRequest       = "request"
	FailureKindTimeout       = "timeout"
	FailureKindNotConfigured = "not_configured"
)

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// ValidationError rejects a quote request before any carrier is contacted.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ---------------------------------------------------------------------------
// Carrier errors
// ---------------------------------------------------------------------------

// AuthError reports a failed credential exchange for one carrier.
type AuthError struct {
	CarrierID CarrierID
	Err       error
}

// NewAuthError wraps err as an AuthError for carrier.
func NewAuthError(carrier CarrierID, err error) *AuthError {
	return &AuthError{CarrierID: carrier, Err: err}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrAuthFailed, e.CarrierID, e.Err)
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuthFailed, e.Err} }

// CarrierRequestError reports a network, status or parse failure for one carrier.
type CarrierRequestError struct {
	CarrierID  CarrierID
	StatusCode int
	Err        error
}

// NewCarrierRequestError wraps err as a CarrierRequestError for carrier.
func NewCarrierRequestError(carrier CarrierID, statusCode int, err error) *CarrierRequestError {
	return &CarrierRequestError{CarrierID: carrier, StatusCode: statusCode, Err: err}
}

func (e *CarrierRequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", ErrCarrierRequestFailed, e.CarrierID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCarrierRequestFailed, e.CarrierID, e.Err)
}

func (e *CarrierRequestError) Unwrap() []error { return []error{ErrCarrierRequestFailed, e.Err} }

// PartialQuoteError is returned together with the valid quotes of a response
// when some offers had to be dropped. It is never fatal.
type PartialQuoteError struct {
	CarrierID CarrierID
	Dropped   int
	Reasons   []string
}

func (e *PartialQuoteError) Error() string {
	return fmt.Sprintf("%s: %s: dropped %d offer(s): %s",
		ErrPartialQuote, e.CarrierID, e.Dropped, strings.Join(e.Reasons, "; "))
}

func (e *PartialQuoteError) Unwrap() error { return ErrPartialQuote }

// ---------------------------------------------------------------------------
// NoRatesAvailableError
// ---------------------------------------------------------------------------

// NoRatesAvailableError means every queried carrier produced zero usable quotes.
type NoRatesAvailableError struct {
	Failures []CarrierFailure
	causes   []error
}

// NewNoRatesAvailableError builds the error from the per-carrier outcomes.
func NewNoRatesAvailableError(outcomes []CarrierOutcome) *NoRatesAvailableError {
	e := &NoRatesAvailableError{Failures: make([]CarrierFailure, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}
		e.Failures = append(e.Failures, FailureFromError(o.CarrierID, o.Err))
		e.causes = append(e.causes, o.Err)
	}
	return e
}

func (e *NoRatesAvailableError) Error() string {
	if len(e.Failures) == 0 {
		return ErrNoRatesAvailable.Error()
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.CarrierID, f.Reason))
	}
	return fmt.Sprintf("%s (%s)", ErrNoRatesAvailable, strings.Join(parts, "; "))
}

func (e *NoRatesAvailableError) Unwrap() []error {
	return append([]error{ErrNoRatesAvailable}, e.causes...)
}

// FailureFromError classifies a carrier error into a CarrierFailure.
func FailureFromError(carrier CarrierID, err error) CarrierFailure {
	kind := FailureKindRequest
	switch {
	case errors.Is(err, ErrAuthFailed):
		kind = FailureKindAuth
	case errors.Is(err, ErrCarrierTimeout):
		kind = FailureKindTimeout
	case errors.Is(err, ErrCarrierNotConfigured):
		kind = FailureKindNotConfigured
	}
	return CarrierFailure{CarrierID: carrier, Kind: kind, Reason: err.Error()}
}
