package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	CAD Currency = "CAD" // Canadian Dollar
)

// DefaultCurrency is the currency carriers quote in
const DefaultCurrency = USD

// minorUnitsPerMajor is the cents-per-dollar factor for every supported currency.
var minorUnitsPerMajor = decimal.NewFromInt(100)

var (
	ErrEmptyCurrency    = errors.New("currency cannot be empty")
	ErrInvalidAmount    = errors.New("invalid amount string")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Money is a value object representing monetary amounts
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, ErrEmptyCurrency
	}
	return Money{
		amount:   amount,
		currency: currency,
	}, nil
}

// NewMoneyFromString creates Money from a carrier price string such as "40.00"
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, amount, err)
	}
	return NewMoney(d, currency)
}

// NewMoneyFromMinorUnits creates Money from an integer number of cents
func NewMoneyFromMinorUnits(cents int64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromInt(cents).Div(minorUnitsPerMajor), currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// MinorUnits returns the amount in cents, rounded half away from zero
func (m Money) MinorUnits() int64 {
	return m.amount.Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// Add returns a new Money with the sum of both amounts
// Returns error if currencies don't match
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot add %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{
		amount:   m.amount.Add(other.amount),
		currency: m.currency,
	}, nil
}

// MultiplyByInt returns a new Money multiplied by factor
func (m Money) MultiplyByInt(factor int64) Money {
	return Money{
		amount:   m.amount.Mul(decimal.NewFromInt(factor)),
		currency: m.currency,
	}
}

// String returns a string representation of the Money
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency)
}

// Label formats the amount with the currency symbol for the given locale,
// e.g. "$ 40.00" for en-US. Unknown currencies fall back to String.
func (m Money) Label(tag language.Tag) string {
	unit, err := currency.ParseISO(string(m.currency))
	if err != nil {
		return m.String()
	}
	return message.NewPrinter(tag).Sprint(currency.Symbol(unit.Amount(m.amount.InexactFloat64())))
}
