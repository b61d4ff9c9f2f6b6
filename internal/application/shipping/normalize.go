package shipping

import (
	"strings"

	"github.com/forcedowels/backend/internal/domain/shared/valueobject"
	"github.com/forcedowels/backend/internal/domain/shipping"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DetailPriceLabel is the detail key holding the localized price.
const DetailPriceLabel = "priceLabel"

// normalizeQuotes stamps carrier identity onto each quote and fills the
// display fields. Quotes without a positive price are dropped and counted.
func normalizeQuotes(carrier shipping.CarrierID, quotes []shipping.RateQuote, locale language.Tag) ([]shipping.RateQuote, int) {
	out := make([]shipping.RateQuote, 0, len(quotes))
	dropped := 0
	for _, q := range quotes {
		if q.PriceCents <= 0 {
			dropped++
			continue
		}
		out = append(out, normalizeQuote(carrier, q, locale))
	}
	return out, dropped
}

func normalizeQuote(carrier shipping.CarrierID, q shipping.RateQuote, locale language.Tag) shipping.RateQuote {
	q.CarrierID = carrier
	q.CarrierName = carrier.DisplayName()
	q.ServiceName = serviceLabel(q.ServiceName, q.ServiceCode, locale)

	q.Currency = strings.ToUpper(strings.TrimSpace(q.Currency))
	if q.Currency == "" {
		q.Currency = shipping.DefaultCurrency
	}
	if q.EstimatedDays != nil && *q.EstimatedDays <= 0 {
		q.EstimatedDays = nil
	}

	detail := make(map[string]string, len(q.Detail)+1)
	for k, v := range q.Detail {
		detail[k] = v
	}
	if money, err := valueobject.NewMoneyFromMinorUnits(q.PriceCents, valueobject.Currency(q.Currency)); err == nil {
		detail[DetailPriceLabel] = money.Label(locale)
	}
	q.Detail = detail
	return q
}

// serviceLabel turns provider codes such as "USPS_GROUND_ADVANTAGE" into a
// readable label. Names that are already readable are kept.
func serviceLabel(name, code string, locale language.Tag) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(code)
	}
	if name == "" {
		return "Standard"
	}
	if !strings.Contains(name, "_") {
		return name
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' })
	return cases.Title(locale).String(strings.ToLower(strings.Join(words, " ")))
}
