package carrier

import "encoding/json"

// USPS mail classes requested for every package
const (
	USPSMailClassPriority        = "PRIORITY_MAIL"
	USPSMailClassPriorityExpress = "PRIORITY_MAIL_EXPRESS"
	USPSMailClassGroundAdvantage = "USPS_GROUND_ADVANTAGE"
	USPSMailClassFlatRate        = "PRIORITY_MAIL_FLAT_RATE"
)

var uspsMailClasses = []string{
	USPSMailClassPriorityExpress,
	USPSMailClassPriority,
	USPSMailClassGroundAdvantage,
}

// uspsServiceNames maps mail classes to customer-facing names
var uspsServiceNames = map[string]string{
	USPSMailClassPriorityExpress: "Priority Mail Express",
	USPSMailClassPriority:        "Priority Mail",
	USPSMailClassGroundAdvantage: "Ground Advantage",
	USPSMailClassFlatRate:        "Priority Mail Flat Rate",
}

// uspsTransitDays are the published delivery standards per mail class
var uspsTransitDays = map[string]int{
	USPSMailClassPriorityExpress: 1,
	USPSMailClassPriority:        2,
	USPSMailClassGroundAdvantage: 5,
	USPSMailClassFlatRate:        2,
}

// USPSTokenRequest is the client-credentials body of POST /oauth2/v3/token
type USPSTokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// USPSRateRequest is the body of POST /prices/v3/total-rates/search
type USPSRateRequest struct {
	OriginZIPCode      string   `json:"originZIPCode"`
	DestinationZIPCode string   `json:"destinationZIPCode"`
	Weight             float64  `json:"weight"`
	Length             float64  `json:"length"`
	Width              float64  `json:"width"`
	Height             float64  `json:"height"`
	MailClasses        []string `json:"mailClasses"`
	PriceType          string   `json:"priceType"`
	ItemValue          float64  `json:"itemValue,omitempty"`
}

// USPSRateResponse is the total-rates search result for one package
type USPSRateResponse struct {
	RateOptions []USPSRateOption `json:"rateOptions"`
}

// USPSRateOption is one priced option, usually one per mail class
type USPSRateOption struct {
	TotalBasePrice json.Number `json:"totalBasePrice"`
	TotalPrice     json.Number `json:"totalPrice"`
	Rates          []USPSRate  `json:"rates"`
}

// USPSRate is a rate line inside an option
type USPSRate struct {
	MailClass   string      `json:"mailClass"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	SKU         string      `json:"SKU"`
}

// mailClass returns the mail class of the option's first rate line.
func (o USPSRateOption) mailClass() string {
	for _, r := range o.Rates {
		if r.MailClass != "" {
			return r.MailClass
		}
	}
	return ""
}

// price prefers the all-in total and falls back to the base price.
func (o USPSRateOption) price() string {
	if o.TotalPrice != "" {
		return o.TotalPrice.String()
	}
	return o.TotalBasePrice.String()
}
