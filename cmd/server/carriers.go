package main

import (
	"net/http"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/carrier"
	"github.com/forcedowels/backend/internal/infrastructure/config"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// buildCarrierClients creates a client for every enabled carrier and
// registers its credential exchange with tokens. Carriers with incomplete
// credentials are left out and reported as not configured at quote time.
func buildCarrierClients(cfg *config.Config, tokens *credential.Cache, log *zap.Logger) []shipping.CarrierClient {
	origin := shipping.Destination{
		Country:    cfg.Shipping.Origin.Country,
		State:      cfg.Shipping.Origin.State,
		City:       cfg.Shipping.Origin.City,
		PostalCode: cfg.Shipping.Origin.PostalCode,
	}

	opts := func(timeout time.Duration) []carrier.Option {
		return []carrier.Option{
			carrier.WithLogger(log),
			carrier.WithHTTPClient(tracedHTTPClient(timeout)),
		}
	}

	var clients []carrier.Authenticated
	add := func(id shipping.CarrierID, client carrier.Authenticated, err error) {
		if err != nil {
			log.Warn("Carrier not registered", zap.String("carrier", string(id)), zap.Error(err))
			return
		}
		clients = append(clients, client)
	}

	if c := cfg.Carriers.USPS; c.Enabled {
		client, err := carrier.NewUSPSClient(carrier.USPSConfig{
			ClientID:          c.ClientID,
			ClientSecret:      c.ClientSecret,
			BaseURL:           c.BaseURL,
			Timeout:           c.Timeout,
			TokenSafetyMargin: c.TokenSafetyMargin,
			KitFlatRateCents:  c.KitFlatRateCents,
			Origin:            origin,
		}, tokens, opts(c.Timeout)...)
		add(shipping.CarrierSmallParcel, client, err)
	}

	if c := cfg.Carriers.UPS; c.Enabled {
		client, err := carrier.NewUPSClient(carrier.UPSConfig{
			ClientID:          c.ClientID,
			ClientSecret:      c.ClientSecret,
			AccountNumber:     c.AccountNumber,
			BaseURL:           c.BaseURL,
			Timeout:           c.Timeout,
			TokenSafetyMargin: c.TokenSafetyMargin,
			Origin:            origin,
		}, tokens, opts(c.Timeout)...)
		add(shipping.CarrierLargeParcel, client, err)
	}

	if c := cfg.Carriers.TQL; c.Enabled {
		client, err := carrier.NewTQLClient(carrier.TQLConfig{
			ClientID:          c.ClientID,
			ClientSecret:      c.ClientSecret,
			Username:          c.Username,
			Password:          c.Password,
			SubscriptionKey:   c.SubscriptionKey,
			BaseURL:           c.BaseURL,
			Timeout:           c.Timeout,
			TokenSafetyMargin: c.TokenSafetyMargin,
			Origin:            origin,
		}, tokens, opts(c.Timeout)...)
		add(shipping.CarrierFreightBroker, client, err)
	}

	carrier.RegisterTokenSources(tokens, clients...)

	out := make([]shipping.CarrierClient, 0, len(clients))
	for _, c := range clients {
		out = append(out, c)
		log.Info("Carrier registered", zap.String("carrier", string(c.CarrierID())))
	}
	return out
}

func carrierIDs(clients []shipping.CarrierClient) []shipping.CarrierID {
	ids := make([]shipping.CarrierID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.CarrierID())
	}
	return ids
}

// tracedHTTPClient propagates trace context to carrier APIs and records a
// client span per call.
func tracedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = carrier.DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
