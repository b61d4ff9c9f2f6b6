package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	mw, err := HTTPMetrics(provider.Meter("http.server"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.POST("/api/v1/shipping/rates", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/shipping/rates", nil))
	serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/shipping/rates", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/nope", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			switch m.Name {
			case "http_server_request_total":
				sum := m.Data.(metricdata.Sum[int64])
				byRoute := map[string]int64{}
				for _, dp := range sum.DataPoints {
					route, _ := dp.Attributes.Value(attribute.Key("http.route"))
					byRoute[route.AsString()] += dp.Value
				}
				assert.Equal(t, int64(2), byRoute["/api/v1/shipping/rates"])
				assert.Equal(t, int64(1), byRoute["unknown"])
			case "http_server_active_requests":
				sum := m.Data.(metricdata.Sum[int64])
				for _, dp := range sum.DataPoints {
					assert.Zero(t, dp.Value)
				}
			}
		}
	}
	assert.True(t, found["http_server_request_total"])
	assert.True(t, found["http_server_request_duration_seconds"])
}
