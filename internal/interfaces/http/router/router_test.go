package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	shippingapp "github.com/forcedowels/backend/internal/application/shipping"
	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/interfaces/http/dto"
	"github.com/forcedowels/backend/internal/interfaces/http/handler"
	"github.com/forcedowels/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubQuoter struct{}

func (stubQuoter) GetRates(context.Context, shippingapp.GetRatesRequest) (*shippingapp.QuoteResult, error) {
	return &shippingapp.QuoteResult{
		Quotes:        []shipping.RateQuote{{CarrierID: shipping.CarrierSmallParcel, PriceCents: 960}},
		CarrierErrors: []shipping.CarrierFailure{},
	}, nil
}

func (stubQuoter) PreviewPlan([]shipping.CartItem) (*shippingapp.PlanPreview, error) {
	return &shippingapp.PlanPreview{}, nil
}

func newTestEngine(t *testing.T, cfg Config) *gin.Engine {
	t.Helper()
	cfg.Logger = zaptest.NewLogger(t)
	engine, err := NewEngine(cfg, Handlers{
		System:   handler.NewSystemHandler(handler.SystemHandlerConfig{Name: "test"}),
		Shipping: handler.NewShippingHandler(stubQuoter{}),
	})
	require.NoError(t, err)
	return engine
}

func serve(engine *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:40000"
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const validRates = `{"destination":{"country":"US","postalCode":"97201"},"items":[{"kind":"kit","quantity":3}]}`

func TestNewEngine_Routes(t *testing.T) {
	engine := newTestEngine(t, Config{})

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/system/ping", "", http.StatusOK},
		{http.MethodGet, "/api/v1/system/info", "", http.StatusOK},
		{http.MethodPost, "/api/v1/shipping/rates", validRates, http.StatusOK},
		{http.MethodPost, "/api/v1/shipping/packages", `{"items":[{"kind":"test","quantity":1}]}`, http.StatusOK},
		{http.MethodGet, "/api/v1/shipping/rates", "", http.StatusNotFound},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestNewEngine_NotFoundEnvelope(t *testing.T) {
	engine := newTestEngine(t, Config{})

	w := serve(engine, http.MethodGet, "/nope", "")

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, w.Header().Get(middleware.HeaderRequestID), resp.Error.RequestID)
}

func TestNewEngine_RateLimitOnlyOnShipping(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Hour)
	t.Cleanup(limiter.Stop)
	engine := newTestEngine(t, Config{RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodPost, "/api/v1/shipping/rates", validRates).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodPost, "/api/v1/shipping/rates", validRates).Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health", "").Code)
}

func TestNewEngine_BodyLimit(t *testing.T) {
	engine := newTestEngine(t, Config{MaxBodySize: 32})

	w := serve(engine, http.MethodPost, "/api/v1/shipping/rates", validRates)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestDomainGroup(t *testing.T) {
	engine := gin.New()
	var hits []string
	g := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) {
			hits = append(hits, "mw")
			c.Next()
		}).
		GET("/items", func(c *gin.Context) { c.String(http.StatusOK, "items") }).
		POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "/test", g.Prefix())

	NewRouter(engine, WithAPIVersion("v2")).Register(g).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/test/items", "").Code)
	assert.Equal(t, http.StatusCreated, serve(engine, http.MethodPost, "/api/v2/test/items", "").Code)
	assert.Equal(t, []string{"mw", "mw"}, hits)
}
