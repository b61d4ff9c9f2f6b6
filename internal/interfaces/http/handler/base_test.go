package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/logger"
	"github.com/forcedowels/backend/internal/interfaces/http/dto"
	"github.com/forcedowels/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(logger.GinKeyRequestID, "req-test")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        shipping.NewValidationError("destination.postalCode", "postal code is required"),
			wantStatus: http.StatusBadRequest,
			wantCode:   dto.ErrCodeValidation,
		},
		{
			name: "no rates",
			err: shipping.NewNoRatesAvailableError([]shipping.CarrierOutcome{{
				CarrierID: shipping.CarrierFreightBroker,
				Err:       shipping.NewAuthError(shipping.CarrierFreightBroker, errors.New("bad secret")),
			}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   dto.ErrCodeNoRates,
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodPost, "/", "")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-test", resp.Error.RequestID)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandler_HandleError_Details(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodPost, "/", "")
	h.HandleError(c, shipping.NewValidationError("items", "total quantity must be positive"))
	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "items", resp.Error.Details[0].Field)

	c, w = newTestContext(http.MethodPost, "/", "")
	h.HandleError(c, shipping.NewNoRatesAvailableError([]shipping.CarrierOutcome{{
		CarrierID: shipping.CarrierLargeParcel,
		Err:       shipping.NewCarrierRequestError(shipping.CarrierLargeParcel, 0, shipping.ErrCarrierTimeout),
	}}))
	resp = decodeResponse(t, w)
	require.Len(t, resp.Error.CarrierErrors, 1)
	assert.Equal(t, shipping.CarrierLargeParcel, resp.Error.CarrierErrors[0].CarrierID)
	assert.Equal(t, shipping.FailureKindTimeout, resp.Error.CarrierErrors[0].Kind)
}

func TestBaseHandler_HandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodPost, "/", "")

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_BindJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantCode string
	}{
		{"valid", `{"items":[{"kind":"kit","quantity":2}]}`, true, ""},
		{"malformed", `{"items":`, false, dto.ErrCodeInvalidJSON},
		{"wrong type", `{"items":"kit"}`, false, dto.ErrCodeInvalidJSON},
		{"empty items", `{"items":[]}`, false, dto.ErrCodeValidation},
		{"unknown kind", `{"items":[{"kind":"crate","quantity":2}]}`, false, dto.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(http.MethodPost, "/", tt.body)

			var req dto.PackagesRequest
			ok := h.BindJSON(c, &req)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "kit", req.Items[0].Kind)
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(http.MethodGet, "/", "")

	h.Success(c, map[string]int{"n": 1})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}
