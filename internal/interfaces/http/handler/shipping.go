package handler

import (
	"context"

	shippingapp "github.com/forcedowels/backend/internal/application/shipping"
	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateQuoter is the application service behind the shipping endpoints
type RateQuoter interface {
	GetRates(ctx context.Context, req shippingapp.GetRatesRequest) (*shippingapp.QuoteResult, error)
	PreviewPlan(items []shipping.CartItem) (*shippingapp.PlanPreview, error)
}

// ShippingHandler serves rate quotes and package plan previews
type ShippingHandler struct {
	BaseHandler
	quoter RateQuoter
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(quoter RateQuoter) *ShippingHandler {
	return &ShippingHandler{quoter: quoter}
}

// GetRates quotes every eligible carrier for the cart and destination.
// POST /api/v1/shipping/rates
//
// 200 carries the sorted quotes plus the carriers that failed; 422 means
// no carrier produced a quote and lists why.
func (h *ShippingHandler) GetRates(c *gin.Context) {
	var req dto.RatesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, err := dto.CartItems(req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.quoter.GetRates(c.Request.Context(), shippingapp.GetRatesRequest{
		Items:       items,
		Destination: req.Destination.ToDomain(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result, dto.Meta{
		QuoteCount:     len(result.Quotes),
		FailedCarriers: len(result.CarrierErrors),
	})
}

// PreviewPackages returns the package plan and carrier routing for a cart
// without contacting any carrier.
// POST /api/v1/shipping/packages
func (h *ShippingHandler) PreviewPackages(c *gin.Context) {
	var req dto.PackagesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, err := dto.CartItems(req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	preview, err := h.quoter.PreviewPlan(items)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}
