package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/basket"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/cache"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/pricing"
)

type BasketRequest struct {
	Items      []basketLine      `json:"items"`
	ProductID  string            `json:"product_id,omitempty"`
	ClientType models.ClientType `json:"client_type,omitempty"`
}

type BasketResponse struct {
	Basket basket.Basket   `json:"basket"`
	Totals *pricing.Totals `json:"totals,omitempty"`
}

// BasketHandler serves the quantity selector and price quotes. It keeps no
// state: the client sends its current basket with every call.
type BasketHandler struct {
	catalog cache.OfferingSource
	pricing *pricing.Calculator
	log     *slog.Logger
}

func NewBasketHandler(catalog cache.OfferingSource, calc *pricing.Calculator, log *slog.Logger) *BasketHandler {
	return &BasketHandler{catalog: catalog, pricing: calc, log: log}
}

// resolveBasket rebuilds a basket from submitted lines using catalog offerings.
func resolveBasket(ctx context.Context, catalog cache.OfferingSource, lines []basketLine) (basket.Basket, error) {
	var b basket.Basket
	for _, l := range lines {
		if l.ProductID == "" {
			return b, apperr.Validation(apperr.InvalidInput, "basket line without product_id")
		}
		o, err := catalog.GetOffering(ctx, l.ProductID)
		if err != nil {
			return b, err
		}
		if b, err = basket.Set(b, *o, l.Quantity); err != nil {
			return b, err
		}
	}
	return b, nil
}

// Increment handles POST /baskets/increment
func (h *BasketHandler) Increment(w http.ResponseWriter, r *http.Request) {
	var req BasketRequest
	if !decode(w, r, &req, false) {
		return
	}
	b, err := resolveBasket(r.Context(), h.catalog, req.Items)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	o, err := h.catalog.GetOffering(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BasketResponse{Basket: basket.Increment(b, *o)})
}

// Decrement handles POST /baskets/decrement
func (h *BasketHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	var req BasketRequest
	if !decode(w, r, &req, false) {
		return
	}
	b, err := resolveBasket(r.Context(), h.catalog, req.Items)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, BasketResponse{Basket: basket.Decrement(b, req.ProductID)})
}

// Quote handles POST /baskets/quote
func (h *BasketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req BasketRequest
	if !decode(w, r, &req, false) {
		return
	}
	b, err := resolveBasket(r.Context(), h.catalog, req.Items)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lines := make([]pricing.Line, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = pricing.Line{Quantity: l.Quantity, UnitPrice: l.Offering.UnitPrice}
	}
	totals := h.pricing.Quote(lines, req.ClientType)
	writeJSON(w, http.StatusOK, BasketResponse{Basket: b, Totals: &totals})
}
