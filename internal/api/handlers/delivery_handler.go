package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/service"
)

type FulfillRequest struct {
	// delivery item id -> delivered quantity; omitted items were delivered as ordered
	Delivered map[string]decimal.Decimal `json:"delivered,omitempty"`
}

type DeliveryHandler struct {
	deliveries *service.DeliveryService
	sweeper    *service.Sweeper
	log        *slog.Logger
}

func NewDeliveryHandler(deliveries *service.DeliveryService, sweeper *service.Sweeper, log *slog.Logger) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries, sweeper: sweeper, log: log}
}

// Get handles GET /deliveries/{id}
func (h *DeliveryHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.deliveries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Fulfill handles POST /deliveries/{id}/fulfill
func (h *DeliveryHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	var req FulfillRequest
	if !decode(w, r, &req, true) {
		return
	}
	d, err := h.deliveries.Fulfill(r.Context(), chi.URLParam(r, "id"), req.Delivered)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Skip handles POST /deliveries/{id}/skip
func (h *DeliveryHandler) Skip(w http.ResponseWriter, r *http.Request) {
	d, err := h.deliveries.Skip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Sweep handles POST /admin/sweeps?as_of=YYYY-MM-DD
func (h *DeliveryHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	report, err := h.sweeper.Run(r.Context(), asOf)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
