package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/cache"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/models"
	"github.com/Cheertaboi/farmshop-subscription-service/internal/service"
)

type CreateSubscriptionRequest struct {
	Client   models.Client   `json:"client"`
	Schedule models.Schedule `json:"schedule"`
	Items    []basketLine    `json:"items"`
}

type SubscriptionHandler struct {
	subs       *service.SubscriptionService
	deliveries *service.DeliveryService
	catalog    cache.OfferingSource
	log        *slog.Logger
}

func NewSubscriptionHandler(subs *service.SubscriptionService, deliveries *service.DeliveryService, catalog cache.OfferingSource, log *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, deliveries: deliveries, catalog: catalog, log: log}
}

// Create handles POST /subscriptions
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if !decode(w, r, &req, false) {
		return
	}
	b, err := resolveBasket(r.Context(), h.catalog, req.Items)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	sub, err := h.subs.Create(r.Context(), b, req.Client, req.Schedule)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Get handles GET /subscriptions/{id}
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ListDue handles GET /subscriptions/due?as_of=YYYY-MM-DD
func (h *SubscriptionHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseDate(r.URL.Query().Get("as_of"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	subs, err := h.subs.ListDue(r.Context(), asOf)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if subs == nil {
		subs = []models.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (h *SubscriptionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subs.Pause)
}

func (h *SubscriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subs.Resume)
}

func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.subs.Cancel)
}

type transitionFn func(ctx context.Context, id string) (*models.Subscription, error)

func (h *SubscriptionHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFn) {
	sub, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Materialize handles POST /subscriptions/{id}/deliveries
// 201 for a new delivery, 200 when the due date was already materialized.
func (h *SubscriptionHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	d, created, err := h.deliveries.Materialize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	writeJSON(w, code, d)
}

// ListDeliveries handles GET /subscriptions/{id}/deliveries
func (h *SubscriptionHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	list, err := h.deliveries.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []models.Delivery{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deliveries": list})
}
