package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

type catalogInvalidator interface {
	Invalidate(productID string)
}

// CatalogHandler lets the storefront drop cached offerings after a catalog
// edit instead of waiting for the TTL.
type CatalogHandler struct {
	cache catalogInvalidator
	log   *slog.Logger
}

func NewCatalogHandler(cache catalogInvalidator, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{cache: cache, log: log}
}

// Invalidate handles POST /admin/catalog/invalidate?product_id=
// Without product_id the whole cache is dropped.
func (h *CatalogHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("product_id"))
	h.cache.Invalidate(productID)
	h.log.Info("catalog cache invalidated", "product_id", productID)
	w.WriteHeader(http.StatusNoContent)
}
