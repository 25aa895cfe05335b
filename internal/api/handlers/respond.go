package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/farmshop-subscription-service/internal/apperr"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// basketLine is how clients submit a basket: product ids and quantities only.
// Everything else comes from the catalog.
type basketLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	var (
		ve *apperr.ValidationError
		se *apperr.StateError
		nf *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &se):
		return http.StatusConflict
	case errors.As(err, &nf):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": kind, "message": ...}. Storage
// details stay in the log.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := statusOf(err)
	kind := string(apperr.KindOf(err))
	msg := apperr.Message(err)
	if code == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		if kind == "" {
			kind, msg = "InternalError", "internal error"
		}
	}
	writeJSON(w, code, errorBody{Error: kind, Message: msg})
}

// decode reads a JSON body. An empty body leaves v untouched when optional.
func decode(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	if optional && r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "InvalidBody", Message: err.Error()})
		return false
	}
	return true
}

// parseDate reads an optional YYYY-MM-DD value; empty gives the zero date.
func parseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, apperr.Validation(apperr.InvalidInput, "invalid date %q, use YYYY-MM-DD", s)
	}
	return d, nil
}
