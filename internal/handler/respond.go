package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/shopworks/storefront/internal/domain/auth"
	"github.com/shopworks/storefront/internal/domain/order"
	"github.com/shopworks/storefront/internal/domain/product"
	"github.com/shopworks/storefront/internal/domain/user"
)

// successBody is the `{success, data}` envelope the original API speaks.
type successBody struct {
	Success bool `json:"success"`
	Count   *int `json:"count,omitempty"`
	Data    any  `json:"data"`
}

// errorBody is the `{success, message}` error envelope.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successBody{Success: true, Data: data})
}

func respondList(w http.ResponseWriter, status, count int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successBody{Success: true, Count: &count, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Success: status < 400, Message: msg})
}

// respondError maps domain errors onto HTTP statuses. Anything unclassified
// is logged and answered with a generic 500 so internal details never reach
// the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr *order.InsufficientStockError
		qtyErr   *order.InvalidQuantityError
	)

	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())

	case errors.As(err, &stockErr),
		errors.As(err, &qtyErr),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrShippingAddressRequired),
		errors.Is(err, order.ErrNotPending),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, user.ErrNameRequired),
		errors.Is(err, user.ErrEmailRequired),
		errors.Is(err, user.ErrShortPassword),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, product.ErrNameRequired),
		errors.Is(err, product.ErrCategoryRequired),
		errors.Is(err, product.ErrNegativePrice),
		errors.Is(err, product.ErrNegativeStock):
		respondMessage(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, order.ErrNotOwner),
		errors.Is(err, product.ErrNotOwner):
		respondMessage(w, http.StatusForbidden, err.Error())

	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		respondMessage(w, http.StatusUnauthorized, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "Server Error")
	}
}

// decodeJSON reads the request body into dst, answering 400 itself on
// malformed input. The bool reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
