package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/catalog"
	"github.com/abenezerz/chapa-shop/internal/orders"
	"github.com/abenezerz/chapa-shop/internal/payments"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainErr maps the error taxonomy onto the HTTP surface. Unclassified
// errors become an opaque 500.
func writeDomainErr(w http.ResponseWriter, err error) {
	var stockErr *orders.InsufficientStockError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeErr(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeErr(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, payments.ErrOrderNotFound):
		writeErr(w, http.StatusNotFound, "order not found")
	case errors.Is(err, payments.ErrPaymentNotFound):
		writeErr(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrCategoryInUse):
		writeErr(w, http.StatusConflict, err.Error())
	case errors.As(err, &stockErr):
		writeErr(w, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, orders.ErrEmptyItems),
		errors.Is(err, orders.ErrInvalidQty),
		errors.Is(err, orders.ErrInvalidItems),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrBadTransition),
		errors.Is(err, payments.ErrInvalidTotal),
		errors.Is(err, payments.ErrOrderNotPayable):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrGateway):
		writeErr(w, http.StatusBadGateway, "payment gateway error")
	default:
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func callerOr401(w http.ResponseWriter, r *http.Request) (*auth.Caller, bool) {
	c, ok := auth.CallerFrom(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return c, true
}

func adminOr403(w http.ResponseWriter, r *http.Request) (*auth.Caller, bool) {
	c, ok := callerOr401(w, r)
	if !ok {
		return nil, false
	}
	if c.Role != auth.RoleAdmin {
		writeErr(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return c, true
}
