package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/orders"
)

type stubOrders struct {
	order   *orders.Order
	list    []orders.Order
	err     error
	lastIn  []orders.ItemInput
	lastID  string
	lastNew string
}

func (s *stubOrders) Create(_ context.Context, _ *auth.Caller, items []orders.ItemInput) (*orders.Order, error) {
	s.lastIn = items
	return s.order, s.err
}

func (s *stubOrders) Get(_ context.Context, _ *auth.Caller, orderID string) (*orders.Order, error) {
	s.lastID = orderID
	return s.order, s.err
}

func (s *stubOrders) List(_ context.Context, _ *auth.Caller) ([]orders.Order, error) {
	return s.list, s.err
}

func (s *stubOrders) UpdateStatus(_ context.Context, _ *auth.Caller, orderID, status string) (*orders.Order, error) {
	s.lastID = orderID
	s.lastNew = status
	return s.order, s.err
}

func ordersRouter(svc *stubOrders) chi.Router {
	r := chi.NewRouter()
	(&OrdersHandler{Service: svc, Log: zap.NewNop()}).Register(r)
	return r
}

func TestCreateOrderHandler(t *testing.T) {
	svc := &stubOrders{order: &orders.Order{ID: "ord-1", UserID: "user-1", Status: orders.StatusPending}}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"product_id":"prod-1","qty":2}]}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, svc.lastIn, 1)
	assert.Equal(t, "prod-1", svc.lastIn[0].ProductID)
	assert.Equal(t, 2, svc.lastIn[0].Qty)

	var o orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "ord-1", o.ID)
}

func TestCreateOrderHandlerRequiresAuth(t *testing.T) {
	r := ordersRouter(&stubOrders{})
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrderHandlerInvalidJSON(t *testing.T) {
	r := ordersRouter(&stubOrders{})
	req := asUser(httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHandlerInsufficientStock(t *testing.T) {
	svc := &stubOrders{err: &orders.InsufficientStockError{ProductName: "Coffee 1kg", Requested: 5, Available: 2}}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"product_id":"prod-1","qty":5}]}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Coffee 1kg")
}

func TestGetOrderHandler(t *testing.T) {
	svc := &stubOrders{order: &orders.Order{ID: "ord-1"}}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ord-1", svc.lastID)
}

func TestGetOrderHandlerNotFound(t *testing.T) {
	svc := &stubOrders{err: orders.ErrOrderNotFound}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders/ghost", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListOrdersHandlerEmpty(t *testing.T) {
	r := ordersRouter(&stubOrders{})

	req := asUser(httptest.NewRequest(http.MethodGet, "/orders", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// an empty list serializes as [], never null
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestUpdateStatusHandler(t *testing.T) {
	svc := &stubOrders{order: &orders.Order{ID: "ord-1", Status: orders.StatusCancelled}}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodPut, "/orders/ord-1/status",
		strings.NewReader(`{"status":"CANCELLED"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ord-1", svc.lastID)
	assert.Equal(t, "CANCELLED", svc.lastNew)
}

func TestUpdateStatusHandlerBadTransition(t *testing.T) {
	svc := &stubOrders{err: orders.ErrBadTransition}
	r := ordersRouter(svc)

	req := asUser(httptest.NewRequest(http.MethodPut, "/orders/ord-1/status",
		strings.NewReader(`{"status":"COMPLETED"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
