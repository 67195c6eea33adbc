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
	"github.com/abenezerz/chapa-shop/internal/payments"
)

type stubPayments struct {
	initP      *payments.Payment
	initErr    error
	verifyRes  *payments.VerifyResult
	verifyErr  error
	statusRes  *payments.VerifyResult
	statusErr  error
	lastCaller *auth.Caller
	lastTxRef  string
}

func (s *stubPayments) Initialize(_ context.Context, caller *auth.Caller, _ string) (*payments.Payment, error) {
	s.lastCaller = caller
	return s.initP, s.initErr
}

func (s *stubPayments) Verify(_ context.Context, caller *auth.Caller, txRef string) (*payments.VerifyResult, error) {
	s.lastCaller = caller
	s.lastTxRef = txRef
	return s.verifyRes, s.verifyErr
}

func (s *stubPayments) Status(_ context.Context, txRef string) (*payments.VerifyResult, error) {
	s.lastTxRef = txRef
	return s.statusRes, s.statusErr
}

func paymentsRouter(svc *stubPayments, watch func(string)) chi.Router {
	r := chi.NewRouter()
	(&PaymentsHandler{Service: svc, Watch: watch, Log: zap.NewNop()}).Register(r)
	return r
}

func asUser(r *http.Request) *http.Request {
	c := &auth.Caller{ID: "user-1", Email: "buyer@example.com", Role: auth.RoleUser}
	return r.WithContext(auth.WithCaller(r.Context(), c))
}

func TestInitializeHandler(t *testing.T) {
	svc := &stubPayments{initP: &payments.Payment{
		TxRef:       "order_abc_1700000000000",
		CheckoutURL: "https://checkout.chapa.co/pay/xyz",
	}}
	var watched string
	r := paymentsRouter(svc, func(txRef string) { watched = txRef })

	req := asUser(httptest.NewRequest(http.MethodPost, "/payments/chapa/initialize",
		strings.NewReader(`{"order_id":"ord-1"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		CheckoutURL string `json:"checkout_url"`
		TxRef       string `json:"tx_ref"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://checkout.chapa.co/pay/xyz", resp.CheckoutURL)
	assert.Equal(t, "order_abc_1700000000000", resp.TxRef)
	assert.Equal(t, "order_abc_1700000000000", watched)
	assert.Equal(t, "user-1", svc.lastCaller.ID)
}

func TestInitializeHandlerRequiresAuth(t *testing.T) {
	r := paymentsRouter(&stubPayments{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/payments/chapa/initialize",
		strings.NewReader(`{"order_id":"ord-1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitializeHandlerMissingOrderID(t *testing.T) {
	r := paymentsRouter(&stubPayments{}, nil)
	req := asUser(httptest.NewRequest(http.MethodPost, "/payments/chapa/initialize",
		strings.NewReader(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitializeHandlerGatewayDown(t *testing.T) {
	svc := &stubPayments{initErr: payments.ErrGateway}
	r := paymentsRouter(svc, nil)
	req := asUser(httptest.NewRequest(http.MethodPost, "/payments/chapa/initialize",
		strings.NewReader(`{"order_id":"ord-1"}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestVerifyHandler(t *testing.T) {
	svc := &stubPayments{verifyRes: &payments.VerifyResult{
		TxRef:  "order_abc_1",
		Status: payments.StatusSuccess,
	}}
	r := paymentsRouter(svc, nil)

	req := asUser(httptest.NewRequest(http.MethodGet, "/payments/chapa/verify?tx_ref=order_abc_1", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "SUCCESS", resp.Status)
	assert.Equal(t, "order_abc_1", svc.lastTxRef)
	require.NotNil(t, svc.lastCaller)
}

func TestVerifyHandlerForbidden(t *testing.T) {
	svc := &stubPayments{verifyErr: auth.ErrForbidden}
	r := paymentsRouter(svc, nil)
	req := asUser(httptest.NewRequest(http.MethodGet, "/payments/chapa/verify?tx_ref=t", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhook(t *testing.T) {
	svc := &stubPayments{verifyRes: &payments.VerifyResult{
		TxRef:  "order_abc_1",
		Status: payments.StatusSuccess,
	}}
	r := paymentsRouter(svc, nil)

	// the claimed status in the body must be ignored
	body := `{"tx_ref":"order_abc_1","status":"success","amount":"9999.99"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/chapa/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order_abc_1", svc.lastTxRef)
	assert.Nil(t, svc.lastCaller) // webhook carries no user context

	var resp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestWebhookMissingTxRef(t *testing.T) {
	r := paymentsRouter(&stubPayments{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/payments/chapa/webhook", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUnknownPayment(t *testing.T) {
	svc := &stubPayments{verifyErr: payments.ErrPaymentNotFound}
	r := paymentsRouter(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/payments/chapa/webhook",
		strings.NewReader(`{"tx_ref":"order_ghost_1"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusHandler(t *testing.T) {
	svc := &stubPayments{statusRes: &payments.VerifyResult{
		TxRef:  "order_abc_1",
		Status: payments.StatusFailed,
		Reason: "amount mismatch",
	}}
	r := paymentsRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/payment-status?tx_ref=order_abc_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FAILED", resp["status"])
}

func TestStatusHandlerNotFound(t *testing.T) {
	// unknown references answer NOT_FOUND with a 200 so the poll loop can
	// keep going without treating it as an error
	svc := &stubPayments{statusErr: payments.ErrPaymentNotFound}
	r := paymentsRouter(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/payment-status?tx_ref=order_ghost_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp["status"])
}

func TestStatusHandlerMissingTxRef(t *testing.T) {
	r := paymentsRouter(&stubPayments{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/payment-status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
