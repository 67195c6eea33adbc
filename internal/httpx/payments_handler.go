package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/payments"
	"github.com/abenezerz/chapa-shop/internal/redisx"
)

type PaymentService interface {
	Initialize(ctx context.Context, caller *auth.Caller, orderID string) (*payments.Payment, error)
	Verify(ctx context.Context, caller *auth.Caller, txRef string) (*payments.VerifyResult, error)
	Status(ctx context.Context, txRef string) (*payments.VerifyResult, error)
}

type PaymentsHandler struct {
	Service PaymentService
	Redis   *redis.Client       // optional status cache
	Watch   func(txRef string)  // optional: start a background reconciliation watcher
	Log     *zap.Logger
}

type initializeReq struct {
	OrderID string `json:"order_id"`
}

type initializeResp struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments/chapa/initialize", h.initialize)
	r.Get("/payments/chapa/verify", h.verify)
	r.Post("/payments/chapa/webhook", h.webhook)
	r.Get("/payment-status", h.status)
}

func (h *PaymentsHandler) initialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req initializeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeErr(w, http.StatusBadRequest, "missing order_id")
		return
	}

	p, err := h.Service.Initialize(r.Context(), caller, req.OrderID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if h.Watch != nil {
		// reconcile server-side even if the webhook never arrives
		h.Watch(p.TxRef)
	}
	writeJSON(w, http.StatusOK, initializeResp{CheckoutURL: p.CheckoutURL, TxRef: p.TxRef})
}

func (h *PaymentsHandler) verify(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	txRef := r.URL.Query().Get("tx_ref")
	if txRef == "" {
		writeErr(w, http.StatusBadRequest, "missing tx_ref")
		return
	}

	res, err := h.Service.Verify(r.Context(), caller, txRef)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	h.cacheStatus(r.Context(), res)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": res.Status == payments.StatusSuccess,
		"status":  res.Status,
	})
}

// webhook is invoked by the gateway, at-least-once and possibly duplicated.
// The body's claimed status is ignored entirely; only the tx_ref is read and
// the verification service re-asks the gateway itself.
func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TxRef string `json:"tx_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TxRef == "" {
		writeErr(w, http.StatusBadRequest, "missing tx_ref")
		return
	}
	h.Log.Info("chapa webhook received", zap.String("tx_ref", body.TxRef))

	res, err := h.Service.Verify(r.Context(), nil, body.TxRef)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			writeErr(w, http.StatusNotFound, "payment not found")
			return
		}
		h.Log.Error("webhook verification error", zap.String("tx_ref", body.TxRef), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.cacheStatus(r.Context(), res)
	writeJSON(w, http.StatusOK, map[string]bool{"success": res.Status == payments.StatusSuccess})
}

// status backs the return-page poll loop. Terminal answers come from the
// cache or database; a PENDING payment falls through to full verification.
func (h *PaymentsHandler) status(w http.ResponseWriter, r *http.Request) {
	txRef := r.URL.Query().Get("tx_ref")
	if txRef == "" {
		writeErr(w, http.StatusBadRequest, "missing tx_ref")
		return
	}

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, txRef)
		if cached, err := h.Redis.Get(r.Context(), key).Result(); err == nil && cached != "" {
			writeJSON(w, http.StatusOK, map[string]string{"status": cached})
			return
		}
	}

	res, err := h.Service.Status(r.Context(), txRef)
	if err != nil {
		if errors.Is(err, payments.ErrPaymentNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "NOT_FOUND"})
			return
		}
		writeDomainErr(w, err)
		return
	}
	h.cacheStatus(r.Context(), res)
	writeJSON(w, http.StatusOK, map[string]string{"status": string(res.Status)})
}

// cacheStatus caches terminal outcomes only; PENDING must always re-check.
func (h *PaymentsHandler) cacheStatus(ctx context.Context, res *payments.VerifyResult) {
	if h.Redis == nil || res.Status == payments.StatusPending {
		return
	}
	key := fmt.Sprintf(redisx.KeyPaymentStatus, res.TxRef)
	if err := h.Redis.Set(ctx, key, string(res.Status), redisx.TTLStatusCache).Err(); err != nil {
		h.Log.Warn("status cache set failed", zap.String("tx_ref", res.TxRef), zap.Error(err))
	}
}
