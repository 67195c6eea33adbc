package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/orders"
)

type OrderService interface {
	Create(ctx context.Context, caller *auth.Caller, items []orders.ItemInput) (*orders.Order, error)
	Get(ctx context.Context, caller *auth.Caller, orderID string) (*orders.Order, error)
	List(ctx context.Context, caller *auth.Caller) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, caller *auth.Caller, orderID, status string) (*orders.Order, error)
}

type OrdersHandler struct {
	Service OrderService
	Log     *zap.Logger
}

type createOrderReq struct {
	Items []orders.ItemInput `json:"items"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Put("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	o, err := h.Service.Create(r.Context(), caller, req.Items)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	out, err := h.Service.List(r.Context(), caller)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	o, err := h.Service.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.Service.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
