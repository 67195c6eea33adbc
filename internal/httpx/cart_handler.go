package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/redisx"
)

// CartHandler keeps the per-user cart in redis. The cart is a client-side
// convenience: order creation re-validates everything against live product
// state, so nothing here is trusted for money or stock.
type CartHandler struct {
	Redis *redis.Client
	Log   *zap.Logger
}

type cartItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type cartBody struct {
	Items []cartItem `json:"items"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Put("/cart", h.put)
	r.Delete("/cart", h.clear)
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf(redisx.KeyCart, caller.ID)
	b, err := h.Redis.Get(r.Context(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		writeJSON(w, http.StatusOK, cartBody{Items: []cartItem{}})
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *CartHandler) put(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	var body cartBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	for _, it := range body.Items {
		if it.ProductID == "" || it.Qty <= 0 {
			writeErr(w, http.StatusBadRequest, "items need a product_id and a positive qty")
			return
		}
	}

	b, _ := json.Marshal(body)
	key := fmt.Sprintf(redisx.KeyCart, caller.ID)
	if err := h.Redis.Set(r.Context(), key, b, redisx.TTLCart).Err(); err != nil {
		h.Log.Warn("cart save failed", zap.String("user_id", caller.ID), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOr401(w, r)
	if !ok {
		return
	}
	key := fmt.Sprintf(redisx.KeyCart, caller.ID)
	if err := h.Redis.Del(r.Context(), key).Err(); err != nil {
		writeErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
