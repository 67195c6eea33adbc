package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/abenezerz/chapa-shop/internal/auth"
	"github.com/abenezerz/chapa-shop/internal/catalog"
)

type CatalogHandler struct {
	Repo *catalog.Repo
	Log  *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/categories", h.listCategories)

	r.Get("/admin/products", h.adminListProducts)
	r.Post("/admin/products", h.createProduct)
	r.Put("/admin/products/{id}", h.updateProduct)
	r.Delete("/admin/products/{id}", h.deleteProduct)
	r.Post("/admin/categories", h.createCategory)
	r.Put("/admin/categories/{id}", h.updateCategory)
	r.Delete("/admin/categories/{id}", h.deleteCategory)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Repo.ListActive(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if p.Status != catalog.ProductActive {
		// inactive products are invisible to buyers
		if c, ok := auth.CallerFrom(r.Context()); !ok || c.Role != auth.RoleAdmin {
			writeErr(w, http.StatusNotFound, "product not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Repo.ListCategories(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if cs == nil {
		cs = []catalog.Category{}
	}
	writeJSON(w, http.StatusOK, cs)
}

type productReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Status      string `json:"status"`
	CategoryID  string `json:"category_id"`
}

func (req *productReq) toProduct(id string) (*catalog.Product, string) {
	if req.Name == "" {
		return nil, "missing name"
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.Sign() < 0 {
		return nil, "invalid price"
	}
	if req.Stock < 0 {
		return nil, "stock cannot be negative"
	}
	if req.Status == "" {
		req.Status = string(catalog.ProductActive)
	}
	if !catalog.ValidProductStatus(req.Status) {
		return nil, "invalid status"
	}
	return &catalog.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Stock:       req.Stock,
		Status:      catalog.ProductStatus(req.Status),
		CategoryID:  req.CategoryID,
	}, ""
}

func (h *CatalogHandler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	ps, err := h.Repo.ListAll(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, msg := req.toProduct(uuid.NewString())
	if msg != "" {
		writeErr(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.Repo.Create(r.Context(), p); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, msg := req.toProduct(chi.URLParam(r, "id"))
	if msg != "" {
		writeErr(w, http.StatusBadRequest, msg)
		return
	}
	if err := h.Repo.Update(r.Context(), p); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	if err := h.Repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryReq struct {
	Name string `json:"name"`
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeErr(w, http.StatusBadRequest, "missing name")
		return
	}
	c := &catalog.Category{ID: uuid.NewString(), Name: req.Name}
	if err := h.Repo.CreateCategory(r.Context(), c); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeErr(w, http.StatusBadRequest, "missing name")
		return
	}
	c := &catalog.Category{ID: chi.URLParam(r, "id"), Name: req.Name}
	if err := h.Repo.UpdateCategory(r.Context(), c); err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := adminOr403(w, r); !ok {
		return
	}
	if err := h.Repo.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
