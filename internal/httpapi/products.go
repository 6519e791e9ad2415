package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bedive-215/tech-store-sub001/internal/jsoncodec"
	"github.com/bedive-215/tech-store-sub001/internal/product"
)

type ProductService interface {
	Get(ctx context.Context, id string) (*product.Product, error)
	UpdateStock(ctx context.Context, id string, stock int) error
	UpdatePrice(ctx context.Context, id string, price float64) error
	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

type ProductHandler struct {
	svc ProductService
}

func NewProductHandler(svc ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) Routes(r chi.Router) {
	r.Route("/api/products/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Patch("/stock", h.UpdateStock)
		r.Patch("/price", h.UpdatePrice)
		r.Patch("/name", h.UpdateName)
	})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock *int `json:"stock"`
	}
	if err := jsoncodec.Decode(r.Body, &req); err != nil || req.Stock == nil {
		badRequest(w)
		return
	}
	h.apply(w, r, func(ctx context.Context, id string) error {
		return h.svc.UpdateStock(ctx, id, *req.Stock)
	})
}

func (h *ProductHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Price *float64 `json:"price"`
	}
	if err := jsoncodec.Decode(r.Body, &req); err != nil || req.Price == nil {
		badRequest(w)
		return
	}
	h.apply(w, r, func(ctx context.Context, id string) error {
		return h.svc.UpdatePrice(ctx, id, *req.Price)
	})
}

func (h *ProductHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := jsoncodec.Decode(r.Body, &req); err != nil {
		badRequest(w)
		return
	}
	h.apply(w, r, func(ctx context.Context, id string) error {
		return h.svc.UpdateName(ctx, id, req.Name)
	})
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) apply(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if err := change(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
