package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/domain/promo"
)

type productResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Price       catalog.PriceSpec `json:"price"`
	BasePrice   float64           `json:"base_price"`
	Sizes       []string          `json:"sizes,omitempty"`
	Colors      []string          `json:"colors,omitempty"`
	Scents      []string          `json:"scents,omitempty"`
	Images      []string          `json:"images,omitempty"`
	InStock     bool              `json:"in_stock"`
	Featured    bool              `json:"featured"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		BasePrice:   money(p.BasePrice),
		Sizes:       p.Sizes,
		Colors:      p.Colors,
		Scents:      p.Scents,
		Images:      p.Images,
		InStock:     p.InStock,
		Featured:    p.Featured,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	products, err := h.products.List(r.Context(), category)
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list products")
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("get product", zap.String("id", id), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, r, http.StatusOK, toProductResponse(*p))
}

type promotionResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Description        string   `json:"description"`
	BuyQuantity        int      `json:"buy_quantity"`
	FreeQuantity       int      `json:"free_quantity"`
	ApplicableProducts []string `json:"applicable_products"`
}

func toPromotionResponse(rule promo.Rule) promotionResponse {
	return promotionResponse{
		ID:                 rule.ID,
		Name:               rule.Name,
		Type:               string(rule.Type),
		Description:        rule.Description(),
		BuyQuantity:        rule.BuyQuantity,
		FreeQuantity:       rule.FreeQuantity,
		ApplicableProducts: rule.ApplicableProducts,
	}
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	rules, err := h.promos.ListActive(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list promotions", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list promotions")
		return
	}

	out := make([]promotionResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toPromotionResponse(rule))
	}
	writeJSON(w, r, http.StatusOK, out)
}
