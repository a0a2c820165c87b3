package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ccube-shop/storefront/internal/domain/catalog"
)

type wishlistItemResponse struct {
	Product productResponse `json:"product"`
	AddedAt time.Time       `json:"added_at"`
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())

	items, err := h.wishlists.List(r.Context(), deviceID)
	if err != nil {
		zctx.From(r.Context()).Error("list wishlist", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load wishlist")
		return
	}

	out := make([]wishlistItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, wishlistItemResponse{
			Product: toProductResponse(it.Product),
			AddedAt: it.AddedAt,
		})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *Handler) addWishlistItem(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.wishlists.Add(r.Context(), deviceID, productID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("add wishlist item", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to update wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.wishlists.Remove(r.Context(), deviceID, productID); err != nil {
		zctx.From(r.Context()).Error("remove wishlist item", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to update wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
