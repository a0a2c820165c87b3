// Package api exposes the storefront over HTTP: catalog browsing, the
// device-scoped cart with discount summary, wishlists, and promotions.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ccube-shop/storefront/internal/domain/auth"
	"github.com/ccube-shop/storefront/internal/domain/cart"
	"github.com/ccube-shop/storefront/internal/domain/catalog"
	"github.com/ccube-shop/storefront/internal/domain/promo"
	"github.com/ccube-shop/storefront/internal/domain/wishlist"
)

// Handler serves the storefront API, delegating business logic to the
// injected domain services and repositories.
type Handler struct {
	products  catalog.Repository
	promos    promo.Repository
	carts     *cart.Service
	wishlists *wishlist.Service
	apikeys   auth.Repository
	pepper    string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	promos promo.Repository,
	carts *cart.Service,
	wishlists *wishlist.Service,
	apikeys auth.Repository,
	pepper string,
) *Handler {
	return &Handler{
		products:  products,
		promos:    promos,
		carts:     carts,
		wishlists: wishlists,
		apikeys:   apikeys,
		pepper:    pepper,
	}
}

// Router builds the /api route tree. Reads are public; mutations require an
// API key, and everything cart- or wishlist-shaped requires a device ID.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/promotions", h.listPromotions)

	r.Route("/cart", func(r chi.Router) {
		r.Use(h.requireDeviceID)
		r.Get("/", h.getCart)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAPIKey)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Patch("/items/{key}", h.updateCartItem)
			r.Delete("/items/{key}", h.removeCartItem)
		})
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Use(h.requireDeviceID)
		r.Get("/", h.getWishlist)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAPIKey)
			r.Put("/{productID}", h.addWishlistItem)
			r.Delete("/{productID}", h.removeWishlistItem)
		})
	})

	return r
}
