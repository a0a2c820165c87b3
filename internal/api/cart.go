package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/ccube-shop/storefront/internal/domain/cart"
	"github.com/ccube-shop/storefront/internal/domain/catalog"
)

type cartLineResponse struct {
	Key       string  `json:"key"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Scent     string  `json:"scent"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type freeItemResponse struct {
	Key          string  `json:"key"`
	ProductID    string  `json:"product_id"`
	FreeQuantity int     `json:"free_quantity"`
	Savings      float64 `json:"savings"`
}

type discountedItemResponse struct {
	Key              string `json:"key"`
	ProductID        string `json:"product_id"`
	OriginalQuantity int    `json:"original_quantity"`
	PaidQuantity     int    `json:"paid_quantity"`
	FreeQuantity     int    `json:"free_quantity"`
}

type appliedDiscountResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Type                 string `json:"type"`
	BuyQuantity          int    `json:"buy_quantity"`
	FreeQuantity         int    `json:"free_quantity"`
	SetsEligible         int    `json:"sets_eligible"`
	TotalFreeItems       int    `json:"total_free_items"`
	TotalApplicableItems int    `json:"total_applicable_items"`
}

type discountResponse struct {
	TotalSavings    float64                   `json:"total_savings"`
	Applied         []appliedDiscountResponse `json:"applied"`
	FreeItems       []freeItemResponse        `json:"free_items"`
	DiscountedItems []discountedItemResponse  `json:"discounted_items"`
}

type progressResponse struct {
	PromotionID      string  `json:"promotion_id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Eligible         bool    `json:"eligible"`
	ItemsNeeded      int     `json:"items_needed"`
	CurrentQuantity  int     `json:"current_quantity"`
	PotentialSavings float64 `json:"potential_savings"`
}

type totalsResponse struct {
	Subtotal              float64 `json:"subtotal"`
	DiscountSavings       float64 `json:"discount_savings"`
	SubtotalAfterDiscount float64 `json:"subtotal_after_discount"`
	Tax                   float64 `json:"tax"`
	Total                 float64 `json:"total"`
}

type cartResponse struct {
	DeviceID  string             `json:"device_id"`
	Items     []cartLineResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Discount  discountResponse   `json:"discount"`
	Progress  []progressResponse `json:"progress"`
	Totals    totalsResponse     `json:"totals"`
}

func toCartResponse(v *cart.View) cartResponse {
	items := make([]cartLineResponse, 0, len(v.Lines))
	for _, l := range v.Lines {
		name := ""
		if l.Product != nil {
			name = l.Product.Name
		}
		items = append(items, cartLineResponse{
			Key:       l.Key,
			ProductID: l.ProductID,
			Name:      name,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
			Scent:     l.Scent,
			UnitPrice: money(l.UnitPrice),
			LineTotal: money(l.LineTotal),
		})
	}

	applied := make([]appliedDiscountResponse, 0, len(v.Discount.Applied))
	for _, a := range v.Discount.Applied {
		applied = append(applied, appliedDiscountResponse{
			ID:                   a.Rule.ID,
			Name:                 a.Rule.Name,
			Description:          a.Rule.Description(),
			Type:                 string(a.Rule.Type),
			BuyQuantity:          a.Result.Info.BuyQuantity,
			FreeQuantity:         a.Result.Info.FreeQuantity,
			SetsEligible:         a.Result.Info.SetsEligible,
			TotalFreeItems:       a.Result.Info.TotalFreeItems,
			TotalApplicableItems: a.Result.Info.TotalApplicableItems,
		})
	}

	freeItems := make([]freeItemResponse, 0, len(v.Discount.FreeItems))
	for _, f := range v.Discount.FreeItems {
		freeItems = append(freeItems, freeItemResponse{
			Key:          f.Key,
			ProductID:    f.ProductID,
			FreeQuantity: f.FreeQuantity,
			Savings:      money(f.Savings),
		})
	}

	discountedItems := make([]discountedItemResponse, 0, len(v.Discount.DiscountedItems))
	for _, d := range v.Discount.DiscountedItems {
		discountedItems = append(discountedItems, discountedItemResponse{
			Key:              d.Key,
			ProductID:        d.ProductID,
			OriginalQuantity: d.OriginalQuantity,
			PaidQuantity:     d.PaidQuantity,
			FreeQuantity:     d.FreeQuantity,
		})
	}

	progress := make([]progressResponse, 0, len(v.Progress))
	for _, p := range v.Progress {
		progress = append(progress, progressResponse{
			PromotionID:      p.Rule.ID,
			Name:             p.Rule.Name,
			Description:      p.Description,
			Eligible:         p.Eligible,
			ItemsNeeded:      p.ItemsNeeded,
			CurrentQuantity:  p.CurrentQuantity,
			PotentialSavings: money(p.PotentialSavings),
		})
	}

	return cartResponse{
		DeviceID:  v.Cart.DeviceID,
		Items:     items,
		ItemCount: v.Cart.ItemCount(),
		Discount: discountResponse{
			TotalSavings:    money(v.Discount.TotalSavings),
			Applied:         applied,
			FreeItems:       freeItems,
			DiscountedItems: discountedItems,
		},
		Progress: progress,
		Totals: totalsResponse{
			Subtotal:              money(v.Totals.Subtotal),
			DiscountSavings:       money(v.Totals.DiscountSavings),
			SubtotalAfterDiscount: money(v.Totals.SubtotalAfterDiscount),
			Tax:                   money(v.Totals.Tax),
			Total:                 money(v.Totals.Total),
		},
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())

	view, err := h.carts.Summarize(r.Context(), deviceID)
	if err != nil {
		zctx.From(r.Context()).Error("summarize cart", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, r, http.StatusOK, toCartResponse(view))
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Scent     string `json:"scent"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeError(w, r, http.StatusBadRequest, "product_id is required")
		return
	}

	_, err := h.carts.AddItem(r.Context(), deviceID, req.ProductID, req.Quantity, req.Size, req.Color, req.Scent)
	if err != nil {
		h.writeCartError(w, r, err, "add cart item")
		return
	}
	h.respondWithCart(w, r, deviceID, http.StatusCreated)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())
	key := chi.URLParam(r, "key")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.carts.UpdateQuantity(r.Context(), deviceID, key, req.Quantity)
	if err != nil {
		h.writeCartError(w, r, err, "update cart item")
		return
	}
	h.respondWithCart(w, r, deviceID, http.StatusOK)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())
	key := chi.URLParam(r, "key")

	if _, err := h.carts.RemoveItem(r.Context(), deviceID, key); err != nil {
		h.writeCartError(w, r, err, "remove cart item")
		return
	}
	h.respondWithCart(w, r, deviceID, http.StatusOK)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())

	if err := h.carts.Clear(r.Context(), deviceID); err != nil {
		zctx.From(r.Context()).Error("clear cart", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondWithCart returns the full priced summary after a mutation so the
// client never needs a second round trip to refresh totals.
func (h *Handler) respondWithCart(w http.ResponseWriter, r *http.Request, deviceID string, status int) {
	view, err := h.carts.Summarize(r.Context(), deviceID)
	if err != nil {
		zctx.From(r.Context()).Error("summarize cart", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, r, status, toCartResponse(view))
}

func (h *Handler) writeCartError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var invalidQty *cart.InvalidQuantityError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrItemNotFound):
		writeError(w, r, http.StatusNotFound, "cart item not found")
	case errors.As(err, &invalidQty):
		writeError(w, r, http.StatusBadRequest, invalidQty.Error())
	default:
		zctx.From(r.Context()).Error(op, zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "cart operation failed")
	}
}
