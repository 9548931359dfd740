package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/cart"
)

// GetCart returns the caller's cart, creating an empty one on first access.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	c, err := h.carts.Get(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddCartItem adds a product to the cart, capturing its catalog price.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.carts.AddItem(r.Context(), p.UserID, req.ProductID, req.Quantity)
	if err != nil {
		mapCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem removes a product line from the cart. Removing a product
// that is not in the cart is not an error.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), p.UserID, productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	if err := h.carts.Clear(r.Context(), p.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapCartError(w http.ResponseWriter, err error) {
	if errors.Is(err, cart.ErrInvalidQuantity) {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	var unavailable *client.UnavailableError
	if errors.As(err, &unavailable) {
		writeError(w, http.StatusUnprocessableEntity, "product is unavailable")
		return
	}

	writeError(w, http.StatusInternalServerError, "failed to update cart")
}
