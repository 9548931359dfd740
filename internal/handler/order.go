package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/order"
)

// PlaceOrder converts the caller's cart into an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ShippingAddress == "" {
		writeError(w, http.StatusBadRequest, "shipping address is required")
		return
	}

	o, err := h.orders.PlaceOrder(r.Context(), p.UserID, order.PlaceRequest{
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ListOrders returns the caller's order history, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	orders, err := h.orders.ListForUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// GetOrder returns a single order. Non-admin callers only see their own.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		mapOrderError(w, err)
		return
	}
	if o.UserID != p.UserID && p.Role != RoleAdmin {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListAllOrders returns every order. Admin only.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateOrderStatus applies an admin status change taken from the "status"
// query parameter.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := order.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), status)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func mapOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		var invalid *coupon.InvalidError
		if errors.As(err, &invalid) {
			writeError(w, http.StatusUnprocessableEntity, invalid.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process order")
	}
}
