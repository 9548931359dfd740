// Package handler exposes the checkout API over HTTP: cart management,
// order placement, payment settlement, and coupon administration. It maps
// domain results and errors onto JSON responses and owns request
// authentication.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osshop/checkout-api/internal/domain/cart"
	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/order"
	"github.com/osshop/checkout-api/internal/domain/payment"
)

// Handler carries the domain services behind the HTTP surface.
type Handler struct {
	carts    *cart.Service
	orders   *order.Workflow
	payments *payment.Processor
	coupons  *coupon.Ledger
	auth     *Authenticator
}

// NewHandler wires the API handler.
func NewHandler(
	carts *cart.Service,
	orders *order.Workflow,
	payments *payment.Processor,
	coupons *coupon.Ledger,
	auth *Authenticator,
) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		payments: payments,
		coupons:  coupons,
		auth:     auth,
	}
}

// Routes builds the API router. Every route requires a valid bearer token;
// admin routes additionally require the admin role.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.auth.Authenticate)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/add", h.AddCartItem)
		r.Delete("/remove/{productId}", h.RemoveCartItem)
		r.Delete("/clear", h.ClearCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/place", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderId}", h.GetOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/all", h.ListAllOrders)
			r.Put("/{orderId}/status", h.UpdateOrderStatus)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/process", h.ProcessPayment)
		r.Get("/methods", h.ListPaymentMethods)
		r.Post("/methods", h.SavePaymentMethod)
		r.Delete("/methods/{methodId}", h.DeletePaymentMethod)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/validate", h.ValidateCoupon)
		r.Get("/active", h.ListActiveCoupons)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.ListCoupons)
			r.Post("/", h.CreateCoupon)
			r.Put("/{code}", h.UpdateCoupon)
			r.Delete("/{code}", h.DeleteCoupon)
		})
	})

	return r
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
