package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/osshop/checkout-api/internal/domain/order"
	"github.com/osshop/checkout-api/internal/domain/payment"
)

// ProcessPayment settles an order.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req processPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pay, err := h.payments.Process(r.Context(), p.UserID, payment.Request{
		OrderID:       req.OrderID,
		PaymentMethod: req.PaymentMethod,
		SavedMethodID: req.SavedMethodID,
		Amount:        req.Amount,
	})
	if err != nil {
		mapPaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(pay))
}

// ListPaymentMethods returns the caller's saved payment instruments.
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	methods, err := h.payments.ListMethods(r.Context(), p.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list payment methods")
		return
	}

	out := make([]savedMethodResponse, len(methods))
	for i := range methods {
		out[i] = toSavedMethodResponse(&methods[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// SavePaymentMethod stores a payment instrument reference for the caller.
func (h *Handler) SavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req savePaymentMethodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Type == "" || req.MaskedNumber == "" {
		writeError(w, http.StatusBadRequest, "type and maskedNumber are required")
		return
	}

	m := &payment.SavedMethod{
		UserID:       p.UserID,
		Type:         req.Type,
		Provider:     req.Provider,
		MaskedNumber: req.MaskedNumber,
		HolderName:   req.HolderName,
		Expiry:       req.Expiry,
	}
	if err := h.payments.SaveMethod(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save payment method")
		return
	}
	writeJSON(w, http.StatusCreated, toSavedMethodResponse(m))
}

// DeletePaymentMethod removes one of the caller's saved instruments.
func (h *Handler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	err := h.payments.DeleteMethod(r.Context(), p.UserID, chi.URLParam(r, "methodId"))
	if err != nil {
		if errors.Is(err, payment.ErrMethodNotFound) {
			writeError(w, http.StatusNotFound, "payment method not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete payment method")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapPaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, payment.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "order is already paid")
	case errors.Is(err, payment.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "payment amount is required")
	case errors.Is(err, payment.ErrMethodNotFound):
		writeError(w, http.StatusNotFound, "payment method not found")
	default:
		var insufficient *payment.InsufficientAmountError
		if errors.As(err, &insufficient) {
			writeError(w, http.StatusPaymentRequired, insufficient.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process payment")
	}
}
