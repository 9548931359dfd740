package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/osshop/checkout-api/internal/domain/coupon"
)

// ValidateCoupon checks a code against an order total without consuming a
// use. Invalid codes are a 200 with valid=false: rejection is a normal
// outcome here, not an error.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.coupons.Validate(r.Context(), req.Code, req.OrderTotal)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to validate coupon")
		return
	}
	writeJSON(w, http.StatusOK, toValidationResponse(result))
}

// ListActiveCoupons returns the coupons currently open for redemption.
func (h *Handler) ListActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list coupons")
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponses(coupons))
}

// ListCoupons returns every coupon including inactive ones. Admin only.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list coupons")
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponses(coupons))
}

// CreateCoupon registers a new coupon. Admin only.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "coupon code is required")
		return
	}
	if req.DiscountAmount.IsNegative() || req.MinOrderValue.IsNegative() {
		writeError(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}

	c := couponFromRequest(&req)
	if err := h.coupons.Create(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrCodeExists) {
			writeError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create coupon")
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

// UpdateCoupon overwrites a coupon's terms. Admin only.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Code = chi.URLParam(r, "code")
	c := couponFromRequest(&req)
	if err := h.coupons.Update(r.Context(), c); err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update coupon")
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

// DeleteCoupon removes a coupon. Admin only.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	err := h.coupons.Delete(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			writeError(w, http.StatusNotFound, "coupon not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete coupon")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func couponFromRequest(req *couponRequest) *coupon.Coupon {
	return &coupon.Coupon{
		Code:           req.Code,
		Description:    req.Description,
		MinOrderValue:  req.MinOrderValue,
		DiscountAmount: req.DiscountAmount,
		Active:         req.Active,
		ExpiresAt:      req.ExpiresAt,
		UsageLimit:     req.UsageLimit,
	}
}
