package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/cart"
	"github.com/osshop/checkout-api/internal/domain/coupon"
	"github.com/osshop/checkout-api/internal/domain/order"
	"github.com/osshop/checkout-api/internal/domain/payment"
)

type cartItemResponse struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Product   *client.Product `json:"product,omitempty"`
}

type cartResponse struct {
	UserID      int64              `json:"userId"`
	Items       []cartItemResponse `json:"items"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal(),
			Product:   it.Product,
		}
	}
	return cartResponse{UserID: c.UserID, Items: items, TotalAmount: c.TotalAmount()}
}

type addCartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PhoneNumber     string `json:"phoneNumber"`
	CouponCode      string `json:"couponCode"`
}

type orderItemResponse struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Product   *client.Product `json:"product,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	TrackingID      string              `json:"trackingId"`
	UserID          int64               `json:"userId"`
	Items           []orderItemResponse `json:"items"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	DiscountAmount  decimal.Decimal     `json:"discountAmount"`
	CouponCode      string              `json:"couponCode,omitempty"`
	Status          order.Status        `json:"status"`
	ShippingAddress string              `json:"shippingAddress"`
	PhoneNumber     string              `json:"phoneNumber,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	User            *client.User        `json:"user,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal(),
			Product:   it.Product,
		}
	}
	return orderResponse{
		ID:              o.ID,
		TrackingID:      o.TrackingID,
		UserID:          o.UserID,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		CouponCode:      o.CouponCode,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		PhoneNumber:     o.PhoneNumber,
		CreatedAt:       o.CreatedAt,
		User:            o.User,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

type processPaymentRequest struct {
	OrderID       string           `json:"orderId"`
	PaymentMethod string           `json:"paymentMethod"`
	SavedMethodID string           `json:"savedMethodId"`
	Amount        *decimal.Decimal `json:"amount"`
}

type paymentResponse struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"orderId"`
	PaymentMethod string          `json:"paymentMethod"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Status        string          `json:"status"`
	PaymentDate   time.Time       `json:"paymentDate"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentMethod: p.PaymentMethod,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		Status:        p.Status,
		PaymentDate:   p.PaymentDate,
	}
}

type savePaymentMethodRequest struct {
	Type         string `json:"type"`
	Provider     string `json:"provider"`
	MaskedNumber string `json:"maskedNumber"`
	HolderName   string `json:"holderName"`
	Expiry       string `json:"expiry"`
}

type savedMethodResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Provider     string    `json:"provider"`
	MaskedNumber string    `json:"maskedNumber"`
	HolderName   string    `json:"holderName"`
	Expiry       string    `json:"expiry"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toSavedMethodResponse(m *payment.SavedMethod) savedMethodResponse {
	return savedMethodResponse{
		ID:           m.ID,
		Type:         m.Type,
		Provider:     m.Provider,
		MaskedNumber: m.MaskedNumber,
		HolderName:   m.HolderName,
		Expiry:       m.Expiry,
		CreatedAt:    m.CreatedAt,
	}
}

type validateCouponRequest struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
}

type validationResponse struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	MinOrderValue  decimal.Decimal `json:"minOrderValue"`
	Description    string          `json:"description,omitempty"`
	Message        string          `json:"message"`
}

func toValidationResponse(v *coupon.ValidationResult) validationResponse {
	return validationResponse{
		Valid:          v.Valid,
		Code:           v.Code,
		DiscountAmount: v.DiscountAmount,
		MinOrderValue:  v.MinOrderValue,
		Description:    v.Description,
		Message:        v.Message,
	}
}

type couponRequest struct {
	Code           string          `json:"code"`
	Description    string          `json:"description"`
	MinOrderValue  decimal.Decimal `json:"minOrderValue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Active         bool            `json:"active"`
	ExpiresAt      *time.Time      `json:"expiresAt"`
	UsageLimit     *int            `json:"usageLimit"`
}

type couponResponse struct {
	Code           string          `json:"code"`
	Description    string          `json:"description,omitempty"`
	MinOrderValue  decimal.Decimal `json:"minOrderValue"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Active         bool            `json:"active"`
	ExpiresAt      *time.Time      `json:"expiresAt,omitempty"`
	UsageLimit     *int            `json:"usageLimit,omitempty"`
	UsedCount      int             `json:"usedCount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		Code:           c.Code,
		Description:    c.Description,
		MinOrderValue:  c.MinOrderValue,
		DiscountAmount: c.DiscountAmount,
		Active:         c.Active,
		ExpiresAt:      c.ExpiresAt,
		UsageLimit:     c.UsageLimit,
		UsedCount:      c.UsedCount,
		CreatedAt:      c.CreatedAt,
	}
}

func toCouponResponses(coupons []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = toCouponResponse(&coupons[i])
	}
	return out
}
