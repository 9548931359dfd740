package notify

import (
	"fmt"
	"strings"

	"github.com/osshop/checkout-api/internal/client"
	"github.com/osshop/checkout-api/internal/domain/order"
)

func renderPlaced(o *order.Order, u *client.User) (subject, body string) {
	subject = "Order Received - " + o.TrackingID

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(u))
	fmt.Fprintf(&b, "We received your order %s and will confirm it once payment completes.\n", o.TrackingID)
	fmt.Fprintf(&b, "Order total: %s\n", o.TotalAmount.StringFixed(2))
	return subject, b.String()
}

// renderConfirmed builds the settlement confirmation with a line-item table.
// Items whose catalog lookup degraded fall back to showing the product id.
func renderConfirmed(o *order.Order, u *client.User) (subject, body string) {
	subject = "Order Confirmation - " + o.TrackingID

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", displayName(u))
	b.WriteString("Thank you for your order! Your payment has been received.\n\n")
	fmt.Fprintf(&b, "Tracking ID: %s\n\n", o.TrackingID)
	b.WriteString("Order details:\n")

	for _, it := range o.Items {
		name := fmt.Sprintf("Product #%d", it.ProductID)
		if it.Product != nil && it.Product.Name != "" {
			name = it.Product.Name
		}
		fmt.Fprintf(&b, "  %s x%d @ %s = %s\n",
			name, it.Quantity, it.Price.StringFixed(2), it.Subtotal().StringFixed(2))
	}

	if o.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "\nDiscount (%s): -%s\n", o.CouponCode, o.DiscountAmount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", o.TotalAmount.StringFixed(2))
	b.WriteString("\nWe will notify you when your order ships.\n")
	return subject, b.String()
}

func displayName(u *client.User) string {
	if u != nil && u.FirstName != "" {
		return u.FirstName
	}
	return "there"
}
