package payment

import (
	"context"

	"motorhome-booking-backend/internal/domain"
)

// Checkout is one payment attempt handed to a gateway.
type Checkout struct {
	Booking     *domain.Booking
	Payment     *domain.Payment
	Description string
	SuccessURL  string
	CancelURL   string
	NotifyURL   string
	PreAuth     bool
}

// Redirect tells the client where to send the customer. Form gateways fill
// Fields and expect a POST; hosted pages only set URL.
type Redirect struct {
	Method           domain.PaymentMethod `json:"payment_method"`
	URL              string               `json:"url"`
	FormMethod       string               `json:"form_method,omitempty"`
	Fields           map[string]string    `json:"fields,omitempty"`
	GatewayReference string               `json:"gateway_reference,omitempty"`
	OrderNumber      string               `json:"order_number"`
	ChargedCents     int64                `json:"charged_cents"`
	FeeCents         int64                `json:"fee_cents"`
}

// Gateway starts payments with one provider.
type Gateway interface {
	Method() domain.PaymentMethod
	Initiate(ctx context.Context, c Checkout) (*Redirect, error)
}
