package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

type sessionCreator interface {
	New(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
}

// Client creates hosted Checkout sessions and verifies webhooks.
type Client struct {
	sessions      sessionCreator
	webhookSecret string
}

func NewClient(secretKey, webhookSecret string) *Client {
	sc := client.New(secretKey, nil)
	return &Client{sessions: sc.CheckoutSessions, webhookSecret: webhookSecret}
}

func (c *Client) Method() domain.PaymentMethod {
	return domain.PaymentMethodStripe
}

func (c *Client) metadata(co payment.Checkout) map[string]string {
	return map[string]string{
		"bookingId":     co.Booking.ID,
		"bookingNumber": co.Booking.BookingNumber,
		"paymentId":     co.Payment.ID,
		"orderNumber":   co.Payment.OrderNumber,
		"paymentType":   string(co.Payment.PaymentType),
	}
}

// Initiate opens a card Checkout session for the fee-inclusive amount.
func (c *Client) Initiate(ctx context.Context, co payment.Checkout) (*payment.Redirect, error) {
	logger.ExternalServiceCall("stripe", "CheckoutSessions.New", "order", co.Payment.OrderNumber)

	meta := c.metadata(co)
	params := &stripego.CheckoutSessionParams{
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String("eur"),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripego.String(co.Description),
					Description: stripego.String(fmt.Sprintf("Booking %s", co.Booking.BookingNumber)),
				},
				UnitAmount: stripego.Int64(co.Payment.ChargedCents),
			},
			Quantity: stripego.Int64(1),
		}},
		SuccessURL:        stripego.String(co.SuccessURL),
		CancelURL:         stripego.String(co.CancelURL),
		ClientReferenceID: stripego.String(co.Payment.OrderNumber),
		PaymentIntentData: &stripego.CheckoutSessionPaymentIntentDataParams{Metadata: meta},
	}
	if co.Booking.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(co.Booking.CustomerEmail)
	}
	params.Context = ctx
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	sess, err := c.sessions.New(params)
	logger.ExternalServiceResult("stripe", "CheckoutSessions.New", err, "order", co.Payment.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return &payment.Redirect{
		Method:           domain.PaymentMethodStripe,
		URL:              sess.URL,
		GatewayReference: sess.ID,
		OrderNumber:      co.Payment.OrderNumber,
		ChargedCents:     co.Payment.ChargedCents,
		FeeCents:         co.Payment.FeeCents,
	}, nil
}

// WebhookEvent is the part of a Stripe event the reconciliation needs.
type WebhookEvent struct {
	ID               string
	Type             string
	Handled          bool
	PaymentID        string
	BookingID        string
	OrderNumber      string
	GatewayReference string
	AmountCents      int64
	Status           domain.PaymentRecordStatus
	Message          string
}

// ParseWebhook verifies the Stripe-Signature header and extracts the event.
// Unhandled event types come back with Handled false.
func (c *Client) ParseWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var sess stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		out.Handled = true
		out.GatewayReference = sess.ID
		out.AmountCents = sess.AmountTotal
		out.PaymentID = sess.Metadata["paymentId"]
		out.BookingID = sess.Metadata["bookingId"]
		out.OrderNumber = sess.Metadata["orderNumber"]
		if out.OrderNumber == "" {
			out.OrderNumber = sess.ClientReferenceID
		}
		switch {
		case out.Type == EventCheckoutExpired:
			out.Status = domain.PaymentRecordCancelled
			out.Message = "checkout session expired"
		case sess.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid:
			out.Status = domain.PaymentRecordAuthorized
		default:
			// Delayed methods complete the session before funds arrive.
			out.Handled = false
		}
	case EventPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to parse payment intent: %w", err)
		}
		out.Handled = true
		out.GatewayReference = pi.ID
		out.AmountCents = pi.Amount
		out.PaymentID = pi.Metadata["paymentId"]
		out.BookingID = pi.Metadata["bookingId"]
		out.OrderNumber = pi.Metadata["orderNumber"]
		out.Status = domain.PaymentRecordError
		if pi.LastPaymentError != nil {
			out.Message = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}
