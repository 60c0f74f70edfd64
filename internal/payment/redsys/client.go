package redsys

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment"
)

type Config struct {
	MerchantCode string
	Terminal     string
	SecretKey    string
	Environment  string
	MerchantName string
}

// Client builds signed Redsys payment forms.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

func (c *Client) Method() domain.PaymentMethod {
	return domain.PaymentMethodRedsys
}

func (c *Client) URL() string {
	if c.cfg.Environment == "production" {
		return ProductionURL
	}
	return TestURL
}

// Initiate signs the form the browser posts to Redsys. No network call is made.
func (c *Client) Initiate(ctx context.Context, co payment.Checkout) (*payment.Redirect, error) {
	logger.ExternalServiceCall("redsys", "Initiate", "order", co.Payment.OrderNumber)

	merchantData, err := json.Marshal(map[string]string{
		"bookingId":     co.Booking.ID,
		"bookingNumber": co.Booking.BookingNumber,
		"paymentId":     co.Payment.ID,
		"paymentType":   string(co.Payment.PaymentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode merchant data: %w", err)
	}
	txType := TransactionPayment
	if co.PreAuth {
		txType = TransactionPreAuth
	}
	params := MerchantParameters{
		Amount:             strconv.FormatInt(co.Payment.ChargedCents, 10),
		Order:              co.Payment.OrderNumber,
		MerchantCode:       c.cfg.MerchantCode,
		Currency:           CurrencyEUR,
		TransactionType:    txType,
		Terminal:           c.cfg.Terminal,
		MerchantURL:        co.NotifyURL,
		URLOK:              co.SuccessURL,
		URLKO:              co.CancelURL,
		ProductDescription: TruncateDescription(co.Description),
		ConsumerLanguage:   LanguageSpanish,
		MerchantName:       c.cfg.MerchantName,
		Titular:            co.Booking.CustomerEmail,
		MerchantData:       string(merchantData),
	}
	encoded, err := EncodeParameters(params)
	if err != nil {
		logger.ExternalServiceResult("redsys", "Initiate", err)
		return nil, err
	}
	sig, err := Sign(c.cfg.SecretKey, params.Order, encoded)
	if err != nil {
		logger.ExternalServiceResult("redsys", "Initiate", err)
		return nil, fmt.Errorf("failed to sign redsys form: %w", err)
	}
	logger.ExternalServiceResult("redsys", "Initiate", nil, "order", params.Order, "amount_cents", params.Amount)

	return &payment.Redirect{
		Method:      domain.PaymentMethodRedsys,
		URL:         c.URL(),
		FormMethod:  "POST",
		OrderNumber: co.Payment.OrderNumber,
		Fields: map[string]string{
			"Ds_SignatureVersion":   SignatureVersion,
			"Ds_MerchantParameters": encoded,
			"Ds_Signature":          sig,
		},
		ChargedCents: co.Payment.ChargedCents,
		FeeCents:     co.Payment.FeeCents,
	}, nil
}

// ParseNotification verifies and decodes a callback form.
func (c *Client) ParseNotification(signatureVersion, encodedParams, signature string) (*Notification, error) {
	if encodedParams == "" {
		return nil, domain.MissingField("Ds_MerchantParameters")
	}
	if signature == "" {
		return nil, domain.MissingField("Ds_Signature")
	}
	if signatureVersion != "" && signatureVersion != SignatureVersion {
		return nil, fmt.Errorf("%w: unsupported signature version %s", domain.ErrInvalidSignature, signatureVersion)
	}
	return Verify(c.cfg.SecretKey, encodedParams, signature)
}
