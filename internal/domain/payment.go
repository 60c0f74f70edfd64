package domain

import "time"

type PaymentRecordStatus string

const (
	PaymentRecordPending    PaymentRecordStatus = "pending"
	PaymentRecordAuthorized PaymentRecordStatus = "authorized"
	PaymentRecordCancelled  PaymentRecordStatus = "cancelled"
	PaymentRecordError      PaymentRecordStatus = "error"
	PaymentRecordRefunded   PaymentRecordStatus = "refunded"
)

// Settled reports whether the record has left the pending state.
func (s PaymentRecordStatus) Settled() bool {
	return s != PaymentRecordPending
}

type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeFull    PaymentType = "full"
	PaymentTypePartial PaymentType = "partial"
	PaymentTypeRefund  PaymentType = "refund"
)

type PaymentMethod string

const (
	PaymentMethodRedsys PaymentMethod = "redsys"
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodManual PaymentMethod = "manual"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodRedsys, PaymentMethodStripe, PaymentMethodManual:
		return true
	}
	return false
}

// Payment is one gateway attempt against a booking. AmountCents is the
// fee-exclusive amount credited on success; ChargedCents is what the
// gateway is asked to capture.
type Payment struct {
	ID                string              `json:"id"`
	BookingID         string              `json:"booking_id"`
	OrderNumber       string              `json:"order_number"`
	AmountCents       int64               `json:"amount_cents"`
	FeeCents          int64               `json:"fee_cents"`
	ChargedCents      int64               `json:"charged_cents"`
	Status            PaymentRecordStatus `json:"status"`
	PaymentType       PaymentType         `json:"payment_type"`
	Method            PaymentMethod       `json:"payment_method"`
	GatewayReference  string              `json:"gateway_reference,omitempty"`
	ResponseCode      string              `json:"response_code,omitempty"`
	AuthorizationCode string              `json:"authorization_code,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// PaymentOutcome is what a gateway callback (or an admin) reports for a payment.
type PaymentOutcome struct {
	Status            PaymentRecordStatus
	CapturedCents     int64
	GatewayReference  string
	ResponseCode      string
	AuthorizationCode string
	Method            PaymentMethod
	Notes             string
}
