package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"

	"motorhome-booking-backend/internal/cache"
	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/payment/redsys"
	"motorhome-booking-backend/internal/payment/stripe"
	"motorhome-booking-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	redsysTestKey     = "sq7HjrUOBfKmC576ILgskD5srU870gJ7"
	stripeTestSecret  = "whsec_test_secret"
	testOrderNumber   = "060110000000"
	stripeOrderNumber = "060110000001"
)

type paymentFixture struct {
	bookings *MockBookingRepo
	payments *MockPaymentRepo
	notifier *recordingNotifier
	svc      PaymentService
}

func newPaymentFixture(gw Gateways) *paymentFixture {
	f := &paymentFixture{
		bookings: new(MockBookingRepo),
		payments: new(MockPaymentRepo),
		notifier: &recordingNotifier{},
	}
	f.svc = NewPaymentService(f.bookings, f.payments, gw, cache.NewMemoryStore(), f.notifier, testSettings())
	return f
}

func redsysGateway() Gateways {
	return Gateways{Redsys: redsys.NewClient(redsys.Config{MerchantCode: "999008881", Terminal: "001", SecretKey: redsysTestKey})}
}

// expectSettle runs the credit callback against b, the way the repository
// does inside its transaction.
func (f *paymentFixture) expectSettle(paymentID string, status domain.PaymentRecordStatus, b *domain.Booking, p *domain.Payment) *mock.Call {
	return f.payments.On("Settle", mock.Anything, paymentID,
		mock.MatchedBy(func(o domain.PaymentOutcome) bool { return o.Status == status }), mock.Anything).
		Run(func(args mock.Arguments) {
			fn, _ := args.Get(3).(repository.SettleFunc)
			settled := *p
			settled.Status = status
			if fn != nil && status == domain.PaymentRecordAuthorized {
				if err := fn(b, &settled); err != nil {
					panic(err)
				}
			}
		}).
		Return(b, &domain.Payment{ID: p.ID, OrderNumber: p.OrderNumber, AmountCents: p.AmountCents, ChargedCents: p.ChargedCents, Status: status}, nil)
}

func pendingPayment(id, order string, amount, fee int64, method domain.PaymentMethod) *domain.Payment {
	return &domain.Payment{
		ID: id, BookingID: "b-1", OrderNumber: order,
		AmountCents: amount, FeeCents: fee, ChargedCents: amount + fee,
		Status: domain.PaymentRecordPending, PaymentType: domain.PaymentTypeDeposit, Method: method,
	}
}

func unpaidBooking() *domain.Booking {
	return &domain.Booking{
		ID: "b-1", BookingNumber: "FG12345678", TotalPriceCents: 30000,
		Status: domain.BookingStatusPending, PaymentStatus: domain.PaymentStatusPending,
		CustomerName: "Ana", CustomerEmail: "ana@example.com",
	}
}

func redsysForm(t *testing.T, order, amount, response string) (string, string) {
	t.Helper()
	raw, err := json.Marshal(redsys.Notification{Order: order, Amount: amount, Response: response, AuthorisationCode: "123456"})
	require.NoError(t, err)
	params := base64.StdEncoding.EncodeToString(raw)
	sig, err := redsys.Sign(redsysTestKey, order, params)
	require.NoError(t, err)
	return params, sig
}

func TestPaymentService_InitiatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Redsys first installment", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		f.bookings.On("GetByID", mock.Anything, "b-1").Return(unpaidBooking(), nil)
		var created *domain.Payment
		f.payments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*domain.Payment)
				created.ID = "p-1"
			}).Return(nil)

		r, err := f.svc.InitiatePayment(ctx, "b-1", domain.PaymentMethodRedsys, "")
		require.NoError(t, err)
		assert.Equal(t, redsys.TestURL, r.URL)
		assert.NotEmpty(t, r.Fields["Ds_Signature"])
		assert.Equal(t, testOrderNumber, r.OrderNumber)

		require.NotNil(t, created)
		assert.Equal(t, int64(15000), created.AmountCents)
		assert.Equal(t, int64(0), created.FeeCents)
		assert.Equal(t, int64(15000), created.ChargedCents)
		assert.Equal(t, domain.PaymentTypeDeposit, created.PaymentType)
		assert.Equal(t, domain.PaymentRecordPending, created.Status)
	})

	t.Run("Gateway not configured", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		_, err := f.svc.InitiatePayment(ctx, "b-1", domain.PaymentMethodStripe, payment.ModeFull)
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	})

	t.Run("Nothing left to pay", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		b.AmountPaidCents = b.TotalPriceCents
		b.PaymentStatus = domain.PaymentStatusPaid
		f.bookings.On("GetByID", mock.Anything, "b-1").Return(b, nil)

		_, err := f.svc.InitiatePayment(ctx, "b-1", domain.PaymentMethodRedsys, payment.ModeFull)
		assert.ErrorIs(t, err, domain.ErrNothingToPay)
		f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Cancelled booking", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		b.Status = domain.BookingStatusCancelled
		f.bookings.On("GetByID", mock.Anything, "b-1").Return(b, nil)

		_, err := f.svc.InitiatePayment(ctx, "b-1", domain.PaymentMethodRedsys, "")
		assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	})

	t.Run("Gateway failure marks the payment as failed", func(t *testing.T) {
		f := newPaymentFixture(Gateways{Redsys: redsys.NewClient(redsys.Config{SecretKey: "c2hvcnQ="})})
		f.bookings.On("GetByID", mock.Anything, "b-1").Return(unpaidBooking(), nil)
		f.payments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).
			Run(func(args mock.Arguments) { args.Get(1).(*domain.Payment).ID = "p-1" }).Return(nil)
		f.payments.On("Settle", mock.Anything, "p-1",
			mock.MatchedBy(func(o domain.PaymentOutcome) bool { return o.Status == domain.PaymentRecordError }), mock.Anything).
			Return(nil, nil, nil)

		_, err := f.svc.InitiatePayment(ctx, "b-1", domain.PaymentMethodRedsys, "")
		assert.Error(t, err)
		f.payments.AssertNumberOfCalls(t, "Settle", 1)
	})
}

func TestPaymentService_HandleRedsysNotification(t *testing.T) {
	ctx := context.Background()

	t.Run("Authorised first payment confirms the booking", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		p := pendingPayment("p-1", testOrderNumber, 15000, 0, domain.PaymentMethodRedsys)
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(p, nil)
		f.expectSettle("p-1", domain.PaymentRecordAuthorized, b, p)

		params, sig := redsysForm(t, testOrderNumber, "15000", "0000")
		settled, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRecordAuthorized, settled.Status)
		assert.Equal(t, int64(15000), b.AmountPaidCents)
		assert.Equal(t, domain.PaymentStatusPartial, b.PaymentStatus)
		assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
		assert.Equal(t, []NotificationKind{NotifyFirstPayment}, f.notifier.sent())
	})

	t.Run("Repeated notification is processed once", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		p := pendingPayment("p-1", testOrderNumber, 15000, 0, domain.PaymentMethodRedsys)
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(p, nil)
		f.expectSettle("p-1", domain.PaymentRecordAuthorized, b, p)

		params, sig := redsysForm(t, testOrderNumber, "15000", "0000")
		_, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		require.NoError(t, err)
		_, err = f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		require.NoError(t, err)

		f.payments.AssertNumberOfCalls(t, "Settle", 1)
		assert.Equal(t, int64(15000), b.AmountPaidCents)
	})

	t.Run("Denied payment", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		p := pendingPayment("p-1", testOrderNumber, 15000, 0, domain.PaymentMethodRedsys)
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(p, nil)
		f.expectSettle("p-1", domain.PaymentRecordError, b, p)

		params, sig := redsysForm(t, testOrderNumber, "15000", "0190")
		settled, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRecordError, settled.Status)
		assert.Equal(t, int64(0), b.AmountPaidCents)
		assert.Equal(t, domain.BookingStatusPending, b.Status)
	})

	t.Run("Captured amount differs", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		p := pendingPayment("p-1", testOrderNumber, 15000, 0, domain.PaymentMethodRedsys)
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(p, nil)
		f.expectSettle("p-1", domain.PaymentRecordError, b, p)

		params, sig := redsysForm(t, testOrderNumber, "14000", "0000")
		_, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		assert.ErrorIs(t, err, domain.ErrPaymentAmountMismatch)
		assert.Equal(t, int64(0), b.AmountPaidCents)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("Bad signature", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		params, _ := redsysForm(t, testOrderNumber, "15000", "0000")
		_, sig := redsysForm(t, "060110000099", "15000", "0000")

		_, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		f.payments.AssertNotCalled(t, "GetByOrderNumber", mock.Anything, mock.Anything)
	})

	t.Run("Unknown order can be retried", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(nil, domain.ErrNotFound)

		params, sig := redsysForm(t, testOrderNumber, "15000", "0000")
		_, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		f.payments.AssertNumberOfCalls(t, "GetByOrderNumber", 2)
	})

	t.Run("Booking cancelled before the capture", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		b := unpaidBooking()
		b.Status = domain.BookingStatusCancelled
		p := pendingPayment("p-1", testOrderNumber, 15000, 0, domain.PaymentMethodRedsys)
		f.payments.On("GetByOrderNumber", mock.Anything, testOrderNumber).Return(p, nil)
		f.payments.On("Settle", mock.Anything, "p-1",
			mock.MatchedBy(func(o domain.PaymentOutcome) bool { return o.Status == domain.PaymentRecordAuthorized }), mock.Anything).
			Return(nil, nil, domain.NewValidationError(domain.ErrInvalidStatusTransition, "booking", "cancelled"))
		f.payments.On("Settle", mock.Anything, "p-1",
			mock.MatchedBy(func(o domain.PaymentOutcome) bool { return o.Status == domain.PaymentRecordError }), mock.Anything).
			Return(nil, nil, nil)

		params, sig := redsysForm(t, testOrderNumber, "15000", "0000")
		_, err := f.svc.HandleRedsysNotification(ctx, redsys.SignatureVersion, params, sig)
		assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
		f.payments.AssertNumberOfCalls(t, "Settle", 2)
	})
}

func stripeEvent(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    stripeTestSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func TestPaymentService_HandleStripeWebhook(t *testing.T) {
	ctx := context.Background()
	gw := Gateways{Stripe: stripe.NewClient("sk_test_x", stripeTestSecret)}

	t.Run("Second installment completes the booking", func(t *testing.T) {
		f := newPaymentFixture(gw)
		b := unpaidBooking()
		b.AmountPaidCents = 15000
		b.Status = domain.BookingStatusConfirmed
		b.PaymentStatus = domain.PaymentStatusPartial
		p := pendingPayment("p-2", stripeOrderNumber, 15000, 300, domain.PaymentMethodStripe)
		f.payments.On("GetByID", mock.Anything, "p-2").Return(p, nil)
		f.expectSettle("p-2", domain.PaymentRecordAuthorized, b, p)

		body, header := stripeEvent(t, `{
			"id": "evt_1", "object": "event", "type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_test_1", "object": "checkout.session", "amount_total": 15300,
				"payment_status": "paid", "client_reference_id": "060110000001",
				"metadata": {"paymentId": "p-2", "bookingId": "b-1", "orderNumber": "060110000001"}
			}}
		}`)
		require.NoError(t, f.svc.HandleStripeWebhook(ctx, body, header))
		assert.Equal(t, int64(30000), b.AmountPaidCents)
		assert.Equal(t, domain.PaymentStatusPaid, b.PaymentStatus)
		assert.Equal(t, []NotificationKind{NotifySecondPayment}, f.notifier.sent())

		// Stripe retries deliver the same event id.
		require.NoError(t, f.svc.HandleStripeWebhook(ctx, body, header))
		f.payments.AssertNumberOfCalls(t, "Settle", 1)
	})

	t.Run("Unhandled event", func(t *testing.T) {
		f := newPaymentFixture(gw)
		body, header := stripeEvent(t, `{"id": "evt_2", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`)
		require.NoError(t, f.svc.HandleStripeWebhook(ctx, body, header))
		f.payments.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Bad signature", func(t *testing.T) {
		f := newPaymentFixture(gw)
		body, _ := stripeEvent(t, `{"id": "evt_3", "object": "event", "type": "customer.created"}`)
		err := f.svc.HandleStripeWebhook(ctx, body, "t=1,v1=deadbeef")
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("Stripe not configured", func(t *testing.T) {
		f := newPaymentFixture(redsysGateway())
		err := f.svc.HandleStripeWebhook(ctx, []byte("{}"), "")
		assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	})
}

func TestPaymentService_ConfirmManualPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Bank transfer", func(t *testing.T) {
		f := newPaymentFixture(Gateways{})
		b := unpaidBooking()
		p := pendingPayment("p-3", "060110000002", 15000, 0, domain.PaymentMethodManual)
		f.payments.On("GetByID", mock.Anything, "p-3").Return(p, nil)
		f.payments.On("Settle", mock.Anything, "p-3",
			mock.MatchedBy(func(o domain.PaymentOutcome) bool {
				return o.Status == domain.PaymentRecordAuthorized && o.Method == domain.PaymentMethodManual && o.Notes == "transfer 42"
			}), mock.Anything).
			Run(func(args mock.Arguments) {
				fn := args.Get(3).(repository.SettleFunc)
				require.NoError(t, fn(b, p))
			}).
			Return(b, &domain.Payment{ID: "p-3", OrderNumber: "060110000002", Status: domain.PaymentRecordAuthorized}, nil)

		settled, err := f.svc.ConfirmManualPayment(ctx, "p-3", "", "transfer 42")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRecordAuthorized, settled.Status)
		assert.Equal(t, int64(15000), b.AmountPaidCents)
		assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	})

	t.Run("Already settled", func(t *testing.T) {
		f := newPaymentFixture(Gateways{})
		p := pendingPayment("p-3", "060110000002", 15000, 0, domain.PaymentMethodManual)
		p.Status = domain.PaymentRecordAuthorized
		f.payments.On("GetByID", mock.Anything, "p-3").Return(p, nil)

		_, err := f.svc.ConfirmManualPayment(ctx, "p-3", domain.PaymentMethodManual, "")
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
		f.payments.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Settled concurrently", func(t *testing.T) {
		f := newPaymentFixture(Gateways{})
		p := pendingPayment("p-3", "060110000002", 15000, 0, domain.PaymentMethodManual)
		f.payments.On("GetByID", mock.Anything, "p-3").Return(p, nil)
		f.payments.On("Settle", mock.Anything, "p-3", mock.Anything, mock.Anything).
			Return(nil, nil, domain.ErrAlreadySettled)

		settled, err := f.svc.ConfirmManualPayment(ctx, "p-3", "", "")
		require.NoError(t, err)
		assert.Equal(t, "p-3", settled.ID)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("Unknown method", func(t *testing.T) {
		f := newPaymentFixture(Gateways{})
		_, err := f.svc.ConfirmManualPayment(ctx, "p-3", "cash", "")
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})
}
