package service

import (
	"context"
	"errors"
	"fmt"

	"motorhome-booking-backend/internal/cache"
	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/payment/redsys"
	"motorhome-booking-backend/internal/payment/stripe"
	"motorhome-booking-backend/internal/repository"
)

// Gateways are the configured payment providers. Nil entries are disabled.
type Gateways struct {
	Redsys *redsys.Client
	Stripe *stripe.Client
}

type paymentService struct {
	bookingRepo repository.BookingRepository
	paymentRepo repository.PaymentRepository
	gateways    map[domain.PaymentMethod]payment.Gateway
	redsys      *redsys.Client
	stripe      *stripe.Client
	idempotency cache.IdempotencyStore
	notifier    NotificationService
	settings    Settings
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	paymentRepo repository.PaymentRepository,
	gw Gateways,
	idempotency cache.IdempotencyStore,
	notifier NotificationService,
	settings Settings,
) PaymentService {
	s := &paymentService{
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		gateways:    make(map[domain.PaymentMethod]payment.Gateway),
		redsys:      gw.Redsys,
		stripe:      gw.Stripe,
		idempotency: idempotency,
		notifier:    notifier,
		settings:    settings,
	}
	if gw.Redsys != nil {
		s.gateways[domain.PaymentMethodRedsys] = gw.Redsys
	}
	if gw.Stripe != nil {
		s.gateways[domain.PaymentMethodStripe] = gw.Stripe
	}
	if s.settings.Fees == nil {
		s.settings.Fees = payment.DefaultFees
	}
	if s.idempotency == nil {
		s.idempotency = cache.NewMemoryStore()
	}
	return s
}

func (s *paymentService) checkout(b *domain.Booking, p *domain.Payment) payment.Checkout {
	base := s.settings.PublicBaseURL
	return payment.Checkout{
		Booking:     b,
		Payment:     p,
		Description: fmt.Sprintf("Motorhome booking %s (%s payment)", b.BookingNumber, p.PaymentType),
		SuccessURL:  fmt.Sprintf("%s/bookings/%s/payment/success?order=%s", base, b.BookingNumber, p.OrderNumber),
		CancelURL:   fmt.Sprintf("%s/bookings/%s/payment/cancelled?order=%s", base, b.BookingNumber, p.OrderNumber),
		NotifyURL:   base + "/api/v1/payments/redsys/notification",
	}
}

// InitiatePayment opens a gateway payment for what the booking owes now.
// The fee is added on top; only the base is credited once authorised.
func (s *paymentService) InitiatePayment(ctx context.Context, bookingID string, method domain.PaymentMethod, mode payment.Mode) (*payment.Redirect, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "bookingID", bookingID, "method", method, "mode", mode)

	gw, ok := s.gateways[method]
	if !ok {
		return nil, domain.NewValidationError(domain.ErrGatewayUnavailable, "payment_method", fmt.Sprintf("%q is not available", method))
	}
	if mode == "" {
		mode = payment.ModeInstallment
	}
	if !mode.Valid() {
		return nil, domain.NewValidationError(domain.ErrMissingRequiredField, "mode", "must be installment or full")
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err)
		return nil, err
	}
	if b.Status == domain.BookingStatusCancelled || b.Status == domain.BookingStatusCompleted || b.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, domain.NewValidationError(domain.ErrInvalidStatusTransition, "booking", fmt.Sprintf("a %s booking cannot be paid", b.Status))
	}

	sched := payment.Plan(b.TotalPriceCents, b.AmountPaidCents, mode)
	if sched.PayableNowCents <= 0 {
		return nil, domain.NewValidationError(domain.ErrNothingToPay, "booking", "booking is already paid")
	}
	charge := s.settings.Fees.ChargeFor(sched.PayableNowCents, method)

	p := &domain.Payment{
		BookingID:    b.ID,
		OrderNumber:  redsys.OrderNumber(s.settings.now()),
		AmountCents:  charge.BaseCents,
		FeeCents:     charge.FeeCents,
		ChargedCents: charge.ChargedCents,
		Status:       domain.PaymentRecordPending,
		PaymentType:  sched.PaymentType,
		Method:       method,
	}
	if err := s.paymentRepo.Create(ctx, p); err != nil {
		logger.ExitMethodWithError("paymentService.InitiatePayment", err)
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	redirect, err := gw.Initiate(ctx, s.checkout(b, p))
	if err != nil {
		if _, _, serr := s.paymentRepo.Settle(ctx, p.ID, domain.PaymentOutcome{Status: domain.PaymentRecordError, Notes: err.Error()}, nil); serr != nil {
			logger.Error("Failed to mark payment as failed", "payment_id", p.ID, "error", serr)
		}
		logger.ExitMethodWithError("paymentService.InitiatePayment", err)
		return nil, err
	}

	logger.ExitMethod("paymentService.InitiatePayment", "order", p.OrderNumber, "charged_cents", p.ChargedCents)
	return redirect, nil
}

// settle records a gateway outcome against p. A capture that differs from
// the requested amount is stored as an error and never credited.
func (s *paymentService) settle(ctx context.Context, p *domain.Payment, outcome domain.PaymentOutcome, capturedCents int64) (*domain.Payment, error) {
	if outcome.Status == domain.PaymentRecordAuthorized {
		if err := payment.VerifyCapture(p, capturedCents); err != nil {
			logger.Warn("Payment amount mismatch", "order", p.OrderNumber, "captured_cents", capturedCents, "expected_cents", p.ChargedCents)
			outcome.Status = domain.PaymentRecordError
			outcome.Notes = err.Error()
			if _, _, serr := s.paymentRepo.Settle(ctx, p.ID, outcome, nil); serr != nil && !errors.Is(serr, domain.ErrAlreadySettled) {
				return nil, serr
			}
			return nil, err
		}
	}

	var paidBefore int64
	b, settled, err := s.paymentRepo.Settle(ctx, p.ID, outcome, func(b *domain.Booking, p *domain.Payment) error {
		paidBefore = b.AmountPaidCents
		return payment.Credit(b, p.AmountCents)
	})
	switch {
	case errors.Is(err, domain.ErrAlreadySettled):
		if settled == nil {
			settled = p
		}
		logger.Info("Duplicate payment callback ignored", "order", p.OrderNumber, "status", settled.Status)
		return settled, nil
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		// Money arrived for a booking that can no longer take it.
		outcome.Status = domain.PaymentRecordError
		outcome.Notes = err.Error()
		if _, _, serr := s.paymentRepo.Settle(ctx, p.ID, outcome, nil); serr != nil {
			logger.Error("Failed to record rejected payment", "order", p.OrderNumber, "error", serr)
		}
		return nil, err
	case err != nil:
		return nil, err
	}

	if b != nil && outcome.Status == domain.PaymentRecordAuthorized {
		s.notifier.Notify(ctx, NotificationKind(payment.EmailKind(paidBefore)), b)
	}
	return settled, nil
}

func (s *paymentService) HandleRedsysNotification(ctx context.Context, signatureVersion, params, signature string) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.HandleRedsysNotification")

	if s.redsys == nil {
		return nil, domain.ErrGatewayUnavailable
	}
	n, err := s.redsys.ParseNotification(signatureVersion, params, signature)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleRedsysNotification", err)
		return nil, err
	}
	captured, err := n.AmountCents()
	if err != nil {
		return nil, domain.NewValidationError(domain.ErrPaymentAmountMismatch, "Ds_Amount", err.Error())
	}

	key := "redsys:" + n.Order
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.settings.IdempotencyTTL)
	if err != nil {
		logger.Warn("Idempotency store unavailable, relying on row locks", "error", err)
		fresh = true
	}

	p, err := s.paymentRepo.GetByOrderNumber(ctx, n.Order)
	if err != nil {
		s.forget(ctx, key)
		logger.ExitMethodWithError("paymentService.HandleRedsysNotification", err)
		return nil, err
	}
	if !fresh {
		logger.Info("Redsys notification already processed", "order", n.Order)
		return p, nil
	}

	outcome := domain.PaymentOutcome{
		Status:            n.Status(),
		ResponseCode:      n.Response,
		AuthorizationCode: n.AuthorisationCode,
		Notes:             redsys.ResponseMessage(n.Response),
	}
	settled, err := s.settle(ctx, p, outcome, captured)
	if err != nil {
		if !errors.Is(err, domain.ErrPaymentAmountMismatch) {
			s.forget(ctx, key)
		}
		logger.ExitMethodWithError("paymentService.HandleRedsysNotification", err)
		return nil, err
	}

	logger.ExitMethod("paymentService.HandleRedsysNotification", "order", n.Order, "status", settled.Status)
	return settled, nil
}

func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	logger.EnterMethod("paymentService.HandleStripeWebhook")

	if s.stripe == nil {
		return domain.ErrGatewayUnavailable
	}
	ev, err := s.stripe.ParseWebhook(payload, signature)
	if err != nil {
		logger.ExitMethodWithError("paymentService.HandleStripeWebhook", err)
		return err
	}
	if !ev.Handled {
		logger.ExitMethod("paymentService.HandleStripeWebhook", "event", ev.Type, "handled", false)
		return nil
	}

	key := "stripe:" + ev.ID
	fresh, err := s.idempotency.MarkProcessed(ctx, key, s.settings.IdempotencyTTL)
	if err != nil {
		logger.Warn("Idempotency store unavailable, relying on row locks", "error", err)
		fresh = true
	}
	if !fresh {
		logger.Info("Stripe event already processed", "event_id", ev.ID)
		return nil
	}

	var p *domain.Payment
	switch {
	case ev.PaymentID != "":
		p, err = s.paymentRepo.GetByID(ctx, ev.PaymentID)
	case ev.OrderNumber != "":
		p, err = s.paymentRepo.GetByOrderNumber(ctx, ev.OrderNumber)
	default:
		err = domain.NewValidationError(domain.ErrMissingRequiredField, "metadata.paymentId", "event carries no payment reference")
	}
	if err != nil {
		s.forget(ctx, key)
		logger.ExitMethodWithError("paymentService.HandleStripeWebhook", err)
		return err
	}

	outcome := domain.PaymentOutcome{
		Status:           ev.Status,
		GatewayReference: ev.GatewayReference,
		Notes:            ev.Message,
	}
	if _, err := s.settle(ctx, p, outcome, ev.AmountCents); err != nil {
		if !errors.Is(err, domain.ErrPaymentAmountMismatch) {
			s.forget(ctx, key)
		}
		logger.ExitMethodWithError("paymentService.HandleStripeWebhook", err)
		return err
	}

	logger.ExitMethod("paymentService.HandleStripeWebhook", "event", ev.Type, "order", p.OrderNumber)
	return nil
}

// ConfirmManualPayment lets an admin settle a pending payment that was
// collected outside the gateways, such as a bank transfer.
func (s *paymentService) ConfirmManualPayment(ctx context.Context, paymentID string, method domain.PaymentMethod, notes string) (*domain.Payment, error) {
	logger.EnterMethod("paymentService.ConfirmManualPayment", "paymentID", paymentID, "method", method)

	if method == "" {
		method = domain.PaymentMethodManual
	}
	if !method.Valid() {
		return nil, domain.NewValidationError(domain.ErrMissingRequiredField, "payment_method", fmt.Sprintf("unknown method %q", method))
	}
	p, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		logger.ExitMethodWithError("paymentService.ConfirmManualPayment", err)
		return nil, err
	}
	if p.Status.Settled() {
		return nil, fmt.Errorf("payment %s is %s: %w", p.OrderNumber, p.Status, domain.ErrAlreadySettled)
	}
	if notes == "" {
		notes = "confirmed manually"
	}

	outcome := domain.PaymentOutcome{Status: domain.PaymentRecordAuthorized, Method: method, Notes: notes}
	settled, err := s.settle(ctx, p, outcome, p.ChargedCents)
	if err != nil {
		logger.ExitMethodWithError("paymentService.ConfirmManualPayment", err)
		return nil, err
	}

	logger.ExitMethod("paymentService.ConfirmManualPayment", "order", settled.OrderNumber)
	return settled, nil
}

func (s *paymentService) forget(ctx context.Context, key string) {
	if err := s.idempotency.Forget(ctx, key); err != nil {
		logger.Warn("Failed to release idempotency key", "key", key, "error", err)
	}
}
