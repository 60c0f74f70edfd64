package service

import (
	"context"
	"fmt"
	"strings"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/pricing"
	"motorhome-booking-backend/internal/repository"
)

type bookingService struct {
	*quoter
	bookingRepo repository.BookingRepository
	notifier    NotificationService
}

func NewBookingService(
	vehicleRepo repository.VehicleRepository,
	locationRepo repository.LocationRepository,
	extraRepo repository.ExtraRepository,
	seasonRepo repository.SeasonRepository,
	couponRepo repository.CouponRepository,
	offerRepo repository.OfferRepository,
	bookingRepo repository.BookingRepository,
	notifier NotificationService,
	settings Settings,
) BookingService {
	return &bookingService{
		quoter: &quoter{
			vehicleRepo:  vehicleRepo,
			locationRepo: locationRepo,
			extraRepo:    extraRepo,
			seasonRepo:   seasonRepo,
			couponRepo:   couponRepo,
			offerRepo:    offerRepo,
			settings:     settings,
		},
		bookingRepo: bookingRepo,
		notifier:    notifier,
	}
}

func extrasFromQuote(q pricing.Quote) []domain.BookingExtra {
	extras := make([]domain.BookingExtra, 0, len(q.ExtraLines))
	for _, l := range q.ExtraLines {
		extras = append(extras, domain.BookingExtra{
			ExtraID:         l.ExtraID,
			ExtraName:       l.Name,
			Quantity:        l.Quantity,
			UnitPriceCents:  l.UnitPriceCents,
			TotalPriceCents: l.TotalPriceCents,
		})
	}
	return extras
}

func applyQuote(b *domain.Booking, r *resolvedQuote) {
	q := r.quote
	b.PickupDate = r.input.PickupDate
	b.DropoffDate = r.input.DropoffDate
	b.PickupTime = r.input.PickupTime
	b.DropoffTime = r.input.DropoffTime
	b.Days = q.Days
	b.PricingDays = q.PricingDays
	b.BasePriceCents = q.BasePriceCents
	b.ExtrasPriceCents = q.ExtrasPriceCents
	b.LocationFeeCents = q.LocationFeeCents
	b.DiscountCents = q.DiscountCents
	b.TotalPriceCents = q.TotalPriceCents
	b.Extras = extrasFromQuote(q)
}

func (s *bookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "vehicleID", req.VehicleID, "email", req.Customer.Email)

	switch {
	case strings.TrimSpace(req.Customer.Name) == "":
		return nil, domain.MissingField("customer.name")
	case strings.TrimSpace(req.Customer.Email) == "":
		return nil, domain.MissingField("customer.email")
	case req.LastMinuteOfferID == "" && req.PickupLocationID == "":
		return nil, domain.MissingField("pickup_location_id")
	case req.LastMinuteOfferID == "" && req.DropoffLocationID == "":
		return nil, domain.MissingField("dropoff_location_id")
	}

	r, err := s.resolve(ctx, req.QuoteRequest, false)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}

	b := &domain.Booking{
		BookingNumber:      domain.NewBookingNumber(s.settings.now()),
		VehicleID:          req.VehicleID,
		PickupLocationID:   req.PickupLocationID,
		DropoffLocationID:  req.DropoffLocationID,
		DepositAmountCents: s.settings.DefaultDepositCents,
		Status:             domain.BookingStatusPending,
		CustomerName:       strings.TrimSpace(req.Customer.Name),
		CustomerEmail:      strings.TrimSpace(req.Customer.Email),
		CustomerPhone:      req.Customer.Phone,
		CustomerDNI:        req.Customer.DNI,
		CustomerAddress:    req.Customer.Address,
		CustomerCity:       req.Customer.City,
		CustomerPostalCode: req.Customer.PostalCode,
		Notes:              req.Notes,
	}
	if r.offer != nil {
		b.VehicleID = r.offer.VehicleID
		b.PickupLocationID = r.offer.PickupLocationID
		b.DropoffLocationID = r.offer.DropoffLocationID
		b.LastMinuteOfferID = &r.offer.ID
	}
	if r.coupon != nil {
		b.CouponID = &r.coupon.ID
		b.CouponCode = r.coupon.Code
	}
	applyQuote(b, r)
	b.PaymentStatus = payment.DeriveStatus(b.TotalPriceCents, 0)

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}

	s.notifier.Notify(ctx, NotifyBookingCreated, b)

	logger.ExitMethod("bookingService.CreateBooking", "bookingID", b.ID, "number", b.BookingNumber, "total_cents", b.TotalPriceCents)
	return b, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if id == "" {
		return nil, domain.MissingField("id")
	}
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	if number == "" {
		return nil, domain.MissingField("booking_number")
	}
	return s.bookingRepo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError(domain.ErrInvalidStatusTransition, "status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, 0, domain.NewValidationError(domain.ErrInvalidStatusTransition, "payment_status", fmt.Sprintf("unknown payment status %q", filter.PaymentStatus))
	}
	return s.bookingRepo.List(ctx, filter, page, pageSize)
}

func (req UpdateBookingRequest) repricing() bool {
	return req.VehicleID != nil || req.PickupLocationID != nil || req.DropoffLocationID != nil ||
		req.PickupDate != nil || req.PickupTime != nil || req.DropoffDate != nil || req.DropoffTime != nil ||
		req.Extras != nil
}

func pick(v *string, current string) string {
	if v != nil {
		return *v
	}
	return current
}

// UpdateBooking applies an admin edit. Changes to anything priced re-run
// the pricing engine; a manual total wins over the computed one. The
// payment status is always derived again from the new amounts.
func (s *bookingService) UpdateBooking(ctx context.Context, id string, req UpdateBookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.UpdateBooking", "bookingID", id)

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("bookingService.UpdateBooking", err)
		return nil, err
	}
	if req.TotalPriceCents != nil && *req.TotalPriceCents < 0 {
		return nil, domain.NewValidationError(domain.ErrInvalidQuantity, "total_price_cents", "cannot be negative")
	}
	if req.AmountPaidCents != nil && *req.AmountPaidCents < 0 {
		return nil, domain.NewValidationError(domain.ErrInvalidQuantity, "amount_paid_cents", "cannot be negative")
	}

	if c := req.Customer; c != nil {
		if strings.TrimSpace(c.Name) == "" {
			return nil, domain.MissingField("customer.name")
		}
		if strings.TrimSpace(c.Email) == "" {
			return nil, domain.MissingField("customer.email")
		}
		b.CustomerName, b.CustomerEmail = strings.TrimSpace(c.Name), strings.TrimSpace(c.Email)
		b.CustomerPhone, b.CustomerDNI = c.Phone, c.DNI
		b.CustomerAddress, b.CustomerCity, b.CustomerPostalCode = c.Address, c.City, c.PostalCode
	}
	b.Notes = pick(req.Notes, b.Notes)
	b.AdminNotes = pick(req.AdminNotes, b.AdminNotes)
	if req.AmountPaidCents != nil {
		b.AmountPaidCents = *req.AmountPaidCents
	}

	if req.repricing() {
		qr := QuoteRequest{
			VehicleID:         pick(req.VehicleID, b.VehicleID),
			PickupLocationID:  pick(req.PickupLocationID, b.PickupLocationID),
			DropoffLocationID: pick(req.DropoffLocationID, b.DropoffLocationID),
			PickupDate:        pick(req.PickupDate, b.PickupDate),
			PickupTime:        pick(req.PickupTime, b.PickupTime),
			DropoffDate:       pick(req.DropoffDate, b.DropoffDate),
			DropoffTime:       pick(req.DropoffTime, b.DropoffTime),
			CouponCode:        b.CouponCode,
		}
		if b.LastMinuteOfferID != nil {
			qr.LastMinuteOfferID = *b.LastMinuteOfferID
		}
		if req.Extras != nil {
			qr.Extras = *req.Extras
		} else {
			for _, e := range b.Extras {
				qr.Extras = append(qr.Extras, ExtraRequest{ExtraID: e.ExtraID, Quantity: e.Quantity})
			}
		}

		r, err := s.resolve(ctx, qr, true)
		if err != nil {
			logger.ExitMethodWithError("bookingService.UpdateBooking", err)
			return nil, err
		}
		totals, err := payment.DeriveBookingTotals(payment.TotalsInput{
			Pricing:            r.input,
			AmountPaidCents:    b.AmountPaidCents,
			TotalOverrideCents: req.TotalPriceCents,
			Refunded:           b.PaymentStatus == domain.PaymentStatusRefunded,
		})
		if err != nil {
			logger.ExitMethodWithError("bookingService.UpdateBooking", err)
			return nil, err
		}
		b.VehicleID, b.PickupLocationID, b.DropoffLocationID = qr.VehicleID, qr.PickupLocationID, qr.DropoffLocationID
		applyQuote(b, r)
		totals.ApplyTo(b)
	} else {
		if req.TotalPriceCents != nil {
			gross := b.BasePriceCents + b.ExtrasPriceCents + b.LocationFeeCents
			if err := payment.CheckTotalOverride(gross, *req.TotalPriceCents); err != nil {
				logger.ExitMethodWithError("bookingService.UpdateBooking", err)
				return nil, err
			}
			b.TotalPriceCents = *req.TotalPriceCents
			b.DiscountCents = gross - b.TotalPriceCents
		}
		payment.Rederive(b)
	}

	if err := s.bookingRepo.Update(ctx, b); err != nil {
		logger.ExitMethodWithError("bookingService.UpdateBooking", err)
		return nil, err
	}

	logger.ExitMethod("bookingService.UpdateBooking", "bookingID", b.ID, "total_cents", b.TotalPriceCents, "payment_status", b.PaymentStatus)
	return b, nil
}

func (s *bookingService) ChangeStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.ChangeStatus", "bookingID", id, "to", to)

	if !to.Valid() {
		return nil, domain.NewValidationError(domain.ErrInvalidStatusTransition, "status", fmt.Sprintf("unknown status %q", to))
	}
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ChangeStatus", err)
		return nil, err
	}
	if !domain.CanTransition(b.Status, to) {
		err := domain.NewValidationError(domain.ErrInvalidStatusTransition, "status",
			fmt.Sprintf("cannot move a %s booking to %s", b.Status, to))
		logger.ExitMethodWithError("bookingService.ChangeStatus", err)
		return nil, err
	}
	if err := s.bookingRepo.UpdateStatus(ctx, id, b.Status, to); err != nil {
		logger.ExitMethodWithError("bookingService.ChangeStatus", err)
		return nil, err
	}
	b.Status = to

	if to == domain.BookingStatusCancelled {
		s.notifier.Notify(ctx, NotifyBookingCancelled, b)
	}

	logger.ExitMethod("bookingService.ChangeStatus", "bookingID", id, "status", to)
	return b, nil
}

func (s *bookingService) RefundBooking(ctx context.Context, id string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.RefundBooking", "bookingID", id)

	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("bookingService.RefundBooking", err)
		return nil, err
	}
	if err := payment.Refund(b); err != nil {
		logger.ExitMethodWithError("bookingService.RefundBooking", err)
		return nil, err
	}
	if err := s.bookingRepo.UpdatePaymentStatus(ctx, id, b.PaymentStatus); err != nil {
		logger.ExitMethodWithError("bookingService.RefundBooking", err)
		return nil, err
	}

	s.notifier.Notify(ctx, NotifyBookingRefunded, b)

	logger.ExitMethod("bookingService.RefundBooking", "bookingID", id)
	return b, nil
}

func (s *bookingService) GetPaymentPlan(ctx context.Context, id string, mode payment.Mode) (*payment.Schedule, error) {
	if mode == "" {
		mode = payment.ModeInstallment
	}
	if !mode.Valid() {
		return nil, domain.NewValidationError(domain.ErrMissingRequiredField, "mode", "must be installment or full")
	}
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sched := payment.Plan(b.TotalPriceCents, b.AmountPaidCents, mode)
	if b.PaymentStatus == domain.PaymentStatusRefunded {
		sched.Status = domain.PaymentStatusRefunded
		sched.PayableNowCents = 0
	}
	return &sched, nil
}
