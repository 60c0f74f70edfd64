package http

import (
	"context"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/payment"
	"motorhome-booking-backend/internal/pricing"
	"motorhome-booking-backend/internal/repository"
	"motorhome-booking-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockPricingService struct {
	mock.Mock
}

func (m *MockPricingService) Quote(ctx context.Context, req service.QuoteRequest) (*pricing.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Quote), args.Error(1)
}

func (m *MockPricingService) ValidateCoupon(ctx context.Context, req service.CouponRequest) (*service.CouponResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CouponResult), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) booking(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, req))
}
func (m *MockBookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, id))
}
func (m *MockBookingService) GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, number))
}
func (m *MockBookingService) ListBookings(ctx context.Context, filter repository.BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingService) UpdateBooking(ctx context.Context, id string, req service.UpdateBookingRequest) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, id, req))
}
func (m *MockBookingService) ChangeStatus(ctx context.Context, id string, to domain.BookingStatus) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, id, to))
}
func (m *MockBookingService) RefundBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, id))
}
func (m *MockBookingService) GetPaymentPlan(ctx context.Context, id string, mode payment.Mode) (*payment.Schedule, error) {
	args := m.Called(ctx, id, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Schedule), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, bookingID string, method domain.PaymentMethod, mode payment.Mode) (*payment.Redirect, error) {
	args := m.Called(ctx, bookingID, method, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Redirect), args.Error(1)
}
func (m *MockPaymentService) HandleRedsysNotification(ctx context.Context, signatureVersion, params, signature string) (*domain.Payment, error) {
	args := m.Called(ctx, signatureVersion, params, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}
func (m *MockPaymentService) ConfirmManualPayment(ctx context.Context, paymentID string, method domain.PaymentMethod, notes string) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, method, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }
