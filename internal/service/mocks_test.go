package service

import (
	"context"
	"sync"
	"time"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}

type MockLocationRepo struct {
	mock.Mock
}

func (m *MockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Location), args.Error(1)
}

type MockExtraRepo struct {
	mock.Mock
}

func (m *MockExtraRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Extra, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Extra), args.Error(1)
}
func (m *MockExtraRepo) ListActive(ctx context.Context) ([]domain.Extra, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Extra), args.Error(1)
}

type MockSeasonRepo struct {
	mock.Mock
}

func (m *MockSeasonRepo) ListActiveBetween(ctx context.Context, from, to string) ([]domain.Season, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Season), args.Error(1)
}

type MockCouponRepo struct {
	mock.Mock
}

func (m *MockCouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

type MockOfferRepo struct {
	mock.Mock
}

func (m *MockOfferRepo) GetByID(ctx context.Context, id string) (*domain.LastMinuteOffer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LastMinuteOffer), args.Error(1)
}

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) List(ctx context.Context, filter repository.BookingFilter, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}
func (m *MockBookingRepo) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockBookingRepo) ListAwaitingSecondPayment(ctx context.Context, pickupOnOrBefore string) ([]domain.Booking, error) {
	args := m.Called(ctx, pickupOnOrBefore)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) ListPaymentStatusDrift(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) AdvanceStatuses(ctx context.Context, today string) (int64, int64, error) {
	args := m.Called(ctx, today)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Payment, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}
func (m *MockPaymentRepo) Settle(ctx context.Context, paymentID string, outcome domain.PaymentOutcome, fn repository.SettleFunc) (*domain.Booking, *domain.Payment, error) {
	args := m.Called(ctx, paymentID, outcome, fn)
	var b *domain.Booking
	var p *domain.Payment
	if v := args.Get(0); v != nil {
		b = v.(*domain.Booking)
	}
	if v := args.Get(1); v != nil {
		p = v.(*domain.Payment)
	}
	return b, p, args.Error(2)
}
func (m *MockPaymentRepo) ExpirePending(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) Send(ctx context.Context, msg EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// recordingNotifier captures notifications synchronously.
type recordingNotifier struct {
	mu    sync.Mutex
	kinds []NotificationKind
}

func (r *recordingNotifier) Notify(ctx context.Context, kind NotificationKind, b *domain.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}
func (r *recordingNotifier) Send(ctx context.Context, kind NotificationKind, b *domain.Booking) error {
	r.Notify(ctx, kind, b)
	return nil
}
func (r *recordingNotifier) Wait() {}

func (r *recordingNotifier) sent() []NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NotificationKind(nil), r.kinds...)
}

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testSettings() Settings {
	return Settings{
		Policy:              pricingPolicy(),
		DefaultDepositCents: 50000,
		IdempotencyTTL:      time.Hour,
		PublicBaseURL:       "https://example.com",
		Now:                 func() time.Time { return testNow },
	}
}
