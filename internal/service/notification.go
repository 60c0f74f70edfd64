package service

import (
	"context"
	"fmt"
	"sync"

	"motorhome-booking-backend/internal/domain"
	"motorhome-booking-backend/internal/logger"
)

type NotificationKind string

const (
	NotifyBookingCreated        NotificationKind = "booking_created"
	NotifyFirstPayment          NotificationKind = "first_payment"
	NotifySecondPayment         NotificationKind = "second_payment"
	NotifySecondPaymentReminder NotificationKind = "second_payment_reminder"
	NotifyBookingCancelled      NotificationKind = "booking_cancelled"
	NotifyBookingRefunded       NotificationKind = "booking_refunded"
)

type notificationService struct {
	emailSvc   EmailService
	adminEmail string
	wg         sync.WaitGroup
}

func NewNotificationService(emailSvc EmailService, adminEmail string) NotificationService {
	return &notificationService{emailSvc: emailSvc, adminEmail: adminEmail}
}

func euros(cents int64) string {
	return fmt.Sprintf("%d.%02d EUR", cents/100, cents%100)
}

func (s *notificationService) compose(kind NotificationKind, b *domain.Booking) (EmailMessage, error) {
	msg := EmailMessage{To: b.CustomerEmail, ToName: b.CustomerName}
	summary := fmt.Sprintf("Booking: %s\nPickup: %s %s\nReturn: %s %s\nTotal: %s\nPaid: %s\nPending: %s\n",
		b.BookingNumber, b.PickupDate, b.PickupTime, b.DropoffDate, b.DropoffTime,
		euros(b.TotalPriceCents), euros(b.AmountPaidCents), euros(b.PendingCents()))

	switch kind {
	case NotifyBookingCreated:
		msg.Subject = fmt.Sprintf("Booking %s received", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nWe have received your booking request.\n\n%s", b.CustomerName, summary)
		msg.CC = s.adminEmail
	case NotifyFirstPayment:
		msg.Subject = fmt.Sprintf("Booking %s confirmed", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nYour first payment was received and your booking is confirmed.\n\n%s", b.CustomerName, summary)
		msg.CC = s.adminEmail
	case NotifySecondPayment:
		msg.Subject = fmt.Sprintf("Payment received for booking %s", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nYour booking is now fully paid.\n\n%s", b.CustomerName, summary)
		msg.CC = s.adminEmail
	case NotifySecondPaymentReminder:
		msg.Subject = fmt.Sprintf("Second payment due for booking %s", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nThe remaining %s is due before pickup on %s.\n\n%s",
			b.CustomerName, euros(b.PendingCents()), b.PickupDate, summary)
	case NotifyBookingCancelled:
		msg.Subject = fmt.Sprintf("Booking %s cancelled", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nYour booking has been cancelled.\n\n%s", b.CustomerName, summary)
		msg.CC = s.adminEmail
	case NotifyBookingRefunded:
		msg.Subject = fmt.Sprintf("Refund issued for booking %s", b.BookingNumber)
		msg.PlainText = fmt.Sprintf("Hello %s,\n\nThe amount paid for your booking has been refunded.\n\n%s", b.CustomerName, summary)
	default:
		return EmailMessage{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	return msg, nil
}

func (s *notificationService) Send(ctx context.Context, kind NotificationKind, b *domain.Booking) error {
	msg, err := s.compose(kind, b)
	if err != nil {
		return err
	}
	if msg.To == "" {
		return domain.MissingField("customer_email")
	}
	return s.emailSvc.Send(ctx, msg)
}

func (s *notificationService) Notify(ctx context.Context, kind NotificationKind, b *domain.Booking) {
	snapshot := *b
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Send(ctx, kind, &snapshot); err != nil {
			logger.Error("Failed to send notification", "kind", kind, "booking_id", snapshot.ID, "error", err)
			return
		}
		logger.Info("Notification sent", "kind", kind, "booking_id", snapshot.ID)
	}()
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}
