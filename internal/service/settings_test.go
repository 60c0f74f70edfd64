package service

import (
	"testing"
	"time"

	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestSettingsFromConfig(t *testing.T) {
	off := false
	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "https://motorhomes.example.com"},
		Pricing: config.PricingConfig{
			LowSeasonName:       "Temporada Baja",
			LowSeasonTiersCents: []int64{10000, 9000, 8000, 7000},
			DefaultDepositCents: 60000,
			BillTwoDaysAsThree:  &off,
		},
		Payments: config.PaymentsConfig{
			Stripe: config.StripeConfig{FeeBasisPoints: 250},
		},
		Redis: config.RedisConfig{IdempotencyTTLHours: 72},
	}

	s := SettingsFromConfig(cfg)

	assert.True(t, s.Policy.BillTwoDaysAsTwo)
	assert.Equal(t, 2, s.Policy.PricingDays(2))
	assert.Equal(t, int64(10000), s.LowSeason.LessThanWeekCents)
	assert.Equal(t, int64(7000), s.LowSeason.ThreeWeeksCents)
	assert.Equal(t, int64(60000), s.DefaultDepositCents)
	assert.Equal(t, int64(250), s.Fees[domain.PaymentMethodStripe])
	assert.Equal(t, int64(0), s.Fees[domain.PaymentMethodRedsys])
	assert.Equal(t, 72*time.Hour, s.IdempotencyTTL)
	assert.Equal(t, "https://motorhomes.example.com", s.PublicBaseURL)
}

func TestSettingsFromConfig_TwoDayMinimumByDefault(t *testing.T) {
	s := SettingsFromConfig(&config.Config{})
	assert.False(t, s.Policy.BillTwoDaysAsTwo)
	assert.Equal(t, 3, s.Policy.PricingDays(2))

	on := true
	s = SettingsFromConfig(&config.Config{Pricing: config.PricingConfig{BillTwoDaysAsThree: &on}})
	assert.Equal(t, 3, s.Policy.PricingDays(2))
}

func TestNewEmailServiceFromConfig(t *testing.T) {
	cfg := &config.Config{Email: config.EmailConfig{Provider: "noop"}}
	_, ok := NewEmailServiceFromConfig(cfg).(noopEmailService)
	assert.True(t, ok)

	cfg.Email = config.EmailConfig{Provider: "sendgrid", SendGridAPIKey: "SG.test", FromAddress: "reservas@example.com"}
	_, ok = NewEmailServiceFromConfig(cfg).(*sendGridEmailService)
	assert.True(t, ok)

	cfg.Email.Provider = "smtp"
	cfg.SMTP = config.SMTPConfig{Host: "localhost", Port: 2525}
	smtp, ok := NewEmailServiceFromConfig(cfg).(*smtpEmailService)
	assert.True(t, ok)
	assert.Equal(t, 2525, smtp.port)
}
