package service

import (
	"context"
	"fmt"
	"html"
	"strconv"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"

	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/logger"
)

type smtpEmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPEmailService(host, port, username, password, from string) EmailService {
	p, _ := strconv.Atoi(port)
	return &smtpEmailService{
		host:     host,
		port:     p,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *smtpEmailService) Send(ctx context.Context, msg EmailMessage) error {
	logger.ExternalServiceCall("smtp", "DialAndSend", "to", msg.To, "subject", msg.Subject)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", msg.To, msg.ToName)
	if msg.CC != "" {
		m.SetHeader("Cc", msg.CC)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.PlainText)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	err := d.DialAndSend(m)
	logger.ExternalServiceResult("smtp", "DialAndSend", err, "to", msg.To)
	if err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

type sendGridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &sendGridEmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *sendGridEmailService) message(msg EmailMessage) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(msg.ToName, msg.To)
	body := msg.HTML
	if body == "" {
		// SendGrid rejects empty content parts.
		body = "<pre>" + html.EscapeString(msg.PlainText) + "</pre>"
	}
	m := mail.NewSingleEmail(from, msg.Subject, recipient, msg.PlainText, body)
	if msg.CC != "" && len(m.Personalizations) > 0 {
		m.Personalizations[0].AddCCs(mail.NewEmail("", msg.CC))
	}
	return m
}

func (s *sendGridEmailService) Send(ctx context.Context, msg EmailMessage) error {
	logger.ExternalServiceCall("sendgrid", "Send", "to", msg.To, "subject", msg.Subject)

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, s.message(msg))
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", msg.To)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// noopEmailService only logs, for development and tests.
type noopEmailService struct{}

func NewNoopEmailService() EmailService {
	return noopEmailService{}
}

func (noopEmailService) Send(ctx context.Context, msg EmailMessage) error {
	logger.Info("Email suppressed", "to", msg.To, "subject", msg.Subject)
	return nil
}

// NewEmailServiceFromConfig picks the transport named by cfg.Email.Provider.
// Validate has already rejected unknown providers.
func NewEmailServiceFromConfig(cfg *config.Config) EmailService {
	switch cfg.Email.Provider {
	case "sendgrid":
		logger.Info("Email provider configured", "provider", "sendgrid")
		return NewSendGridEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromAddress, cfg.Email.FromName)
	case "smtp":
		logger.Info("Email provider configured", "provider", "smtp", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		return NewSMTPEmailService(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port), cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	default:
		logger.Info("Email provider configured", "provider", "noop")
		return NewNoopEmailService()
	}
}
