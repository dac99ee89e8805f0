package mail

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"procure-backend/internal/config"
	"procure-backend/internal/metrics"
)

// Sink delivers notification emails.
type Sink interface {
	Send(recipients []string, subject, body string) error
}

// MailLogger persists a record of each delivery attempt.
type MailLogger interface {
	Log(ctx context.Context, recipients []string, subject, body, status, errMsg string) error
}

// SMTPMailer sends mail over plain SMTP with auth.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.Mail.Host,
		port: cfg.Mail.Port,
		user: cfg.Mail.User,
		pass: cfg.Mail.Password,
		from: cfg.Mail.From,
	}
}

func (m *SMTPMailer) Send(recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return nil
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(addr, auth, m.from, recipients, []byte(msg.String()))
}

// MockMailer logs instead of sending. Used in development and tests.
type MockMailer struct {
	Sent []MockMessage
}

type MockMessage struct {
	Recipients []string
	Subject    string
	Body       string
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(recipients []string, subject, body string) error {
	m.Sent = append(m.Sent, MockMessage{Recipients: recipients, Subject: subject, Body: body})
	log.Printf("[MockMail] to=%v subject=%q", recipients, subject)
	return nil
}

// Service wraps a Sink with async delivery and logging. Notification
// failures are recorded but never propagate to the caller.
type Service struct {
	sink   Sink
	logger MailLogger
}

func NewService(sink Sink, logger MailLogger) *Service {
	return &Service{sink: sink, logger: logger}
}

// Notify sends in the background so request handling never blocks on SMTP.
func (s *Service) Notify(recipients []string, subject, body string) {
	if len(recipients) == 0 {
		return
	}
	go func() {
		status := "sent"
		errMsg := ""
		if err := s.sink.Send(recipients, subject, body); err != nil {
			status = "failed"
			errMsg = err.Error()
			metrics.MailSendFailures.Inc()
			log.Printf("[Mail] send failed to=%v subject=%q: %v", recipients, subject, err)
		}

		if s.logger != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.logger.Log(ctx, recipients, subject, body, status, errMsg); err != nil {
				log.Printf("[Mail] log failed: %v", err)
			}
		}
	}()
}
