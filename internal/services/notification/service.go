// Package notification sends transactional email.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"wyse/internal/logger"
	"wyse/internal/models"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	kindEmailVerification = models.OTPPurposeEmailVerification
	kindPasswordReset     = models.OTPPurposePasswordReset
	kindGenericOTP        = "otp"
	kindWelcome           = "welcome"
)

// Mailer is the outbound email surface used by the auth flows.
type Mailer interface {
	SendOTP(ctx context.Context, to, code, purpose string) error
	SendWelcome(ctx context.Context, to, firstName string) error
}

type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	ExpiryMinutes int
}

// Service delivers mail over SMTP.
type Service struct {
	cfg    SMTPConfig
	client *mail.Client
}

// NewService creates an SMTP mailer. Port 465 uses implicit TLS; any other
// port upgrades with STARTTLS when the server offers it.
func NewService(cfg SMTPConfig) (*Service, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.ExpiryMinutes <= 0 {
		cfg.ExpiryMinutes = 10
	}
	return &Service{cfg: cfg, client: client}, nil
}

func (s *Service) SendOTP(ctx context.Context, to, code, purpose string) error {
	kind := purpose
	if _, ok := templates[kind]; !ok {
		kind = kindGenericOTP
	}
	return s.send(ctx, to, kind, map[string]interface{}{
		"Code":          code,
		"ExpiryMinutes": s.cfg.ExpiryMinutes,
	})
}

func (s *Service) SendWelcome(ctx context.Context, to, firstName string) error {
	if firstName == "" {
		firstName = "there"
	}
	return s.send(ctx, to, kindWelcome, map[string]interface{}{"FirstName": firstName})
}

func (s *Service) send(ctx context.Context, to, kind string, data map[string]interface{}) error {
	subject, body, err := Render(kind, data)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	logger.Log.Info("email sent", zap.String("kind", kind))
	return nil
}

// Render produces the subject and HTML body for a message kind.
func Render(kind string, data map[string]interface{}) (string, string, error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", kind)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Brand"] = brand
	data["Year"] = time.Now().Year()

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", "", fmt.Errorf("failed to render %s email: %w", kind, err)
	}
	return subjects[kind], buf.String(), nil
}

// LogMailer stands in for SMTP when no mail host is configured. Codes are
// only written to the log when RevealCodes is set.
type LogMailer struct {
	RevealCodes bool
}

func (m LogMailer) SendOTP(ctx context.Context, to, code, purpose string) error {
	fields := []zap.Field{zap.String("purpose", purpose)}
	if m.RevealCodes {
		fields = append(fields, zap.String("to", to), zap.String("code", code))
	}
	logger.Log.Info("email delivery disabled; otp not sent", fields...)
	return nil
}

func (m LogMailer) SendWelcome(ctx context.Context, to, firstName string) error {
	logger.Log.Info("email delivery disabled; welcome not sent")
	return nil
}
