// Package otp issues and verifies one-time email codes.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"wyse/internal/logger"
	"wyse/internal/models"
	"wyse/internal/repositories"
	"wyse/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CodeLength = 6

var (
	ErrInvalidOTP     = errors.New("invalid or expired OTP")
	ErrInvalidPurpose = errors.New("invalid OTP purpose")
)

type Config struct {
	Expiry      time.Duration
	MaxAttempts int
	// VerificationWindow bounds how old a verified code may be when it is
	// presented as proof of email ownership.
	VerificationWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		Expiry:             10 * time.Minute,
		MaxAttempts:        5,
		VerificationWindow: 10 * time.Minute,
	}
}

type Service interface {
	Issue(ctx context.Context, email, purpose, ipAddress, userAgent string) (*models.OTP, error)
	// Verify consumes a matching code, except password_reset codes which stay
	// live until Consume.
	Verify(ctx context.Context, email, code, purpose string) error
	// Check validates without consuming.
	Check(ctx context.Context, email, code, purpose string) error
	// Consume validates and always marks the code used.
	Consume(ctx context.Context, email, code, purpose string) error
	InvalidateAll(ctx context.Context, email, purpose string) error
	HasRecentVerification(ctx context.Context, email, purpose string) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo repositories.OTPRepository
	cfg  Config
	now  func() time.Time
	gen  func(int) (string, error)
}

type Option func(*service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithGenerator overrides code generation.
func WithGenerator(gen func(int) (string, error)) Option {
	return func(s *service) { s.gen = gen }
}

func NewService(repo repositories.OTPRepository, cfg Config, opts ...Option) Service {
	def := DefaultConfig()
	if cfg.Expiry <= 0 {
		cfg.Expiry = def.Expiry
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.VerificationWindow <= 0 {
		cfg.VerificationWindow = def.VerificationWindow
	}

	s := &service{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
		gen:  utils.GenerateNumericCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validPurpose(purpose string) bool {
	switch purpose {
	case models.OTPPurposeEmailVerification, models.OTPPurposePasswordReset, models.OTPPurposeLogin:
		return true
	}
	return false
}

func (s *service) Issue(ctx context.Context, email, purpose, ipAddress, userAgent string) (*models.OTP, error) {
	if !validPurpose(purpose) {
		return nil, ErrInvalidPurpose
	}

	code, err := s.gen(CodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	now := s.now()
	rec := &models.OTP{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.cfg.Expiry),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}
	return rec, nil
}

func (s *service) Verify(ctx context.Context, email, code, purpose string) error {
	return s.verify(ctx, email, code, purpose, purpose != models.OTPPurposePasswordReset)
}

func (s *service) Check(ctx context.Context, email, code, purpose string) error {
	return s.verify(ctx, email, code, purpose, false)
}

func (s *service) Consume(ctx context.Context, email, code, purpose string) error {
	return s.verify(ctx, email, code, purpose, true)
}

// verify counts an attempt against every live code for (email, purpose), then
// accepts the newest one that matches and has not exhausted its attempts.
// A consuming verify only succeeds if it wins the used=false -> true update.
func (s *service) verify(ctx context.Context, email, code, purpose string, consume bool) error {
	if !validPurpose(purpose) {
		return ErrInvalidPurpose
	}

	now := s.now()
	active, err := s.repo.FindActive(ctx, email, purpose, now)
	if err != nil {
		return fmt.Errorf("failed to load otp: %w", err)
	}
	if len(active) == 0 {
		return ErrInvalidOTP
	}

	ids := make([]uuid.UUID, len(active))
	for i := range active {
		ids[i] = active[i].ID
	}
	if err := s.repo.IncrementAttempts(ctx, ids); err != nil {
		return fmt.Errorf("failed to record otp attempt: %w", err)
	}

	var match *models.OTP
	for i := range active {
		rec := &active[i]
		if rec.Attempts+1 > s.cfg.MaxAttempts {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
			match = rec
			break
		}
	}
	if match == nil {
		return ErrInvalidOTP
	}

	if !consume {
		return nil
	}

	ok, err := s.repo.MarkUsed(ctx, match.ID, now)
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if !ok {
		return ErrInvalidOTP
	}
	return nil
}

func (s *service) InvalidateAll(ctx context.Context, email, purpose string) error {
	n, err := s.repo.InvalidateAll(ctx, email, purpose)
	if err != nil {
		return fmt.Errorf("failed to invalidate otps: %w", err)
	}
	if n > 0 {
		logger.Log.Debug("invalidated outstanding otps", zap.String("purpose", purpose), zap.Int64("count", n))
	}
	return nil
}

func (s *service) HasRecentVerification(ctx context.Context, email, purpose string) (bool, error) {
	return s.repo.HasRecentVerification(ctx, email, purpose, s.now().Add(-s.cfg.VerificationWindow))
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otps: %w", err)
	}
	return n, nil
}
