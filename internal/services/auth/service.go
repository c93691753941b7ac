// Package auth implements OTP-gated signup, passcode sign-in with lockout
// and the passcode reset flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wyse/internal/events"
	"wyse/internal/logger"
	"wyse/internal/models"
	"wyse/internal/repositories"
	"wyse/internal/services/notification"
	"wyse/internal/services/otp"
	"wyse/internal/sideeffect"
	"wyse/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// maxStateRetries bounds compare-and-swap retries on the login counters.
const maxStateRetries = 3

type Service interface {
	SendOTP(ctx context.Context, email string, client ClientInfo) error
	VerifyOTP(ctx context.Context, email, code string) error
	Signup(ctx context.Context, email, passcode string) (*Session, error)
	Signin(ctx context.Context, email, passcode string, client ClientInfo) (*Session, error)
	ForgotPasscode(ctx context.Context, email string, client ClientInfo) error
	VerifyResetOTP(ctx context.Context, email, code string) error
	ResetPasscode(ctx context.Context, email, code, passcode string) error
}

// ClientInfo identifies the caller's device.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type Session struct {
	User  *models.User
	Token string
}

type Config struct {
	BcryptCost int
}

type Deps struct {
	Users     repositories.UserRepository
	OTPs      otp.Service
	Mailer    notification.Mailer
	Tokens    *utils.TokenService
	Publisher events.Publisher
}

type service struct {
	users     repositories.UserRepository
	otps      otp.Service
	mailer    notification.Mailer
	tokens    *utils.TokenService
	publisher events.Publisher
	cost      int
	now       func() time.Time
}

type Option func(*service)

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(deps Deps, cfg Config, opts ...Option) Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.FallbackPublisher{}
	}

	s := &service{
		users:     deps.Users,
		otps:      deps.OTPs,
		mailer:    deps.Mailer,
		tokens:    deps.Tokens,
		publisher: publisher,
		cost:      cost,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) SendOTP(ctx context.Context, email string, client ClientInfo) error {
	return s.issueAndSend(ctx, email, models.OTPPurposeEmailVerification, client)
}

func (s *service) issueAndSend(ctx context.Context, email, purpose string, client ClientInfo) error {
	rec, err := s.otps.Issue(ctx, email, purpose, client.IP, client.UserAgent)
	if err != nil {
		return err
	}
	if err := s.mailer.SendOTP(ctx, email, rec.Code, purpose); err != nil {
		logger.Log.Error("failed to send otp email", zap.String("purpose", purpose), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrOTPDelivery, err)
	}
	return nil
}

func (s *service) VerifyOTP(ctx context.Context, email, code string) error {
	return s.otps.Verify(ctx, email, code, models.OTPPurposeEmailVerification)
}

func (s *service) Signup(ctx context.Context, email, passcode string) (*Session, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	verified, err := s.otps.HasRecentVerification(ctx, email, models.OTPPurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, ErrEmailNotVerified
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash passcode: %w", err)
	}

	user := models.NewUser(email, string(hash), s.now())
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	sideeffect.Attempt(ctx, "welcome_email", func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, user.Email, user.Profile.FirstName)
	})
	sideeffect.Attempt(ctx, "invalidate_verification_otps", func(ctx context.Context) error {
		return s.otps.InvalidateAll(ctx, email, models.OTPPurposeEmailVerification)
	})
	sideeffect.Attempt(ctx, "publish_user_signed_up", func(ctx context.Context) error {
		return s.publisher.Publish(ctx, events.KeyUserSignedUp, events.UserSignedUp{
			UserID:    user.ID,
			Email:     user.Email,
			Timestamp: user.CreatedAt,
		})
	})

	logger.Log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return &Session{User: user, Token: token}, nil
}

func (s *service) Signin(ctx context.Context, email, passcode string, client ClientInfo) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}

	if user.IsLocked(s.now()) {
		return nil, ErrAccountLocked
	}

	matched := bcrypt.CompareHashAndPassword([]byte(user.Passcode), []byte(passcode)) == nil

	var (
		next    repositories.LoginState
		outcome Outcome
		now     time.Time
	)
	for attempt := 0; ; attempt++ {
		now = s.now()
		current := repositories.LoginState{Attempts: user.LoginAttempts, LockUntil: user.LockUntil}
		next, outcome = NextLoginState(current, matched, now)
		if outcome == OutcomeRejected {
			return nil, ErrAccountLocked
		}

		var lastLogin *time.Time
		if outcome == OutcomeSuccess {
			lastLogin = &now
		}
		err = s.users.SaveLoginState(ctx, user.ID, user.LoginAttempts, next, lastLogin)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrConcurrentUpdate) {
			return nil, err
		}
		if attempt+1 >= maxStateRetries {
			return nil, ErrLoginStateChanged
		}
		if user, err = s.users.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
	}

	if outcome != OutcomeSuccess {
		if outcome == OutcomeLockedNow {
			logger.Log.Warn("account locked after failed sign-ins", zap.String("user_id", user.ID.String()))
		}
		return nil, ErrInvalidPasscode
	}

	user.LoginAttempts = next.Attempts
	user.LockUntil = next.LockUntil
	user.LastLoginAt = &now

	sideeffect.Attempt(ctx, "upsert_device", func(ctx context.Context) error {
		return s.users.UpsertDevice(ctx, models.NewDevice(user.ID, client.IP, client.UserAgent, now))
	})

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

// ForgotPasscode sends a reset code. Unknown emails succeed silently so the
// endpoint cannot be used to discover accounts.
func (s *service) ForgotPasscode(ctx context.Context, email string, client ClientInfo) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			logger.Log.Info("passcode reset requested for unknown email")
			return nil
		}
		return err
	}
	return s.issueAndSend(ctx, email, models.OTPPurposePasswordReset, client)
}

func (s *service) VerifyResetOTP(ctx context.Context, email, code string) error {
	return s.otps.Check(ctx, email, code, models.OTPPurposePasswordReset)
}

func (s *service) ResetPasscode(ctx context.Context, email, code, passcode string) error {
	if err := s.otps.Consume(ctx, email, code, models.OTPPurposePasswordReset); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return otp.ErrInvalidOTP
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash passcode: %w", err)
	}
	if err := s.users.UpdatePasscode(ctx, user.ID, string(hash), s.now()); err != nil {
		return err
	}

	sideeffect.Attempt(ctx, "invalidate_reset_otps", func(ctx context.Context) error {
		return s.otps.InvalidateAll(ctx, email, models.OTPPurposePasswordReset)
	})
	logger.Log.Info("passcode reset", zap.String("user_id", user.ID.String()))
	return nil
}
