package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wyse/internal/events"
	"wyse/internal/models"
	"wyse/internal/repositories/memstore"
	"wyse/internal/services/otp"
	"wyse/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeMailer struct {
	mu      sync.Mutex
	codes   map[string]string
	welcome []string
	fail    bool
}

func (m *fakeMailer) SendOTP(_ context.Context, to, code, purpose string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[purpose+":"+to] = code
	return nil
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcome = append(m.welcome, to)
	return nil
}

func (m *fakeMailer) code(purpose, to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[purpose+":"+to]
}

type harness struct {
	svc    Service
	store  *memstore.Store
	mailer *fakeMailer
	events *events.Recorder
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  memstore.New(),
		mailer: &fakeMailer{},
		events: &events.Recorder{},
		now:    time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	otps := otp.NewService(h.store.OTPs(), otp.DefaultConfig(), otp.WithClock(clock))
	h.svc = NewService(Deps{
		Users:     h.store.Users(),
		OTPs:      otps,
		Mailer:    h.mailer,
		Tokens:    utils.NewTokenService("test-secret", time.Hour),
		Publisher: h.events,
	}, Config{BcryptCost: bcrypt.MinCost}, WithClock(clock))
	return h
}

func (h *harness) signup(t *testing.T, email, passcode string) *Session {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.svc.SendOTP(ctx, email, ClientInfo{IP: "10.0.0.1", UserAgent: "test"}))
	require.NoError(t, h.svc.VerifyOTP(ctx, email, h.mailer.code(models.OTPPurposeEmailVerification, email)))
	sess, err := h.svc.Signup(ctx, email, passcode)
	require.NoError(t, err)
	return sess
}

func TestSignup(t *testing.T) {
	h := newHarness(t)
	sess := h.signup(t, "ada@example.com", "135790")

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.True(t, sess.User.IsEmailVerified)
	assert.NotEqual(t, "135790", sess.User.Passcode)
	assert.Equal(t, []string{"ada@example.com"}, h.mailer.welcome)
	assert.Equal(t, []string{events.KeyUserSignedUp}, h.events.Keys())

	_, err := h.svc.Signup(context.Background(), "ada@example.com", "135790")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSignup_RequiresRecentVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("never verified", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.svc.SendOTP(ctx, "a@b.com", ClientInfo{}))
		_, err := h.svc.Signup(ctx, "a@b.com", "135790")
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("verified too long ago", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.svc.SendOTP(ctx, "a@b.com", ClientInfo{}))
		require.NoError(t, h.svc.VerifyOTP(ctx, "a@b.com", h.mailer.code(models.OTPPurposeEmailVerification, "a@b.com")))
		h.now = h.now.Add(11 * time.Minute)
		_, err := h.svc.Signup(ctx, "a@b.com", "135790")
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})
}

func TestSendOTP_DeliveryFailure(t *testing.T) {
	h := newHarness(t)
	h.mailer.fail = true
	err := h.svc.SendOTP(context.Background(), "a@b.com", ClientInfo{})
	assert.ErrorIs(t, err, ErrOTPDelivery)
}

func TestSignin_Lockout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signup(t, "ada@example.com", "135790")

	_, err := h.svc.Signin(ctx, "nobody@example.com", "135790", ClientInfo{})
	assert.ErrorIs(t, err, ErrUnknownEmail)

	for i := 0; i < models.MaxLoginAttempts; i++ {
		_, err := h.svc.Signin(ctx, "ada@example.com", "000001", ClientInfo{})
		assert.ErrorIs(t, err, ErrInvalidPasscode)
	}
	lockedAt := h.now

	user, err := h.store.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, user.LockUntil)
	assert.Equal(t, lockedAt.Add(models.LockDuration), *user.LockUntil)

	// Correct passcode is still rejected while locked, and nothing changes.
	h.now = h.now.Add(time.Hour)
	_, err = h.svc.Signin(ctx, "ada@example.com", "135790", ClientInfo{})
	assert.ErrorIs(t, err, ErrAccountLocked)
	again, err := h.store.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.LoginAttempts, again.LoginAttempts)
	assert.Equal(t, *user.LockUntil, *again.LockUntil)

	// After expiry a wrong passcode restarts the count at one.
	h.now = lockedAt.Add(models.LockDuration + time.Minute)
	_, err = h.svc.Signin(ctx, "ada@example.com", "000001", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidPasscode)
	after, err := h.store.Users().GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, after.LoginAttempts)
	assert.Nil(t, after.LockUntil)

	sess, err := h.svc.Signin(ctx, "ada@example.com", "135790", ClientInfo{IP: "10.0.0.2", UserAgent: "Mozilla/5.0 (iPhone) Mobile"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Zero(t, sess.User.LoginAttempts)

	devices, err := h.store.Users().ListDevices(ctx, sess.User.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Mobile Device", devices[0].DeviceName)
}

func TestPasscodeReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signup(t, "ada@example.com", "135790")

	require.NoError(t, h.svc.ForgotPasscode(ctx, "ghost@example.com", ClientInfo{}))
	assert.Empty(t, h.mailer.code(models.OTPPurposePasswordReset, "ghost@example.com"))

	require.NoError(t, h.svc.ForgotPasscode(ctx, "ada@example.com", ClientInfo{}))
	code := h.mailer.code(models.OTPPurposePasswordReset, "ada@example.com")
	require.NotEmpty(t, code)

	require.NoError(t, h.svc.VerifyResetOTP(ctx, "ada@example.com", code))
	require.NoError(t, h.svc.VerifyResetOTP(ctx, "ada@example.com", code))
	require.NoError(t, h.svc.ResetPasscode(ctx, "ada@example.com", code, "246801"))
	assert.ErrorIs(t, h.svc.ResetPasscode(ctx, "ada@example.com", code, "975310"), otp.ErrInvalidOTP)

	_, err := h.svc.Signin(ctx, "ada@example.com", "135790", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidPasscode)
	_, err = h.svc.Signin(ctx, "ada@example.com", "246801", ClientInfo{})
	assert.NoError(t, err)
}
