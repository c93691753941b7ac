package auth

import "errors"

var (
	ErrUserExists        = errors.New("user already exists")
	ErrEmailNotVerified  = errors.New("email has not been verified")
	ErrUnknownEmail      = errors.New("no account for email")
	ErrInvalidPasscode   = errors.New("invalid passcode")
	ErrAccountLocked     = errors.New("account is locked")
	ErrOTPDelivery       = errors.New("failed to deliver otp")
	ErrLoginStateChanged = errors.New("login state changed concurrently")
)
