package handlers

import (
	"wyse/internal/logger"
	"wyse/internal/services/auth"
	"wyse/internal/utils"
	"wyse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type emailInput struct {
	Email string `json:"email"`
}

type otpInput struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type credentialsInput struct {
	Email    string `json:"email"`
	Passcode string `json:"passcode"`
}

type resetInput struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Passcode string `json:"passcode"`
}

func clientInfo(c *fiber.Ctx) auth.ClientInfo {
	return auth.ClientInfo{IP: c.IP(), UserAgent: c.Get(fiber.HeaderUserAgent)}
}

// SendOTP issues an email verification code.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var input emailInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	if !v.Valid() {
		return invalid(v)
	}

	if err := h.authService.SendOTP(c.UserContext(), input.Email, clientInfo(c)); err != nil {
		return fail(err, "Failed to send OTP")
	}
	return utils.Success(c, fiber.Map{"message": "OTP sent successfully", "email": input.Email})
}

// VerifyOTP consumes an email verification code.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var input otpInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	v.Digits("otp", "OTP", input.OTP, 6)
	if !v.Valid() {
		return invalid(v)
	}

	if err := h.authService.VerifyOTP(c.UserContext(), input.Email, input.OTP); err != nil {
		return fail(err, "Failed to verify OTP")
	}
	return utils.Success(c, fiber.Map{"message": "OTP verified successfully", "email": input.Email})
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var input credentialsInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	v.Passcode("passcode", input.Passcode)
	if !v.Valid() {
		return invalid(v)
	}

	session, err := h.authService.Signup(c.UserContext(), input.Email, input.Passcode)
	if err != nil {
		return fail(err, "Failed to create account")
	}
	return utils.Created(c, fiber.Map{
		"message": "Account created successfully",
		"user":    session.User.Public(),
		"token":   session.Token,
	})
}

func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var input credentialsInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	v.Digits("passcode", "Passcode", input.Passcode, 6)
	if !v.Valid() {
		return invalid(v)
	}

	session, err := h.authService.Signin(c.UserContext(), input.Email, input.Passcode, clientInfo(c))
	if err != nil {
		return fail(err, "Failed to sign in")
	}
	return utils.Success(c, fiber.Map{
		"message": "Sign in successful",
		"user":    session.User.Public(),
		"token":   session.Token,
	})
}

// ForgotPasscode always answers the same way so it cannot be used to probe
// which emails are registered.
func (h *AuthHandler) ForgotPasscode(c *fiber.Ctx) error {
	var input emailInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	if !v.Valid() {
		return invalid(v)
	}

	if err := h.authService.ForgotPasscode(c.UserContext(), input.Email, clientInfo(c)); err != nil {
		return fail(err, "Failed to send reset code")
	}
	return utils.Success(c, fiber.Map{
		"message": "If an account exists for this email, a reset code has been sent",
		"email":   input.Email,
	})
}

// VerifyResetOTP checks a reset code without consuming it.
func (h *AuthHandler) VerifyResetOTP(c *fiber.Ctx) error {
	var input otpInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	v.Digits("otp", "OTP", input.OTP, 6)
	if !v.Valid() {
		return invalid(v)
	}

	if err := h.authService.VerifyResetOTP(c.UserContext(), input.Email, input.OTP); err != nil {
		return fail(err, "Failed to verify OTP")
	}
	return utils.Success(c, fiber.Map{"message": "OTP verified successfully", "email": input.Email})
}

func (h *AuthHandler) ResetPasscode(c *fiber.Ctx) error {
	var input resetInput
	if err := c.BodyParser(&input); err != nil {
		return badBody()
	}
	input.Email = validation.NormalizeEmail(input.Email)

	v := validation.New()
	v.Email("email", input.Email)
	v.Digits("otp", "OTP", input.OTP, 6)
	v.Passcode("passcode", input.Passcode)
	if !v.Valid() {
		return invalid(v)
	}

	if err := h.authService.ResetPasscode(c.UserContext(), input.Email, input.OTP, input.Passcode); err != nil {
		return fail(err, "Failed to reset passcode")
	}
	return utils.Success(c, fiber.Map{"message": "Passcode reset successfully"})
}

// Signout is stateless; the client discards its token.
func (h *AuthHandler) Signout(c *fiber.Ctx) error {
	if claims, err := utils.GetUserClaims(c); err == nil {
		logger.Log.Info("user signed out", zap.String("userId", claims.UserID))
	}
	return utils.Success(c, fiber.Map{"message": "Sign out successful"})
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	user, err := utils.GetUser(c)
	if err != nil {
		return fail(err, "Failed to verify token")
	}
	return utils.Success(c, fiber.Map{"message": "Token verified", "user": user.Public()})
}
