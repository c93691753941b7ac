package handlers

import (
	"errors"

	"wyse/internal/clients/mindsdb"
	monoclient "wyse/internal/clients/mono"
	apperrors "wyse/internal/errors"
	"wyse/internal/logger"
	"wyse/internal/repositories"
	"wyse/internal/services/auth"
	"wyse/internal/services/knowledge"
	"wyse/internal/services/mono"
	"wyse/internal/services/otp"
	"wyse/internal/utils"
	"wyse/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// translate maps a service error onto the API error taxonomy. Errors it does
// not recognize become a 500 titled title.
func translate(err error, title string) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, auth.ErrUserExists), errors.Is(err, repositories.ErrEmailTaken):
		return apperrors.Conflict("User already exists", "An account with this email already exists. Please sign in instead.").WithField("email")
	case errors.Is(err, auth.ErrEmailNotVerified):
		return apperrors.Validation("Email verification required", "Please verify your email with OTP before creating account").WithField("email")
	case errors.Is(err, auth.ErrUnknownEmail):
		return apperrors.ErrInvalidCredentials.WithField("email")
	case errors.Is(err, auth.ErrInvalidPasscode):
		return apperrors.ErrInvalidCredentials.WithField("passcode")
	case errors.Is(err, auth.ErrAccountLocked):
		return apperrors.ErrAccountLocked
	case errors.Is(err, otp.ErrInvalidOTP):
		return apperrors.Validation("Invalid OTP", "Invalid or expired OTP").WithField("otp")
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.NotFound("User not found", "User not found")
	case errors.Is(err, repositories.ErrDeviceNotFound):
		return apperrors.NotFound("Device not found", "No device with this id is registered to your account")
	case errors.Is(err, mono.ErrAccountNotLinked):
		return apperrors.NotFound("Account not linked to this user.", "Link the account before requesting its data")
	case errors.Is(err, mono.ErrNotConfigured):
		return apperrors.Internal("MONO_SECRET_KEY not set in environment.", err)
	case errors.Is(err, mono.ErrUpstream):
		e := apperrors.Upstream(title, err)
		var apiErr *monoclient.APIError
		if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
			return e.WithDetails(apiErr.Body)
		}
		return e
	case errors.Is(err, knowledge.ErrEmptyQuery):
		return apperrors.Validation("Invalid query", "Query must be a non-empty string")
	case errors.Is(err, mindsdb.ErrUnavailable):
		return apperrors.Upstream(title, err)
	case errors.Is(err, utils.ErrInvalidToken):
		return apperrors.ErrAccessDenied
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &apperrors.AppError{Status: fe.Code, Code: apperrors.CodeInternal, Title: fe.Message, Message: fe.Message}
	}
	return apperrors.Internal(title, err)
}

// fail translates err for return from a handler.
func fail(err error, title string) error {
	return translate(err, title)
}

// invalid renders validation failures in the shared envelope.
func invalid(v *validation.Validator) error {
	return apperrors.Validation("Validation failed", "Please check your input").WithDetails(v.Details())
}

// badBody is returned when the request body cannot be parsed.
func badBody() error {
	return apperrors.Validation("Invalid request body", "Request body must be valid JSON")
}

// ErrorHandler renders every error returned by a handler as
// {error, message, [details], [field]}; stack is added outside production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := translate(err, "Internal Server Error")

		if appErr.Status >= fiber.StatusInternalServerError {
			logger.Log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", appErr.Status),
				zap.Error(err),
			)
		}

		body := utils.ErrorBody(appErr.Title, appErr.Message, appErr.Details, appErr.Field)
		if !production && appErr.Err != nil {
			body["stack"] = appErr.Err.Error()
		}
		return c.Status(appErr.Status).JSON(body)
	}
}
