// Package middleware provides HTTP middleware components for the application.
// It includes authentication and email-verification gating for fiber routes.
package middleware

import (
	"errors"
	"strings"
	"time"

	apperrors "wyse/internal/errors"
	"wyse/internal/logger"
	"wyse/internal/models"
	"wyse/internal/repositories"
	"wyse/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthMiddleware validates bearer tokens and loads the authenticated user.
type AuthMiddleware struct {
	tokens *utils.TokenService
	users  repositories.UserRepository
	now    func() time.Time
}

func NewAuthMiddleware(tokens *utils.TokenService, users repositories.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, now: time.Now}
}

// Handler checks for:
// - Presence of Authorization header with Bearer token
// - Valid signature, expiry, issuer and audience
// - An existing, unlocked user
//
// On success the claims and the user are stored in Locals.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return apperrors.Authentication("Access denied", "No token provided")
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(tokenString))
	if err != nil {
		return apperrors.ErrAccessDenied
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return apperrors.ErrAccessDenied
	}

	user, err := m.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.Authentication("Access denied", "User not found")
		}
		logger.Log.Error("failed to load user for token", zap.String("user_id", claims.UserID), zap.Error(err))
		return apperrors.Internal("Authentication failed", err)
	}

	if user.IsLocked(m.now()) {
		return apperrors.ErrAccountLocked
	}

	c.Locals("claims", claims)
	c.Locals("user", user)
	return c.Next()
}

// RequireEmailVerification rejects users whose email is not verified. It must
// run after Handler.
func RequireEmailVerification(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok || user == nil {
		return apperrors.Authentication("Access denied", "No token provided")
	}
	if !user.IsEmailVerified {
		return apperrors.ErrEmailNotVerified
	}
	return c.Next()
}
