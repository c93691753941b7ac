package repositories

import (
	"context"
	"time"

	"wyse/internal/models"

	"github.com/google/uuid"
)

// LoginState is the persisted part of the lockout state machine.
type LoginState struct {
	Attempts  int
	LockUntil *time.Time
}

// UserCache is the read-through cache used for lookups by id.
type UserCache interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, bool, error)
	CacheUser(ctx context.Context, user *models.User) error
	InvalidateUser(ctx context.Context, id uuid.UUID) error
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create inserts a user. Returns ErrEmailTaken when the email index rejects it.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by id. It may be served from cache, in which
	// case the passcode hash is empty.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user, passcode hash included.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// SaveLoginState writes next only if login_attempts still equals
	// expectedAttempts. lastLoginAt is written when non-nil.
	SaveLoginState(ctx context.Context, id uuid.UUID, expectedAttempts int, next LoginState, lastLoginAt *time.Time) error

	// UpdateProfile replaces the profile fields
	UpdateProfile(ctx context.Context, id uuid.UUID, profile models.Profile) error

	// UpdatePreferences replaces the preference fields
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.Preferences) error

	// UpdatePasscode stores a new passcode hash and clears any lockout
	UpdatePasscode(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error

	// UpsertDevice inserts the device or refreshes last_used, ip and agent
	UpsertDevice(ctx context.Context, device *models.Device) error

	// ListDevices returns the user's devices, most recently used first
	ListDevices(ctx context.Context, userID uuid.UUID) ([]models.Device, error)

	// DeleteDevice removes one device. Returns ErrDeviceNotFound if absent.
	DeleteDevice(ctx context.Context, userID uuid.UUID, deviceID string) error
}
