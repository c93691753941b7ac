package repositories

import (
	"context"
	"fmt"
	"time"

	"wyse/internal/logger"
	"wyse/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db    *gorm.DB
	cache UserCache
}

// NewUserRepository creates a new instance of UserRepository. cache may be nil.
func NewUserRepository(db *gorm.DB, cache UserCache) UserRepository {
	return &userRepository{
		db:    db,
		cache: cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if r.cache != nil {
		if user, found, err := r.cache.GetUser(ctx, id); err == nil && found {
			return user, nil
		} else if err != nil {
			logger.Log.Warn("user cache read failed", zap.String("user_id", id.String()), zap.Error(err))
		}
	}

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	if r.cache != nil {
		if err := r.cache.CacheUser(ctx, &user); err != nil {
			logger.Log.Warn("failed to cache user", zap.String("user_id", id.String()), zap.Error(err))
		}
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &user, nil
}

func (r *userRepository) SaveLoginState(ctx context.Context, id uuid.UUID, expectedAttempts int, next LoginState, lastLoginAt *time.Time) error {
	updates := map[string]interface{}{
		"login_attempts": next.Attempts,
		"lock_until":     next.LockUntil,
		"updated_at":     time.Now(),
	}
	if lastLoginAt != nil {
		updates["last_login_at"] = *lastLoginAt
	}

	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND login_attempts = ?", id, expectedAttempts).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	r.invalidate(ctx, id)
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.Profile) error {
	return r.update(ctx, id, map[string]interface{}{
		"first_name":    profile.FirstName,
		"last_name":     profile.LastName,
		"phone":         profile.Phone,
		"date_of_birth": profile.DateOfBirth,
		"avatar":        profile.Avatar,
	})
}

func (r *userRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.Preferences) error {
	return r.update(ctx, id, map[string]interface{}{
		"notify_email": prefs.Notifications.Email,
		"notify_push":  prefs.Notifications.Push,
		"notify_sms":   prefs.Notifications.SMS,
		"theme":        prefs.Theme,
		"currency":     prefs.Currency,
	})
}

func (r *userRepository) UpdatePasscode(ctx context.Context, id uuid.UUID, hash string, changedAt time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"passcode":             hash,
		"last_passcode_change": changedAt,
		"login_attempts":       0,
		"lock_until":           nil,
	})
}

func (r *userRepository) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *userRepository) UpsertDevice(ctx context.Context, device *models.Device) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_used", "ip_address", "user_agent"}),
	}).Create(device).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *userRepository) ListDevices(ctx context.Context, userID uuid.UUID) ([]models.Device, error) {
	var devices []models.Device
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("last_used DESC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return devices, nil
}

func (r *userRepository) DeleteDevice(ctx context.Context, userID uuid.UUID, deviceID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ? AND device_id = ?", userID, deviceID).Delete(&models.Device{})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *userRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.InvalidateUser(ctx, id); err != nil {
		logger.Log.Warn("failed to invalidate user cache", zap.String("user_id", id.String()), zap.Error(err))
	}
}
