package repositories

import (
	"context"
	"fmt"
	"time"

	"wyse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPRepository persists one-time codes. Expiry is always compared against
// the caller's clock; DeleteExpired is housekeeping only.
type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTP) error
	// FindActive returns unused, unexpired codes for (email, purpose), newest first.
	FindActive(ctx context.Context, email, purpose string, now time.Time) ([]models.OTP, error)
	IncrementAttempts(ctx context.Context, ids []uuid.UUID) error
	// MarkUsed flips is_used on an unused record and stamps verified_at.
	// It reports false if another request consumed the record first.
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// HasRecentVerification reports whether a code for (email, purpose) was
	// successfully verified and created at or after since.
	HasRecentVerification(ctx context.Context, email, purpose string, since time.Time) (bool, error)
	InvalidateAll(ctx context.Context, email, purpose string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTP) error {
	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *otpRepository) FindActive(ctx context.Context, email, purpose string, now time.Time) ([]models.OTP, error) {
	var otps []models.OTP
	err := r.db.WithContext(ctx).
		Where("email = ? AND purpose = ? AND is_used = ? AND expires_at > ?", email, purpose, false, now).
		Order("created_at DESC").
		Find(&otps).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return otps, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id IN ?", ids).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}

func (r *otpRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{"is_used": true, "verified_at": now})
	if result.Error != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *otpRepository) HasRecentVerification(ctx context.Context, email, purpose string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("email = ? AND purpose = ? AND is_used = ? AND verified_at IS NOT NULL AND created_at >= ?", email, purpose, true, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return count > 0, nil
}

func (r *otpRepository) InvalidateAll(ctx context.Context, email, purpose string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.OTP{}).
		Where("email = ? AND purpose = ? AND is_used = ?", email, purpose, false).
		Update("is_used", true)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.OTP{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}
