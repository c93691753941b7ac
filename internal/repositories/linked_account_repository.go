package repositories

import (
	"context"
	"fmt"
	"time"

	"wyse/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinkedAccountRepository interface {
	// Link inserts the account unless (user_id, account_id) already exists and
	// returns the stored row. created is false for an existing link.
	Link(ctx context.Context, account *models.LinkedAccount) (stored *models.LinkedAccount, created bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.LinkedAccount, error)
	GetByAccountID(ctx context.Context, userID uuid.UUID, accountID string) (*models.LinkedAccount, error)
	// MarkSynced moves the watermark to syncedAt and refreshes the balance.
	// An older syncedAt never overwrites a newer watermark.
	MarkSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time, balance decimal.Decimal) error
}

type linkedAccountRepository struct {
	db *gorm.DB
}

func NewLinkedAccountRepository(db *gorm.DB) LinkedAccountRepository {
	return &linkedAccountRepository{db: db}
}

func (r *linkedAccountRepository) Link(ctx context.Context, account *models.LinkedAccount) (*models.LinkedAccount, bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "account_id"}},
		DoNothing: true,
	}).Create(account)
	if result.Error != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 1 {
		return account, true, nil
	}

	stored, err := r.GetByAccountID(ctx, account.UserID, account.AccountID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *linkedAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.LinkedAccount, error) {
	var accounts []models.LinkedAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("linked_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return accounts, nil
}

func (r *linkedAccountRepository) GetByAccountID(ctx context.Context, userID uuid.UUID, accountID string) (*models.LinkedAccount, error) {
	var account models.LinkedAccount
	err := r.db.WithContext(ctx).Where("user_id = ? AND account_id = ?", userID, accountID).First(&account).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrLinkedAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return &account, nil
}

func (r *linkedAccountRepository) MarkSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time, balance decimal.Decimal) error {
	err := r.db.WithContext(ctx).Model(&models.LinkedAccount{}).
		Where("id = ? AND (last_synced_at IS NULL OR last_synced_at < ?)", id, syncedAt).
		Updates(map[string]interface{}{
			"last_synced_at": syncedAt,
			"balance":        balance,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return nil
}
