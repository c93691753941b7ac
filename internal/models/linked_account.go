package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LinkedAccount is a bank account linked through Mono. (user_id, account_id) is unique.
type LinkedAccount struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_linked_accounts_user_account" json:"userId"`
	AccountID     string          `gorm:"not null;uniqueIndex:idx_linked_accounts_user_account" json:"accountId"`
	Institution   Institution     `gorm:"embedded;embeddedPrefix:institution_" json:"institution"`
	AccountNumber string          `json:"accountNumber"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance"`
	AccountType   string          `json:"type"`
	Currency      string          `json:"currency"`
	BVN           string          `gorm:"column:bvn" json:"bvn,omitempty"`
	LinkedAt      time.Time       `json:"linkedAt"`
	LastSyncedAt  *time.Time      `json:"lastSyncedAt,omitempty"`
	Meta          JSON            `gorm:"type:jsonb" json:"meta"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type Institution struct {
	Name     string `json:"name"`
	BankCode string `json:"bankCode"`
	Type     string `json:"type"`
}

func (a *LinkedAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
