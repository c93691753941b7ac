package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction directions
const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// Transaction is a bank transaction pulled from Mono.
// (mono_id, linked_account_id) is unique; re-syncing overwrites in place.
type Transaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MonoID          string          `gorm:"not null;uniqueIndex:idx_transactions_mono_account" json:"monoId"`
	LinkedAccountID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_mono_account" json:"linkedAccountId"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	Narration       string          `json:"narration"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,2)" json:"amount"`
	Type            string          `json:"type"`
	Category        *string         `json:"category"`
	Currency        string          `json:"currency"`
	Balance         decimal.Decimal `gorm:"type:numeric(20,2)" json:"balance"`
	Date            time.Time       `gorm:"index" json:"date"`
	Raw             JSON            `gorm:"type:jsonb" json:"raw"`
	LinkedAccount   *LinkedAccount  `gorm:"foreignKey:LinkedAccountID" json:"linkedAccount,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

var transactionNamespace = uuid.MustParse("5b0f3c1e-8d9a-4e6b-a1c2-7f4d2e9b6a30")

// TransactionID is the stable row id for a Mono transaction on a linked account.
func TransactionID(linkedAccountID uuid.UUID, monoID string) uuid.UUID {
	return uuid.NewSHA1(transactionNamespace, []byte(linkedAccountID.String()+":"+monoID))
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CategoryOrEmpty returns the category, or "" when Mono sent none.
func (t *Transaction) CategoryOrEmpty() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}
