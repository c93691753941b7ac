package repositories

import (
	"context"
	"fmt"

	"wyse/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize bounds the number of rows per INSERT statement.
const upsertBatchSize = 200

type TransactionRepository interface {
	// UpsertMany writes txs keyed on (mono_id, linked_account_id). Existing
	// rows take the incoming payload.
	UpsertMany(ctx context.Context, txs []models.Transaction) (int64, error)
	// ListByUser returns a page of the user's transactions, newest first, and the total count.
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Transaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) UpsertMany(ctx context.Context, txs []models.Transaction) (int64, error) {
	if len(txs) == 0 {
		return 0, nil
	}
	// Postgres rejects an ON CONFLICT DO UPDATE statement that touches the
	// same key twice, and overlapping cursor pages can repeat a transaction.
	txs = uniqueByKey(txs)
	result := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mono_id"}, {Name: "linked_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "narration", "amount", "type", "category",
			"currency", "balance", "date", "raw", "updated_at",
		}),
	}).CreateInBatches(txs, upsertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}

type transactionKey struct {
	monoID          string
	linkedAccountID uuid.UUID
}

// uniqueByKey drops repeated (mono_id, linked_account_id) keys. The last
// occurrence's payload wins and keeps the first occurrence's position.
func uniqueByKey(txs []models.Transaction) []models.Transaction {
	seen := make(map[transactionKey]int, len(txs))
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		key := transactionKey{monoID: tx.MonoID, linkedAccountID: tx.LinkedAccountID}
		if i, ok := seen[key]; ok {
			out[i] = tx
			continue
		}
		seen[key] = len(out)
		out = append(out, tx)
	}
	return out
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]models.Transaction, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}

	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Preload("LinkedAccount").
		Where("user_id = ?", userID).
		Order("date DESC, mono_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrDatabaseOperation, err)
	}
	return txs, total, nil
}
