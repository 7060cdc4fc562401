package repository

import (
	"context"
	"errors"

	"cardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTransactionNotFound = errors.New("transaction not found")

var TransactionSortColumns = SortColumns{
	"created_at":       "created_at",
	"total_amount":     "total_amount",
	"status":           "status",
	"reference_number": "reference_number",
	"purchase_address": "purchase_address",
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts trans. A reused reference number yields ErrDuplicateKey.
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return translateError(tx.WithContext(ctx).Create(trans).Error)
}

func (r *TransactionRepository) GetByReferenceNumber(ctx context.Context, referenceNumber string) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("reference_number = ?", referenceNumber).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) GetByReferenceNumberForUpdate(ctx context.Context, tx *gorm.DB, referenceNumber string) (*model.Transaction, error) {
	var trans model.Transaction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference_number = ?", referenceNumber).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus model.TransactionStatus) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, q PageQuery) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Transaction{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Scopes(paginate(q)).Find(&transactions).Error
	return transactions, total, err
}
