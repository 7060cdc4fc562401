package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusApproved  TransactionStatus = "APPROVED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

type TransactionOperation string

const (
	TransactionOperationCancel TransactionOperation = "CANCEL"
)

// TransactionTransitions mirrors CardTransitions for purchases.
// CANCELLED is terminal; nothing returns to APPROVED.
var TransactionTransitions = map[TransactionStatus]map[TransactionOperation]TransactionStatus{
	TransactionStatusApproved: {
		TransactionOperationCancel: TransactionStatusCancelled,
	},
}

func NextTransactionStatus(current TransactionStatus, op TransactionOperation) (TransactionStatus, bool) {
	next, ok := TransactionTransitions[current][op]
	return next, ok
}

// Transaction is a purchase made with an enrolled card.
// It points at its card by id only; cards hold no transaction collection.
type Transaction struct {
	ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNumber string            `gorm:"type:varchar(64);uniqueIndex;not null;<-:create" json:"reference_number"`
	CardID          int64             `gorm:"index;not null;<-:create" json:"card_id"`
	TotalAmount     decimal.Decimal   `gorm:"type:decimal(10,2);not null;<-:create" json:"total_amount"`
	PurchaseAddress string            `gorm:"type:varchar(255);not null" json:"purchase_address"`
	Status          TransactionStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime;index;<-:create" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "card_transaction"
}
