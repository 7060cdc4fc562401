package model

import (
	"time"
)

const (
	AuditActionCreate     = "CREATE"
	AuditActionEnroll     = "ENROLL"
	AuditActionDeactivate = "DEACTIVATE"
	AuditActionCancel     = "CANCEL"
)

const (
	AuditEntityCard        = "Card"
	AuditEntityTransaction = "Transaction"
)

// AuditLog is an append-only record of a state-changing action.
// Rows are only ever inserted, in the same database transaction as the
// change they describe.
type AuditLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Action           string    `gorm:"type:varchar(32);not null" json:"action"`
	Entity           string    `gorm:"type:varchar(32);not null;index:idx_audit_entity" json:"entity"`
	EntityIdentifier string    `gorm:"type:varchar(64);not null;index:idx_audit_entity" json:"entity_identifier"`
	Description      string    `gorm:"type:varchar(512)" json:"description"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
