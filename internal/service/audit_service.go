package service

import (
	"context"
	"errors"
	"fmt"

	"cardsystem/internal/model"
	"cardsystem/internal/repository"

	"gorm.io/gorm"
)

var errAuditOutsideTransaction = errors.New("audit record must be written inside the mutation's transaction")

// AuditService appends audit records. It has no read side.
type AuditService struct {
	auditRepo *repository.AuditRepository
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{
		auditRepo: repository.NewAuditRepository(db),
	}
}

// Record appends one entry using tx, the transaction of the mutation being
// documented. A failed write fails the whole mutation.
func (s *AuditService) Record(ctx context.Context, tx *gorm.DB, action, entity, entityIdentifier, description string) error {
	if tx == nil {
		return errAuditOutsideTransaction
	}

	entry := &model.AuditLog{
		Action:           action,
		Entity:           entity,
		EntityIdentifier: entityIdentifier,
		Description:      description,
	}
	if err := s.auditRepo.Create(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}
