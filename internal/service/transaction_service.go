package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardsystem/internal/config"
	"cardsystem/internal/logger"
	"cardsystem/internal/model"
	"cardsystem/internal/repository"
	"cardsystem/pkg/cardutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionService struct {
	db              *gorm.DB
	cfg             *config.Config
	cards           *CardService
	generator       *cardutil.Generator
	transactionRepo *repository.TransactionRepository
	audit           *AuditService
	events          *eventWriter
	now             func() time.Time
}

type TransactionOption func(*TransactionService)

// WithClock replaces the clock used for creation times and the cancel window.
func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) {
		s.now = now
	}
}

func NewTransactionService(db *gorm.DB, cards *CardService, generator *cardutil.Generator, cfg *config.Config, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		db:              db,
		cfg:             cfg,
		cards:           cards,
		generator:       generator,
		transactionRepo: repository.NewTransactionRepository(db),
		audit:           NewAuditService(db),
		events:          newEventWriter(db, cfg.Kafka.Topic.CardEvents),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateTransactionRequest struct {
	CardIdentifier  string          `json:"card_identifier" validate:"required,max=64"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PurchaseAddress string          `json:"purchase_address" validate:"required,max=255"`
}

type CancelTransactionRequest struct {
	ReferenceNumber string `json:"reference_number" validate:"required,max=64"`
	// CardIdentifier optionally scopes the lookup to one card.
	CardIdentifier string `json:"card_identifier" validate:"omitempty,max=64"`
	// TotalAmount is informational only and not compared.
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

type CancelTransactionResponse struct {
	ReferenceNumber string                  `json:"reference_number"`
	Status          model.TransactionStatus `json:"status"`
}

// TransactionDetails is the public projection of a transaction. The card is
// referenced by identifier, never by internal id.
type TransactionDetails struct {
	ReferenceNumber string                  `json:"reference_number"`
	CardIdentifier  string                  `json:"card_identifier"`
	TotalAmount     string                  `json:"total_amount"`
	PurchaseAddress string                  `json:"purchase_address"`
	Status          model.TransactionStatus `json:"status"`
	CreatedAt       time.Time               `json:"created_at"`
}

func newTransactionDetails(trans *model.Transaction, cardIdentifier string) TransactionDetails {
	return TransactionDetails{
		ReferenceNumber: trans.ReferenceNumber,
		CardIdentifier:  cardIdentifier,
		TotalAmount:     trans.TotalAmount.StringFixed(2),
		PurchaseAddress: trans.PurchaseAddress,
		Status:          trans.Status,
		CreatedAt:       trans.CreatedAt,
	}
}

func newTransactionEventData(trans *model.Transaction, cardIdentifier string) TransactionEventData {
	return TransactionEventData{
		ReferenceNumber: trans.ReferenceNumber,
		CardIdentifier:  cardIdentifier,
		TotalAmount:     trans.TotalAmount.StringFixed(2),
		Status:          trans.Status,
	}
}

// CreateTransaction records an APPROVED purchase against an ENROLLED card.
func (s *TransactionService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*TransactionDetails, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateAmount(req.TotalAmount); err != nil {
		return nil, err
	}

	referenceNumber, err := s.generator.ReferenceNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reference number: %w", err)
	}

	trans := &model.Transaction{
		ReferenceNumber: referenceNumber,
		TotalAmount:     req.TotalAmount,
		PurchaseAddress: req.PurchaseAddress,
		Status:          model.TransactionStatusApproved,
		CreatedAt:       s.now().Truncate(time.Millisecond),
	}

	var cardIdentifier string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		card, err := s.cards.RequireEnrolled(ctx, tx, req.CardIdentifier)
		if err != nil {
			return err
		}
		trans.CardID = card.ID
		cardIdentifier = card.Identifier

		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return fmt.Errorf("%w: %s", ErrDuplicateReference, referenceNumber)
			}
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		description := fmt.Sprintf("Transaction created for card: %s with amount: %s",
			card.Identifier, trans.TotalAmount.StringFixed(2))
		if err := s.audit.Record(ctx, tx, model.AuditActionCreate, model.AuditEntityTransaction, referenceNumber, description); err != nil {
			return err
		}

		return s.events.write(ctx, tx, referenceNumber, model.EventTransactionCreated, newTransactionEventData(trans, card.Identifier))
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("reference_number", referenceNumber).
		Str("card_identifier", cardIdentifier).
		Str("amount", trans.TotalAmount.StringFixed(2)).
		Msg("transaction created")

	details := newTransactionDetails(trans, cardIdentifier)
	return &details, nil
}

// CancelTransaction cancels an APPROVED transaction while it is still within
// the cancel window.
func (s *TransactionService) CancelTransaction(ctx context.Context, req *CancelTransactionRequest) (*CancelTransactionResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		trans, err = s.transactionRepo.GetByReferenceNumberForUpdate(ctx, tx, req.ReferenceNumber)
		if err != nil {
			if errors.Is(err, repository.ErrTransactionNotFound) {
				return fmt.Errorf("%w: %s", ErrTransactionNotFound, req.ReferenceNumber)
			}
			return fmt.Errorf("failed to load transaction: %w", err)
		}

		card, err := s.cards.cardRepo.GetByID(ctx, tx, trans.CardID)
		if err != nil {
			return fmt.Errorf("failed to load card of transaction %s: %w", trans.ReferenceNumber, err)
		}
		// a reference number of another card is reported as unknown
		if req.CardIdentifier != "" && card.Identifier != req.CardIdentifier {
			return fmt.Errorf("%w: %s", ErrTransactionNotFound, req.ReferenceNumber)
		}

		next, ok := model.NextTransactionStatus(trans.Status, model.TransactionOperationCancel)
		if !ok {
			return fmt.Errorf("%w: transaction is already %s", ErrCancellationNotAllowed, trans.Status)
		}

		window := s.cfg.Business.CancelWindow()
		if elapsed := s.now().Sub(trans.CreatedAt); elapsed > window {
			return fmt.Errorf("%w: cancel window of %s has passed", ErrCancellationNotAllowed, window)
		}

		if err := s.transactionRepo.UpdateStatus(ctx, tx, trans.ID, trans.Status, next); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return fmt.Errorf("%w: transaction status changed concurrently", ErrCancellationNotAllowed)
			}
			return fmt.Errorf("failed to update transaction status: %w", err)
		}
		trans.Status = next

		description := fmt.Sprintf("Transaction cancelled for card: %s with amount: %s",
			card.Identifier, trans.TotalAmount.StringFixed(2))
		if err := s.audit.Record(ctx, tx, model.AuditActionCancel, model.AuditEntityTransaction, trans.ReferenceNumber, description); err != nil {
			return err
		}

		return s.events.write(ctx, tx, trans.ReferenceNumber, model.EventTransactionCancelled, newTransactionEventData(trans, card.Identifier))
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().Str("reference_number", trans.ReferenceNumber).Msg("transaction cancelled")

	return &CancelTransactionResponse{
		ReferenceNumber: trans.ReferenceNumber,
		Status:          trans.Status,
	}, nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, referenceNumber string) (*TransactionDetails, error) {
	trans, err := s.transactionRepo.GetByReferenceNumber(ctx, referenceNumber)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, referenceNumber)
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	identifiers, err := s.cards.IdentifiersByID(ctx, []int64{trans.CardID})
	if err != nil {
		return nil, err
	}
	identifier, ok := identifiers[trans.CardID]
	if !ok {
		return nil, fmt.Errorf("transaction %s references missing card %d", trans.ReferenceNumber, trans.CardID)
	}

	details := newTransactionDetails(trans, identifier)
	return &details, nil
}

func (s *TransactionService) ListTransactions(ctx context.Context, req PageRequest) (*Page[TransactionDetails], error) {
	req, query, err := resolvePage(req, repository.TransactionSortColumns, s.cfg.Business)
	if err != nil {
		return nil, err
	}

	transactions, total, err := s.transactionRepo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	ids := make([]int64, 0, len(transactions))
	for _, trans := range transactions {
		ids = append(ids, trans.CardID)
	}
	identifiers, err := s.cards.IdentifiersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	content := make([]TransactionDetails, 0, len(transactions))
	for _, trans := range transactions {
		identifier, ok := identifiers[trans.CardID]
		if !ok {
			return nil, fmt.Errorf("transaction %s references missing card %d", trans.ReferenceNumber, trans.CardID)
		}
		content = append(content, newTransactionDetails(trans, identifier))
	}
	return newPage(content, req, total), nil
}
