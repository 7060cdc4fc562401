package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"cardsystem/internal/config"
	"cardsystem/internal/logger"
	"cardsystem/internal/model"
	"cardsystem/internal/repository"
	"cardsystem/pkg/cardutil"

	"gorm.io/gorm"
)

type CardService struct {
	db        *gorm.DB
	cfg       *config.Config
	cache     CardCache
	generator *cardutil.Generator
	cardRepo  *repository.CardRepository
	audit     *AuditService
	events    *eventWriter
}

func NewCardService(db *gorm.DB, cache CardCache, generator *cardutil.Generator, cfg *config.Config) *CardService {
	if cache == nil {
		cache = NoopCardCache{}
	}
	return &CardService{
		db:        db,
		cfg:       cfg,
		cache:     cache,
		generator: generator,
		cardRepo:  repository.NewCardRepository(db),
		audit:     NewAuditService(db),
		events:    newEventWriter(db, cfg.Kafka.Topic.CardEvents),
	}
}

type CreateCardRequest struct {
	Pan            string         `json:"pan" validate:"required,len=16,number"`
	HolderName     string         `json:"holder_name" validate:"required,max=100"`
	DocumentNumber string         `json:"document_number" validate:"required,max=20"`
	CardType       model.CardType `json:"card_type" validate:"required,card_type"`
	PhoneNumber    string         `json:"phone_number" validate:"omitempty,phone"`
}

// CreateCardResponse is the only place the validation number is ever returned.
type CreateCardResponse struct {
	Identifier       string `json:"identifier"`
	MaskedPan        string `json:"masked_pan"`
	ValidationNumber string `json:"validation_number"`
}

type EnrollCardRequest struct {
	Identifier       string `json:"identifier" validate:"required,max=64"`
	ValidationNumber string `json:"validation_number" validate:"required"`
}

type EnrollCardResponse struct {
	Identifier string           `json:"identifier"`
	Status     model.CardStatus `json:"status"`
	MaskedPan  string           `json:"masked_pan"`
}

// CardDetails is the public projection of a card.
type CardDetails struct {
	Identifier     string           `json:"identifier"`
	MaskedPan      string           `json:"masked_pan"`
	HolderName     string           `json:"holder_name"`
	DocumentNumber string           `json:"document_number"`
	CardType       model.CardType   `json:"card_type"`
	PhoneNumber    string           `json:"phone_number,omitempty"`
	Status         model.CardStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

func newCardDetails(card *model.Card) *CardDetails {
	return &CardDetails{
		Identifier:     card.Identifier,
		MaskedPan:      cardutil.MaskPan(card.Pan),
		HolderName:     card.HolderName,
		DocumentNumber: card.DocumentNumber,
		CardType:       card.CardType,
		PhoneNumber:    card.PhoneNumber,
		Status:         card.Status,
		CreatedAt:      card.CreatedAt,
	}
}

func newCardEventData(card *model.Card) CardEventData {
	return CardEventData{
		Identifier: card.Identifier,
		MaskedPan:  cardutil.MaskPan(card.Pan),
		CardType:   card.CardType,
		Status:     card.Status,
	}
}

// CreateCard issues a card in CREATED state and returns its one-time
// validation number.
func (s *CardService) CreateCard(ctx context.Context, req *CreateCardRequest) (*CreateCardResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	code, err := s.generator.ValidationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate validation number: %w", err)
	}

	card := &model.Card{
		Identifier:       cardutil.DeriveIdentifier(req.Pan, req.DocumentNumber),
		Pan:              req.Pan,
		HolderName:       req.HolderName,
		DocumentNumber:   req.DocumentNumber,
		CardType:         req.CardType,
		PhoneNumber:      req.PhoneNumber,
		Status:           model.CardStatusCreated,
		ValidationNumber: code,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := s.cardRepo.ExistsByPan(ctx, tx, req.Pan)
		if err != nil {
			return fmt.Errorf("failed to check pan: %w", err)
		}
		if exists {
			return ErrDuplicateCard
		}

		if err := s.cardRepo.Create(ctx, tx, card); err != nil {
			// lost a race with a concurrent create of the same pan
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDuplicateCard
			}
			return fmt.Errorf("failed to create card: %w", err)
		}

		description := fmt.Sprintf("Card created with PAN: %s", cardutil.MaskPan(card.Pan))
		if err := s.audit.Record(ctx, tx, model.AuditActionCreate, model.AuditEntityCard, card.Identifier, description); err != nil {
			return err
		}

		return s.events.write(ctx, tx, card.Identifier, model.EventCardCreated, newCardEventData(card))
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("identifier", card.Identifier).
		Str("card_type", string(card.CardType)).
		Msg("card created")

	return &CreateCardResponse{
		Identifier:       card.Identifier,
		MaskedPan:        cardutil.MaskPan(card.Pan),
		ValidationNumber: code,
	}, nil
}

// EnrollCard moves a CREATED card to ENROLLED when the validation number matches.
// The card state is checked before the code, so a card that cannot be enrolled
// reports InvalidState whatever code is sent.
func (s *CardService) EnrollCard(ctx context.Context, req *EnrollCardRequest) (*EnrollCardResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var card *model.Card
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		card, err = s.loadForUpdate(ctx, tx, req.Identifier)
		if err != nil {
			return err
		}

		next, ok := model.NextCardStatus(card.Status, model.CardOperationEnroll)
		if !ok {
			return fmt.Errorf("%w: card is %s, only %s cards can be enrolled", ErrInvalidCardState, card.Status, model.CardStatusCreated)
		}

		if err := validateCodeFormat(req.ValidationNumber, s.generator.CodeLength()); err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(card.ValidationNumber), []byte(req.ValidationNumber)) != 1 {
			return ErrInvalidValidationCode
		}

		if err := s.transition(ctx, tx, card, next); err != nil {
			return err
		}

		description := fmt.Sprintf("Card enrolled with identifier: %s", card.Identifier)
		if err := s.audit.Record(ctx, tx, model.AuditActionEnroll, model.AuditEntityCard, card.Identifier, description); err != nil {
			return err
		}

		return s.events.write(ctx, tx, card.Identifier, model.EventCardEnrolled, newCardEventData(card))
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, card.Identifier)
	logger.FromContext(ctx).Info().Str("identifier", card.Identifier).Msg("card enrolled")

	return &EnrollCardResponse{
		Identifier: card.Identifier,
		Status:     card.Status,
		MaskedPan:  cardutil.MaskPan(card.Pan),
	}, nil
}

// GetCardDetails returns the masked projection of a card, served from the
// cache when possible.
func (s *CardService) GetCardDetails(ctx context.Context, identifier string) (*CardDetails, error) {
	log := logger.FromContext(ctx)

	var cached CardDetails
	hit, err := s.cache.Get(ctx, identifier, &cached)
	if err != nil {
		log.Warn().Err(err).Str("identifier", identifier).Msg("card cache read failed")
	}
	if hit {
		return &cached, nil
	}

	card, err := s.cardRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCardNotFound, identifier)
		}
		return nil, fmt.Errorf("failed to load card: %w", err)
	}

	details := newCardDetails(card)
	if err := s.cache.Set(ctx, identifier, details); err != nil {
		log.Warn().Err(err).Str("identifier", identifier).Msg("card cache write failed")
	}
	return details, nil
}

// DeactivateCard moves a CREATED or ENROLLED card to INACTIVE.
func (s *CardService) DeactivateCard(ctx context.Context, identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidInput)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		card, err := s.loadForUpdate(ctx, tx, identifier)
		if err != nil {
			return err
		}

		next, ok := model.NextCardStatus(card.Status, model.CardOperationDeactivate)
		if !ok {
			return fmt.Errorf("%w: card is already %s", ErrInvalidCardState, card.Status)
		}

		if err := s.transition(ctx, tx, card, next); err != nil {
			return err
		}

		description := fmt.Sprintf("Card deactivated with identifier: %s", card.Identifier)
		if err := s.audit.Record(ctx, tx, model.AuditActionDeactivate, model.AuditEntityCard, card.Identifier, description); err != nil {
			return err
		}

		return s.events.write(ctx, tx, card.Identifier, model.EventCardDeactivated, newCardEventData(card))
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, identifier)
	logger.FromContext(ctx).Info().Str("identifier", identifier).Msg("card deactivated")
	return nil
}

func (s *CardService) ListCards(ctx context.Context, req PageRequest) (*Page[CardDetails], error) {
	req, query, err := resolvePage(req, repository.CardSortColumns, s.cfg.Business)
	if err != nil {
		return nil, err
	}

	cards, total, err := s.cardRepo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	content := make([]CardDetails, 0, len(cards))
	for _, card := range cards {
		content = append(content, *newCardDetails(card))
	}
	return newPage(content, req, total), nil
}

// RequireEnrolled locks the card inside tx and checks it can take new
// transactions. The lock is held until tx ends, so a concurrent
// deactivation cannot slip in between check and insert.
func (s *CardService) RequireEnrolled(ctx context.Context, tx *gorm.DB, identifier string) (*model.Card, error) {
	card, err := s.loadForUpdate(ctx, tx, identifier)
	if err != nil {
		return nil, err
	}
	if card.Status != model.CardStatusEnrolled {
		return nil, fmt.Errorf("%w: card is %s, must be %s", ErrInvalidCardState, card.Status, model.CardStatusEnrolled)
	}
	return card, nil
}

// IdentifiersByID maps card ids to their public identifiers.
func (s *CardService) IdentifiersByID(ctx context.Context, ids []int64) (map[int64]string, error) {
	cards, err := s.cardRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	identifiers := make(map[int64]string, len(cards))
	for id, card := range cards {
		identifiers[id] = card.Identifier
	}
	return identifiers, nil
}

func (s *CardService) loadForUpdate(ctx context.Context, tx *gorm.DB, identifier string) (*model.Card, error) {
	card, err := s.cardRepo.GetByIdentifierForUpdate(ctx, tx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrCardNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCardNotFound, identifier)
		}
		return nil, fmt.Errorf("failed to load card: %w", err)
	}
	return card, nil
}

func (s *CardService) transition(ctx context.Context, tx *gorm.DB, card *model.Card, next model.CardStatus) error {
	if err := s.cardRepo.UpdateStatus(ctx, tx, card.ID, card.Status, next); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return fmt.Errorf("%w: card status changed concurrently", ErrInvalidCardState)
		}
		return fmt.Errorf("failed to update card status: %w", err)
	}
	card.Status = next
	return nil
}

func (s *CardService) invalidate(ctx context.Context, identifier string) {
	if err := s.cache.Delete(ctx, identifier); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("identifier", identifier).Msg("card cache invalidation failed")
	}
}
