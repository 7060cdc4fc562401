package repository

import (
	"context"
	"errors"

	"cardsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCardNotFound = errors.New("card not found")

var CardSortColumns = SortColumns{
	"created_at":      "created_at",
	"holder_name":     "holder_name",
	"document_number": "document_number",
	"card_type":       "card_type",
	"status":          "status",
	"identifier":      "identifier",
}

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

// Create inserts card. Unique violations on pan or identifier yield ErrDuplicateKey.
func (r *CardRepository) Create(ctx context.Context, tx *gorm.DB, card *model.Card) error {
	return translateError(r.conn(tx).WithContext(ctx).Create(card).Error)
}

func (r *CardRepository) ExistsByPan(ctx context.Context, tx *gorm.DB, pan string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&model.Card{}).
		Where("pan = ?", pan).
		Count(&count).Error
	return count > 0, err
}

func (r *CardRepository) GetByIdentifier(ctx context.Context, identifier string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// GetByIdentifierForUpdate reads the card row with a write lock held until tx ends.
func (r *CardRepository) GetByIdentifierForUpdate(ctx context.Context, tx *gorm.DB, identifier string) (*model.Card, error) {
	var card model.Card
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("identifier = ?", identifier).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

func (r *CardRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Card, error) {
	var card model.Card
	err := r.conn(tx).WithContext(ctx).First(&card, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, err
	}
	return &card, nil
}

// GetByIDs returns the cards with the given ids keyed by id. Unknown ids are skipped.
func (r *CardRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Card, error) {
	cards := make(map[int64]*model.Card, len(ids))
	if len(ids) == 0 {
		return cards, nil
	}

	var rows []*model.Card
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, c := range rows {
		cards[c.ID] = c
	}
	return cards, nil
}

// UpdateStatus moves the card from fromStatus to toStatus. It only succeeds if
// the row still holds fromStatus, otherwise ErrStatusConflict.
func (r *CardRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus model.CardStatus) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Card{}).
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

func (r *CardRepository) List(ctx context.Context, q PageQuery) ([]*model.Card, int64, error) {
	var cards []*model.Card
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Card{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).Scopes(paginate(q)).Find(&cards).Error
	return cards, total, err
}
