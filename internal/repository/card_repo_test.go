package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cardsystem/internal/model"
	"cardsystem/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard(i int) *model.Card {
	return &model.Card{
		Identifier:     fmt.Sprintf("identifier-%02d", i),
		Pan:            fmt.Sprintf("40000000000000%02d", i),
		HolderName:     fmt.Sprintf("Holder %02d", i),
		DocumentNumber: fmt.Sprintf("DOC%02d", i),
		CardType:       model.CardTypeCredit,
		Status:         model.CardStatusCreated,
		CreatedAt:      time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
	}
}

func TestCardRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Duplicate Pan", func(t *testing.T) {
		db := testutil.NewDB(t)
		repo := NewCardRepository(db)
		require.NoError(t, repo.Create(ctx, nil, newCard(1)))

		dup := newCard(1)
		dup.Identifier = "other"
		err := repo.Create(ctx, nil, dup)
		assert.ErrorIs(t, err, ErrDuplicateKey)

		var total int64
		require.NoError(t, db.Model(&model.Card{}).Count(&total).Error)
		assert.Equal(t, int64(1), total)
	})

	t.Run("Duplicate Identifier", func(t *testing.T) {
		repo := NewCardRepository(testutil.NewDB(t))
		require.NoError(t, repo.Create(ctx, nil, newCard(1)))

		dup := newCard(2)
		dup.Identifier = newCard(1).Identifier
		assert.ErrorIs(t, repo.Create(ctx, nil, dup), ErrDuplicateKey)
	})

	t.Run("Exists By Pan", func(t *testing.T) {
		repo := NewCardRepository(testutil.NewDB(t))
		require.NoError(t, repo.Create(ctx, nil, newCard(1)))

		exists, err := repo.ExistsByPan(ctx, nil, newCard(1).Pan)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByPan(ctx, nil, newCard(2).Pan)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestCardRepository_Lookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := NewCardRepository(db)

	first, second := newCard(1), newCard(2)
	require.NoError(t, repo.Create(ctx, nil, first))
	require.NoError(t, repo.Create(ctx, nil, second))

	t.Run("By Identifier", func(t *testing.T) {
		card, err := repo.GetByIdentifier(ctx, first.Identifier)
		require.NoError(t, err)
		assert.Equal(t, first.Pan, card.Pan)

		_, err = repo.GetByIdentifier(ctx, "missing")
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("For Update", func(t *testing.T) {
		card, err := repo.GetByIdentifierForUpdate(ctx, db, second.Identifier)
		require.NoError(t, err)
		assert.Equal(t, second.ID, card.ID)

		_, err = repo.GetByIdentifierForUpdate(ctx, db, "missing")
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("By ID", func(t *testing.T) {
		card, err := repo.GetByID(ctx, nil, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Identifier, card.Identifier)

		_, err = repo.GetByID(ctx, nil, 999)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("By IDs", func(t *testing.T) {
		cards, err := repo.GetByIDs(ctx, []int64{first.ID, second.ID, 999})
		require.NoError(t, err)
		assert.Len(t, cards, 2)
		assert.Equal(t, second.Identifier, cards[second.ID].Identifier)

		empty, err := repo.GetByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestCardRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewCardRepository(testutil.NewDB(t))

	card := newCard(1)
	require.NoError(t, repo.Create(ctx, nil, card))

	require.NoError(t, repo.UpdateStatus(ctx, nil, card.ID, model.CardStatusCreated, model.CardStatusEnrolled))

	// the row no longer holds CREATED
	err := repo.UpdateStatus(ctx, nil, card.ID, model.CardStatusCreated, model.CardStatusInactive)
	assert.ErrorIs(t, err, ErrStatusConflict)

	stored, err := repo.GetByIdentifier(ctx, card.Identifier)
	require.NoError(t, err)
	assert.Equal(t, model.CardStatusEnrolled, stored.Status)
}

func TestCardRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewCardRepository(testutil.NewDB(t))
	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, nil, newCard(i)))
	}

	order, ok := CardSortColumns.Resolve("created_at", "DESC")
	require.True(t, ok)

	cards, total, err := repo.List(ctx, PageQuery{Offset: 0, Limit: 2, Order: order})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, cards, 2)
	assert.Equal(t, "identifier-05", cards[0].Identifier)
	assert.Equal(t, "identifier-04", cards[1].Identifier)

	order, _ = CardSortColumns.Resolve("holder_name", "asc")
	cards, _, err = repo.List(ctx, PageQuery{Offset: 4, Limit: 2, Order: order})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Holder 05", cards[0].HolderName)
}

func TestSortColumns_Resolve(t *testing.T) {
	order, ok := CardSortColumns.Resolve("created_at", "desc")
	assert.True(t, ok)
	assert.True(t, order.Desc)
	assert.Equal(t, "created_at", order.Column.Name)

	order, ok = TransactionSortColumns.Resolve("total_amount", "whatever")
	assert.True(t, ok)
	assert.False(t, order.Desc)

	_, ok = CardSortColumns.Resolve("pan", "asc")
	assert.False(t, ok)
	_, ok = CardSortColumns.Resolve("validation_number", "asc")
	assert.False(t, ok)
}
