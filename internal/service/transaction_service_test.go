package service

import (
	"context"
	"testing"
	"time"

	"cardsystem/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchase(identifier, amount string) *CreateTransactionRequest {
	return &CreateTransactionRequest{
		CardIdentifier:  identifier,
		TotalAmount:     decimal.RequireFromString(amount),
		PurchaseAddress: "Mall",
	}
}

func TestTransactionService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created := f.createCard(t, "1234567890123456", "12345678")
	enrolled, err := f.cards.EnrollCard(ctx, &EnrollCardRequest{
		Identifier:       created.Identifier,
		ValidationNumber: created.ValidationNumber,
	})
	require.NoError(t, err)
	require.Equal(t, model.CardStatusEnrolled, enrolled.Status)

	purchase, err := f.transactions.CreateTransaction(ctx, newPurchase(created.Identifier, "100.00"))
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusApproved, purchase.Status)
	assert.Regexp(t, `^TXN\d{13}[0-9a-f]{16}$`, purchase.ReferenceNumber)

	f.clock.Advance(2 * time.Minute)
	cancelled, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: purchase.ReferenceNumber})
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCancelled, cancelled.Status)

	_, err = f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: purchase.ReferenceNumber})
	assert.ErrorIs(t, err, ErrCancellationNotAllowed)
	assert.Equal(t, KindValidation, KindOf(err))

	var actions []string
	require.NoError(t, f.db.Model(&model.AuditLog{}).Order("id").Pluck("action", &actions).Error)
	assert.Equal(t, []string{
		model.AuditActionCreate,
		model.AuditActionEnroll,
		model.AuditActionCreate,
		model.AuditActionCancel,
	}, actions)

	var events []string
	require.NoError(t, f.db.Model(&model.OutboxMessage{}).Order("id").Pluck("event_type", &events).Error)
	assert.Equal(t, []string{
		model.EventCardCreated,
		model.EventCardEnrolled,
		model.EventTransactionCreated,
		model.EventTransactionCancelled,
	}, events)
}

func TestTransactionService_CreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")

		resp, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, "100.00"))
		require.NoError(t, err)
		assert.Regexp(t, `^TXN\d{13}[0-9a-f]{16}$`, resp.ReferenceNumber)
		assert.Equal(t, identifier, resp.CardIdentifier)
		assert.Equal(t, "100.00", resp.TotalAmount)
		assert.Equal(t, "Mall", resp.PurchaseAddress)
		assert.Equal(t, model.TransactionStatusApproved, resp.Status)
		assert.True(t, resp.CreatedAt.Equal(f.clock.Now()))

		stored, err := f.transactions.GetTransaction(ctx, resp.ReferenceNumber)
		require.NoError(t, err)
		assert.Equal(t, resp.ReferenceNumber, stored.ReferenceNumber)
		assert.Equal(t, resp.CardIdentifier, stored.CardIdentifier)
		assert.Equal(t, resp.TotalAmount, stored.TotalAmount)

		var audit model.AuditLog
		require.NoError(t, f.db.Where("entity = ?", model.AuditEntityTransaction).First(&audit).Error)
		assert.Equal(t, model.AuditActionCreate, audit.Action)
		assert.Equal(t, resp.ReferenceNumber, audit.EntityIdentifier)
		assert.Equal(t, "Transaction created for card: "+identifier+" with amount: 100.00", audit.Description)
	})

	t.Run("Card Not Enrolled", func(t *testing.T) {
		f := newFixture(t)
		created := f.createCard(t, "1111111111111111", "A1")
		inactive := f.createCard(t, "2222222222222222", "A2")
		require.NoError(t, f.cards.DeactivateCard(ctx, inactive.Identifier))

		for _, identifier := range []string{created.Identifier, inactive.Identifier} {
			_, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, "10.00"))
			assert.ErrorIs(t, err, ErrInvalidCardState)
			assert.Equal(t, KindInvalidState, KindOf(err))
		}

		assert.Zero(t, f.count(t, &model.Transaction{}))
		assert.Zero(t, f.count(t, &model.AuditLog{}, "entity = ?", model.AuditEntityTransaction))
	})

	t.Run("Deactivated After Enrollment", func(t *testing.T) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")
		require.NoError(t, f.cards.DeactivateCard(ctx, identifier))

		_, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, "10.00"))
		assert.ErrorIs(t, err, ErrInvalidCardState)
	})

	t.Run("Unknown Card", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.transactions.CreateTransaction(ctx, newPurchase("missing", "10.00"))
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")

		for _, amount := range []string{"0", "0.001", "-5.00", "0.009", "100.123", "100000000"} {
			_, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, amount))
			assert.ErrorIs(t, err, ErrInvalidInput, amount)
		}
		assert.Zero(t, f.count(t, &model.Transaction{}))
	})

	t.Run("Boundary Amounts", func(t *testing.T) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")

		for _, amount := range []string{"0.01", "99999999.99", "12.50"} {
			_, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, amount))
			assert.NoError(t, err, amount)
		}
	})

	t.Run("Missing Address", func(t *testing.T) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")

		req := newPurchase(identifier, "10.00")
		req.PurchaseAddress = ""
		_, err := f.transactions.CreateTransaction(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestTransactionService_CancelTransaction(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, string, string) {
		f := newFixture(t)
		identifier := f.enrolledCard(t, "1234567890123456", "12345678")
		resp, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, "100.00"))
		require.NoError(t, err)
		return f, identifier, resp.ReferenceNumber
	}

	t.Run("Exactly At Window", func(t *testing.T) {
		f, _, ref := setup(t)
		f.clock.Advance(5 * time.Minute)

		resp, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: ref})
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCancelled, resp.Status)
	})

	t.Run("Window Passed", func(t *testing.T) {
		f, _, ref := setup(t)
		f.clock.Advance(5*time.Minute + time.Second)

		_, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: ref})
		assert.ErrorIs(t, err, ErrCancellationNotAllowed)

		details, err := f.transactions.GetTransaction(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusApproved, details.Status)
		assert.Zero(t, f.count(t, &model.AuditLog{}, "action = ?", model.AuditActionCancel))
	})

	t.Run("Unknown Reference", func(t *testing.T) {
		f, _, _ := setup(t)
		_, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: "TXN0"})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("Other Card", func(t *testing.T) {
		f, _, ref := setup(t)
		other := f.enrolledCard(t, "6543210987654321", "87654321")

		_, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{
			ReferenceNumber: ref,
			CardIdentifier:  other,
		})
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("Matching Card And Amount", func(t *testing.T) {
		f, identifier, ref := setup(t)
		amount := decimal.RequireFromString("1.00")

		_, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{
			ReferenceNumber: ref,
			CardIdentifier:  identifier,
			TotalAmount:     &amount,
		})
		assert.NoError(t, err)
	})

	t.Run("Card Deactivated Later", func(t *testing.T) {
		f, identifier, ref := setup(t)
		require.NoError(t, f.cards.DeactivateCard(ctx, identifier))

		resp, err := f.transactions.CancelTransaction(ctx, &CancelTransactionRequest{ReferenceNumber: ref})
		require.NoError(t, err)
		assert.Equal(t, model.TransactionStatusCancelled, resp.Status)

		var audit model.AuditLog
		require.NoError(t, f.db.Where("action = ?", model.AuditActionCancel).First(&audit).Error)
		assert.Equal(t, model.AuditEntityTransaction, audit.Entity)
		assert.Equal(t, ref, audit.EntityIdentifier)
	})
}

func TestTransactionService_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.enrolledCard(t, "1111111111111111", "A1")
	second := f.enrolledCard(t, "2222222222222222", "A2")

	var refs []string
	for i, identifier := range []string{first, second, first} {
		f.clock.Advance(time.Minute)
		resp, err := f.transactions.CreateTransaction(ctx, newPurchase(identifier, []string{"10.00", "20.5", "30"}[i]))
		require.NoError(t, err)
		refs = append(refs, resp.ReferenceNumber)
	}

	t.Run("Get", func(t *testing.T) {
		details, err := f.transactions.GetTransaction(ctx, refs[1])
		require.NoError(t, err)
		assert.Equal(t, second, details.CardIdentifier)
		assert.Equal(t, "20.50", details.TotalAmount)
		assert.Equal(t, "Mall", details.PurchaseAddress)

		_, err = f.transactions.GetTransaction(ctx, "TXN0")
		assert.ErrorIs(t, err, ErrTransactionNotFound)
	})

	t.Run("List Newest First", func(t *testing.T) {
		page, err := f.transactions.ListTransactions(ctx, PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalElements)
		require.Len(t, page.Content, 3)
		assert.Equal(t, refs[2], page.Content[0].ReferenceNumber)
		assert.Equal(t, first, page.Content[0].CardIdentifier)
		assert.Equal(t, refs[0], page.Content[2].ReferenceNumber)
	})

	t.Run("List By Amount", func(t *testing.T) {
		page, err := f.transactions.ListTransactions(ctx, PageRequest{SortBy: "total_amount", SortDir: "asc", Size: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Content, 2)
		assert.Equal(t, "10.00", page.Content[0].TotalAmount)
		assert.Equal(t, "20.50", page.Content[1].TotalAmount)
	})

	t.Run("Unsupported Sort", func(t *testing.T) {
		_, err := f.transactions.ListTransactions(ctx, PageRequest{SortBy: "card_id"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
