package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"cardsystem/internal/config"
	"cardsystem/internal/model"
	"cardsystem/internal/testutil"
	"cardsystem/pkg/cardutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db           *gorm.DB
	cfg          *config.Config
	clock        *fakeClock
	cache        *memoryCache
	cards        *CardService
	transactions *TransactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := config.Default()
	clock := &fakeClock{now: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}
	cache := newMemoryCache()
	generator := cardutil.NewGenerator(cfg.Business.ValidationCodeLength)

	cards := NewCardService(db, cache, generator, cfg)
	return &fixture{
		db:           db,
		cfg:          cfg,
		clock:        clock,
		cache:        cache,
		cards:        cards,
		transactions: NewTransactionService(db, cards, generator, cfg, WithClock(clock.Now)),
	}
}

func (f *fixture) createCard(t *testing.T, pan, document string) *CreateCardResponse {
	t.Helper()
	resp, err := f.cards.CreateCard(context.Background(), &CreateCardRequest{
		Pan:            pan,
		HolderName:     "Jane Doe",
		DocumentNumber: document,
		CardType:       model.CardTypeDebit,
		PhoneNumber:    "+5511999999999",
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) enrolledCard(t *testing.T, pan, document string) string {
	t.Helper()
	created := f.createCard(t, pan, document)
	_, err := f.cards.EnrollCard(context.Background(), &EnrollCardRequest{
		Identifier:       created.Identifier,
		ValidationNumber: created.ValidationNumber,
	})
	require.NoError(t, err)
	return created.Identifier
}

func (f *fixture) count(t *testing.T, m interface{}, conds ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(m)
	if len(conds) > 0 {
		q = q.Where(conds[0], conds[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// memoryCache records cache traffic and stores projections by value.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]CardDetails
	deletes []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]CardDetails)}
}

func (c *memoryCache) Get(_ context.Context, identifier string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[identifier]
	if ok {
		*dst.(*CardDetails) = v
	}
	return ok, nil
}

func (c *memoryCache) Set(_ context.Context, identifier string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identifier] = *value.(*CardDetails)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, identifier string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, identifier)
	c.deletes = append(c.deletes, identifier)
	return nil
}
