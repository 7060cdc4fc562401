package job

import (
	"context"
	"sync"
	"time"

	"cardsystem/internal/config"
	"cardsystem/internal/model"
	"cardsystem/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Publisher delivers one outbox message to the broker.
type Publisher interface {
	Publish(ctx context.Context, topic, key, value string) error
}

// Locker elects a single relaying instance. A nil Locker relays unconditionally.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// OutboxSender relays PENDING outbox messages in id order. A message that
// keeps failing is marked FAILED after MaxRetries attempts.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	locker     Locker
	log        zerolog.Logger
	interval   time.Duration
	batchSize  int
	maxRetries int
	stopCh     chan struct{}
	stopOnce   sync.Once
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, locker Locker, cfg *config.OutboxConfig, log zerolog.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		locker:     locker,
		log:        log.With().Str("job", "outbox_sender").Logger(),
		interval:   cfg.PollInterval,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		stopCh:     make(chan struct{}),
	}
}

// Start polls until ctx is done or Stop is called.
func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("outbox sender stopped: context done")
			return
		case <-s.stopCh:
			s.log.Info().Msg("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// processPendingMessages relays one batch and reports how many were sent.
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to acquire relay lock")
			return 0
		}
		if !ok {
			return 0
		}
		defer func() {
			if err := s.locker.Unlock(ctx); err != nil {
				s.log.Warn().Err(err).Msg("failed to release relay lock")
			}
		}()
	}

	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load pending messages")
		return 0
	}

	sent := 0
	for _, msg := range messages {
		if s.sendMessage(ctx, msg) {
			sent++
		}
	}
	return sent
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) bool {
	log := s.log.With().
		Int64("id", msg.ID).
		Str("event_type", msg.EventType).
		Str("key", msg.MessageKey).
		Logger()

	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if err := s.outboxRepo.MarkAsSent(ctx, msg.ID); err != nil {
			log.Error().Err(err).Msg("message sent but status update failed")
		} else {
			log.Debug().Str("topic", msg.Topic).Msg("message sent")
		}
		return true
	}

	log.Warn().Err(err).Int("retry_count", msg.RetryCount).Msg("failed to send message")

	if msg.RetryCount+1 >= s.maxRetries {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Error().Err(err).Msg("failed to mark message as failed")
		} else {
			log.Error().Msg("message exceeded max retries, marked as failed")
		}
		return false
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Error().Err(err).Msg("failed to increment retry count")
	}
	return false
}
