package mq

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, nil)
		mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			if string(val) != `{"event_type":"card.created"}` {
				return fmt.Errorf("unexpected payload %s", val)
			}
			return nil
		})

		p := NewProducerWith(mock)
		require.NoError(t, p.Publish(ctx, "card-events", "abc", `{"event_type":"card.created"}`))
		require.NoError(t, p.Close())
	})

	t.Run("Broker Failure", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, nil)
		mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		p := NewProducerWith(mock)
		err := p.Publish(ctx, "card-events", "abc", "{}")
		assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))
		require.NoError(t, p.Close())
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		mock := mocks.NewSyncProducer(t, nil)
		p := NewProducerWith(mock)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, p.Publish(cancelled, "card-events", "abc", "{}"), context.Canceled)
		require.NoError(t, p.Close())
	})
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := newSaramaConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.NoError(t, cfg.Validate())
}
