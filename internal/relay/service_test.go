package relay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/internal/config"
	"github.com/tuanvumaihuynh/orders-inventory/internal/relay"
	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/memory"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/mq"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/outbox"
)

type fakeProducer struct {
	mu       sync.Mutex
	produced []mq.ProduceMsg
	failOn   string
}

func (p *fakeProducer) Produce(_ context.Context, msg mq.ProduceMsg) error {
	if msg.Topic == p.failOn {
		return errors.New("broker unavailable")
	}

	p.mu.Lock()
	p.produced = append(p.produced, msg)
	p.mu.Unlock()

	return nil
}

func (p *fakeProducer) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	topics := make([]string, 0, len(p.produced))
	for _, msg := range p.produced {
		topics = append(topics, msg.Topic)
	}
	return topics
}

func TestRelayBatch(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	for _, topic := range []string{"order.created", "order.paid", "order.canceled"} {
		require.NoError(t, store.Outbox().CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
			Topic:   topic,
			Headers: map[string]string{"X-Correlation-ID": "abc"},
			Payload: []byte(`{"order_id":"1"}`),
		}))
	}

	producer := &fakeProducer{failOn: "order.paid"}
	svc := relay.NewService(config.Relay{BatchSize: 10, Interval: time.Second}, logger, store, producer)

	relayed, err := svc.RelayBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, relayed)
	assert.ElementsMatch(t, []string{"order.created", "order.canceled"}, producer.topics())

	producer.mu.Lock()
	for _, msg := range producer.produced {
		assert.NotEmpty(t, msg.Headers[outbox.MessageIDHeader])
		assert.Equal(t, "abc", msg.Headers["X-Correlation-ID"])
	}
	producer.mu.Unlock()

	pending, err := store.Outbox().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 10})
	require.NoError(t, err)
	assert.Empty(t, pending)

	relayed, err = svc.RelayBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, relayed)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.New()
	require.NoError(t, store.Outbox().CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:   "order.shipped",
		Payload: []byte(`{}`),
	}))

	producer := &fakeProducer{}
	svc := relay.NewService(config.Relay{BatchSize: 10, Interval: 10 * time.Millisecond}, logger, store, producer)

	cleanup := svc.Run(ctx)
	defer cleanup()

	assert.Eventually(t, func() bool {
		return len(producer.topics()) == 1
	}, time.Second, 10*time.Millisecond)
}
