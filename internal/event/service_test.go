package event_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/orders-inventory/internal/event"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/mq"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/ptr"
)

// syncBuffer guards the log buffer written by the bus goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runService(t *testing.T, threshold int) (*mq.LocalBus, *syncBuffer) {
	t.Helper()

	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	bus := mq.NewLocalBus(logger, 16)

	cleanup, err := event.New(logger, bus, threshold).Run(context.Background())
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return bus, out
}

func produce(t *testing.T, bus *mq.LocalBus, topic string, ev any) {
	t.Helper()

	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, bus.Produce(context.Background(), mq.ProduceMsg{Topic: topic, Payload: payload}))
}

func TestService(t *testing.T) {
	t.Run("Should warn when an order leaves stock low", func(t *testing.T) {
		bus, out := runService(t, 5)

		produce(t, bus, event.TopicOrderCreated, event.OrderEvent{
			OrderID:        "o-1",
			ProductID:      "p-1",
			Quantity:       8,
			Status:         "PENDING",
			StockRemaining: ptr.New(2),
			OccurredAt:     time.Now(),
		})

		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), `"msg":"product stock is low"`)
		}, time.Second, 10*time.Millisecond)
		assert.Contains(t, out.String(), `"product_id":"p-1"`)
	})

	t.Run("Should stay quiet above the threshold", func(t *testing.T) {
		bus, out := runService(t, 5)

		produce(t, bus, event.TopicProductStockAdjusted, event.ProductStockAdjustedEvent{
			ProductID: "p-2",
			Sku:       "SKU-2",
			Requested: 10,
			Applied:   10,
			Stock:     30,
		})

		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), "handling product stock adjusted event")
		}, time.Second, 10*time.Millisecond)
		assert.NotContains(t, out.String(), "product stock is low")
	})

	t.Run("Should treat stock equal to the threshold as enough", func(t *testing.T) {
		bus, out := runService(t, 5)

		produce(t, bus, event.TopicProductCreated, event.ProductCreatedEvent{
			ProductID: "p-3",
			Sku:       "SKU-3",
			Stock:     5,
		})

		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), "handling product created event")
		}, time.Second, 10*time.Millisecond)
		assert.NotContains(t, out.String(), "product stock is low")
	})

	t.Run("Should warn when an update leaves stock low", func(t *testing.T) {
		bus, out := runService(t, 5)

		produce(t, bus, event.TopicProductUpdated, event.ProductUpdatedEvent{
			ProductID: "p-4",
			Sku:       "SKU-4",
			Stock:     1,
			Changed:   []string{"stock"},
		})

		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), `"msg":"product stock is low"`)
		}, time.Second, 10*time.Millisecond)
		assert.Contains(t, out.String(), `"product_id":"p-4"`)
	})

	t.Run("Should log undecodable payloads", func(t *testing.T) {
		bus, out := runService(t, 5)

		require.NoError(t, bus.Produce(context.Background(), mq.ProduceMsg{
			Topic:   event.TopicOrderPaid,
			Payload: []byte("{"),
		}))

		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), "error handling message")
		}, time.Second, 10*time.Millisecond)
	})
}

func TestOrderTopicFor(t *testing.T) {
	for _, topic := range event.OrderTopics {
		assert.True(t, strings.HasPrefix(topic, "order."), topic)
	}
	assert.Equal(t, event.TopicOrderCanceled, event.OrderTopicFor("CANCELED"))
	assert.Equal(t, event.TopicOrderShipped, event.OrderTopicFor("SHIPPED"))
	assert.Equal(t, event.TopicOrderPaid, event.OrderTopicFor("PAID"))
}
