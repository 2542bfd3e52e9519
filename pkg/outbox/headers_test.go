package outbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tuanvumaihuynh/orders-inventory/pkg/correlationid"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/outbox"
)

func TestHeaders(t *testing.T) {
	t.Run("Should round trip the correlation id and message id", func(t *testing.T) {
		ctx := correlationid.NewContext(context.Background(), "corr-1")

		headers := outbox.WithMessageID(outbox.BuildHeaders(ctx), "msg-1")
		got := outbox.ExtractContextFromHeaders(context.Background(), headers)

		correlationID, ok := correlationid.FromContext(got)
		require.True(t, ok)
		assert.Equal(t, "corr-1", correlationID)

		id, ok := outbox.MessageIDFromContext(got)
		require.True(t, ok)
		assert.Equal(t, "msg-1", id)
	})

	t.Run("Should not mutate the stored headers", func(t *testing.T) {
		stored := map[string]string{"traceparent": "x"}

		_ = outbox.WithMessageID(stored, "msg-1")

		assert.NotContains(t, stored, outbox.MessageIDHeader)
	})

	t.Run("Should read kafka record headers", func(t *testing.T) {
		rec := &kgo.Record{Headers: []kgo.RecordHeader{
			{Key: correlationid.Header, Value: []byte("corr-2")},
			{Key: outbox.MessageIDHeader, Value: []byte("msg-2")},
		}}

		ctx := outbox.ContextFromRecord(context.Background(), rec)

		correlationID, _ := correlationid.FromContext(ctx)
		assert.Equal(t, "corr-2", correlationID)
		id, _ := outbox.MessageIDFromContext(ctx)
		assert.Equal(t, "msg-2", id)
	})

	t.Run("Should report a missing message id", func(t *testing.T) {
		_, ok := outbox.MessageIDFromContext(context.Background())
		assert.False(t, ok)
	})
}
