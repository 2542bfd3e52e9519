// Package outbox carries request context across the outbox: into the stored
// message headers and back out on the consuming side.
package outbox

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tuanvumaihuynh/orders-inventory/pkg/correlationid"
)

// MessageIDHeader names the outbox message a delivery came from. Delivery is
// at least once, so consumers can use it to spot redeliveries.
const MessageIDHeader = "X-Outbox-Message-ID"

type messageIDKey struct{}

// BuildHeaders captures the trace context and correlation ID of ctx.
func BuildHeaders(ctx context.Context) map[string]string {
	headers := map[string]string{}

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := correlationid.FromContext(ctx); ok {
		headers[correlationid.Header] = correlationID
	}

	return headers
}

// WithMessageID returns a copy of headers stamped with the outbox message id.
func WithMessageID(headers map[string]string, id string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[MessageIDHeader] = id
	return out
}

// ExtractContextFromHeaders restores the trace context, correlation ID and
// message id carried by headers.
func ExtractContextFromHeaders(ctx context.Context, headers map[string]string) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))

	if correlationID, ok := headers[correlationid.Header]; ok {
		ctx = correlationid.NewContext(ctx, correlationID)
	}
	if id, ok := headers[MessageIDHeader]; ok {
		ctx = context.WithValue(ctx, messageIDKey{}, id)
	}

	return ctx
}

// ContextFromRecord restores the correlation ID and message id of a Kafka
// record. The trace context is left to the kotel hooks.
func ContextFromRecord(ctx context.Context, rec *kgo.Record) context.Context {
	for _, header := range rec.Headers {
		switch header.Key {
		case correlationid.Header:
			ctx = correlationid.NewContext(ctx, string(header.Value))
		case MessageIDHeader:
			ctx = context.WithValue(ctx, messageIDKey{}, string(header.Value))
		}
	}
	return ctx
}

// MessageIDFromContext returns the outbox message id of the delivery being
// handled, if any.
func MessageIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(messageIDKey{}).(string)
	return id, ok
}
