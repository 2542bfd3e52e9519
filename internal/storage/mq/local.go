package mq

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/tuanvumaihuynh/orders-inventory/pkg/outbox"
)

var (
	_ Producer = (*LocalBus)(nil)
	_ Consumer = (*LocalBus)(nil)
)

// LocalBus hands produced messages to the handlers registered in the same
// process. It stands in for Kafka when no broker is configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	queue    chan ProduceMsg
	log      *slog.Logger
}

func NewLocalBus(logger *slog.Logger, buffer int) *LocalBus {
	return &LocalBus{
		handlers: make(map[string]HandlerFunc),
		queue:    make(chan ProduceMsg, buffer),
		log:      logger.With(slog.String("component", "local_bus")),
	}
}

// Produce queues msg. It blocks while the queue is full.
func (b *LocalBus) Produce(ctx context.Context, msg ProduceMsg) error {
	select {
	case b.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBus) RegisterHandler(topic string, handler HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[topic]; exists {
		return fmt.Errorf("handler for topic %s already registered", topic)
	}
	b.handlers[topic] = handler

	return nil
}

func (b *LocalBus) Run(ctx context.Context) (CleanupFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.queue:
				b.dispatch(ctx, msg)
			}
		}
	}()

	cleanup := func() {
		cancel()
		<-doneChan
	}

	return cleanup, nil
}

func (b *LocalBus) dispatch(ctx context.Context, msg ProduceMsg) {
	ctx = outbox.ExtractContextFromHeaders(ctx, msg.Headers)

	defer func() {
		if rvr := recover(); rvr != nil {
			b.log.ErrorContext(ctx, "panic in message handler",
				slog.String("topic", msg.Topic),
				slog.Any("recover", rvr),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	b.mu.RLock()
	fn, exists := b.handlers[msg.Topic]
	b.mu.RUnlock()
	if !exists {
		b.log.WarnContext(ctx, "no handler registered for topic", slog.String("topic", msg.Topic))
		return
	}

	if err := fn(ctx, msg.Topic, msg.Payload); err != nil {
		b.log.ErrorContext(ctx, "error handling message",
			slog.String("topic", msg.Topic),
			slog.Any("error", err),
		)
	}
}
