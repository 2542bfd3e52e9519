package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/orders-inventory/internal/storage/mq"
)

// Service consumes order and product events.
type Service struct {
	logger            *slog.Logger
	mqConsumer        mq.Consumer
	lowStockThreshold int
}

// New creates a new event service. Events reporting stock below
// lowStockThreshold raise a warning.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	lowStockThreshold int,
) *Service {
	return &Service{
		logger:            logger.With(slog.String("service", "event")),
		mqConsumer:        mqConsumer,
		lowStockThreshold: lowStockThreshold,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	for _, topic := range OrderTopics {
		if err := s.mqConsumer.RegisterHandler(topic, decode(s.handleOrderEvent)); err != nil {
			return nil, fmt.Errorf("register %s event handler: %w", topic, err)
		}
	}
	if err := s.mqConsumer.RegisterHandler(TopicProductCreated, decode(s.handleProductCreatedEvent)); err != nil {
		return nil, fmt.Errorf("register product created event handler: %w", err)
	}
	if err := s.mqConsumer.RegisterHandler(TopicProductUpdated, decode(s.handleProductUpdatedEvent)); err != nil {
		return nil, fmt.Errorf("register product updated event handler: %w", err)
	}
	if err := s.mqConsumer.RegisterHandler(TopicProductStockAdjusted, decode(s.handleProductStockAdjustedEvent)); err != nil {
		return nil, fmt.Errorf("register product stock adjusted event handler: %w", err)
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

func decode[T any](handle func(ctx context.Context, topic string, ev T) error) mq.HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}

		if err := handle(ctx, topic, ev); err != nil {
			return fmt.Errorf("handle %s event: %w", topic, err)
		}

		return nil
	}
}
