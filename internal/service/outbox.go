package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
	"github.com/tuanvumaihuynh/orders-inventory/internal/storage"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/outbox"
	"github.com/tuanvumaihuynh/orders-inventory/pkg/zerror"
)

// writeEvent stores ev in the outbox of tx. Events of one aggregate share a
// partition key so consumers see them in order.
func writeEvent(ctx context.Context, tx storage.Tx, topic string, key uuid.UUID, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	partitionKey := key.String()
	if err := tx.Outbox().CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      payload,
		PartitionKey: &partitionKey,
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

// logLevelFor logs expected business outcomes below error level.
func logLevelFor(err error) slog.Level {
	var zErr zerror.ZError
	if !errors.As(err, &zErr) {
		return slog.LevelError
	}

	switch zErr.Status() {
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
