package memory

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/orders-inventory/internal/repository"
)

var _ repository.OutboxMsgRepository = (*outboxMsgRepository)(nil)

type outboxRow struct {
	id           uuid.UUID
	topic        string
	headers      map[string]string
	payload      json.RawMessage
	partitionKey *string
	createdAt    time.Time
	processedAt  *time.Time
	err          *string
}

type outboxMsgRepository struct {
	s *Store
	j *journal
}

func (r *outboxMsgRepository) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	row := outboxRow{
		id:           uuid.Must(uuid.NewV7()),
		topic:        params.Topic,
		headers:      maps.Clone(params.Headers),
		payload:      append(json.RawMessage(nil), params.Payload...),
		partitionKey: params.PartitionKey,
		createdAt:    time.Now(),
	}

	r.s.mu.Lock()
	r.s.outbox = append(r.s.outbox, row)
	r.s.mu.Unlock()

	if r.j != nil {
		r.j.record(func(context.Context) error {
			r.s.mu.Lock()
			defer r.s.mu.Unlock()

			for i := range r.s.outbox {
				if r.s.outbox[i].id == row.id {
					r.s.outbox = append(r.s.outbox[:i], r.s.outbox[i+1:]...)
					break
				}
			}
			return nil
		})
	}

	return nil
}

func (r *outboxMsgRepository) ListUnprocessedOutboxMsgs(_ context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	results := make([]repository.ListUnprocessedOutboxMsgsResult, 0, params.BatchSize)
	for _, row := range r.s.outbox {
		if len(results) >= int(params.BatchSize) {
			break
		}
		if row.processedAt != nil {
			continue
		}
		results = append(results, repository.ListUnprocessedOutboxMsgsResult{
			ID:           row.id,
			Topic:        row.topic,
			Headers:      maps.Clone(row.headers),
			Payload:      row.payload,
			PartitionKey: row.partitionKey,
		})
	}

	return results, nil
}

func (r *outboxMsgRepository) BulkUpdateOutboxMsgs(_ context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	now := time.Now()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, item := range params.Items {
		for i := range r.s.outbox {
			if r.s.outbox[i].id != item.ID {
				continue
			}
			r.s.outbox[i].processedAt = &now
			r.s.outbox[i].err = item.Error
			break
		}
	}

	// Published messages are not kept; failed ones stay for inspection.
	r.s.outbox = slices.DeleteFunc(r.s.outbox, func(row outboxRow) bool {
		return row.processedAt != nil && row.err == nil
	})

	return nil
}
