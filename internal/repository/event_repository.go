package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/model"
)

const eventLogKey = "security_events"

// EventRepository is the append-only, size-bounded security event log.
// Events are JSON-encoded onto the head of a list and trimmed to the
// most recent maxEvents entries.
type EventRepository struct {
	rdb       *database.Redis
	maxEvents int64
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(rdb *database.Redis, maxEvents int64) *EventRepository {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	return &EventRepository{rdb: rdb, maxEvents: maxEvents}
}

// Append records a security event
func (r *EventRepository) Append(ctx context.Context, event *model.SecurityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode security event: %w", err)
	}
	if err := r.rdb.AppendBounded(ctx, eventLogKey, data, r.maxEvents); err != nil {
		return fmt.Errorf("failed to append security event: %w", err)
	}
	return nil
}

// List returns up to limit events, most recent first
func (r *EventRepository) List(ctx context.Context, limit int64) ([]*model.SecurityEvent, error) {
	if limit <= 0 || limit > r.maxEvents {
		limit = r.maxEvents
	}

	raw, err := r.rdb.LRange(ctx, eventLogKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}

	events := make([]*model.SecurityEvent, 0, len(raw))
	for _, item := range raw {
		var event model.SecurityEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			// A corrupt entry should not hide the rest of the log
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}
