package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/metrics"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/notifier"
	"github.com/aegisd/aegis/internal/repository"
)

// eventRecorder appends security events to the log and dispatches high
// and critical severity events to the alert notifier. Dispatch is
// fire-and-forget; a slow notifier never blocks the request path.
type eventRecorder struct {
	events   *repository.EventRepository
	notifier notifier.Notifier
	log      *logger.Logger
}

func newEventRecorder(events *repository.EventRepository, n notifier.Notifier, log *logger.Logger) *eventRecorder {
	return &eventRecorder{events: events, notifier: n, log: log}
}

// record builds, persists, and (above medium severity) alerts on an
// event. Returns the event so callers can hand it to the request layer.
func (r *eventRecorder) record(ctx context.Context, identityID, eventType string, severity model.Severity, description, ipAddress, userAgent string, metadata map[string]interface{}) *model.SecurityEvent {
	event := &model.SecurityEvent{
		ID:          uuid.New().String(),
		IdentityID:  identityID,
		EventType:   eventType,
		Severity:    severity,
		Description: description,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	}

	if err := r.events.Append(ctx, event); err != nil {
		r.log.Error().Err(err).Str("event_type", eventType).Msg("failed to append security event")
	}
	metrics.SecurityEvent(string(severity))

	if severity.AtLeast(model.SeverityHigh) && r.notifier != nil {
		go r.notifier.Notify(context.WithoutCancel(ctx), event)
	}

	return event
}
