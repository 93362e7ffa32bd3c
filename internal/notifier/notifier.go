package notifier

import (
	"context"

	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/model"
)

// Notifier receives high and critical severity security events. The
// security core's responsibility ends at producing the event; delivery
// (email, chat, pager) is the deployment's job.
type Notifier interface {
	Notify(ctx context.Context, event *model.SecurityEvent)
}

// LogNotifier is the shipped implementation: it writes alerts to the
// structured log so operators can route them from there.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.WithComponent("alert")}
}

// Notify logs the alert. Critical events log at error level, everything
// else at warn.
func (n *LogNotifier) Notify(_ context.Context, event *model.SecurityEvent) {
	evt := n.log.Warn()
	if event.Severity == model.SeverityCritical {
		evt = n.log.Error()
	}
	evt.
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("severity", string(event.Severity)).
		Str("identity_id", event.IdentityID).
		Str("ip_address", event.IPAddress).
		Msg("SECURITY ALERT: " + event.Description)
}
