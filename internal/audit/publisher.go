package audit

import (
	"context"
	"log/slog"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes audit events as structured log lines.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.InfoContext(ctx, string(e.Action),
		"log_type", "audit",
		"event_id", e.ID,
		"resource", e.Resource,
		"resource_id", e.ResourceID,
		"actor", e.Actor,
		"role", e.Role,
		"request_id", e.RequestID,
		"timestamp", e.Timestamp,
	)
	return nil
}

// Emit publishes e and logs delivery failures. Audit delivery never fails the
// business operation that produced the event.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, e Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil && logger != nil {
		logger.ErrorContext(ctx, "failed to publish audit event",
			"error", err,
			"action", string(e.Action),
			"resource", e.Resource,
			"resource_id", e.ResourceID,
			"request_id", e.RequestID,
		)
	}
}
