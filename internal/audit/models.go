package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pawnshop/pkg/platform/middleware/metadata"
	"pawnshop/pkg/requestcontext"
)

// Action names a business outcome worth an audit record.
type Action string

const (
	ActionCreated         Action = "created"
	ActionUpdated         Action = "updated"
	ActionDeleted         Action = "deleted"
	ActionPriceAppended   Action = "price_appended"
	ActionHistoryReplaced Action = "history_replaced"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId"`
	Actor      string    `json:"actor,omitempty"`
	Role       string    `json:"role,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	ClientIP   string    `json:"clientIp,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the caller and request details held in ctx.
func NewEvent(ctx context.Context, action Action, resource, resourceID string) Event {
	actor := requestcontext.Actor(ctx)
	return Event{
		ID:         uuid.NewString(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Actor:      actor.Subject,
		Role:       actor.Role,
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   metadata.ClientIP(ctx),
		UserAgent:  metadata.UserAgent(ctx),
		Timestamp:  requestcontext.Now(ctx),
	}
}
