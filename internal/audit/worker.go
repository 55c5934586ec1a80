package audit

import (
	"context"
	"errors"
	"log/slog"
)

// ErrBufferFull is returned when the async buffer cannot take another event.
var ErrBufferFull = errors.New("audit buffer full")

// AsyncPublisher queues events and hands them to a downstream publisher from a
// single background worker, so request handlers never wait on the sink.
type AsyncPublisher struct {
	next   Publisher
	logger *slog.Logger
	inbox  chan Event
	done   chan struct{}
}

// NewAsyncPublisher creates a publisher with room for buffer pending events.
// Run must be started for events to be delivered.
func NewAsyncPublisher(next Publisher, logger *slog.Logger, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &AsyncPublisher{
		next:   next,
		logger: logger,
		inbox:  make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Publish enqueues e without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, e Event) error {
	select {
	case p.inbox <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run delivers queued events until ctx is cancelled, then drains what is left.
func (p *AsyncPublisher) Run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case e := <-p.inbox:
			p.deliver(context.WithoutCancel(ctx), e)
		}
	}
}

// Done is closed once Run has returned.
func (p *AsyncPublisher) Done() <-chan struct{} {
	return p.done
}

func (p *AsyncPublisher) drain() {
	for {
		select {
		case e := <-p.inbox:
			p.deliver(context.Background(), e)
		default:
			return
		}
	}
}

func (p *AsyncPublisher) deliver(ctx context.Context, e Event) {
	if err := p.next.Publish(ctx, e); err != nil {
		p.logger.ErrorContext(ctx, "audit delivery failed",
			"error", err,
			"event_id", e.ID,
			"action", string(e.Action),
			"resource", e.Resource,
		)
	}
}
