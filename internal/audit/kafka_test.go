package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	calls   int
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.calls++
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestKafkaPublisherPublish(t *testing.T) {
	prod := &fakeProducer{}
	pub := newKafkaPublisher(prod, "pawnshop.audit")

	e := Event{ID: "e1", Action: ActionPriceAppended, Resource: "pawn_transaction", ResourceID: "tx-1"}
	require.NoError(t, pub.Publish(context.Background(), e))

	require.Len(t, prod.records, 1)
	rec := prod.records[0]
	assert.Equal(t, "pawnshop.audit", rec.Topic)
	assert.Equal(t, "tx-1", string(rec.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, ActionPriceAppended, decoded.Action)
}

func TestKafkaPublisherOpensCircuit(t *testing.T) {
	prod := &fakeProducer{err: errors.New("leader not available")}
	pub := newKafkaPublisher(prod, "audit", WithCircuitBreaker(2, time.Minute))

	ctx := context.Background()
	require.Error(t, pub.Publish(ctx, Event{}))
	require.Error(t, pub.Publish(ctx, Event{}))

	err := pub.Publish(ctx, Event{})
	assert.ErrorIs(t, err, ErrSinkUnavailable)
	assert.Equal(t, 2, prod.calls)
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	now := time.Now()
	cb := newCircuitBreaker(1, time.Second)
	cb.now = func() time.Time { return now }

	cb.recordFailure()
	assert.False(t, cb.allow())

	now = now.Add(2 * time.Second)
	assert.True(t, cb.allow())

	// a failed trial reopens immediately
	cb.recordFailure()
	assert.False(t, cb.allow())

	now = now.Add(2 * time.Second)
	require.True(t, cb.allow())
	cb.recordSuccess()
	assert.True(t, cb.allow())
}
