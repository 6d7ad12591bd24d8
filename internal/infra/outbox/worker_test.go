package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rentcars/internal/app/outbox"
	"rentcars/internal/infra/outbox"
	"rentcars/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []published
	fail error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func addEvent(t *testing.T, box *memory.Outbox, id, name string) {
	t.Helper()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"BookingID":"b-1"}`),
		OccurredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  "b-1",
		Headers:    map[string]string{"aggregate_type": "booking"},
	}))
}

func TestWorker_PublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	addEvent(t, box, "evt-1", "booking.confirmed")
	producer := &fakeProducer{}
	w := &outbox.Worker{Queue: box, Producer: producer, TopicPrefix: "prod.", Source: "app://test"}

	processed, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, producer.sent, 1)
	msg := producer.sent[0]
	assert.Equal(t, "prod.booking.events.v1", msg.topic)
	assert.Equal(t, "b-1", msg.key)
	assert.Equal(t, "application/cloudevents+json", msg.headers["content-type"])
	assert.Equal(t, "booking", msg.headers["aggregate_type"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "booking.confirmed.v1", evt["type"])
	assert.Equal(t, "app://test", evt["source"])
	assert.Equal(t, map[string]any{"BookingID": "b-1"}, evt["data"])

	assert.Equal(t, outbox.StateSent, box.Records()[0].State)

	processed, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestWorker_FailedPublishIsRetriedLater(t *testing.T) {
	box := memory.NewOutbox()
	addEvent(t, box, "evt-1", "booking.cancelled")
	producer := &fakeProducer{fail: errors.New("broker down")}
	w := &outbox.Worker{Queue: box, Producer: producer, Backoff: []time.Duration{time.Hour}}

	processed, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	rec := box.Records()[0]
	assert.Equal(t, outbox.StateFailed, rec.State)
	assert.Equal(t, 1, rec.Attempts)
	assert.Equal(t, "broker down", rec.LastError)
	assert.True(t, rec.NextAttempt.After(time.Now().Add(50*time.Minute)))

	processed, err = w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, processed, "not due before its backoff")
}

func TestWorker_MalformedPayloadIsParked(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), appoutbox.EventRecord{ID: "evt-bad", Name: "booking.confirmed", Payload: []byte("not json")}))
	producer := &fakeProducer{}
	w := &outbox.Worker{Queue: box, Producer: producer}

	_, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, producer.sent)
	assert.Equal(t, outbox.StateFailed, box.Records()[0].State)
}

func TestWorker_RunDrainsUntilCancelled(t *testing.T) {
	box := memory.NewOutbox()
	addEvent(t, box, "evt-1", "booking.confirmed")
	addEvent(t, box, "evt-2", "booking.activated")
	producer := &fakeProducer{}
	w := &outbox.Worker{Queue: box, Producer: producer, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		producer.mu.Lock()
		defer producer.mu.Unlock()
		return len(producer.sent) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_RequiresDependencies(t *testing.T) {
	err := (&outbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, outbox.ErrWorkerNotConfigured)
}
