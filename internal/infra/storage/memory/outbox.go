package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rentcars/internal/app/outbox"
	infraoutbox "rentcars/internal/infra/outbox"
)

// Outbox keeps events in memory and serves them to the relay worker like the
// Mongo store does.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*infraoutbox.EventDocument
	order   []string
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*infraoutbox.EventDocument)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	o.entries[record.ID] = &infraoutbox.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     append([]byte(nil), record.Payload...),
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	o.order = append(o.order, record.ID)
	return nil
}

func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	var doc *infraoutbox.EventDocument
	for _, id := range o.order {
		candidate := o.entries[id]
		if (candidate.State == infraoutbox.StateNew || candidate.State == infraoutbox.StateFailed) && !candidate.NextAttempt.After(now) {
			doc = candidate
			break
		}
	}
	if doc == nil {
		return nil, nil
	}
	doc.State = infraoutbox.StateClaimed
	doc.ClaimedBy = workerID
	doc.ClaimedAt = now
	claimed := *doc
	return &claimed, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if doc, ok := o.entries[id]; ok {
		doc.State = infraoutbox.StateSent
		doc.SentAt = time.Now().UTC()
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if doc, ok := o.entries[id]; ok {
		doc.State = infraoutbox.StateFailed
		doc.NextAttempt = next
		doc.LastError = errMsg
		doc.Attempts++
	}
	return nil
}

// Records returns stored entries oldest first, for inspection.
func (o *Outbox) Records() []infraoutbox.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]infraoutbox.EventDocument, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.entries[id])
	}
	return out
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
