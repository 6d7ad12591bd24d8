package policies

import "context"

// Inbox deduplicates externally delivered events. Processed only reads;
// MarkProcessed is called once the event's effects are stored, so a delivery
// that failed half way is handled again on redelivery.
type Inbox interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}
