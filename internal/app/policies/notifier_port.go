package policies

import "context"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Message struct {
	Channel  Channel
	To       string
	Subject  string
	Body     string
	Template string
	Data     map[string]string
}

// Notifier delivers renter notifications. Delivery is best effort: callers log
// failures and never fail a booking operation because of them.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
