package notify

import (
	"context"
	"fmt"
	"log/slog"

	"rentcars/internal/app/policies"
)

// Router hands each message to the notifier registered for its channel.
type Router map[policies.Channel]policies.Notifier

func (r Router) Send(ctx context.Context, msg policies.Message) error {
	n, ok := r[msg.Channel]
	if !ok || n == nil {
		return fmt.Errorf("notify: no notifier for channel %q", msg.Channel)
	}
	return n.Send(ctx, msg)
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Send(ctx context.Context, msg policies.Message) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification (not delivered)",
		"channel", msg.Channel, "to", msg.To, "template", msg.Template, "subject", msg.Subject)
	return nil
}

var (
	_ policies.Notifier = Router(nil)
	_ policies.Notifier = LogNotifier{}
)
