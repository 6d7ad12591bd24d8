package middleware

import (
	"context"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/outbox"
)

// OutboxFlush writes the booking events a command recorded once it has
// succeeded. A failed command flushes nothing; a failed flush fails the command
// so the caller retries instead of losing booking.confirmed or booking.cancelled.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if flushErr := box.Flush(ctx); flushErr != nil {
				return nil, flushErr
			}
			return result, nil
		})
	}
}
