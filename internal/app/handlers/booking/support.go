package booking

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func newID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.NewString()
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
