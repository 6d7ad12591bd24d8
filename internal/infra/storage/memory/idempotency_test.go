package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcars/internal/app/middleware"
)

func TestIdempotencyStore_FirstRecordWinsUntilExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewIdempotencyStore(time.Hour)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte("first"), OccurredAt: clock}))
	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte("second"), OccurredAt: clock}))
	rec, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", string(rec.Payload))

	clock = clock.Add(2 * time.Hour)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte("third"), OccurredAt: clock}))
	rec, ok, _ = s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "third", string(rec.Payload))
}
