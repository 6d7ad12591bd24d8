package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcars/internal/app/commands"
	bookingapp "rentcars/internal/app/handlers/booking"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := New(quietLogger(), time.Second)
	var runs atomic.Int32
	require.NoError(t, s.Register("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))
	assert.Equal(t, 1, s.Entries())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RegisterRejects(t *testing.T) {
	s := New(quietLogger(), 0)
	assert.Error(t, s.Register("bad", "not a spec", func(context.Context) error { return nil }))
	assert.Error(t, s.Register("", "@every 1m", func(context.Context) error { return nil }))
	assert.Error(t, s.Register("nil", "@every 1m", nil))
	assert.Equal(t, 0, s.Entries())
}

func TestReminderJob_DispatchesSweep(t *testing.T) {
	bus := commands.NewInMemoryBus()
	var got bookingapp.SendPickupRemindersCommand
	commands.RegisterHandler[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](bus, bookingapp.SendPickupRemindersKey,
		commands.HandlerFunc[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](func(_ context.Context, cmd bookingapp.SendPickupRemindersCommand) (bookingapp.ReminderReport, error) {
			got = cmd
			return bookingapp.ReminderReport{Scanned: 2, Sent: 1}, nil
		}))

	job := ReminderJob(bus, 6*time.Hour, quietLogger())
	require.NoError(t, job(context.Background()))
	assert.Equal(t, 6*time.Hour, got.Window)
}

func TestReminderJob_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](bus, bookingapp.SendPickupRemindersKey,
		commands.HandlerFunc[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](func(context.Context, bookingapp.SendPickupRemindersCommand) (bookingapp.ReminderReport, error) {
			return bookingapp.ReminderReport{}, boom
		}))
	assert.ErrorIs(t, ReminderJob(bus, 0, nil)(context.Background()), boom)
}
