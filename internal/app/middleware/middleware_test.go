package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/middleware"
	"rentcars/internal/app/outbox"
	"rentcars/internal/domain/auth"
)

type quoteCommand struct {
	IdemKey string
	Email   string
}

func (quoteCommand) Key() string              { return "test.quote" }
func (c quoteCommand) IdempotencyKey() string { return c.IdemKey }
func (quoteCommand) ResultPrototype() any     { return &quoteResult{} }

func (c quoteCommand) AnonymousScope() string { return c.Email }

type quoteResult struct {
	ID string `json:"id"`
}

type adminCommand struct{}

func (adminCommand) Key() string             { return "test.admin" }
func (adminCommand) RequiredRole() auth.Role { return auth.RoleAdmin }

type memStore struct {
	mu    sync.Mutex
	items map[string]middleware.IdempotencyRecord
}

func (s *memStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *memStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func quoteBus(calls *int, fail *error) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[quoteCommand, *quoteResult](bus, "test.quote", commands.HandlerFunc[quoteCommand, *quoteResult](
		func(context.Context, quoteCommand) (*quoteResult, error) {
			*calls++
			if *fail != nil {
				return nil, *fail
			}
			return &quoteResult{ID: fmt.Sprintf("q-%d", *calls)}, nil
		}))
	return bus
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	calls := 0
	var fail error
	store := &memStore{items: map[string]middleware.IdempotencyRecord{}}
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), middleware.Idempotency(store, nil))

	first, err := commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{IdemKey: "abc"})
	require.NoError(t, err)
	second, err := commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{IdemKey: "abc"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.ID, second.ID)
	_, stored := store.items["test.quote:anon::abc"]
	assert.True(t, stored)

	_, err = commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "commands without a key are never cached")
}

func TestIdempotency_FailuresStayRetryable(t *testing.T) {
	calls := 0
	sentinel := errors.New("car unavailable")
	fail := sentinel
	store := &memStore{items: map[string]middleware.IdempotencyRecord{}}
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), middleware.Idempotency(store, nil))

	_, err := bus.Dispatch(context.Background(), quoteCommand{IdemKey: "k"})
	assert.ErrorIs(t, err, sentinel)
	assert.Empty(t, store.items)

	fail = nil
	_, err = bus.Dispatch(context.Background(), quoteCommand{IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAuthorization_RequiresRole(t *testing.T) {
	handled := false
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[adminCommand, bool](bus, "test.admin", commands.HandlerFunc[adminCommand, bool](
		func(context.Context, adminCommand) (bool, error) {
			handled = true
			return true, nil
		}))
	chained := middleware.ChainCommands(bus, middleware.Authorization(middleware.RoleAuthorizer{}))

	_, err := chained.Dispatch(context.Background(), adminCommand{})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	renter := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "u", Roles: []auth.Role{auth.RoleRenter}})
	_, err = chained.Dispatch(renter, adminCommand{})
	assert.ErrorIs(t, err, auth.ErrForbidden)
	assert.False(t, handled)

	admin := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "a", Roles: []auth.Role{auth.RoleAdmin}})
	_, err = chained.Dispatch(admin, adminCommand{})
	require.NoError(t, err)
	assert.True(t, handled)
}

type countingOutbox struct{ flushes int }

func (o *countingOutbox) Add(context.Context, outbox.EventRecord) error { return nil }
func (o *countingOutbox) Flush(context.Context) error {
	o.flushes++
	return nil
}

func TestOutboxFlush_OnlyAfterSuccess(t *testing.T) {
	calls := 0
	var fail error
	box := &countingOutbox{}
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), middleware.OutboxFlush(box))

	_, err := bus.Dispatch(context.Background(), quoteCommand{})
	require.NoError(t, err)
	fail = errors.New("boom")
	_, err = bus.Dispatch(context.Background(), quoteCommand{})
	require.Error(t, err)

	assert.Equal(t, 1, box.flushes)
}

func TestChainCommands_Order(t *testing.T) {
	var trace []string
	mark := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return tracingBus{name: name, next: next, trace: &trace}
		}
	}
	calls := 0
	var fail error
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), mark("outer"), nil, mark("inner"))
	_, err := bus.Dispatch(context.Background(), quoteCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}

type tracingBus struct {
	name  string
	next  commands.Bus
	trace *[]string
}

func (b tracingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	*b.trace = append(*b.trace, b.name)
	return b.next.Dispatch(ctx, cmd)
}

type validatorFunc func(ctx context.Context, message any) error

func (f validatorFunc) Validate(ctx context.Context, message any) error { return f(ctx, message) }

func TestValidation_StopsInvalidCommands(t *testing.T) {
	calls := 0
	var fail error
	reject := true
	v := validatorFunc(func(_ context.Context, message any) error {
		if _, ok := message.(quoteCommand); ok && reject {
			return fmt.Errorf("%w: car_id is required", middleware.ErrInvalidMessage)
		}
		return nil
	})
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), middleware.Validation(v))

	_, err := bus.Dispatch(context.Background(), quoteCommand{})
	assert.ErrorIs(t, err, middleware.ErrInvalidMessage)
	assert.Zero(t, calls)

	reject = false
	_, err = bus.Dispatch(context.Background(), quoteCommand{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Panics(t, func() { middleware.Validation(nil) })
}

func TestIdempotency_KeysArePerCaller(t *testing.T) {
	calls := 0
	var fail error
	store := &memStore{items: map[string]middleware.IdempotencyRecord{}}
	bus := middleware.ChainCommands(quoteBus(&calls, &fail), middleware.Idempotency(store, nil))
	ann := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "ann"})
	bob := auth.WithPrincipal(context.Background(), auth.Principal{UserID: "bob"})

	a1, err := commands.Dispatch[quoteCommand, *quoteResult](ann, bus, quoteCommand{IdemKey: "k"})
	require.NoError(t, err)
	b1, err := commands.Dispatch[quoteCommand, *quoteResult](bob, bus, quoteCommand{IdemKey: "k"})
	require.NoError(t, err)
	assert.NotEqual(t, a1.ID, b1.ID)

	g1, err := commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{IdemKey: "k", Email: "Guest@Example.com"})
	require.NoError(t, err)
	g2, err := commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{IdemKey: "k", Email: "guest@example.com"})
	require.NoError(t, err)
	other, err := commands.Dispatch[quoteCommand, *quoteResult](context.Background(), bus, quoteCommand{IdemKey: "k", Email: "eve@example.com"})
	require.NoError(t, err)
	assert.Equal(t, g1.ID, g2.ID)
	assert.NotEqual(t, g1.ID, other.ID)

	a2, err := commands.Dispatch[quoteCommand, *quoteResult](ann, bus, quoteCommand{IdemKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, 4, calls)
	assert.Contains(t, store.items, "test.quote:user:ann:k")
}
