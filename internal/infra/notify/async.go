package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rentcars/internal/app/policies"
)

var ErrQueueFull = errors.New("notify: queue is full")

type job struct {
	msg     policies.Message
	attempt int
}

// Async queues messages and delivers them from background workers so slow
// providers never hold up a booking response. Failed sends are retried with a
// quadratic backoff up to MaxRetries times.
type Async struct {
	next       policies.Notifier
	jobs       chan job
	workers    int
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewAsync(next policies.Notifier, workers, queueSize, maxRetries int, logger *slog.Logger) *Async {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		next:       next,
		jobs:       make(chan job, queueSize),
		workers:    workers,
		maxRetries: maxRetries,
		backoff:    func(attempt int) time.Duration { return time.Duration(attempt*attempt) * time.Second },
		logger:     logger,
	}
}

// Send enqueues msg. It never blocks.
func (a *Async) Send(_ context.Context, msg policies.Message) error {
	select {
	case a.jobs <- job{msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled, then drains what is
// already queued with a short deadline.
func (a *Async) Run(ctx context.Context) error {
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.worker(ctx)
	}
	<-ctx.Done()
	a.wg.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case j := <-a.jobs:
			a.deliver(drainCtx, j, false)
		default:
			return nil
		}
	}
}

func (a *Async) worker(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-a.jobs:
			a.deliver(ctx, j, true)
		}
	}
}

func (a *Async) deliver(ctx context.Context, j job, retry bool) {
	err := a.next.Send(ctx, j.msg)
	if err == nil {
		return
	}
	if retry && j.attempt < a.maxRetries {
		j.attempt++
		delay := a.backoff(j.attempt)
		a.logger.WarnContext(ctx, "notification failed, retrying",
			"channel", j.msg.Channel, "template", j.msg.Template, "attempt", j.attempt, "in", delay, "error", err)
		time.AfterFunc(delay, func() {
			select {
			case a.jobs <- j:
			default:
				a.logger.Error("notification dropped, queue full", "channel", j.msg.Channel, "template", j.msg.Template)
			}
		})
		return
	}
	a.logger.ErrorContext(ctx, "notification failed",
		"channel", j.msg.Channel, "template", j.msg.Template, "attempts", j.attempt+1, "error", err)
}

var _ policies.Notifier = (*Async)(nil)
