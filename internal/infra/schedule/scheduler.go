package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"rentcars/internal/app/commands"
	bookingapp "rentcars/internal/app/handlers/booking"
)

// Job is a unit of periodic work. The context is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs jobs on cron specs in UTC. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron       *cron.Cron
	logger     *slog.Logger
	jobTimeout time.Duration
	baseCtx    context.Context
	cancel     context.CancelFunc
}

func New(logger *slog.Logger, jobTimeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:     logger,
		jobTimeout: jobTimeout,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// Register adds a named job. Spec accepts standard five-field cron and descriptors like "@every 15m".
func (s *Scheduler) Register(name, spec string, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" || job == nil {
		return errors.New("schedule: name and job are required")
	}
	_, err := s.cron.AddFunc(strings.TrimSpace(spec), func() {
		ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
		defer cancel()
		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err, "duration", time.Since(started))
			return
		}
		s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("schedule: register %s: %w", name, err)
	}
	s.logger.Info("scheduled job registered", "job", name, "spec", spec)
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// ReminderJob dispatches the pickup reminder sweep through the command bus.
func ReminderJob(bus commands.Bus, window time.Duration, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		report, err := commands.Dispatch[bookingapp.SendPickupRemindersCommand, bookingapp.ReminderReport](ctx, bus, bookingapp.SendPickupRemindersCommand{Window: window})
		if err != nil {
			return err
		}
		if logger != nil && report.Scanned > 0 {
			logger.Info("pickup reminders swept", "scanned", report.Scanned, "sent", report.Sent, "failed", report.Failed)
		}
		return nil
	}
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
