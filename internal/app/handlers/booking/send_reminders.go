package booking

import (
	"context"
	"log/slog"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/policies"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
)

const SendPickupRemindersKey = "booking.reminders.send"

const defaultReminderWindow = 24 * time.Hour

type SendPickupRemindersCommand struct {
	Window time.Duration
}

func (c SendPickupRemindersCommand) Key() string { return SendPickupRemindersKey }

type ReminderReport struct {
	Scanned int
	Sent    int
	Failed  int
}

// SendPickupRemindersHandler notifies renters whose pickup is within Window.
// Each booking is reminded once.
type SendPickupRemindersHandler struct {
	Bookings domainbooking.Repository
	Cars     domaincatalog.Repository
	Notifier policies.Notifier
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *SendPickupRemindersHandler) Handle(ctx context.Context, cmd SendPickupRemindersCommand) (ReminderReport, error) {
	logger := loggerOrDefault(h.Logger)
	window := cmd.Window
	if window <= 0 {
		window = defaultReminderWindow
	}
	now := clock(h.Clock).now()
	upcoming, err := h.Bookings.ListPickupsBetween(ctx, now, now.Add(window))
	if err != nil {
		return ReminderReport{}, err
	}
	report := ReminderReport{Scanned: len(upcoming)}
	for _, b := range upcoming {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !b.NeedsReminder() {
			continue
		}
		var car *domaincatalog.Car
		if h.Cars != nil {
			car, _ = h.Cars.ByID(ctx, b.CarID)
		}
		b.MarkReminded(now)
		if err := h.Bookings.Save(ctx, b); err != nil {
			report.Failed++
			logger.WarnContext(ctx, "reminder not recorded", "booking_id", b.ID, "error", err)
			continue
		}
		notifyRenter(ctx, h.Notifier, logger, b, car, templatePickupReminder)
		report.Sent++
	}
	if report.Sent > 0 || report.Failed > 0 {
		logger.InfoContext(ctx, "pickup reminders processed", "scanned", report.Scanned, "sent", report.Sent, "failed", report.Failed)
	}
	return report, nil
}

var _ commands.Handler[SendPickupRemindersCommand, ReminderReport] = (*SendPickupRemindersHandler)(nil)
