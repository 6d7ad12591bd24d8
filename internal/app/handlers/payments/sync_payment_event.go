package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/outbox"
	"rentcars/internal/app/policies"
	domainbooking "rentcars/internal/domain/booking"
)

const SyncPaymentEventKey = "payments.sync_event"

// Gateway event types the service reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

// SyncPaymentEventCommand is a verified gateway webhook event.
type SyncPaymentEventCommand struct {
	EventID         string `validate:"required,max=255"`
	Type            string `validate:"required,max=128"`
	AuthorizationID string `validate:"max=255"`
}

func (c SyncPaymentEventCommand) Key() string { return SyncPaymentEventKey }

type SyncResult struct {
	Duplicate bool
	Action    string
}

const (
	ActionIgnored         = "ignored"
	ActionMarkedRefunded  = "marked_refunded"
	ActionAlreadySettled  = "already_settled"
	ActionOrphanedPayment = "orphaned_payment"
	ActionPaymentFailed   = "payment_failed"
)

type SyncPaymentEventHandler struct {
	Inbox    policies.Inbox
	Bookings domainbooking.Repository
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *SyncPaymentEventHandler) Handle(ctx context.Context, cmd SyncPaymentEventCommand) (SyncResult, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Processed(ctx, cmd.EventID)
		if err != nil {
			return SyncResult{}, err
		}
		if seen {
			return SyncResult{Duplicate: true, Action: ActionIgnored}, nil
		}
	}
	res, err := h.apply(ctx, cmd, logger)
	if err != nil {
		return SyncResult{}, err
	}
	if h.Inbox != nil {
		if err := h.Inbox.MarkProcessed(ctx, cmd.EventID); err != nil {
			return SyncResult{}, err
		}
	}
	return res, nil
}

// apply is safe to repeat: a second refund event for the same payment settles nothing.
func (h *SyncPaymentEventHandler) apply(ctx context.Context, cmd SyncPaymentEventCommand, logger *slog.Logger) (SyncResult, error) {
	authID := strings.TrimSpace(cmd.AuthorizationID)

	switch cmd.Type {
	case EventChargeRefunded:
		if authID == "" {
			return SyncResult{Action: ActionIgnored}, nil
		}
		b, err := h.Bookings.ByPaymentAuthorization(ctx, authID)
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			logger.WarnContext(ctx, "refund for unknown booking", "authorization_id", authID, "event_id", cmd.EventID)
			return SyncResult{Action: ActionIgnored}, nil
		}
		if err != nil {
			return SyncResult{}, err
		}
		now := time.Now().UTC()
		if h.Clock != nil {
			now = h.Clock().UTC()
		}
		if !b.MarkPaymentRefunded(now) {
			return SyncResult{Action: ActionAlreadySettled}, nil
		}
		if err := h.Bookings.Save(ctx, b); err != nil {
			return SyncResult{}, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.DrainEvents()); err != nil {
			logger.ErrorContext(ctx, "refund events not recorded", "booking_id", b.ID, "error", err)
		}
		logger.InfoContext(ctx, "payment refunded at gateway", "booking_id", b.ID, "authorization_id", authID)
		return SyncResult{Action: ActionMarkedRefunded}, nil

	case EventPaymentSucceeded:
		if authID == "" {
			return SyncResult{Action: ActionIgnored}, nil
		}
		_, err := h.Bookings.ByPaymentAuthorization(ctx, authID)
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			// paid but never confirmed: the client may still confirm, support reconciles otherwise
			logger.WarnContext(ctx, "succeeded payment without booking", "authorization_id", authID, "event_id", cmd.EventID)
			return SyncResult{Action: ActionOrphanedPayment}, nil
		}
		if err != nil {
			return SyncResult{}, err
		}
		return SyncResult{Action: ActionAlreadySettled}, nil

	case EventPaymentFailed:
		logger.InfoContext(ctx, "payment failed at gateway", "authorization_id", authID, "event_id", cmd.EventID)
		return SyncResult{Action: ActionPaymentFailed}, nil
	}
	return SyncResult{Action: ActionIgnored}, nil
}

var _ commands.Handler[SyncPaymentEventCommand, SyncResult] = (*SyncPaymentEventHandler)(nil)
