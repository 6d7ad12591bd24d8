package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	"rentcars/internal/app/outbox"
	"rentcars/internal/domain/auth"
	domainbooking "rentcars/internal/domain/booking"
	"rentcars/internal/domain/payment"
)

const TransitionBookingKey = "booking.transition"

const (
	ActionConfirm  = "confirm"
	ActionActivate = "activate"
	ActionComplete = "complete"
	ActionRefund   = "refund"
)

var ErrUnknownAction = errors.New("booking: unknown transition action")

type TransitionBookingCommand struct {
	BookingID string `validate:"required,max=64"`
	Action    string `validate:"required,oneof=confirm activate complete refund"`
}

func (c TransitionBookingCommand) Key() string { return TransitionBookingKey }

func (c TransitionBookingCommand) RequiredRole() auth.Role { return auth.RoleAdmin }

// TransitionBookingHandler applies administrative status changes.
type TransitionBookingHandler struct {
	Bookings domainbooking.Repository
	Refunds  payment.Refunder
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*dto.Booking, error) {
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	now := clock(h.Clock).now()
	from := b.Status

	switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
	case ActionConfirm:
		err = b.Confirm(now)
	case ActionActivate:
		err = b.Activate(now)
	case ActionComplete:
		err = b.Complete(now)
	case ActionRefund:
		refund, refundErr := b.RefundInFull(now)
		if refundErr == nil && h.Refunds != nil {
			refundErr = h.Refunds.Refund(ctx, b.PaymentAuthorizationID, refund, "refund-"+string(b.ID))
		}
		err = refundErr
	default:
		return nil, ErrUnknownAction
	}
	if err != nil {
		return nil, err
	}
	if err := h.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	logger := loggerOrDefault(h.Logger)
	logger.InfoContext(ctx, "booking status changed", "booking_id", b.ID, "from", from, "to", b.Status)
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.DrainEvents()); err != nil {
		logger.ErrorContext(ctx, "transition events not recorded", "booking_id", b.ID, "error", err)
	}
	result := dto.MapBooking(b, now)
	return &result, nil
}

var _ commands.Handler[TransitionBookingCommand, *dto.Booking] = (*TransitionBookingHandler)(nil)
