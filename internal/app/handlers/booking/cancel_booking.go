package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	"rentcars/internal/app/outbox"
	"rentcars/internal/app/policies"
	"rentcars/internal/domain/auth"
	domainbooking "rentcars/internal/domain/booking"
	"rentcars/internal/domain/payment"
)

const CancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID string `validate:"required,max=64"`
	Reason    string `validate:"max=500"`
	// AuthorizationID lets anonymous renters prove ownership with their payment handle.
	AuthorizationID string `validate:"max=255"`
}

func (c CancelBookingCommand) Key() string { return CancelBookingKey }

type CancelBookingHandler struct {
	Bookings domainbooking.Repository
	// Refunds is optional; without it refunds are settled outside the service.
	Refunds  payment.Refunder
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Notifier policies.Notifier
	Clock    func() time.Time
	Logger   *slog.Logger
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Cancellation, error) {
	logger := loggerOrDefault(h.Logger)
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if !mayManage(ctx, b, cmd.AuthorizationID) {
		return nil, domainbooking.ErrBookingNotOwned
	}

	now := clock(h.Clock).now()
	if b.RefundOutstanding() && h.Refunds != nil {
		// a previous attempt saved the cancellation but the refund did not go through
		if err := h.issueRefund(ctx, b, now); err != nil {
			return nil, err
		}
		return cancellationResult(b), nil
	}
	refund, err := b.Cancel(cmd.Reason, now)
	if err != nil {
		return nil, err
	}
	// the amount is stored before money moves so a retry refunds the same amount
	if err := h.Bookings.Save(ctx, b); err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "booking cancelled", "booking_id", b.ID, "refund", refund.String())

	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.DrainEvents()); err != nil {
		logger.ErrorContext(ctx, "cancellation events not recorded", "booking_id", b.ID, "error", err)
	}
	if refund.Amount > 0 && h.Refunds != nil {
		if err := h.issueRefund(ctx, b, now); err != nil {
			return nil, err
		}
	}
	notifyRenter(ctx, h.Notifier, logger, b, nil, templateBookingCancelled)

	return cancellationResult(b), nil
}

// issueRefund sends the stored refund under one key per booking.
func (h *CancelBookingHandler) issueRefund(ctx context.Context, b *domainbooking.Booking, now time.Time) error {
	if err := h.Refunds.Refund(ctx, b.PaymentAuthorizationID, b.Refund, "cancel-"+string(b.ID)); err != nil {
		return err
	}
	b.MarkRefundIssued(now)
	return h.Bookings.Save(ctx, b)
}

func cancellationResult(b *domainbooking.Booking) *dto.Cancellation {
	return &dto.Cancellation{
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Refund:        dto.MapMoney(b.Refund),
	}
}

// mayManage allows admins, the renter, and holders of the payment handle.
func mayManage(ctx context.Context, b *domainbooking.Booking, authorizationID string) bool {
	if p, ok := auth.FromContext(ctx); ok {
		if p.IsAdmin() || b.OwnedBy(p.UserID) {
			return true
		}
	}
	handle := strings.TrimSpace(authorizationID)
	return handle != "" && handle == b.PaymentAuthorizationID
}

var _ commands.Handler[CancelBookingCommand, *dto.Cancellation] = (*CancelBookingHandler)(nil)
