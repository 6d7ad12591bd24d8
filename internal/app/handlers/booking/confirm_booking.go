package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	"rentcars/internal/app/outbox"
	"rentcars/internal/app/policies"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
)

const ConfirmBookingKey = "booking.confirm"

// BookingDraft is what the client submits next to the authorization id. Car,
// dates and breakdown are only cross-checked: the persisted values come from the
// authorization.
type BookingDraft struct {
	CarID                 string `validate:"max=64"`
	PickupDate            time.Time
	ReturnDate            time.Time
	PickupLocation        string `validate:"max=200"`
	ReturnLocation        string `validate:"max=200"`
	DriverName            string `validate:"max=200"`
	DriverEmail           string `validate:"omitempty,email,max=254"`
	DriverPhone           string `validate:"max=32"`
	DriverLicense         string `validate:"max=64"`
	EmergencyName         string `validate:"max=200"`
	EmergencyPhone        string `validate:"max=32"`
	EmergencyRelationship string `validate:"max=64"`
	SpecialRequests       string `validate:"max=2000"`
	CostBreakdown         *dto.CostBreakdown
}

type ConfirmBookingCommand struct {
	AuthorizationID string `validate:"required,max=255"`
	RenterID        string
	Draft           BookingDraft
}

func (c ConfirmBookingCommand) Key() string { return ConfirmBookingKey }

type ConfirmBookingHandler struct {
	Payments     payment.Gateway
	Bookings     domainbooking.Repository
	Cars         domaincatalog.Repository
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Notifier     policies.Notifier
	Receipts     policies.ReceiptArchive
	RefundPolicy domainbooking.RefundPolicy
	IDGenerator  func() string
	Clock        func() time.Time
	Logger       *slog.Logger
}

// Handle turns a succeeded authorization into exactly one booking. The unique
// index on the authorization id settles concurrent confirmations.
func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	logger := loggerOrDefault(h.Logger)
	authID := strings.TrimSpace(cmd.AuthorizationID)

	authz, err := h.Payments.Retrieve(ctx, authID)
	if err != nil {
		return nil, err
	}
	if !authz.Succeeded() {
		return nil, fmt.Errorf("%w: status %s", domainbooking.ErrPaymentNotCompleted, authz.Status)
	}

	if _, err := h.Bookings.ByPaymentAuthorization(ctx, authz.ID); err == nil {
		return nil, domainbooking.ErrDuplicateBooking
	} else if !errors.Is(err, domainbooking.ErrBookingNotFound) {
		return nil, err
	}

	terms, err := termsFromAuthorization(authz)
	if err != nil {
		logger.ErrorContext(ctx, "authorization terms unusable", "authorization_id", authz.ID, "error", err)
		return nil, err
	}
	if err := terms.verifyDraft(cmd.Draft); err != nil {
		logger.WarnContext(ctx, "booking draft rejected", "authorization_id", authz.ID, "error", err)
		return nil, err
	}

	now := clock(h.Clock).now()
	d := cmd.Draft
	b, err := domainbooking.NewConfirmed(domainbooking.CreateParams{
		ID:                     domainbooking.BookingID(newID(h.IDGenerator)),
		RenterID:               cmd.RenterID,
		CarID:                  terms.CarID,
		Range:                  terms.Range,
		PickupLocation:         d.PickupLocation,
		ReturnLocation:         d.ReturnLocation,
		Cost:                   terms.Cost,
		Insurance:              terms.Insurance,
		PaymentAuthorizationID: authz.ID,
		Driver: domainbooking.Driver{
			Name:          strings.TrimSpace(d.DriverName),
			Email:         strings.TrimSpace(d.DriverEmail),
			Phone:         strings.TrimSpace(d.DriverPhone),
			LicenseNumber: strings.TrimSpace(d.DriverLicense),
		},
		EmergencyContact: domainbooking.EmergencyContact{
			Name:     strings.TrimSpace(d.EmergencyName),
			Phone:    strings.TrimSpace(d.EmergencyPhone),
			Relation: strings.TrimSpace(d.EmergencyRelationship),
		},
		SpecialRequests: d.SpecialRequests,
		RequesterEmail:  terms.RequesterEmail,
		Policy:          h.RefundPolicy,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainbooking.ErrDraftMismatch, err)
	}

	if err := h.Bookings.Insert(ctx, b); err != nil {
		if errors.Is(err, domainbooking.ErrDuplicateBooking) {
			logger.WarnContext(ctx, "concurrent confirmation lost the race", "authorization_id", authz.ID)
		}
		return nil, err
	}
	logger.InfoContext(ctx, "booking confirmed",
		"booking_id", b.ID, "car_id", b.CarID, "authorization_id", authz.ID, "total", b.Cost.Total.String())

	// The booking exists from here on; later failures are logged, never returned.
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.DrainEvents()); err != nil {
		logger.ErrorContext(ctx, "booking events not recorded", "booking_id", b.ID, "error", err)
	}
	car := h.lookupCar(ctx, b.CarID)
	notifyRenter(ctx, h.Notifier, logger, b, car, templateBookingConfirmed)
	h.archiveReceipt(ctx, b, car, now)

	result := dto.MapBooking(b, now)
	return &result, nil
}

func (h *ConfirmBookingHandler) lookupCar(ctx context.Context, id domaincatalog.CarID) *domaincatalog.Car {
	if h.Cars == nil {
		return nil
	}
	car, err := h.Cars.ByID(ctx, id)
	if err != nil {
		loggerOrDefault(h.Logger).DebugContext(ctx, "car lookup for notification failed", "car_id", id, "error", err)
		return nil
	}
	return car
}

func (h *ConfirmBookingHandler) archiveReceipt(ctx context.Context, b *domainbooking.Booking, car *domaincatalog.Car, now time.Time) {
	if h.Receipts == nil {
		return
	}
	title := string(b.CarID)
	if car != nil {
		title = car.Title()
	}
	location, err := h.Receipts.Archive(ctx, policies.Receipt{
		BookingID:              string(b.ID),
		CarTitle:               title,
		DriverName:             b.Driver.Name,
		Email:                  b.NotificationEmail(),
		PickupLocation:         b.PickupLocation,
		ReturnLocation:         b.ReturnLocation,
		Pickup:                 b.Range.CheckIn,
		Return:                 b.Range.CheckOut,
		Days:                   b.Days,
		Insurance:              b.Insurance,
		Cost:                   b.Cost,
		PaymentAuthorizationID: b.PaymentAuthorizationID,
		IssuedAt:               now,
	})
	if err != nil {
		loggerOrDefault(h.Logger).WarnContext(ctx, "receipt archive failed", "booking_id", b.ID, "error", err)
		return
	}
	if location != "" {
		loggerOrDefault(h.Logger).DebugContext(ctx, "receipt archived", "booking_id", b.ID, "location", location)
	}
}

var _ commands.Handler[ConfirmBookingCommand, *dto.Booking] = (*ConfirmBookingHandler)(nil)
