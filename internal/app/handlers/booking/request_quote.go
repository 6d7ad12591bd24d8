package booking

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcars/internal/app/commands"
	"rentcars/internal/app/dto"
	"rentcars/internal/app/middleware"
	"rentcars/internal/app/policies"
	"rentcars/internal/domain/auth"
	"rentcars/internal/domain/availability"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	domainrange "rentcars/internal/domain/shared/daterange"
)

const RequestQuoteKey = "booking.quote"

type RequestQuoteCommand struct {
	CarID           string `validate:"required,max=64"`
	PickupDate      time.Time
	ReturnDate      time.Time
	Insurance       bool
	RequesterEmail  string `validate:"omitempty,email,max=254"`
	IdempotencyKeyV string `validate:"max=255"`
}

func (c RequestQuoteCommand) Key() string { return RequestQuoteKey }

func (c RequestQuoteCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestQuoteCommand) ResultPrototype() any { return &dto.Quote{} }

func (c RequestQuoteCommand) AnonymousScope() string { return c.RequesterEmail }

// RequestQuoteHandler prices a rental and opens a payment authorization for it.
// It never writes to the booking store.
type RequestQuoteHandler struct {
	Cars     domaincatalog.Repository
	Bookings domainbooking.Repository
	Pricing  policies.PricingPort
	Payments payment.Gateway
	// CheckOverlap rejects quotes for dates already held by another booking.
	CheckOverlap bool
	Logger       *slog.Logger
}

func (h *RequestQuoteHandler) Handle(ctx context.Context, cmd RequestQuoteCommand) (*dto.Quote, error) {
	car, err := h.Cars.ByID(ctx, domaincatalog.CarID(strings.TrimSpace(cmd.CarID)))
	if err != nil {
		return nil, err
	}
	if err := car.EnsureRentable(); err != nil {
		return nil, err
	}
	dr, err := domainrange.New(cmd.PickupDate, cmd.ReturnDate)
	if err != nil {
		return nil, err
	}
	if h.CheckOverlap && h.Bookings != nil {
		if err := h.ensureFree(ctx, car.ID, dr); err != nil {
			return nil, err
		}
	}

	cost, err := h.Pricing.Quote(ctx, car, dr, cmd.Insurance)
	if err != nil {
		return nil, err
	}

	if cost.Total.Amount <= 0 {
		return nil, payment.ErrAmountNotPayable
	}
	authz, err := h.Payments.Authorize(ctx, payment.AuthorizeRequest{
		Amount:         cost.Total,
		Metadata:       quoteMetadata(car, dr, cmd.Insurance, cmd.RequesterEmail, cost),
		IdempotencyKey: gatewayKey(ctx, cmd),
	})
	if err != nil {
		return nil, err
	}
	loggerOrDefault(h.Logger).InfoContext(ctx, "quote issued",
		"car_id", car.ID, "authorization_id", authz.ID, "days", dr.Days(), "total", cost.Total.String())

	return &dto.Quote{
		AuthorizationID: authz.ID,
		ClientHandle:    authz.ClientHandle,
		PaymentStatus:   string(authz.Status),
		Car:             dto.MapCarSummary(car),
		PickupDate:      dr.CheckIn,
		ReturnDate:      dr.CheckOut,
		Days:            dr.Days(),
		Insurance:       cmd.Insurance,
		CostBreakdown:   dto.MapCostBreakdown(cost),
	}, nil
}

func (h *RequestQuoteHandler) ensureFree(ctx context.Context, carID domaincatalog.CarID, dr domainrange.DateRange) error {
	existing, err := h.Bookings.ListOverlapping(ctx, carID, dr)
	if err != nil {
		return err
	}
	if !availability.FromBookings(carID, dr, existing).Free(dr) {
		return domainbooking.ErrDatesUnavailable
	}
	return nil
}

var _ commands.Handler[RequestQuoteCommand, *dto.Quote] = (*RequestQuoteHandler)(nil)
var (
	_ middleware.IdempotentCommand = RequestQuoteCommand{}
	_ middleware.AnonymousScoped   = RequestQuoteCommand{}
)

// gatewayKey scopes the caller's key so two callers reusing a value get separate intents.
func gatewayKey(ctx context.Context, cmd RequestQuoteCommand) string {
	key := strings.TrimSpace(cmd.IdempotencyKeyV)
	if key == "" {
		return ""
	}
	return auth.CallerScope(ctx, cmd.RequesterEmail) + ":" + key
}
