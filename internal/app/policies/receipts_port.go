package policies

import (
	"context"
	"time"

	domainpricing "rentcars/internal/domain/pricing"
)

type Receipt struct {
	BookingID              string
	CarTitle               string
	DriverName             string
	Email                  string
	PickupLocation         string
	ReturnLocation         string
	Pickup                 time.Time
	Return                 time.Time
	Days                   int
	Insurance              bool
	Cost                   domainpricing.CostBreakdown
	PaymentAuthorizationID string
	IssuedAt               time.Time
}

// ReceiptArchive renders and stores a booking receipt, returning its location.
type ReceiptArchive interface {
	Archive(ctx context.Context, receipt Receipt) (string, error)
}
