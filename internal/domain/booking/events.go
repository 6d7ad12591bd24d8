package booking

import (
	"time"

	"rentcars/internal/domain/catalog"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
)

type BookingConfirmed struct {
	BookingID              BookingID
	CarID                  catalog.CarID
	RenterID               string
	PaymentAuthorizationID string
	Range                  daterange.DateRange
	Total                  money.Money
	At                     time.Time
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingStatusChanged struct {
	BookingID BookingID
	Status    Status
	At        time.Time
}

func (e BookingStatusChanged) EventName() string     { return "booking.status_changed" }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

type BookingActivated struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingActivated) EventName() string     { return "booking.activated" }
func (e BookingActivated) AggregateID() string   { return string(e.BookingID) }
func (e BookingActivated) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID
	At        time.Time
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	Refund    money.Money
	Reason    string
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingRefunded struct {
	BookingID BookingID
	Refund    money.Money
	At        time.Time
}

func (e BookingRefunded) EventName() string     { return "booking.refunded" }
func (e BookingRefunded) AggregateID() string   { return string(e.BookingID) }
func (e BookingRefunded) OccurredAt() time.Time { return e.At }

type PaymentRefundedExternally struct {
	BookingID              BookingID
	PaymentAuthorizationID string
	At                     time.Time
}

func (e PaymentRefundedExternally) EventName() string     { return "booking.payment_refunded" }
func (e PaymentRefundedExternally) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRefundedExternally) OccurredAt() time.Time { return e.At }
