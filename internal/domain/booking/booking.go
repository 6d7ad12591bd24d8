package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcars/internal/domain/catalog"
	"rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/events"
	"rentcars/internal/domain/shared/money"
)

var (
	ErrBookingNotFound          = errors.New("booking: not found")
	ErrDuplicateBooking         = errors.New("booking: a booking already exists for this payment")
	ErrInvalidTransition        = errors.New("booking: invalid status transition")
	ErrCancellationWindowClosed = errors.New("booking: cancellation is only possible more than 24h before pickup")
	ErrConcurrentUpdate         = errors.New("booking: concurrent update detected")
	ErrPaymentNotCompleted      = errors.New("booking: payment has not completed")
	ErrDraftMismatch            = errors.New("booking: booking details do not match the authorized payment")
	ErrDatesUnavailable         = errors.New("booking: car already booked for the requested dates")
	ErrBookingNotOwned          = errors.New("booking: not owned by caller")
	ErrPaymentAuthRequired      = errors.New("booking: payment authorization id required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled, StatusRefunded},
	StatusActive:    {StatusCompleted},
	StatusCompleted: {StatusRefunded},
}

// CanTransition reports whether the state machine allows moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a textual status.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled, StatusRefunded:
		return s, true
	}
	return "", false
}

type Driver struct {
	Name          string
	Email         string
	Phone         string
	LicenseNumber string
}

type EmergencyContact struct {
	Name     string
	Phone    string
	Relation string
}

type Booking struct {
	ID                     BookingID
	RenterID               string
	CarID                  catalog.CarID
	Range                  daterange.DateRange
	PickupLocation         string
	ReturnLocation         string
	Days                   int
	Cost                   pricing.CostBreakdown
	Insurance              bool
	PaymentAuthorizationID string
	PaymentStatus          PaymentStatus
	Status                 Status
	Driver                 Driver
	EmergencyContact       EmergencyContact
	SpecialRequests        string
	RequesterEmail         string
	Policy                 RefundPolicy
	CancellationReason     string
	Refund                 money.Money
	CreatedAt              time.Time
	UpdatedAt              time.Time
	CancelledAt            time.Time
	RefundIssuedAt         time.Time
	ReminderSentAt         time.Time
	Version                int64
	events.EventRecorder
}

// Repository is the durable booking store. Insert must be atomic with respect to
// the payment authorization id: at most one booking per authorization.
type Repository interface {
	Insert(ctx context.Context, booking *Booking) error
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByPaymentAuthorization(ctx context.Context, authorizationID string) (*Booking, error)
	ListByRenter(ctx context.Context, renterID string) ([]*Booking, error)
	List(ctx context.Context, params ListParams) ([]*Booking, int, error)
	ListOverlapping(ctx context.Context, carID catalog.CarID, dr daterange.DateRange) ([]*Booking, error)
	// ListPickupsBetween returns confirmed bookings whose pickup falls in [from, to).
	ListPickupsBetween(ctx context.Context, from, to time.Time) ([]*Booking, error)
	Save(ctx context.Context, booking *Booking) error
}

type ListParams struct {
	Status Status
	CarID  catalog.CarID
	Limit  int
	Offset int
}

type CreateParams struct {
	ID                     BookingID
	RenterID               string
	CarID                  catalog.CarID
	Range                  daterange.DateRange
	PickupLocation         string
	ReturnLocation         string
	Cost                   pricing.CostBreakdown
	Insurance              bool
	PaymentAuthorizationID string
	Driver                 Driver
	EmergencyContact       EmergencyContact
	SpecialRequests        string
	RequesterEmail         string
	Policy                 RefundPolicy
	CreatedAt              time.Time
}

// NewConfirmed creates a booking for a payment the gateway reported as succeeded.
// Such bookings start confirmed and paid.
func NewConfirmed(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(params.PaymentAuthorizationID) == "" {
		return nil, ErrPaymentAuthRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Cost.Validate(); err != nil {
		return nil, err
	}
	policy := params.Policy
	if policy.IsZero() {
		policy = DefaultRefundPolicy()
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:                     params.ID,
		RenterID:               strings.TrimSpace(params.RenterID),
		CarID:                  params.CarID,
		Range:                  params.Range,
		PickupLocation:         strings.TrimSpace(params.PickupLocation),
		ReturnLocation:         strings.TrimSpace(params.ReturnLocation),
		Days:                   params.Range.Days(),
		Cost:                   params.Cost,
		Insurance:              params.Insurance,
		PaymentAuthorizationID: strings.TrimSpace(params.PaymentAuthorizationID),
		PaymentStatus:          PaymentPaid,
		Status:                 StatusConfirmed,
		Driver:                 params.Driver,
		EmergencyContact:       params.EmergencyContact,
		SpecialRequests:        strings.TrimSpace(params.SpecialRequests),
		RequesterEmail:         strings.TrimSpace(params.RequesterEmail),
		Policy:                 policy,
		Refund:                 params.Cost.Total.Zero(),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	b.Record(BookingConfirmed{
		BookingID:              b.ID,
		CarID:                  b.CarID,
		RenterID:               b.RenterID,
		PaymentAuthorizationID: b.PaymentAuthorizationID,
		Range:                  b.Range,
		Total:                  b.Cost.Total,
		At:                     now,
	})
	return b, nil
}

// NotificationEmail is where confirmations go: the driver first, then whoever asked for the quote.
func (b *Booking) NotificationEmail() string {
	if email := strings.TrimSpace(b.Driver.Email); email != "" {
		return email
	}
	return b.RequesterEmail
}

// OwnedBy reports whether the renter id matches. Anonymous bookings are owned by nobody.
func (b *Booking) OwnedBy(renterID string) bool {
	renterID = strings.TrimSpace(renterID)
	return renterID != "" && b.RenterID == renterID
}

// Blocks reports whether the booking still holds the car for its dates.
func (b *Booking) Blocks() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusActive:
		return true
	}
	return false
}

func (b *Booking) transition(to Status, now time.Time) error {
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if err := b.transition(StatusConfirmed, now); err != nil {
		return err
	}
	b.Record(BookingStatusChanged{BookingID: b.ID, Status: b.Status, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Activate(now time.Time) error {
	if err := b.transition(StatusActive, now); err != nil {
		return err
	}
	b.Record(BookingActivated{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Complete(now time.Time) error {
	if err := b.transition(StatusCompleted, now); err != nil {
		return err
	}
	b.Record(BookingCompleted{BookingID: b.ID, At: b.UpdatedAt})
	return nil
}

// CanCancel is true while pickup is more than 24h away and the status still allows cancellation.
func (b *Booking) CanCancel(now time.Time) bool {
	if !CanTransition(b.Status, StatusCancelled) {
		return false
	}
	return b.Policy.WithinCancellationWindow(b.Range.Until(now))
}

// RefundFor returns the amount refunded if the booking were cancelled at now.
func (b *Booking) RefundFor(now time.Time) money.Money {
	return b.Policy.RefundFor(b.Cost.Total, b.Range.Until(now))
}

// Cancel moves the booking to cancelled and returns the refund owed to the renter.
func (b *Booking) Cancel(reason string, now time.Time) (money.Money, error) {
	if !CanTransition(b.Status, StatusCancelled) {
		return money.Money{}, ErrInvalidTransition
	}
	if !b.CanCancel(now) {
		return money.Money{}, ErrCancellationWindowClosed
	}
	refund := b.RefundFor(now)
	if err := b.transition(StatusCancelled, now); err != nil {
		return money.Money{}, err
	}
	b.CancellationReason = strings.TrimSpace(reason)
	b.CancelledAt = b.UpdatedAt
	b.Refund = refund
	if refund.Amount > 0 && b.PaymentStatus == PaymentPaid {
		b.PaymentStatus = PaymentRefunded
	}
	b.Record(BookingCancelled{BookingID: b.ID, Refund: refund, Reason: b.CancellationReason, At: b.UpdatedAt})
	return refund, nil
}

// RefundOutstanding is true for a cancellation whose computed refund has not
// been confirmed by the gateway yet.
func (b *Booking) RefundOutstanding() bool {
	return b.Status == StatusCancelled && b.Refund.Amount > 0 && b.RefundIssuedAt.IsZero()
}

func (b *Booking) MarkRefundIssued(now time.Time) {
	b.RefundIssuedAt = now.UTC()
	b.UpdatedAt = b.RefundIssuedAt
}

// RefundInFull is the administrative refund of a confirmed or completed booking.
func (b *Booking) RefundInFull(now time.Time) (money.Money, error) {
	if err := b.transition(StatusRefunded, now); err != nil {
		return money.Money{}, err
	}
	b.Refund = b.Cost.Total
	b.PaymentStatus = PaymentRefunded
	b.Record(BookingRefunded{BookingID: b.ID, Refund: b.Refund, At: b.UpdatedAt})
	return b.Refund, nil
}

// MarkPaymentRefunded records a refund issued directly at the gateway.
func (b *Booking) MarkPaymentRefunded(now time.Time) bool {
	if b.PaymentStatus == PaymentRefunded {
		return false
	}
	b.PaymentStatus = PaymentRefunded
	b.UpdatedAt = now.UTC()
	b.Record(PaymentRefundedExternally{BookingID: b.ID, PaymentAuthorizationID: b.PaymentAuthorizationID, At: b.UpdatedAt})
	return true
}

// NeedsReminder is true for confirmed bookings nobody has reminded yet.
func (b *Booking) NeedsReminder() bool {
	return b.Status == StatusConfirmed && b.ReminderSentAt.IsZero()
}

func (b *Booking) MarkReminded(now time.Time) {
	b.ReminderSentAt = now.UTC()
	b.UpdatedAt = b.ReminderSentAt
}
