package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentcars/internal/app/dto"
	"rentcars/internal/app/queries"
	"rentcars/internal/domain/auth"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
)

const (
	GetBookingKey     = "booking.get"
	ListMyBookingsKey = "booking.list_mine"
	ListBookingsKey   = "booking.list"
)

type GetBookingQuery struct {
	BookingID       string `validate:"required,max=64"`
	AuthorizationID string `validate:"max=255"`
}

func (q GetBookingQuery) Key() string { return GetBookingKey }

type GetBookingHandler struct {
	Bookings domainbooking.Repository
	Clock    func() time.Time
}

// Handle hides bookings the caller may not manage behind ErrBookingNotFound.
func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	b, err := h.Bookings.ByID(ctx, domainbooking.BookingID(strings.TrimSpace(q.BookingID)))
	if err != nil {
		return dto.Booking{}, err
	}
	if !mayManage(ctx, b, q.AuthorizationID) {
		return dto.Booking{}, domainbooking.ErrBookingNotFound
	}
	return dto.MapBooking(b, clock(h.Clock).now()), nil
}

type ListMyBookingsQuery struct{}

func (q ListMyBookingsQuery) Key() string { return ListMyBookingsKey }

type ListMyBookingsHandler struct {
	Bookings domainbooking.Repository
	Clock    func() time.Time
}

func (h *ListMyBookingsHandler) Handle(ctx context.Context, _ ListMyBookingsQuery) (dto.BookingCollection, error) {
	p, ok := auth.FromContext(ctx)
	if !ok {
		return dto.BookingCollection{}, auth.ErrUnauthorized
	}
	items, err := h.Bookings.ListByRenter(ctx, p.UserID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.BookingCollection{Items: dto.MapBookings(items, clock(h.Clock).now())}, nil
}

var ErrUnknownStatus = errors.New("booking: unknown status filter")

type ListBookingsQuery struct {
	Status string `validate:"omitempty,oneof=pending confirmed active completed cancelled refunded"`
	CarID  string `validate:"max=64"`
	Limit  int    `validate:"min=0,max=100"`
	Offset int    `validate:"min=0"`
}

func (q ListBookingsQuery) Key() string { return ListBookingsKey }

func (q ListBookingsQuery) RequiredRole() auth.Role { return auth.RoleAdmin }

type ListBookingsHandler struct {
	Bookings domainbooking.Repository
	Clock    func() time.Time
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	params := domainbooking.ListParams{
		CarID:  domaincatalog.CarID(strings.TrimSpace(q.CarID)),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Status != "" {
		status, ok := domainbooking.ParseStatus(q.Status)
		if !ok {
			return dto.BookingCollection{}, ErrUnknownStatus
		}
		params.Status = status
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	items, total, err := h.Bookings.List(ctx, params)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	mapped := dto.MapBookings(items, clock(h.Clock).now())
	return dto.BookingCollection{
		Items: mapped,
		Meta: &dto.CollectionMeta{
			Total:  total,
			Count:  len(mapped),
			Limit:  params.Limit,
			Offset: params.Offset,
		},
	}, nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.Booking]               = (*GetBookingHandler)(nil)
	_ queries.Handler[ListMyBookingsQuery, dto.BookingCollection] = (*ListMyBookingsHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection]   = (*ListBookingsHandler)(nil)
)
