package availability

import (
	"context"
	"strings"
	"time"

	"rentcars/internal/app/dto"
	"rentcars/internal/app/queries"
	domainavailability "rentcars/internal/domain/availability"
	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
)

const GetCalendarKey = "availability.calendar"

const defaultHorizon = 90 * 24 * time.Hour

// GetCalendarQuery asks which dates of a car are taken. A zero From starts
// today and a zero To covers the next 90 days.
type GetCalendarQuery struct {
	CarID string `validate:"required,max=64"`
	From  time.Time
	To    time.Time
}

func (q GetCalendarQuery) Key() string { return GetCalendarKey }

type GetCalendarHandler struct {
	Cars     domaincatalog.Repository
	Bookings domainbooking.Repository
	Clock    func() time.Time
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	car, err := h.Cars.ByID(ctx, domaincatalog.CarID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.Calendar{}, err
	}
	from, to := q.From, q.To
	if from.IsZero() {
		now := time.Now()
		if h.Clock != nil {
			now = h.Clock()
		}
		from = now.UTC().Truncate(24 * time.Hour)
	}
	if to.IsZero() {
		to = from.Add(defaultHorizon)
	}
	window, err := domainavailability.NewWindow(from, to)
	if err != nil {
		return dto.Calendar{}, err
	}
	existing, err := h.Bookings.ListOverlapping(ctx, car.ID, window)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.MapCalendar(domainavailability.FromBookings(car.ID, window, existing)), nil
}

var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
