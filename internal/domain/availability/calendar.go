package availability

import (
	"errors"
	"sort"
	"time"

	"rentcars/internal/domain/booking"
	"rentcars/internal/domain/catalog"
	"rentcars/internal/domain/shared/daterange"
)

// MaxWindow bounds how far a single calendar lookup may reach.
const MaxWindow = 366 * 24 * time.Hour

var ErrWindowTooLong = errors.New("availability: calendar window exceeds one year")

// Block is a span during which the car is held by a booking.
type Block struct {
	Range     daterange.DateRange
	BookingID booking.BookingID
	Status    booking.Status
}

// Calendar is the occupancy of one car within a window. It is derived from
// bookings on every read and never stored.
type Calendar struct {
	CarID  catalog.CarID
	Window daterange.DateRange
	Blocks []Block
}

// NewWindow validates a lookup window.
func NewWindow(from, to time.Time) (daterange.DateRange, error) {
	w, err := daterange.New(from, to)
	if err != nil {
		return daterange.DateRange{}, err
	}
	if w.CheckOut.Sub(w.CheckIn) > MaxWindow {
		return daterange.DateRange{}, ErrWindowTooLong
	}
	return w, nil
}

// FromBookings keeps the bookings that still hold the car and overlap the window.
func FromBookings(carID catalog.CarID, window daterange.DateRange, bookings []*booking.Booking) Calendar {
	cal := Calendar{CarID: carID, Window: window}
	for _, b := range bookings {
		if b == nil || b.CarID != carID || !b.Blocks() || !b.Range.Overlaps(window) {
			continue
		}
		cal.Blocks = append(cal.Blocks, Block{Range: b.Range, BookingID: b.ID, Status: b.Status})
	}
	sort.Slice(cal.Blocks, func(i, j int) bool {
		return cal.Blocks[i].Range.CheckIn.Before(cal.Blocks[j].Range.CheckIn)
	})
	return cal
}

// Free reports whether r can be booked without touching any block.
func (c Calendar) Free(r daterange.DateRange) bool {
	for _, block := range c.Blocks {
		if block.Range.Overlaps(r) {
			return false
		}
	}
	return true
}
