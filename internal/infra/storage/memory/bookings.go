package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	domainrange "rentcars/internal/domain/shared/daterange"
)

// BookingRepository mirrors the Mongo store's guarantees: the authorization id
// is unique and Save is optimistic on Version.
type BookingRepository struct {
	mu     sync.RWMutex
	items  map[domainbooking.BookingID]domainbooking.Booking
	byAuth map[string]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items:  make(map[domainbooking.BookingID]domainbooking.Booking),
		byAuth: make(map[string]domainbooking.BookingID),
	}
}

func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byAuth[b.PaymentAuthorizationID]; taken {
		return domainbooking.ErrDuplicateBooking
	}
	if _, taken := r.items[b.ID]; taken {
		return domainbooking.ErrDuplicateBooking
	}
	b.Version = 1
	r.items[b.ID] = snapshot(b)
	r.byAuth[b.PaymentAuthorizationID] = b.ID
	return nil
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return &b, nil
}

func (r *BookingRepository) ByPaymentAuthorization(ctx context.Context, authorizationID string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAuth[authorizationID]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	b := r.items[id]
	return &b, nil
}

func (r *BookingRepository) ListByRenter(ctx context.Context, renterID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		return renterID != "" && b.RenterID == renterID
	}), nil
}

func (r *BookingRepository) List(ctx context.Context, params domainbooking.ListParams) ([]*domainbooking.Booking, int, error) {
	matches := r.filter(func(b *domainbooking.Booking) bool {
		if params.Status != "" && b.Status != params.Status {
			return false
		}
		return params.CarID == "" || b.CarID == params.CarID
	})
	total := len(matches)
	start := params.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if params.Limit > 0 && start+params.Limit < total {
		end = start + params.Limit
	}
	return matches[start:end], total, nil
}

func (r *BookingRepository) ListOverlapping(ctx context.Context, carID domaincatalog.CarID, dr domainrange.DateRange) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		return b.CarID == carID && b.Blocks() && b.Range.Overlaps(dr)
	}), nil
}

func (r *BookingRepository) ListPickupsBetween(ctx context.Context, from, to time.Time) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		pickup := b.Range.CheckIn
		return b.Status == domainbooking.StatusConfirmed && !pickup.Before(from) && pickup.Before(to)
	}), nil
}

// Save replaces the stored booking when its version still matches.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[b.ID]
	if !ok {
		return domainbooking.ErrBookingNotFound
	}
	if current.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	r.items[b.ID] = snapshot(b)
	return nil
}

// filter returns copies sorted newest first.
func (r *BookingRepository) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, stored := range r.items {
		b := stored
		if keep(&b) {
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// snapshot copies the booking without its pending events.
func snapshot(b *domainbooking.Booking) domainbooking.Booking {
	out := *b
	out.ClearEvents()
	return out
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
