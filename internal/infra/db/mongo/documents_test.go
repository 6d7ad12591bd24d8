package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
	"rentcars/internal/domain/shared/storage"
)

func TestBookingDocument_PreservesAggregate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dr, err := daterange.New(now.Add(72*time.Hour), now.Add(144*time.Hour))
	require.NoError(t, err)
	b, err := domainbooking.NewConfirmed(domainbooking.CreateParams{
		ID:                     "b-1",
		RenterID:               "renter-1",
		CarID:                  "car-1",
		Range:                  dr,
		Cost:                   pricing.Calculate(money.Must(10000, "USD"), dr.Days(), true),
		Insurance:              true,
		PaymentAuthorizationID: "pi_1",
		Driver:                 domainbooking.Driver{Name: "Ann", Phone: "+1555"},
		CreatedAt:              now,
	})
	require.NoError(t, err)
	_, err = b.Cancel("changed plans", now)
	require.NoError(t, err)
	b.Version = 3
	b.ClearEvents()

	got := newBookingDocument(b).toAggregate()
	assert.Equal(t, b, got)
}

func TestBookingDocument_ZeroTimesStayZero(t *testing.T) {
	doc := bookingDocument{ID: "b", CreatedAt: 1, UpdatedAt: 1}
	b := doc.toAggregate()
	assert.True(t, b.CancelledAt.IsZero())
	assert.True(t, b.ReminderSentAt.IsZero())
}

func TestCarDocument_PreservesAggregate(t *testing.T) {
	car, err := domaincatalog.NewCar(domaincatalog.CreateCarParams{
		ID: "car-1", Make: "Tesla", Model: "Model 3", Year: 2023, Category: "electric",
		PricePerDay: money.Must(10000, "USD"), Available: true,
		Now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, car, newCarDocument(car).toAggregate())
}

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr(nil))
	assert.ErrorIs(t, wrapErr(context.DeadlineExceeded), storage.ErrUnavailable)

	plain := errors.New("validation failed")
	assert.Same(t, plain, wrapErr(plain))
}
