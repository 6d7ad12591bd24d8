package daterange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcars/internal/domain/shared/daterange"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_SameDayIsInvalid(t *testing.T) {
	_, err := daterange.New(date(2025, 6, 10), date(2025, 6, 10))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestNew_ReturnBeforePickupIsInvalid(t *testing.T) {
	_, err := daterange.New(date(2025, 6, 11), date(2025, 6, 10))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestNew_ZeroDatesAreInvalid(t *testing.T) {
	_, err := daterange.New(time.Time{}, date(2025, 6, 10))
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestDays(t *testing.T) {
	cases := []struct {
		name   string
		pickup time.Time
		ret    time.Time
		want   int
	}{
		{name: "one calendar day", pickup: date(2025, 6, 10), ret: date(2025, 6, 11), want: 1},
		{name: "three days", pickup: date(2025, 6, 10), ret: date(2025, 6, 13), want: 3},
		{name: "partial day rounds up", pickup: date(2025, 6, 10), ret: date(2025, 6, 10).Add(2 * time.Hour), want: 1},
		{name: "day and a bit", pickup: date(2025, 6, 10), ret: date(2025, 6, 11).Add(time.Minute), want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dr, err := daterange.New(tc.pickup, tc.ret)
			require.NoError(t, err)
			assert.Equal(t, tc.want, dr.Days())
		})
	}
}

func TestParse(t *testing.T) {
	dr, err := daterange.Parse("2025-06-10", "2025-06-11")
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Days())
	assert.Equal(t, date(2025, 6, 10), dr.CheckIn)

	_, err = daterange.Parse("2025-06-10", "2025-06-10")
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = daterange.Parse("10/06/2025", "2025-06-11")
	assert.ErrorIs(t, err, daterange.ErrInvalidDate)
}

func TestParseDate_AcceptsRFC3339(t *testing.T) {
	got, err := daterange.ParseDate("2025-06-10T09:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 7, 30, 0, 0, time.UTC), got)
}

func TestOverlaps(t *testing.T) {
	a, _ := daterange.New(date(2025, 6, 10), date(2025, 6, 13))
	b, _ := daterange.New(date(2025, 6, 12), date(2025, 6, 15))
	c, _ := daterange.New(date(2025, 6, 13), date(2025, 6, 15))
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c), "back-to-back rentals do not overlap")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2025-06-10", daterange.FormatDate(date(2025, 6, 10)))
	assert.Equal(t, "2025-06-10T09:00:00Z", daterange.FormatDate(date(2025, 6, 10).Add(9*time.Hour)))
}
