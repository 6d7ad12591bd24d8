package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: return date must be after pickup date")
	ErrInvalidDate  = errors.New("daterange: invalid date")
)

const (
	day        = 24 * time.Hour
	dateLayout = "2006-01-02"
)

// DateRange represents a half-open rental interval [pickup, return).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(pickup, dropoff time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: pickup.UTC(), CheckOut: dropoff.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts billable rental days: any started day is charged in full.
func (dr DateRange) Days() int {
	span := dr.CheckOut.Sub(dr.CheckIn)
	if span <= 0 {
		return 0
	}
	days := int(span / day)
	if span%day != 0 {
		days++
	}
	return days
}

// Until returns the time left before pickup, negative once pickup has passed.
func (dr DateRange) Until(now time.Time) time.Duration {
	return dr.CheckIn.Sub(now.UTC())
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return (dr.CheckIn.Before(other.CheckIn) || dr.CheckIn.Equal(other.CheckIn)) &&
		(dr.CheckOut.After(other.CheckOut) || dr.CheckOut.Equal(other.CheckOut))
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

// ParseDate accepts a calendar date (2006-01-02, midnight UTC) or an RFC3339 timestamp.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t.UTC(), nil
}

// Parse builds a validated range from two textual dates.
func Parse(pickup, dropoff string) (DateRange, error) {
	from, err := ParseDate(pickup)
	if err != nil {
		return DateRange{}, err
	}
	to, err := ParseDate(dropoff)
	if err != nil {
		return DateRange{}, err
	}
	return New(from, to)
}

// FormatDate renders a date the way metadata and receipts store it.
func FormatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339)
}
