package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"rentcars/internal/domain/shared/money"
)

var (
	ErrCarNotFound    = errors.New("catalog: car not found")
	ErrCarUnavailable = errors.New("catalog: car is not available for rent")
	ErrTitleRequired  = errors.New("catalog: make and model are required")
	ErrDailyRate      = errors.New("catalog: daily rate must be non-negative")
)

type CarID string
type OwnerID string

type Car struct {
	ID           CarID
	Owner        OwnerID
	Make         string
	Model        string
	Year         int
	Category     string
	Seats        int
	Transmission string
	Location     string
	PricePerDay  money.Money
	Available    bool
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Title is the human readable name used in notifications and receipts.
func (c *Car) Title() string {
	title := strings.TrimSpace(c.Make + " " + c.Model)
	if c.Year > 0 {
		return title + " (" + strconv.Itoa(c.Year) + ")"
	}
	return title
}

type CreateCarParams struct {
	ID           CarID
	Owner        OwnerID
	Make         string
	Model        string
	Year         int
	Category     string
	Seats        int
	Transmission string
	Location     string
	PricePerDay  money.Money
	Available    bool
	ThumbnailURL string
	Now          time.Time
}

func NewCar(p CreateCarParams) (*Car, error) {
	if strings.TrimSpace(p.Make) == "" || strings.TrimSpace(p.Model) == "" {
		return nil, ErrTitleRequired
	}
	if p.PricePerDay.IsNegative() {
		return nil, ErrDailyRate
	}
	if p.PricePerDay.Currency == "" {
		return nil, money.ErrInvalidCurrency
	}
	now := p.Now.UTC()
	return &Car{
		ID:           p.ID,
		Owner:        p.Owner,
		Make:         strings.TrimSpace(p.Make),
		Model:        strings.TrimSpace(p.Model),
		Year:         p.Year,
		Category:     strings.ToLower(strings.TrimSpace(p.Category)),
		Seats:        p.Seats,
		Transmission: strings.ToLower(strings.TrimSpace(p.Transmission)),
		Location:     strings.TrimSpace(p.Location),
		PricePerDay:  p.PricePerDay,
		Available:    p.Available,
		ThumbnailURL: p.ThumbnailURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// EnsureRentable returns ErrCarUnavailable when the owner has disabled the car.
func (c *Car) EnsureRentable() error {
	if !c.Available {
		return ErrCarUnavailable
	}
	return nil
}

type ListParams struct {
	Location      string
	Category      string
	OnlyAvailable bool
	PriceMinCents int64
	PriceMaxCents int64
	Limit         int
	Offset        int
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Normalized applies defaults and bounds to list parameters.
func (p ListParams) Normalized() ListParams {
	out := p
	out.Location = strings.ToLower(strings.TrimSpace(p.Location))
	out.Category = strings.ToLower(strings.TrimSpace(p.Category))
	if out.Limit <= 0 {
		out.Limit = defaultListLimit
	}
	if out.Limit > maxListLimit {
		out.Limit = maxListLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

type ListResult struct {
	Items []*Car
	Total int
}

// Repository is the catalog store consumed by the booking engine.
type Repository interface {
	ByID(ctx context.Context, id CarID) (*Car, error)
	Save(ctx context.Context, car *Car) error
	List(ctx context.Context, params ListParams) (ListResult, error)
}
