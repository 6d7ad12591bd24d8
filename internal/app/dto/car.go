package dto

import (
	"time"

	"rentcars/internal/domain/availability"
	domaincatalog "rentcars/internal/domain/catalog"
)

type Car struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year,omitempty"`
	Category     string    `json:"category,omitempty"`
	Seats        int       `json:"seats,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	Location     string    `json:"location,omitempty"`
	PricePerDay  MoneyDTO  `json:"price_per_day"`
	Available    bool      `json:"available"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CarCatalog struct {
	Items []Car          `json:"items"`
	Meta  CollectionMeta `json:"meta"`
}

func MapCar(car *domaincatalog.Car) Car {
	return Car{
		ID:           string(car.ID),
		Title:        car.Title(),
		Make:         car.Make,
		Model:        car.Model,
		Year:         car.Year,
		Category:     car.Category,
		Seats:        car.Seats,
		Transmission: car.Transmission,
		Location:     car.Location,
		PricePerDay:  MapMoney(car.PricePerDay),
		Available:    car.Available,
		ThumbnailURL: car.ThumbnailURL,
		CreatedAt:    car.CreatedAt,
	}
}

// MapCatalog builds the paginated catalog response.
func MapCatalog(result domaincatalog.ListResult, params domaincatalog.ListParams) CarCatalog {
	items := make([]Car, 0, len(result.Items))
	for _, car := range result.Items {
		items = append(items, MapCar(car))
	}
	return CarCatalog{
		Items: items,
		Meta: CollectionMeta{
			Total:  result.Total,
			Count:  len(items),
			Limit:  params.Limit,
			Offset: params.Offset,
		},
	}
}

// CalendarBlock is a span the car cannot be booked for. Booking ids stay private.
type CalendarBlock struct {
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`
}

type Calendar struct {
	CarID  string          `json:"car_id"`
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Blocks []CalendarBlock `json:"blocks"`
}

func MapCalendar(cal availability.Calendar) Calendar {
	out := Calendar{
		CarID:  string(cal.CarID),
		From:   cal.Window.CheckIn,
		To:     cal.Window.CheckOut,
		Blocks: make([]CalendarBlock, 0, len(cal.Blocks)),
	}
	for _, b := range cal.Blocks {
		out.Blocks = append(out.Blocks, CalendarBlock{PickupDate: b.Range.CheckIn, ReturnDate: b.Range.CheckOut})
	}
	return out
}
