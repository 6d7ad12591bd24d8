package memory

import (
	"context"
	"time"

	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/shared/money"
)

// SeedDemoCars loads a small catalog for local runs.
func SeedDemoCars(ctx context.Context, repo domaincatalog.Repository, now time.Time) error {
	fixtures := []domaincatalog.CreateCarParams{
		{ID: "car-civic", Owner: "owner-1", Make: "Honda", Model: "Civic", Year: 2022, Category: "compact", Seats: 5, Transmission: "automatic", Location: "San Francisco", PricePerDay: money.Must(5500, "USD"), Available: true},
		{ID: "car-model3", Owner: "owner-1", Make: "Tesla", Model: "Model 3", Year: 2023, Category: "electric", Seats: 5, Transmission: "automatic", Location: "San Francisco", PricePerDay: money.Must(10000, "USD"), Available: true},
		{ID: "car-wrangler", Owner: "owner-2", Make: "Jeep", Model: "Wrangler", Year: 2021, Category: "suv", Seats: 4, Transmission: "manual", Location: "Denver", PricePerDay: money.Must(8900, "USD"), Available: true},
		{ID: "car-911", Owner: "owner-3", Make: "Porsche", Model: "911 Carrera", Year: 2020, Category: "luxury", Seats: 2, Transmission: "automatic", Location: "Los Angeles", PricePerDay: money.Must(120000, "USD"), Available: true},
		{ID: "car-transit", Owner: "owner-2", Make: "Ford", Model: "Transit", Year: 2019, Category: "van", Seats: 12, Transmission: "automatic", Location: "Denver", PricePerDay: money.Must(9900, "USD"), Available: false},
	}
	for _, params := range fixtures {
		params.Now = now
		car, err := domaincatalog.NewCar(params)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, car); err != nil {
			return err
		}
	}
	return nil
}
