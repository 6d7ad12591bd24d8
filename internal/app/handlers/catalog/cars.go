package catalog

import (
	"context"
	"strings"

	"rentcars/internal/app/dto"
	"rentcars/internal/app/queries"
	domaincatalog "rentcars/internal/domain/catalog"
)

const (
	ListCarsKey = "catalog.cars.list"
	GetCarKey   = "catalog.cars.get"
)

type ListCarsQuery struct {
	Location      string `validate:"max=120"`
	Category      string `validate:"max=60"`
	OnlyAvailable bool
	PriceMinCents int64 `validate:"min=0"`
	PriceMaxCents int64 `validate:"min=0"`
	Limit         int   `validate:"min=0,max=100"`
	Offset        int   `validate:"min=0"`
}

func (q ListCarsQuery) Key() string { return ListCarsKey }

type ListCarsHandler struct {
	Cars domaincatalog.Repository
}

func (h *ListCarsHandler) Handle(ctx context.Context, q ListCarsQuery) (dto.CarCatalog, error) {
	params := domaincatalog.ListParams{
		Location:      q.Location,
		Category:      q.Category,
		OnlyAvailable: q.OnlyAvailable,
		PriceMinCents: q.PriceMinCents,
		PriceMaxCents: q.PriceMaxCents,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}.Normalized()
	result, err := h.Cars.List(ctx, params)
	if err != nil {
		return dto.CarCatalog{}, err
	}
	return dto.MapCatalog(result, params), nil
}

type GetCarQuery struct {
	CarID string `validate:"required,max=64"`
}

func (q GetCarQuery) Key() string { return GetCarKey }

type GetCarHandler struct {
	Cars domaincatalog.Repository
}

func (h *GetCarHandler) Handle(ctx context.Context, q GetCarQuery) (dto.Car, error) {
	car, err := h.Cars.ByID(ctx, domaincatalog.CarID(strings.TrimSpace(q.CarID)))
	if err != nil {
		return dto.Car{}, err
	}
	return dto.MapCar(car), nil
}

var (
	_ queries.Handler[ListCarsQuery, dto.CarCatalog] = (*ListCarsHandler)(nil)
	_ queries.Handler[GetCarQuery, dto.Car]          = (*GetCarHandler)(nil)
)
