package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domaincatalog "rentcars/internal/domain/catalog"
)

// CarRepository is an in-memory catalog for demos and tests.
type CarRepository struct {
	mu    sync.RWMutex
	items map[domaincatalog.CarID]domaincatalog.Car
}

func NewCarRepository() *CarRepository {
	return &CarRepository{items: make(map[domaincatalog.CarID]domaincatalog.Car)}
}

// ByID returns a copy of the car or catalog.ErrCarNotFound.
func (r *CarRepository) ByID(ctx context.Context, id domaincatalog.CarID) (*domaincatalog.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	car, ok := r.items[id]
	if !ok {
		return nil, domaincatalog.ErrCarNotFound
	}
	return &car, nil
}

func (r *CarRepository) Save(ctx context.Context, car *domaincatalog.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[car.ID] = *car
	return nil
}

func (r *CarRepository) List(ctx context.Context, params domaincatalog.ListParams) (domaincatalog.ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domaincatalog.Car, 0, len(r.items))
	for _, stored := range r.items {
		if err := ctx.Err(); err != nil {
			return domaincatalog.ListResult{}, err
		}
		car := stored
		if opts.OnlyAvailable && !car.Available {
			continue
		}
		if opts.Location != "" && !strings.Contains(strings.ToLower(car.Location), opts.Location) {
			continue
		}
		if opts.Category != "" && car.Category != opts.Category {
			continue
		}
		if opts.PriceMinCents > 0 && car.PricePerDay.Amount < opts.PriceMinCents {
			continue
		}
		if opts.PriceMaxCents > 0 && car.PricePerDay.Amount > opts.PriceMaxCents {
			continue
		}
		matches = append(matches, &car)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].PricePerDay.Amount == matches[j].PricePerDay.Amount {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].PricePerDay.Amount < matches[j].PricePerDay.Amount
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return domaincatalog.ListResult{Items: matches[start:end], Total: total}, nil
}

var _ domaincatalog.Repository = (*CarRepository)(nil)
