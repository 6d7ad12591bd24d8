package policies

import (
	"context"
	"fmt"

	domaincatalog "rentcars/internal/domain/catalog"
	domainpricing "rentcars/internal/domain/pricing"
	domainrange "rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
)

type PricingPort interface {
	Quote(ctx context.Context, car *domaincatalog.Car, dr domainrange.DateRange, insurance bool) (domainpricing.CostBreakdown, error)
}

// PolicyPricing prices rentals with a fixed commercial policy. A zero policy
// falls back to the default in the car's currency.
type PolicyPricing struct {
	Policy domainpricing.Policy
}

func (p PolicyPricing) Quote(_ context.Context, car *domaincatalog.Car, dr domainrange.DateRange, insurance bool) (domainpricing.CostBreakdown, error) {
	if err := dr.Validate(); err != nil {
		return domainpricing.CostBreakdown{}, err
	}
	if car.PricePerDay.Currency == "" {
		return domainpricing.CostBreakdown{}, domainpricing.ErrCurrencyUnset
	}
	if car.PricePerDay.IsNegative() {
		return domainpricing.CostBreakdown{}, domaincatalog.ErrDailyRate
	}
	policy := p.Policy
	if policy == (domainpricing.Policy{}) {
		policy = domainpricing.DefaultPolicy(car.PricePerDay.Currency)
	}
	for _, amount := range []money.Money{policy.DepositCap, policy.InsurancePerDay} {
		if amount.Currency != "" && amount.Currency != car.PricePerDay.Currency {
			return domainpricing.CostBreakdown{}, fmt.Errorf("%w: car priced in %s, policy charges %s",
				domainpricing.ErrUnsupportedCurrency, car.PricePerDay.Currency, amount.Currency)
		}
	}
	return policy.Calculate(car.PricePerDay, dr.Days(), insurance), nil
}

var _ PricingPort = PolicyPricing{}
