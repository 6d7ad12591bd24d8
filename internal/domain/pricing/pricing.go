package pricing

import (
	"errors"

	"rentcars/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrInconsistentTotal = errors.New("pricing: total does not match components")
	// ErrUnsupportedCurrency: the car is priced in a currency the policy does not charge in.
	ErrUnsupportedCurrency = errors.New("pricing: currency not supported by the pricing policy")
)

// Policy holds the commercial constants applied to every rental quote.
// Rates are expressed in basis points (800 = 8%).
type Policy struct {
	TaxBps          int64
	DepositBps      int64
	DepositCap      money.Money
	InsurancePerDay money.Money
}

// DefaultPolicy is 8% tax on rental and insurance, a deposit of half a day's
// price capped at 500 and insurance at 15 per day.
func DefaultPolicy(currency string) Policy {
	return Policy{
		TaxBps:          800,
		DepositBps:      5000,
		DepositCap:      money.Must(50000, currency),
		InsurancePerDay: money.Must(1500, currency),
	}
}

// CostBreakdown is the priced result of a rental. Every component is rounded to
// the cent on its own and Total is their exact sum.
type CostBreakdown struct {
	Subtotal     money.Money
	Tax          money.Money
	Deposit      money.Money
	InsuranceFee money.Money
	Total        money.Money
}

// Calculate prices a rental. days must be >= 1 and pricePerDay non-negative;
// callers validate both before calling.
func (p Policy) Calculate(pricePerDay money.Money, days int, insurance bool) CostBreakdown {
	currency := pricePerDay.Currency
	subtotal := pricePerDay.Multiply(int64(days))

	deposit := pricePerDay.PercentBps(p.DepositBps)
	if p.DepositCap.Amount > 0 {
		deposit = deposit.Min(p.DepositCap)
	}

	insuranceFee := money.Money{Currency: currency}
	if insurance {
		insuranceFee = money.Money{Amount: p.InsurancePerDay.Amount * int64(days), Currency: currency}
	}

	// deposit is refundable and stays out of the tax base
	taxBase := money.Money{Amount: subtotal.Amount + insuranceFee.Amount, Currency: currency}
	tax := taxBase.PercentBps(p.TaxBps)

	return CostBreakdown{
		Subtotal:     subtotal,
		Tax:          tax,
		Deposit:      deposit,
		InsuranceFee: insuranceFee,
		Total: money.Money{
			Amount:   subtotal.Amount + tax.Amount + deposit.Amount + insuranceFee.Amount,
			Currency: currency,
		},
	}
}

// Calculate prices a rental with the default policy in the price's currency.
func Calculate(pricePerDay money.Money, days int, insurance bool) CostBreakdown {
	return DefaultPolicy(pricePerDay.Currency).Calculate(pricePerDay, days, insurance)
}

// Validate checks an externally supplied breakdown.
func (c CostBreakdown) Validate() error {
	if c.Total.Currency == "" {
		return ErrCurrencyUnset
	}
	for _, component := range []money.Money{c.Subtotal, c.Tax, c.Deposit, c.InsuranceFee, c.Total} {
		if component.IsNegative() {
			return ErrNegativeComponent
		}
	}
	if !c.Consistent() {
		return ErrInconsistentTotal
	}
	return nil
}

// Consistent reports whether Total equals the sum of its components within one cent.
func (c CostBreakdown) Consistent() bool {
	sum := c.Subtotal.Amount + c.Tax.Amount + c.Deposit.Amount + c.InsuranceFee.Amount
	diff := sum - c.Total.Amount
	return diff >= -1 && diff <= 1
}

// Equal compares two breakdowns component by component.
func (c CostBreakdown) Equal(other CostBreakdown) bool {
	return c.Subtotal == other.Subtotal &&
		c.Tax == other.Tax &&
		c.Deposit == other.Deposit &&
		c.InsuranceFee == other.InsuranceFee &&
		c.Total == other.Total
}
