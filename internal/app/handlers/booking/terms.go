package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domainbooking "rentcars/internal/domain/booking"
	domaincatalog "rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	domainpricing "rentcars/internal/domain/pricing"
	domainrange "rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
)

// authorizedTerms is what the server priced when the authorization was created.
// It is read back from gateway metadata and is the only breakdown ever persisted.
type authorizedTerms struct {
	CarID          domaincatalog.CarID
	Range          domainrange.DateRange
	Insurance      bool
	RequesterEmail string
	Cost           domainpricing.CostBreakdown
}

func quoteMetadata(car *domaincatalog.Car, dr domainrange.DateRange, insurance bool, requesterEmail string, cost domainpricing.CostBreakdown) map[string]string {
	cents := func(m money.Money) string { return strconv.FormatInt(m.Amount, 10) }
	return map[string]string{
		payment.MetaCarID:          string(car.ID),
		payment.MetaPickupDate:     dr.CheckIn.Format(time.RFC3339),
		payment.MetaReturnDate:     dr.CheckOut.Format(time.RFC3339),
		payment.MetaDays:           strconv.Itoa(dr.Days()),
		payment.MetaInsurance:      strconv.FormatBool(insurance),
		payment.MetaRequesterEmail: strings.TrimSpace(requesterEmail),
		payment.MetaSubtotal:       cents(cost.Subtotal),
		payment.MetaTax:            cents(cost.Tax),
		payment.MetaDeposit:        cents(cost.Deposit),
		payment.MetaInsuranceFee:   cents(cost.InsuranceFee),
		payment.MetaTotal:          cents(cost.Total),
		payment.MetaCurrency:       cost.Total.Currency,
	}
}

// termsFromAuthorization rebuilds the priced terms and checks them against the
// amount the gateway actually charged.
func termsFromAuthorization(a payment.Authorization) (authorizedTerms, error) {
	mismatch := func(reason string) error {
		return fmt.Errorf("%w: %s", domainbooking.ErrDraftMismatch, reason)
	}
	carID := strings.TrimSpace(a.Metadata[payment.MetaCarID])
	if carID == "" {
		return authorizedTerms{}, mismatch("authorization carries no car")
	}
	pickup, err := time.Parse(time.RFC3339, a.Metadata[payment.MetaPickupDate])
	if err != nil {
		return authorizedTerms{}, mismatch("authorization pickup date unreadable")
	}
	dropoff, err := time.Parse(time.RFC3339, a.Metadata[payment.MetaReturnDate])
	if err != nil {
		return authorizedTerms{}, mismatch("authorization return date unreadable")
	}
	dr, err := domainrange.New(pickup, dropoff)
	if err != nil {
		return authorizedTerms{}, mismatch("authorization date range invalid")
	}
	currency := strings.ToUpper(strings.TrimSpace(a.Metadata[payment.MetaCurrency]))
	if currency == "" {
		currency = a.Amount.Currency
	}
	amount := func(key string) (money.Money, bool) {
		v, ok := a.MetaInt(key)
		return money.Money{Amount: v, Currency: currency}, ok
	}
	var cost domainpricing.CostBreakdown
	var okSub, okTax, okDep, okIns, okTotal bool
	cost.Subtotal, okSub = amount(payment.MetaSubtotal)
	cost.Tax, okTax = amount(payment.MetaTax)
	cost.Deposit, okDep = amount(payment.MetaDeposit)
	cost.InsuranceFee, okIns = amount(payment.MetaInsuranceFee)
	cost.Total, okTotal = amount(payment.MetaTotal)
	if !(okSub && okTax && okDep && okIns && okTotal) {
		return authorizedTerms{}, mismatch("authorization carries no cost breakdown")
	}
	if err := cost.Validate(); err != nil {
		return authorizedTerms{}, mismatch(err.Error())
	}
	if cost.Total != a.Amount {
		return authorizedTerms{}, mismatch(fmt.Sprintf("breakdown total %s differs from authorized %s", cost.Total, a.Amount))
	}
	insurance, _ := strconv.ParseBool(a.Metadata[payment.MetaInsurance])
	return authorizedTerms{
		CarID:          domaincatalog.CarID(carID),
		Range:          dr,
		Insurance:      insurance,
		RequesterEmail: a.Metadata[payment.MetaRequesterEmail],
		Cost:           cost,
	}, nil
}

// verifyDraft cross-checks what the client claims against the authorized terms.
// Empty draft fields are not compared.
func (t authorizedTerms) verifyDraft(d BookingDraft) error {
	if id := strings.TrimSpace(d.CarID); id != "" && domaincatalog.CarID(id) != t.CarID {
		return fmt.Errorf("%w: car differs from the quoted car", domainbooking.ErrDraftMismatch)
	}
	if !d.PickupDate.IsZero() && !d.PickupDate.UTC().Equal(t.Range.CheckIn) {
		return fmt.Errorf("%w: pickup date differs from the quote", domainbooking.ErrDraftMismatch)
	}
	if !d.ReturnDate.IsZero() && !d.ReturnDate.UTC().Equal(t.Range.CheckOut) {
		return fmt.Errorf("%w: return date differs from the quote", domainbooking.ErrDraftMismatch)
	}
	if d.CostBreakdown != nil && !normalizeCurrency(d.CostBreakdown.Domain(), t.Cost.Total.Currency).Equal(t.Cost) {
		return fmt.Errorf("%w: cost breakdown differs from the authorized amount", domainbooking.ErrDraftMismatch)
	}
	return nil
}

func normalizeCurrency(c domainpricing.CostBreakdown, fallback string) domainpricing.CostBreakdown {
	fix := func(m money.Money) money.Money {
		m.Currency = strings.ToUpper(strings.TrimSpace(m.Currency))
		if m.Currency == "" {
			m.Currency = fallback
		}
		return m
	}
	c.Subtotal = fix(c.Subtotal)
	c.Tax = fix(c.Tax)
	c.Deposit = fix(c.Deposit)
	c.InsuranceFee = fix(c.InsuranceFee)
	c.Total = fix(c.Total)
	return c
}
