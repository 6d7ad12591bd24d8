package booking

import (
	"errors"

	"rentcars/internal/domain/catalog"
	"rentcars/internal/domain/payment"
	"rentcars/internal/domain/pricing"
	"rentcars/internal/domain/shared/daterange"
	"rentcars/internal/domain/shared/money"
	"rentcars/internal/domain/shared/storage"
)

// FailureClass tells callers what to do after a failed booking operation.
type FailureClass int

const (
	// FailureUnknown covers unexpected errors.
	FailureUnknown FailureClass = iota
	// FailureRetrySafe: nothing was charged, the user can change input and try again.
	FailureRetrySafe
	// FailureContactSupport: money may have moved, retrying will not help.
	FailureContactSupport
	// FailureRetry: a collaborator is down, the same request may succeed later.
	FailureRetry
)

func (c FailureClass) String() string {
	switch c {
	case FailureRetrySafe:
		return "retry_safe"
	case FailureContactSupport:
		return "contact_support"
	case FailureRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Classify maps an error from the quote, confirm or cancel flows to its failure class.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return FailureUnknown
	case errors.Is(err, catalog.ErrCarNotFound),
		errors.Is(err, catalog.ErrCarUnavailable),
		errors.Is(err, ErrDatesUnavailable),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, pricing.ErrCurrencyUnset),
		errors.Is(err, pricing.ErrUnsupportedCurrency),
		errors.Is(err, payment.ErrAmountNotPayable),
		errors.Is(err, money.ErrInvalidCurrency):
		return FailureRetrySafe
	case errors.Is(err, payment.ErrAuthorizationNotFound),
		errors.Is(err, ErrPaymentNotCompleted),
		errors.Is(err, ErrDuplicateBooking),
		errors.Is(err, ErrDraftMismatch),
		errors.Is(err, payment.ErrRefundFailed):
		return FailureContactSupport
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, payment.ErrGatewayUnavailable),
		errors.Is(err, ErrConcurrentUpdate):
		return FailureRetry
	}
	return FailureUnknown
}
