package payment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"rentcars/internal/domain/shared/money"
)

var (
	ErrAuthorizationNotFound = errors.New("payment: authorization not found")
	ErrGatewayUnavailable    = errors.New("payment: gateway unavailable")
	ErrRefundFailed          = errors.New("payment: refund failed")
	// ErrAmountNotPayable: the gateway cannot charge this amount (zero or below its minimum).
	ErrAmountNotPayable = errors.New("payment: amount cannot be charged")
)

type Status string

const (
	StatusRequiresAction Status = "requires_action"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
)

// Metadata keys written when a quote is accepted. The engine reads them back at
// confirmation time as the authoritative record of what was priced.
const (
	MetaCarID          = "car_id"
	MetaPickupDate     = "pickup_date"
	MetaReturnDate     = "return_date"
	MetaDays           = "days"
	MetaInsurance      = "insurance"
	MetaRequesterEmail = "requester_email"
	MetaSubtotal       = "subtotal_cents"
	MetaTax            = "tax_cents"
	MetaDeposit        = "deposit_cents"
	MetaInsuranceFee   = "insurance_fee_cents"
	MetaTotal          = "total_cents"
	MetaCurrency       = "currency"
)

// Authorization is the gateway-owned payment object (a payment intent).
type Authorization struct {
	ID           string
	ClientHandle string
	Amount       money.Money
	Status       Status
	Metadata     map[string]string
	CreatedAt    time.Time
}

func (a Authorization) Succeeded() bool {
	return a.Status == StatusSucceeded
}

// MetaInt reads an integer metadata value.
func (a Authorization) MetaInt(key string) (int64, bool) {
	raw, ok := a.Metadata[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type AuthorizeRequest struct {
	Amount   money.Money
	Metadata map[string]string
	// IdempotencyKey is forwarded to gateways that support request deduplication.
	IdempotencyKey string
}

// Gateway is the external payment processor.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (Authorization, error)
	Retrieve(ctx context.Context, id string) (Authorization, error)
}

// Refunder is implemented by gateways able to return money for an authorization.
type Refunder interface {
	Refund(ctx context.Context, authorizationID string, amount money.Money, idempotencyKey string) error
}
