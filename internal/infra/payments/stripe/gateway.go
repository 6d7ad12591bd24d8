package stripe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"rentcars/internal/domain/payment"
	"rentcars/internal/domain/shared/money"
)

// Gateway backs payment authorizations with Stripe PaymentIntents.
type Gateway struct {
	api    *client.API
	logger *slog.Logger
}

func New(secretKey string, logger *slog.Logger) *Gateway {
	return NewWithBackends(secretKey, nil, logger)
}

// NewWithBackends lets tests point the client at a fake Stripe API.
func NewWithBackends(secretKey string, backends *stripego.Backends, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Gateway{api: api, logger: logger}
}

func (g *Gateway) Authorize(ctx context.Context, req payment.AuthorizeRequest) (payment.Authorization, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.Amount.Amount),
		Currency: stripego.String(strings.ToLower(req.Amount.Currency)),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(quoteKey(req.IdempotencyKey))
	}
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return payment.Authorization{}, g.mapErr(ctx, "create payment intent", err)
	}
	return toAuthorization(pi), nil
}

func (g *Gateway) Retrieve(ctx context.Context, id string) (payment.Authorization, error) {
	if strings.TrimSpace(id) == "" {
		return payment.Authorization{}, payment.ErrAuthorizationNotFound
	}
	params := &stripego.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return payment.Authorization{}, g.mapErr(ctx, "retrieve payment intent", err)
	}
	return toAuthorization(pi), nil
}

func (g *Gateway) Refund(ctx context.Context, authorizationID string, amount money.Money, idempotencyKey string) error {
	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(authorizationID),
		Amount:        stripego.Int64(amount.Amount),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	if _, err := g.api.Refunds.New(params); err != nil {
		mapped := g.mapErr(ctx, "create refund", err)
		if errors.Is(mapped, payment.ErrGatewayUnavailable) || errors.Is(mapped, payment.ErrAuthorizationNotFound) {
			return mapped
		}
		return fmt.Errorf("%w: %v", payment.ErrRefundFailed, err)
	}
	return nil
}

func (g *Gateway) mapErr(ctx context.Context, op string, err error) error {
	var se *stripego.Error
	if errors.As(err, &se) {
		switch {
		case se.Code == stripego.ErrorCodeResourceMissing || se.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", payment.ErrAuthorizationNotFound, se.Msg)
		case se.Code == stripego.ErrorCodeAmountTooSmall:
			return fmt.Errorf("%w: %s", payment.ErrAmountNotPayable, se.Msg)
		case se.HTTPStatusCode == http.StatusTooManyRequests || se.HTTPStatusCode >= 500:
			g.logger.WarnContext(ctx, "stripe unavailable", "op", op, "status", se.HTTPStatusCode, "request_id", se.RequestID)
			return fmt.Errorf("%w: %s", payment.ErrGatewayUnavailable, se.Msg)
		}
		return fmt.Errorf("stripe %s: %s", op, se.Msg)
	}
	g.logger.WarnContext(ctx, "stripe request failed", "op", op, "error", err)
	return fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
}

func toAuthorization(pi *stripego.PaymentIntent) payment.Authorization {
	md := make(map[string]string, len(pi.Metadata))
	for k, v := range pi.Metadata {
		md[k] = v
	}
	return payment.Authorization{
		ID:           pi.ID,
		ClientHandle: pi.ClientSecret,
		Amount:       money.Money{Amount: pi.Amount, Currency: strings.ToUpper(string(pi.Currency))},
		Status:       mapStatus(pi.Status),
		Metadata:     md,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}
}

// mapStatus folds Stripe's intent lifecycle into the three states bookings care about.
func mapStatus(s stripego.PaymentIntentStatus) payment.Status {
	switch s {
	case stripego.PaymentIntentStatusSucceeded:
		return payment.StatusSucceeded
	case stripego.PaymentIntentStatusCanceled:
		return payment.StatusFailed
	default:
		return payment.StatusRequiresAction
	}
}

var (
	_ payment.Gateway  = (*Gateway)(nil)
	_ payment.Refunder = (*Gateway)(nil)
)

// Stripe caps idempotency keys at 255 characters; longer scoped keys are hashed.
const maxIdempotencyKey = 255

func quoteKey(key string) string {
	k := "quote-" + key
	if len(k) <= maxIdempotencyKey {
		return k
	}
	sum := sha256.Sum256([]byte(key))
	return "quote-" + hex.EncodeToString(sum[:])
}
