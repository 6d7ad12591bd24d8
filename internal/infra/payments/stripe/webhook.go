package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrInvalidSignature = errors.New("stripe: webhook signature invalid")

// WebhookEvent is the part of a Stripe event the booking service reacts to.
type WebhookEvent struct {
	ID              string
	Type            string
	AuthorizationID string
}

type WebhookVerifier struct {
	Secret string
}

// Parse verifies the Stripe-Signature header and extracts the payment intent id.
func (v WebhookVerifier) Parse(payload []byte, signature string) (WebhookEvent, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookEvent{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return out, nil
	}
	switch evt.Type {
	case stripego.EventTypeChargeRefunded:
		var ch stripego.Charge
		if err := json.Unmarshal(evt.Data.Raw, &ch); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode charge: %w", err)
		}
		if ch.PaymentIntent != nil {
			out.AuthorizationID = ch.PaymentIntent.ID
		}
	case stripego.EventTypePaymentIntentSucceeded, stripego.EventTypePaymentIntentPaymentFailed:
		var pi stripego.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return WebhookEvent{}, fmt.Errorf("stripe: decode payment intent: %w", err)
		}
		out.AuthorizationID = pi.ID
	}
	return out, nil
}
