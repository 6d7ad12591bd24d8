package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcars/internal/app/commands"
	paymentsapp "rentcars/internal/app/handlers/payments"
	paymentstripe "rentcars/internal/infra/payments/stripe"
)

const maxWebhookBody = 64 << 10

type WebhookParser interface {
	Parse(payload []byte, signature string) (paymentstripe.WebhookEvent, error)
}

// SandboxPayments lets a developer settle sandbox authorizations by hand.
type SandboxPayments interface {
	Complete(id string) error
	Fail(id string) error
}

type PaymentHandler struct {
	Commands commands.Bus
	Webhooks WebhookParser
	Sandbox  SandboxPayments
	Logger   *slog.Logger
}

func (h PaymentHandler) Webhook(c *gin.Context) {
	if h.Webhooks == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "webhooks disabled"})
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	evt, err := h.Webhooks.Parse(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.WarnContext(c.Request.Context(), "webhook rejected", "error", err)
		}
		if errors.Is(err, paymentstripe.ErrInvalidSignature) {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid signature", Code: "invalid_signature"})
			return
		}
		badRequest(c, err)
		return
	}
	cmd := paymentsapp.SyncPaymentEventCommand{
		EventID:         evt.ID,
		Type:            evt.Type,
		AuthorizationID: evt.AuthorizationID,
	}
	result, err := commands.Dispatch[paymentsapp.SyncPaymentEventCommand, paymentsapp.SyncResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		// a non-2xx answer makes Stripe redeliver the event
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": result.Duplicate, "action": result.Action})
}

func (h PaymentHandler) SandboxComplete(c *gin.Context) {
	h.settle(c, "succeeded", func(id string) error { return h.Sandbox.Complete(id) })
}

func (h PaymentHandler) SandboxFail(c *gin.Context) {
	h.settle(c, "failed", func(id string) error { return h.Sandbox.Fail(id) })
}

func (h PaymentHandler) settle(c *gin.Context, status string, apply func(string) error) {
	if h.Sandbox == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sandbox payments disabled"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if err := apply(id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authorization_id": id, "status": status})
}

var _ PaymentHTTP = PaymentHandler{}
