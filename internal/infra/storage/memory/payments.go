package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentcars/internal/domain/payment"
	"rentcars/internal/domain/shared/money"
)

var ErrRefundExceedsAmount = errors.New("sandbox: refund exceeds authorized amount")

type SandboxRefund struct {
	AuthorizationID string
	Amount          money.Money
	IdempotencyKey  string
	At              time.Time
}

// SandboxGateway is a payment gateway that never moves money. Authorizations
// start as requires_action; Complete and Fail play the renter's side.
type SandboxGateway struct {
	mu       sync.Mutex
	items    map[string]payment.Authorization
	byKey    map[string]string
	refunds  map[string]SandboxRefund
	refunded map[string]int64
}

func NewSandboxGateway() *SandboxGateway {
	return &SandboxGateway{
		items:    make(map[string]payment.Authorization),
		byKey:    make(map[string]string),
		refunds:  make(map[string]SandboxRefund),
		refunded: make(map[string]int64),
	}
}

func (g *SandboxGateway) Authorize(ctx context.Context, req payment.AuthorizeRequest) (payment.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		if id, ok := g.byKey[key]; ok {
			return cloneAuthorization(g.items[id]), nil
		}
	}
	id := "pi_sandbox_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	a := payment.Authorization{
		ID:           id,
		ClientHandle: id + "_secret_" + uuid.NewString()[:8],
		Amount:       req.Amount,
		Status:       payment.StatusRequiresAction,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}
	g.items[id] = a
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		g.byKey[key] = id
	}
	return cloneAuthorization(a), nil
}

func (g *SandboxGateway) Retrieve(ctx context.Context, id string) (payment.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.items[id]
	if !ok {
		return payment.Authorization{}, payment.ErrAuthorizationNotFound
	}
	return cloneAuthorization(a), nil
}

// Complete marks the authorization as paid.
func (g *SandboxGateway) Complete(id string) error {
	return g.setStatus(id, payment.StatusSucceeded)
}

func (g *SandboxGateway) Fail(id string) error {
	return g.setStatus(id, payment.StatusFailed)
}

func (g *SandboxGateway) setStatus(id string, status payment.Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.items[id]
	if !ok {
		return payment.ErrAuthorizationNotFound
	}
	a.Status = status
	g.items[id] = a
	return nil
}

// Refund records a refund once per idempotency key.
func (g *SandboxGateway) Refund(ctx context.Context, authorizationID string, amount money.Money, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.items[authorizationID]
	if !ok {
		return payment.ErrAuthorizationNotFound
	}
	if idempotencyKey != "" {
		if _, done := g.refunds[idempotencyKey]; done {
			return nil
		}
	}
	if !a.Succeeded() {
		return payment.ErrRefundFailed
	}
	if g.refunded[authorizationID]+amount.Amount > a.Amount.Amount {
		return errors.Join(payment.ErrRefundFailed, ErrRefundExceedsAmount)
	}
	g.refunded[authorizationID] += amount.Amount
	key := idempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	g.refunds[key] = SandboxRefund{AuthorizationID: authorizationID, Amount: amount, IdempotencyKey: idempotencyKey, At: time.Now().UTC()}
	return nil
}

// Refunds lists recorded refunds for an authorization.
func (g *SandboxGateway) Refunds(authorizationID string) []SandboxRefund {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []SandboxRefund
	for _, r := range g.refunds {
		if r.AuthorizationID == authorizationID {
			out = append(out, r)
		}
	}
	return out
}

// Count reports how many authorizations were created.
func (g *SandboxGateway) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.items)
}

func cloneAuthorization(a payment.Authorization) payment.Authorization {
	md := make(map[string]string, len(a.Metadata))
	for k, v := range a.Metadata {
		md[k] = v
	}
	a.Metadata = md
	return a
}

var (
	_ payment.Gateway  = (*SandboxGateway)(nil)
	_ payment.Refunder = (*SandboxGateway)(nil)
)
