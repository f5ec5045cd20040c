package gateway

import (
	"context"
	"fmt"
	"sync"

	"agrolease-billing/internal/domain/ports/adapter"

	"github.com/google/uuid"
)

// NoOpGateway issues fake authorities and verifies every payment at its
// requested amount. Used for local runs and tests.
type NoOpGateway struct {
	mu      sync.Mutex
	amounts map[string]int64
}

var _ adapter.PaymentGateway = (*NoOpGateway)(nil)

func NewNoOpGateway() *NoOpGateway {
	return &NoOpGateway{amounts: make(map[string]int64)}
}

func (g *NoOpGateway) Name() string { return "noop" }

func (g *NoOpGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL, reference string) (string, string, error) {
	authority := "noop-" + uuid.NewString()
	g.mu.Lock()
	g.amounts[authority] = amount
	g.mu.Unlock()
	return authority, fmt.Sprintf("https://pay.invalid/start/%s", authority), nil
}

func (g *NoOpGateway) VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (adapter.VerifyResult, error) {
	g.mu.Lock()
	amount, ok := g.amounts[authority]
	g.mu.Unlock()
	if !ok {
		return adapter.VerifyResult{}, fmt.Errorf("unknown authority %q", authority)
	}
	if amount != expectedAmount {
		return adapter.VerifyResult{}, fmt.Errorf("amount mismatch: expected %d, got %d", expectedAmount, amount)
	}
	return adapter.VerifyResult{
		TxID:   "tx-" + authority,
		Amount: amount,
		Method: "CARD",
	}, nil
}
