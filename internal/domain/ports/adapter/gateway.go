package adapter

import "context"

// VerifyResult is the provider-agnostic outcome of an active verification
// call (the polling path, as opposed to the webhook push path).
type VerifyResult struct {
	TxID   string // provider transaction id
	Amount int64  // settled amount in minor units
	Fees   int64
	Method string
}

// PaymentGateway is the hex port for the external payment provider.
type PaymentGateway interface {
	Name() string

	// RequestPayment initiates a payment intent and returns the provider
	// authority token and a redirect URL. The reference is our
	// client-generated payment reference, echoed back in webhook payloads.
	RequestPayment(ctx context.Context, amount int64, description, callbackURL, reference string) (authority string, payURL string, err error)

	// VerifyPayment verifies a payment given the authority and expected
	// amount. Used by the stale-pending poller when the webhook never
	// arrived.
	VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (VerifyResult, error)
}
