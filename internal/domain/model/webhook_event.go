package model

import "time"

// GatewayEventStatus is the externally reported payment outcome.
type GatewayEventStatus string

const (
	GatewayEventSuccess  GatewayEventStatus = "SUCCESS"
	GatewayEventFailed   GatewayEventStatus = "FAILED"
	GatewayEventCanceled GatewayEventStatus = "CANCELED"
	GatewayEventPending  GatewayEventStatus = "PENDING"
)

// GatewayEvent is one delivery from the payment gateway. Deliveries are
// at-least-once and may be concurrent or reordered; TransactionID is the
// dedup key. Reference and PaymentID are optional hints the gateway echoes
// back from the payment request.
type GatewayEvent struct {
	TransactionID string
	Status        GatewayEventStatus
	Amount        int64
	Fees          int64
	Method        string
	Reference     string
	PaymentID     string
	OccurredAt    *time.Time
}

// MappedStatus translates the gateway outcome into the internal lifecycle
// status. The second return is false for PENDING (or unknown) outcomes,
// which leave the payment untouched.
func (e GatewayEvent) MappedStatus() (PaymentStatus, bool) {
	switch e.Status {
	case GatewayEventSuccess:
		return PaymentStatusValidated, true
	case GatewayEventFailed, GatewayEventCanceled:
		return PaymentStatusFailed, true
	default:
		return "", false
	}
}

// WebhookEvent is the append-only record of one raw gateway delivery, keyed
// by gateway transaction id. It doubles as the idempotency cache in front of
// the payment state machine: a replayed transaction id short-circuits to the
// stored result before the payment is ever looked up.
type WebhookEvent struct {
	GatewayTxID  string
	Payload      []byte
	ReceivedAt   time.Time
	Processed    bool
	ProcessedAt  *time.Time
	PaymentID    *string        // resolved payment, if any
	ResultStatus *PaymentStatus // status after processing, for replay responses
	Note         string         // anomaly / not-found context for offline review
}
