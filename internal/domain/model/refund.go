package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

type RefundMode string

const (
	RefundModePaya RefundMode = "PAYA" // scheduled bank transfer
	RefundModeCard RefundMode = "CARD" // instant to card
)

type RefundFulfillment string

const (
	RefundFulfillmentPending RefundFulfillment = "pending" // money movement happens outside this system
	RefundFulfillmentSettled RefundFulfillment = "settled"
)

// Refund is a requested reversal against one validated payment. Creating it
// decrements the payment's paid amount; the actual money movement back to
// the subscriber is fulfilled externally and tracked by Fulfillment.
type Refund struct {
	ID          string // UUID
	PaymentID   string // UUID of the validated payment being reversed
	Amount      int64
	Mode        RefundMode
	AccountRef  string
	Reason      string
	Fulfillment RefundFulfillment
	CreatedAt   time.Time
}

// NewRefund validates and constructs a pending refund request.
func NewRefund(id, paymentID string, amount int64, mode RefundMode, accountRef, reason string) (*Refund, error) {
	if id == "" || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if mode != RefundModePaya && mode != RefundModeCard {
		return nil, domain.ErrInvalidArgument
	}
	return &Refund{
		ID:          id,
		PaymentID:   paymentID,
		Amount:      amount,
		Mode:        mode,
		AccountRef:  accountRef,
		Reason:      reason,
		Fulfillment: RefundFulfillmentPending,
		CreatedAt:   time.Now(),
	}, nil
}
