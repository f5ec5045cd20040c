package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

// Transfer records a credit grant from one subscriber to another. It is
// always paired with a freshly created, already-validated recurring Payment
// for the destination. The source subscriber's existing payments are never
// decremented: transfers are additive, not conservative.
type Transfer struct {
	ID           string // UUID
	SourceID     string // UUID of source subscriber
	DestID       string // UUID of destination subscriber
	Amount       int64
	Memo         string
	PaymentID    string // UUID of the credited payment
	CreatedAt    time.Time
}

// NewTransfer validates and constructs a transfer record.
func NewTransfer(id, sourceID, destID string, amount int64, memo string) (*Transfer, error) {
	if id == "" || sourceID == "" || destID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if sourceID == destID {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	return &Transfer{
		ID:        id,
		SourceID:  sourceID,
		DestID:    destID,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: time.Now(),
	}, nil
}
