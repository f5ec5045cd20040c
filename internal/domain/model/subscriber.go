package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

// Subscriber is an enrolled contributor. OfferID may be empty, in which case
// the default tariff applies. Paid totals (access-right and recurring) are
// derived on read by summing validated payments and are intentionally not
// stored here.
type Subscriber struct {
	ID        string // UUID
	FullName  string
	Phone     string
	OfferID   *string // nil -> DefaultTariff
	CreatedAt time.Time
}

func (s *Subscriber) IsZero() bool { return s == nil || s.ID == "" }

// NewSubscriber validates and constructs a subscriber.
func NewSubscriber(id, fullName, phone string, offerID *string) (*Subscriber, error) {
	if id == "" || fullName == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscriber{
		ID:        id,
		FullName:  fullName,
		Phone:     phone,
		OfferID:   offerID,
		CreatedAt: time.Now(),
	}, nil
}
