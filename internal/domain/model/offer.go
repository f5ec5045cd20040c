package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

// Offer is the per-subscriber pricing contract: a monthly recurring rate and
// a one-time access-right (DA) rate, both per hectare, in minor currency
// units. All other period rates are derived (see tariff.go), never stored.
type Offer struct {
	ID              string // UUID
	Name            string
	MonthlyPerHa    int64 // recurring fee per hectare per month
	AccessRightPerHa int64 // one-time DA per hectare
	CreatedAt       time.Time
}

func (o *Offer) IsZero() bool { return o == nil || o.ID == "" }

// NewOffer validates and constructs an offer.
func NewOffer(id, name string, monthlyPerHa, accessRightPerHa int64) (*Offer, error) {
	if id == "" || name == "" || monthlyPerHa <= 0 || accessRightPerHa <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Offer{
		ID:               id,
		Name:             name,
		MonthlyPerHa:     monthlyPerHa,
		AccessRightPerHa: accessRightPerHa,
		CreatedAt:        time.Now(),
	}, nil
}
