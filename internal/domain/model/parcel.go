package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

type ParcelStatus string

const (
	ParcelStatusPendingAccessRight ParcelStatus = "pending_access_right" // no successful DA payment yet
	ParcelStatusActive             ParcelStatus = "active"               // accruing
	ParcelStatusInactive           ParcelStatus = "inactive"             // administratively suspended
)

// Parcel is a registered plot of land owned by exactly one subscriber.
// Activation is all-or-nothing: the first successful access-right payment
// sets ActivatedAreaHa to AreaHa and stamps ActivatedAt exactly once.
// ActivatedAreaHa never decreases.
type Parcel struct {
	ID              string // UUID
	SubscriberID    string // UUID
	AreaHa          float64
	ActivatedAreaHa float64
	ActivatedAt     *time.Time // nil until first successful DA payment
	Status          ParcelStatus
	CreatedAt       time.Time
}

func (p *Parcel) IsZero() bool { return p == nil || p.ID == "" }

// Activated reports whether the parcel's full area has been activated.
func (p *Parcel) Activated() bool {
	return p.ActivatedAt != nil && p.ActivatedAreaHa >= p.AreaHa
}

// Accruing reports whether the parcel currently accrues the recurring fee.
func (p *Parcel) Accruing() bool {
	return p.Status == ParcelStatusActive && p.ActivatedAt != nil
}

// NewParcel validates and constructs a parcel awaiting its access-right
// payment.
func NewParcel(id, subscriberID string, areaHa float64) (*Parcel, error) {
	if id == "" || subscriberID == "" || areaHa <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Parcel{
		ID:           id,
		SubscriberID: subscriberID,
		AreaHa:       areaHa,
		Status:       ParcelStatusPendingAccessRight,
		CreatedAt:    time.Now(),
	}, nil
}
