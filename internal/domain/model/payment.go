package model

import (
	"time"

	"agrolease-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // awaiting gateway outcome
	PaymentStatusValidated PaymentStatus = "validated" // settled; paid amount set
	PaymentStatusFailed    PaymentStatus = "failed"    // gateway reported failure/cancel
	PaymentStatusRejected  PaymentStatus = "rejected"  // refused before settlement
)

// Terminal reports whether s admits no further transition.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusValidated || s == PaymentStatusFailed || s == PaymentStatusRejected
}

type PaymentKind string

const (
	PaymentKindAccessRight PaymentKind = "access_right" // one-time DA per activated hectare
	PaymentKindRecurring   PaymentKind = "recurring"    // daily-accruing redevance
)

// Provenance tags how a payment entered the ledger, selecting which branch
// of PaymentMeta is populated.
type Provenance string

const (
	ProvenanceGateway    Provenance = "gateway"    // settled by the external payment gateway
	ProvenanceTransfer   Provenance = "transfer"   // credit granted by an inter-subscriber transfer
	ProvenanceConversion Provenance = "conversion" // advance credit converted into future periods
)

// GatewayMeta is the audit trail captured from the payment gateway.
type GatewayMeta struct {
	Authority   string     `json:"authority,omitempty"` // provider token from payment request
	TxID        string     `json:"tx_id,omitempty"`     // provider transaction id from webhook/verify
	Method      string     `json:"method,omitempty"`
	Fees        int64      `json:"fees,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
	PayURL      string     `json:"pay_url,omitempty"`
	FailureNote string     `json:"failure_note,omitempty"`
}

// TransferMeta records the provenance of a transfer-granted credit.
type TransferMeta struct {
	SourceSubscriberID string `json:"source_subscriber_id"`
	Memo               string `json:"memo,omitempty"`
}

// ConversionMeta records the parameters of a balance-to-period conversion.
type ConversionMeta struct {
	PeriodKind  PeriodKind `json:"period_kind"`
	PeriodCount int        `json:"period_count"`
	AreaHa      float64    `json:"area_ha"`
	UnitRate    int64      `json:"unit_rate"`
}

// RefundAdjustment is appended to the settled payment each time part of its
// paid amount is handed back.
type RefundAdjustment struct {
	RefundID string    `json:"refund_id"`
	Amount   int64     `json:"amount"`
	At       time.Time `json:"at"`
}

// PaymentMeta is a tagged union: exactly the branch matching Provenance is
// set. Serialized as JSONB in the store.
type PaymentMeta struct {
	Provenance Provenance         `json:"provenance"`
	Gateway    *GatewayMeta       `json:"gateway,omitempty"`
	Transfer   *TransferMeta      `json:"transfer,omitempty"`
	Conversion *ConversionMeta    `json:"conversion,omitempty"`
	Refunds    []RefundAdjustment `json:"refunds,omitempty"`
}

// Payment is the central ledger record. Reference is client-generated before
// any gateway interaction and acts as the idempotency key for the whole
// lifecycle; it never changes. PaidAmount is set only on the transition into
// validated.
type Payment struct {
	ID              string  // UUID
	Reference       string  // ULID, globally unique, immutable
	GatewayTxID     *string // supplied asynchronously by the gateway
	SubscriberID    string  // UUID
	ParcelID        *string // set for access-right and parcel-scoped recurring payments
	Kind            PaymentKind
	RequestedAmount int64
	PaidAmount      *int64 // nil until validated
	Status          PaymentStatus
	CreatedAt       time.Time
	ValidatedAt     *time.Time
	Meta            PaymentMeta
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

// Paid returns the settled amount, zero while non-terminal.
func (p *Payment) Paid() int64 {
	if p.PaidAmount == nil {
		return 0
	}
	return *p.PaidAmount
}

// NewPayment validates and constructs a pending payment.
func NewPayment(id, reference, subscriberID string, parcelID *string, kind PaymentKind, requestedAmount int64) (*Payment, error) {
	if id == "" || reference == "" || subscriberID == "" || requestedAmount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if kind != PaymentKindAccessRight && kind != PaymentKindRecurring {
		return nil, domain.ErrInvalidArgument
	}
	if kind == PaymentKindAccessRight && parcelID == nil {
		return nil, domain.ErrInvalidArgument
	}
	return &Payment{
		ID:              id,
		Reference:       reference,
		SubscriberID:    subscriberID,
		ParcelID:        parcelID,
		Kind:            kind,
		RequestedAmount: requestedAmount,
		Status:          PaymentStatusPending,
		CreatedAt:       time.Now(),
		Meta:            PaymentMeta{Provenance: ProvenanceGateway, Gateway: &GatewayMeta{}},
	}, nil
}
