package model

import (
	"math"
	"time"
)

// Balance is the signed accrual position of a single parcel at an instant.
// Net = Owed - Paid: positive means arrears, zero or negative means the
// subscriber is paid ahead by -Net.
type Balance struct {
	ParcelID      string
	Owed          int64
	Paid          int64
	Net           int64
	DaysOfDelay   int // set when Net > 0
	DaysOfAdvance int // set when Net <= 0
}

// Arrears reports whether the parcel is behind on its recurring fee.
func (b Balance) Arrears() bool { return b.Net > 0 }

// AdvanceCredit returns the pre-paid amount available for conversion, zero
// when in arrears.
func (b Balance) AdvanceCredit() int64 {
	if b.Net > 0 {
		return 0
	}
	return -b.Net
}

// SubscriberSummary aggregates the per-parcel balances of one subscriber.
type SubscriberSummary struct {
	SubscriberID string
	OwedTotal    int64
	PaidTotal    int64
	NetTotal     int64
	PerParcel    []Balance
}

// AdvanceCredit returns the subscriber-level credit available to ledger
// operations. Arrears and advances across parcels offset each other.
func (s SubscriberSummary) AdvanceCredit() int64 {
	if s.NetTotal > 0 {
		return 0
	}
	return -s.NetTotal
}

// ComputeParcelBalance is the accrual calculator: pure over the parcel, its
// tariff, the ledger of validated recurring payments, and an injected clock
// instant. A parcel that has not been activated contributes zero accrual.
func ComputeParcelBalance(parcel *Parcel, tariff Tariff, payments []*Payment, now time.Time) Balance {
	b := Balance{ParcelID: parcel.ID, Paid: sumValidatedRecurring(parcel.ID, payments)}
	if !parcel.Accruing() || now.Before(*parcel.ActivatedAt) {
		b.Net = -b.Paid
		return b
	}

	elapsedDays := int64(now.Sub(*parcel.ActivatedAt) / (24 * time.Hour))
	perDay := float64(tariff.Day) * parcel.ActivatedAreaHa
	b.Owed = int64(math.Round(float64(elapsedDays) * perDay))
	b.Net = b.Owed - b.Paid

	if perDay <= 0 {
		return b
	}
	if b.Net > 0 {
		b.DaysOfDelay = int(math.Floor(float64(b.Net) / perDay))
	} else {
		b.DaysOfAdvance = int(math.Floor(float64(-b.Net) / perDay))
	}
	return b
}

// ComputeSubscriberSummary sums parcel balances for subscriber-level
// arrears/advance reporting. Validated recurring payments that are not
// scoped to a parcel (transfer and conversion credits) count toward the
// subscriber's paid total.
func ComputeSubscriberSummary(subscriberID string, parcels []*Parcel, tariff Tariff, payments []*Payment, now time.Time) SubscriberSummary {
	s := SubscriberSummary{SubscriberID: subscriberID}
	for _, parcel := range parcels {
		b := ComputeParcelBalance(parcel, tariff, payments, now)
		s.OwedTotal += b.Owed
		s.PaidTotal += b.Paid
		s.NetTotal += b.Net
		s.PerParcel = append(s.PerParcel, b)
	}
	for _, p := range payments {
		if p.Kind == PaymentKindRecurring && p.Status == PaymentStatusValidated && p.ParcelID == nil {
			s.PaidTotal += p.Paid()
			s.NetTotal -= p.Paid()
		}
	}
	return s
}

// ActivatedAreaHa sums the activated area across parcels; conversions price
// periods against this figure.
func ActivatedAreaHa(parcels []*Parcel) float64 {
	var total float64
	for _, p := range parcels {
		if p.Accruing() {
			total += p.ActivatedAreaHa
		}
	}
	return total
}

func sumValidatedRecurring(parcelID string, payments []*Payment) int64 {
	var sum int64
	for _, p := range payments {
		if p.Kind != PaymentKindRecurring || p.Status != PaymentStatusValidated {
			continue
		}
		if p.ParcelID == nil || *p.ParcelID != parcelID {
			continue
		}
		sum += p.Paid()
	}
	return sum
}
