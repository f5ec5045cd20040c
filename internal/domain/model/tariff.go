package model

import (
	"math"

	"agrolease-billing/internal/domain"
)

// PeriodKind names a billing period a subscriber can pre-pay.
type PeriodKind string

const (
	PeriodDay      PeriodKind = "day"
	PeriodWeek     PeriodKind = "week"
	PeriodMonth    PeriodKind = "month"
	PeriodQuarter  PeriodKind = "quarter"
	PeriodSemester PeriodKind = "semester"
	PeriodYear     PeriodKind = "year"
)

// Tariff holds the per-hectare rate for every billing period plus the
// one-time access-right rate. All values are minor currency units.
type Tariff struct {
	Day              int64
	Week             int64
	Month            int64
	Quarter          int64
	Semester         int64
	Year             int64
	AccessRightPerHa int64
}

// DefaultTariff is the fallback table applied to subscribers without an
// offer. It is the single source of these figures; call sites must not
// duplicate them.
var DefaultTariff = Tariff{
	Day:              65,
	Week:             475,
	Month:            1900,
	Quarter:          5500,
	Semester:         10500,
	Year:             20000,
	AccessRightPerHa: 20000,
}

// ResolveTariff derives the full rate table from an offer's monthly rate.
// Day and week rates are rounded; longer periods are exact multiples so the
// table cannot drift from the stored monthly rate. A nil or zero offer
// yields DefaultTariff.
func ResolveTariff(offer *Offer) Tariff {
	if offer.IsZero() {
		return DefaultTariff
	}
	m := offer.MonthlyPerHa
	return Tariff{
		Day:              int64(math.Round(float64(m) / 30)),
		Week:             int64(math.Round(float64(m) / 4)),
		Month:            m,
		Quarter:          m * 3,
		Semester:         m * 6,
		Year:             m * 12,
		AccessRightPerHa: offer.AccessRightPerHa,
	}
}

// ForPeriod returns the per-hectare rate for one unit of the given period.
func (t Tariff) ForPeriod(kind PeriodKind) (int64, error) {
	switch kind {
	case PeriodDay:
		return t.Day, nil
	case PeriodWeek:
		return t.Week, nil
	case PeriodMonth:
		return t.Month, nil
	case PeriodQuarter:
		return t.Quarter, nil
	case PeriodSemester:
		return t.Semester, nil
	case PeriodYear:
		return t.Year, nil
	default:
		return 0, domain.ErrInvalidArgument
	}
}
