//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"agrolease-billing/internal/domain"
)

func TestResolveTariff(t *testing.T) {
	t.Run("derives every period from the monthly rate", func(t *testing.T) {
		offer := &Offer{ID: "o1", Name: "standard", MonthlyPerHa: 1900, AccessRightPerHa: 20000, CreatedAt: time.Now()}
		tariff := ResolveTariff(offer)

		if tariff.Day != 63 { // round(1900/30)
			t.Fatalf("day = %d, want 63", tariff.Day)
		}
		if tariff.Week != 475 { // round(1900/4)
			t.Fatalf("week = %d, want 475", tariff.Week)
		}
		if tariff.Month != 1900 {
			t.Fatalf("month = %d", tariff.Month)
		}
		if tariff.Quarter != 5700 || tariff.Semester != 11400 || tariff.Year != 22800 {
			t.Fatalf("multiples wrong: %+v", tariff)
		}
		if tariff.AccessRightPerHa != 20000 {
			t.Fatalf("access right = %d", tariff.AccessRightPerHa)
		}
	})

	t.Run("rounds the day rate half up", func(t *testing.T) {
		offer := &Offer{ID: "o1", Name: "n", MonthlyPerHa: 105, AccessRightPerHa: 1}
		if got := ResolveTariff(offer).Day; got != 4 { // 105/30 = 3.5
			t.Fatalf("day = %d, want 4", got)
		}
	})

	t.Run("nil offer falls back to the default table", func(t *testing.T) {
		if got := ResolveTariff(nil); got != DefaultTariff {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("zero offer falls back to the default table", func(t *testing.T) {
		if got := ResolveTariff(&Offer{}); got != DefaultTariff {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestTariffForPeriod(t *testing.T) {
	tariff := DefaultTariff
	cases := []struct {
		kind PeriodKind
		want int64
	}{
		{PeriodDay, 65},
		{PeriodWeek, 475},
		{PeriodMonth, 1900},
		{PeriodQuarter, 5500},
		{PeriodSemester, 10500},
		{PeriodYear, 20000},
	}
	for _, c := range cases {
		got, err := tariff.ForPeriod(c.kind)
		if err != nil {
			t.Fatalf("%s: %v", c.kind, err)
		}
		if got != c.want {
			t.Fatalf("%s = %d, want %d", c.kind, got, c.want)
		}
	}

	if _, err := tariff.ForPeriod("fortnight"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}
