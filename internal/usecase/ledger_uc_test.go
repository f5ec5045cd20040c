//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
)

type ledgerFixture struct {
	subscribers *memSubscriberRepo
	payments    *memPaymentRepo
	parcels     *memParcelRepo
	transfers   *memTransferRepo
	refunds     *memRefundRepo
	locker      *memLocker
	accrual     AccrualUseCase
	uc          LedgerUseCase
	now         time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		subscribers: newMemSubscriberRepo(),
		payments:    newMemPaymentRepo(),
		parcels:     newMemParcelRepo(),
		transfers:   newMemTransferRepo(),
		refunds:     newMemRefundRepo(),
		locker:      newMemLocker(),
		now:         time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC),
	}
	offers := newMemOfferRepo()
	f.accrual = NewAccrualUseCase(f.subscribers, offers, f.parcels, f.payments, newTestLogger())
	f.uc = NewLedgerUseCase(f.subscribers, f.payments, f.parcels, f.transfers, f.refunds, f.accrual, &memTxManager{}, f.locker, func() time.Time { return f.now }, newTestLogger())
	return f
}

func (f *ledgerFixture) seedSubscriber(t *testing.T, id string) {
	t.Helper()
	s, err := model.NewSubscriber(id, "Subscriber "+id, "+213555000000", nil)
	if err != nil {
		t.Fatalf("new subscriber: %v", err)
	}
	if err := f.subscribers.Save(context.Background(), repository.NoTX, s); err != nil {
		t.Fatalf("save subscriber: %v", err)
	}
}

// seedActiveParcel activates areaHa hectares daysAgo days before f.now.
func (f *ledgerFixture) seedActiveParcel(t *testing.T, id, subscriberID string, areaHa float64, daysAgo int) {
	t.Helper()
	p, err := model.NewParcel(id, subscriberID, areaHa)
	if err != nil {
		t.Fatalf("new parcel: %v", err)
	}
	at := f.now.AddDate(0, 0, -daysAgo)
	p.ActivatedAreaHa = areaHa
	p.ActivatedAt = &at
	p.Status = model.ParcelStatusActive
	if err := f.parcels.Save(context.Background(), repository.NoTX, p); err != nil {
		t.Fatalf("save parcel: %v", err)
	}
}

func (f *ledgerFixture) seedValidatedRecurring(t *testing.T, id, subscriberID, parcelID string, amount int64) {
	t.Helper()
	paid := amount
	p := &model.Payment{
		ID:              id,
		Reference:       "REF-" + id,
		SubscriberID:    subscriberID,
		ParcelID:        &parcelID,
		Kind:            model.PaymentKindRecurring,
		RequestedAmount: amount,
		PaidAmount:      &paid,
		Status:          model.PaymentStatusValidated,
		CreatedAt:       f.now,
		ValidatedAt:     &f.now,
		Meta:            model.PaymentMeta{Provenance: model.ProvenanceGateway, Gateway: &model.GatewayMeta{}},
	}
	if err := f.payments.Save(context.Background(), repository.NoTX, p); err != nil {
		t.Fatalf("save payment: %v", err)
	}
}

func TestLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.seedSubscriber(t, "sub-src")
	f.seedSubscriber(t, "sub-dst")

	t.Run("credits destination without debiting source", func(t *testing.T) {
		credit, err := f.uc.Transfer(ctx, "sub-src", "sub-dst", 5000, "seasonal help")
		if err != nil {
			t.Fatalf("transfer: %v", err)
		}
		if credit.SubscriberID != "sub-dst" {
			t.Fatalf("credited %s", credit.SubscriberID)
		}
		if credit.Status != model.PaymentStatusValidated || credit.Paid() != 5000 {
			t.Fatalf("credit not settled: %+v", credit)
		}
		if credit.Meta.Provenance != model.ProvenanceTransfer {
			t.Fatalf("provenance = %s", credit.Meta.Provenance)
		}
		if credit.Meta.Transfer == nil || credit.Meta.Transfer.SourceSubscriberID != "sub-src" {
			t.Fatalf("transfer meta missing: %+v", credit.Meta)
		}

		srcPayments, _ := f.payments.ListBySubscriber(ctx, repository.NoTX, "sub-src")
		if len(srcPayments) != 0 {
			t.Fatalf("source gained %d payments", len(srcPayments))
		}
		recs, _ := f.transfers.ListBySubscriber(ctx, repository.NoTX, "sub-src")
		if len(recs) != 1 || recs[0].PaymentID != credit.ID {
			t.Fatalf("transfer record missing or unlinked: %+v", recs)
		}
	})

	t.Run("rejects self transfer", func(t *testing.T) {
		if _, err := f.uc.Transfer(ctx, "sub-src", "sub-src", 100, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		if _, err := f.uc.Transfer(ctx, "sub-src", "sub-dst", 0, ""); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("want ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects unknown destination", func(t *testing.T) {
		if _, err := f.uc.Transfer(ctx, "sub-src", "sub-ghost", 100, ""); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

func TestLedger_Refund(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.seedSubscriber(t, "sub-1")
	f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 0)
	f.seedValidatedRecurring(t, "pay-1", "sub-1", "parcel-1", 10000)

	t.Run("partial refund conserves the remainder", func(t *testing.T) {
		refund, err := f.uc.Refund(ctx, "pay-1", 4000, model.RefundModeCard, "", "overpayment")
		if err != nil {
			t.Fatalf("refund: %v", err)
		}
		if refund.Fulfillment != model.RefundFulfillmentPending {
			t.Fatalf("fulfillment = %s", refund.Fulfillment)
		}

		p, _ := f.payments.FindByID(ctx, repository.NoTX, "pay-1")
		if p.Paid() != 6000 {
			t.Fatalf("paid after refund = %d, want 6000", p.Paid())
		}
		if len(p.Meta.Refunds) != 1 || p.Meta.Refunds[0].Amount != 4000 {
			t.Fatalf("refund adjustment missing: %+v", p.Meta.Refunds)
		}
	})

	t.Run("rejects refund exceeding remaining paid amount", func(t *testing.T) {
		if _, err := f.uc.Refund(ctx, "pay-1", 7000, model.RefundModeCard, "", ""); !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("want ErrInvalidAmount, got %v", err)
		}
		p, _ := f.payments.FindByID(ctx, repository.NoTX, "pay-1")
		if p.Paid() != 6000 {
			t.Fatalf("rejected refund changed paid amount to %d", p.Paid())
		}
	})

	t.Run("rejects refund of non-validated payment", func(t *testing.T) {
		pending, err := model.NewPayment("pay-pending", "REFP", "sub-1", nil, model.PaymentKindRecurring, 500)
		if err != nil {
			t.Fatalf("new payment: %v", err)
		}
		if err := f.payments.Save(ctx, repository.NoTX, pending); err != nil {
			t.Fatalf("save: %v", err)
		}
		if _, err := f.uc.Refund(ctx, "pay-pending", 100, model.RefundModePaya, "RIB-1", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		if _, err := f.uc.Refund(ctx, "pay-1", 100, "WIRE", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})
}

func TestLedger_ConvertBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("converts advance credit into a settled payment", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		// Default tariff: 65/day/ha. 2 ha active for 10 days owes 1300.
		f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 10)
		f.seedValidatedRecurring(t, "pay-1", "sub-1", "parcel-1", 5000) // 3700 ahead

		settled, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodWeek, 2)
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		// 475/week/ha * 2 weeks * 2 ha = 1900.
		if settled.Paid() != 1900 {
			t.Fatalf("conversion cost = %d, want 1900", settled.Paid())
		}
		if settled.Status != model.PaymentStatusValidated || settled.Kind != model.PaymentKindRecurring {
			t.Fatalf("conversion payment not settled: %+v", settled)
		}
		if settled.Meta.Conversion == nil || settled.Meta.Conversion.PeriodCount != 2 {
			t.Fatalf("conversion meta missing: %+v", settled.Meta)
		}
		if settled.ParcelID != nil {
			t.Fatalf("conversion credit should be subscriber-scoped")
		}
	})

	t.Run("rejects conversion beyond available credit", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 10)
		f.seedValidatedRecurring(t, "pay-1", "sub-1", "parcel-1", 5000)

		// 20000/year/ha * 1 * 2 ha = 40000, way past the 3700 credit.
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodYear, 1); !errors.Is(err, domain.ErrInsufficientCredit) {
			t.Fatalf("want ErrInsufficientCredit, got %v", err)
		}
		// Nothing persisted.
		payments, _ := f.payments.ListBySubscriber(ctx, repository.NoTX, "sub-1")
		if len(payments) != 1 {
			t.Fatalf("rejected conversion persisted a payment")
		}
	})

	t.Run("subscriber in arrears has no credit", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 30) // owes 3900, paid nothing
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodDay, 1); !errors.Is(err, domain.ErrInsufficientCredit) {
			t.Fatalf("want ErrInsufficientCredit, got %v", err)
		}
	})

	t.Run("rejects when no activated area", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodMonth, 1); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("rejects unknown period kind", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		f.seedActiveParcel(t, "parcel-1", "sub-1", 1.0, 0)
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", "fortnight", 1); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("concurrent conversion is serialized by the lock", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 10)
		f.seedValidatedRecurring(t, "pay-1", "sub-1", "parcel-1", 5000)

		if _, err := f.locker.TryLock(ctx, "convert:sub-1", time.Second); err != nil {
			t.Fatalf("pre-hold lock: %v", err)
		}
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodWeek, 1); !errors.Is(err, domain.ErrLockNotAcquired) {
			t.Fatalf("want ErrLockNotAcquired, got %v", err)
		}
	})

	t.Run("lock is released after conversion", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.seedSubscriber(t, "sub-1")
		f.seedActiveParcel(t, "parcel-1", "sub-1", 2.0, 10)
		f.seedValidatedRecurring(t, "pay-1", "sub-1", "parcel-1", 5000)

		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodWeek, 1); err != nil {
			t.Fatalf("first conversion: %v", err)
		}
		if _, err := f.uc.ConvertBalance(ctx, "sub-1", model.PeriodDay, 1); err != nil {
			t.Fatalf("second conversion after unlock: %v", err)
		}
	})
}

func TestLedger_TransferCreditCountsTowardConversion(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	f.seedSubscriber(t, "sub-src")
	f.seedSubscriber(t, "sub-dst")
	// Destination owes 1300 (2 ha, 10 days) and has paid nothing.
	f.seedActiveParcel(t, "parcel-1", "sub-dst", 2.0, 10)

	if _, err := f.uc.Transfer(ctx, "sub-src", "sub-dst", 5000, ""); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	summary, err := f.accrual.Summary(ctx, "sub-dst", f.now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got := summary.AdvanceCredit(); got != 3700 {
		t.Fatalf("advance credit = %d, want 3700", got)
	}

	if _, err := f.uc.ConvertBalance(ctx, "sub-dst", model.PeriodWeek, 1); err != nil {
		t.Fatalf("convert against transferred credit: %v", err)
	}
}
