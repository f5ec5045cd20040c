//go:build !integration

package web_test

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakePaymentUC struct {
	InitiateFunc    func(ctx context.Context, subscriberID string, parcelID *string, kind model.PaymentKind, amount int64) (*model.Payment, string, error)
	QuoteFunc       func(ctx context.Context, parcelID string) (int64, error)
	ConfirmAutoFunc func(ctx context.Context, reference string) (*model.Payment, error)
}

func (f *fakePaymentUC) Initiate(ctx context.Context, subscriberID string, parcelID *string, kind model.PaymentKind, amount int64) (*model.Payment, string, error) {
	return f.InitiateFunc(ctx, subscriberID, parcelID, kind, amount)
}

func (f *fakePaymentUC) QuoteAccessRight(ctx context.Context, parcelID string) (int64, error) {
	return f.QuoteFunc(ctx, parcelID)
}

func (f *fakePaymentUC) ConfirmAuto(ctx context.Context, reference string) (*model.Payment, error) {
	return f.ConfirmAutoFunc(ctx, reference)
}

type fakeAccrualUC struct {
	SummaryFunc func(ctx context.Context, subscriberID string, now time.Time) (model.SubscriberSummary, error)
	BalanceFunc func(ctx context.Context, parcelID string, now time.Time) (model.Balance, error)
	TariffFunc  func(ctx context.Context, subscriberID string) (model.Tariff, error)
}

func (f *fakeAccrualUC) Summary(ctx context.Context, subscriberID string, now time.Time) (model.SubscriberSummary, error) {
	return f.SummaryFunc(ctx, subscriberID, now)
}

func (f *fakeAccrualUC) ParcelBalance(ctx context.Context, parcelID string, now time.Time) (model.Balance, error) {
	return f.BalanceFunc(ctx, parcelID, now)
}

func (f *fakeAccrualUC) TariffFor(ctx context.Context, subscriberID string) (model.Tariff, error) {
	if f.TariffFunc != nil {
		return f.TariffFunc(ctx, subscriberID)
	}
	return model.DefaultTariff, nil
}

type fakeLedgerUC struct {
	TransferFunc func(ctx context.Context, sourceID, destID string, amount int64, memo string) (*model.Payment, error)
	RefundFunc   func(ctx context.Context, paymentID string, amount int64, mode model.RefundMode, accountRef, reason string) (*model.Refund, error)
	ConvertFunc  func(ctx context.Context, subscriberID string, periodKind model.PeriodKind, periodCount int) (*model.Payment, error)
}

func (f *fakeLedgerUC) Transfer(ctx context.Context, sourceID, destID string, amount int64, memo string) (*model.Payment, error) {
	return f.TransferFunc(ctx, sourceID, destID, amount, memo)
}

func (f *fakeLedgerUC) Refund(ctx context.Context, paymentID string, amount int64, mode model.RefundMode, accountRef, reason string) (*model.Refund, error) {
	return f.RefundFunc(ctx, paymentID, amount, mode, accountRef, reason)
}

func (f *fakeLedgerUC) ConvertBalance(ctx context.Context, subscriberID string, periodKind model.PeriodKind, periodCount int) (*model.Payment, error) {
	return f.ConvertFunc(ctx, subscriberID, periodKind, periodCount)
}

type fakeReconcileUC struct {
	ReconcileFunc func(ctx context.Context, rawPayload []byte, ev model.GatewayEvent) (*usecase.ReconcileResult, error)
}

func (f *fakeReconcileUC) Reconcile(ctx context.Context, rawPayload []byte, ev model.GatewayEvent) (*usecase.ReconcileResult, error) {
	return f.ReconcileFunc(ctx, rawPayload, ev)
}

func settledPayment(id, subscriberID string, amount int64) *model.Payment {
	now := time.Now()
	paid := amount
	return &model.Payment{
		ID:              id,
		Reference:       "REF-" + id,
		SubscriberID:    subscriberID,
		Kind:            model.PaymentKindRecurring,
		RequestedAmount: amount,
		PaidAmount:      &paid,
		Status:          model.PaymentStatusValidated,
		CreatedAt:       now,
		ValidatedAt:     &now,
	}
}
