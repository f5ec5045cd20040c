package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
	"agrolease-billing/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase groups the three subscriber-initiated ledger operations.
// Validation errors are returned synchronously and nothing is partially
// applied.
type LedgerUseCase interface {
	// Transfer credits destID with a new, already-validated recurring
	// payment. The source subscriber's existing payments are never touched:
	// transfers grant credit, they do not move it.
	Transfer(ctx context.Context, sourceID, destID string, amount int64, memo string) (*model.Payment, error)
	// Refund reverses part of a validated payment's paid amount and records
	// a pending refund; the money movement is fulfilled externally.
	Refund(ctx context.Context, paymentID string, amount int64, mode model.RefundMode, accountRef, reason string) (*model.Refund, error)
	// ConvertBalance turns a subscriber's advance credit into pre-paid
	// periods. The only ledger operation gated by the accrual calculator.
	ConvertBalance(ctx context.Context, subscriberID string, periodKind model.PeriodKind, periodCount int) (*model.Payment, error)
}

// Locker serializes ConvertBalance per subscriber so two concurrent
// conversions cannot double-spend the same advance credit.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type ledgerUC struct {
	subscribers repository.SubscriberRepository
	payments    repository.PaymentRepository
	parcels     repository.ParcelRepository
	transfers   repository.TransferRepository
	refunds     repository.RefundRepository
	accrual     AccrualUseCase
	tm          repository.TransactionManager
	locker      Locker
	nowFn       func() time.Time
	log         *zerolog.Logger
}

func NewLedgerUseCase(
	subscribers repository.SubscriberRepository,
	payments repository.PaymentRepository,
	parcels repository.ParcelRepository,
	transfers repository.TransferRepository,
	refunds repository.RefundRepository,
	accrual AccrualUseCase,
	tm repository.TransactionManager,
	locker Locker,
	nowFn func() time.Time,
	logger *zerolog.Logger,
) *ledgerUC {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &ledgerUC{
		subscribers: subscribers,
		payments:    payments,
		parcels:     parcels,
		transfers:   transfers,
		refunds:     refunds,
		accrual:     accrual,
		tm:          tm,
		locker:      locker,
		nowFn:       nowFn,
		log:         logger,
	}
}

func (u *ledgerUC) Transfer(ctx context.Context, sourceID, destID string, amount int64, memo string) (*model.Payment, error) {
	transfer, err := model.NewTransfer(uuid.NewString(), sourceID, destID, amount, memo)
	if err != nil {
		return nil, err
	}
	if _, err := u.subscribers.FindByID(ctx, repository.NoTX, sourceID); err != nil {
		return nil, fmt.Errorf("find source subscriber: %w", err)
	}
	if _, err := u.subscribers.FindByID(ctx, repository.NoTX, destID); err != nil {
		return nil, fmt.Errorf("find destination subscriber: %w", err)
	}

	credit := u.settledPayment(destID, amount, model.PaymentMeta{
		Provenance: model.ProvenanceTransfer,
		Transfer:   &model.TransferMeta{SourceSubscriberID: sourceID, Memo: memo},
	})
	transfer.PaymentID = credit.ID

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Save(ctx, tx, credit); err != nil {
			return fmt.Errorf("save transfer credit: %w", err)
		}
		if err := u.transfers.Save(ctx, tx, transfer); err != nil {
			return fmt.Errorf("save transfer record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncLedgerOp("transfer")
	u.log.Info().Str("transfer_id", transfer.ID).Str("source_id", sourceID).Str("dest_id", destID).Int64("amount", amount).Msg("transfer credited")
	return credit, nil
}

func (u *ledgerUC) Refund(ctx context.Context, paymentID string, amount int64, mode model.RefundMode, accountRef, reason string) (*model.Refund, error) {
	refund, err := model.NewRefund(uuid.NewString(), paymentID, amount, mode, accountRef, reason)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return fmt.Errorf("find payment %s: %w", paymentID, err)
		}
		if p.Status != model.PaymentStatusValidated {
			return fmt.Errorf("refund target is %s: %w", p.Status, domain.ErrInvalidArgument)
		}
		if amount > p.Paid() {
			return fmt.Errorf("refund %d exceeds paid amount %d: %w", amount, p.Paid(), domain.ErrInvalidAmount)
		}

		meta := p.Meta
		meta.Refunds = append(meta.Refunds, model.RefundAdjustment{RefundID: refund.ID, Amount: amount, At: u.nowFn()})
		applied, err := u.payments.DecrementPaidIfCovered(ctx, tx, paymentID, amount, meta)
		if err != nil {
			return fmt.Errorf("decrement paid amount: %w", err)
		}
		if !applied {
			return fmt.Errorf("paid amount no longer covers refund: %w", domain.ErrInvalidAmount)
		}
		if err := u.refunds.Save(ctx, tx, refund); err != nil {
			return fmt.Errorf("save refund: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncLedgerOp("refund")
	u.log.Info().Str("refund_id", refund.ID).Str("payment_id", paymentID).Int64("amount", amount).Msg("refund recorded")
	return refund, nil
}

func (u *ledgerUC) ConvertBalance(ctx context.Context, subscriberID string, periodKind model.PeriodKind, periodCount int) (*model.Payment, error) {
	if periodCount <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	// Serialize per subscriber: two concurrent conversions must not both
	// spend the same advance credit.
	token, err := u.locker.TryLock(ctx, "convert:"+subscriberID, 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("acquire conversion lock: %w", err)
	}
	defer func() {
		if err := u.locker.Unlock(ctx, "convert:"+subscriberID, token); err != nil {
			u.log.Warn().Err(err).Str("subscriber_id", subscriberID).Msg("conversion lock release failed")
		}
	}()

	now := u.nowFn()
	summary, err := u.accrual.Summary(ctx, subscriberID, now)
	if err != nil {
		return nil, err
	}
	tariff, err := u.accrual.TariffFor(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	rate, err := tariff.ForPeriod(periodKind)
	if err != nil {
		return nil, err
	}

	parcels, err := u.parcels.ListBySubscriber(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	area := model.ActivatedAreaHa(parcels)
	if area <= 0 {
		return nil, fmt.Errorf("no activated area to convert against: %w", domain.ErrInvalidArgument)
	}

	cost := int64(math.Round(float64(rate) * float64(periodCount) * area))
	if cost <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if credit := summary.AdvanceCredit(); cost > credit {
		return nil, fmt.Errorf("conversion cost %d exceeds available credit %d: %w", cost, credit, domain.ErrInsufficientCredit)
	}

	settled := u.settledPayment(subscriberID, cost, model.PaymentMeta{
		Provenance: model.ProvenanceConversion,
		Conversion: &model.ConversionMeta{PeriodKind: periodKind, PeriodCount: periodCount, AreaHa: area, UnitRate: rate},
	})
	if err := u.payments.Save(ctx, repository.NoTX, settled); err != nil {
		return nil, fmt.Errorf("save conversion payment: %w", err)
	}

	metrics.IncLedgerOp("convert_balance")
	u.log.Info().Str("subscriber_id", subscriberID).Str("period", string(periodKind)).Int("count", periodCount).Int64("cost", cost).Msg("advance credit converted")
	return settled, nil
}

// settledPayment builds a recurring payment that is validated at creation,
// used by transfer and conversion credits. These never pass through the
// gateway lifecycle.
func (u *ledgerUC) settledPayment(subscriberID string, amount int64, meta model.PaymentMeta) *model.Payment {
	now := u.nowFn()
	paid := amount
	return &model.Payment{
		ID:              uuid.NewString(),
		Reference:       ulid.Make().String(),
		SubscriberID:    subscriberID,
		Kind:            model.PaymentKindRecurring,
		RequestedAmount: amount,
		PaidAmount:      &paid,
		Status:          model.PaymentStatusValidated,
		CreatedAt:       now,
		ValidatedAt:     &now,
		Meta:            meta,
	}
}

// IsValidationError reports whether err is a synchronous rejection the API
// layer should map to a 4xx.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInsufficientCredit)
}
