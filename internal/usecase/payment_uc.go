package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/adapter"
	"agrolease-billing/internal/domain/ports/repository"
	"agrolease-billing/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// Initiate creates a pending payment with a fresh reference, requests a
	// payment intent from the gateway, and returns the payment plus the
	// redirect URL for the subscriber.
	Initiate(ctx context.Context, subscriberID string, parcelID *string, kind model.PaymentKind, amount int64) (*model.Payment, string, error)
	// QuoteAccessRight prices the one-time access right for a parcel:
	// full area times the subscriber's DA rate. Activation is all-or-nothing,
	// so the quote always covers the whole parcel.
	QuoteAccessRight(ctx context.Context, parcelID string) (int64, error)
	// ConfirmAuto actively verifies a pending payment against the gateway by
	// reference and applies the outcome through the reconciler. Used by the
	// stale-pending poller when the webhook was lost.
	ConfirmAuto(ctx context.Context, reference string) (*model.Payment, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	parcels   repository.ParcelRepository
	accrual   AccrualUseCase
	reconcile ReconcileUseCase
	gateway   adapter.PaymentGateway
	callback  string
	nowFn     func() time.Time
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	parcels repository.ParcelRepository,
	accrual AccrualUseCase,
	reconcile ReconcileUseCase,
	gateway adapter.PaymentGateway,
	callbackURL string,
	nowFn func() time.Time,
	logger *zerolog.Logger,
) *paymentUC {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &paymentUC{
		payments:  payments,
		parcels:   parcels,
		accrual:   accrual,
		reconcile: reconcile,
		gateway:   gateway,
		callback:  callbackURL,
		nowFn:     nowFn,
		log:       logger,
	}
}

func (u *paymentUC) QuoteAccessRight(ctx context.Context, parcelID string) (int64, error) {
	parcel, err := u.parcels.FindByID(ctx, repository.NoTX, parcelID)
	if err != nil {
		return 0, fmt.Errorf("find parcel %s: %w", parcelID, err)
	}
	if parcel.Activated() {
		return 0, domain.ErrAlreadyExists
	}
	tariff, err := u.accrual.TariffFor(ctx, parcel.SubscriberID)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(float64(tariff.AccessRightPerHa) * parcel.AreaHa)), nil
}

func (u *paymentUC) Initiate(ctx context.Context, subscriberID string, parcelID *string, kind model.PaymentKind, amount int64) (*model.Payment, string, error) {
	if amount <= 0 {
		return nil, "", domain.ErrInvalidAmount
	}
	if parcelID != nil {
		parcel, err := u.parcels.FindByID(ctx, repository.NoTX, *parcelID)
		if err != nil {
			return nil, "", fmt.Errorf("find parcel %s: %w", *parcelID, err)
		}
		if parcel.SubscriberID != subscriberID {
			return nil, "", domain.ErrInvalidArgument
		}
		if kind == model.PaymentKindAccessRight && parcel.Activated() {
			return nil, "", domain.ErrAlreadyExists
		}
	}

	// The reference is generated before any gateway interaction so that
	// client retries resolve to the same payment.
	reference := ulid.Make().String()
	p, err := model.NewPayment(uuid.NewString(), reference, subscriberID, parcelID, kind, amount)
	if err != nil {
		return nil, "", err
	}

	description := fmt.Sprintf("%s contribution %s", kind, reference)
	authority, payURL, err := u.gateway.RequestPayment(ctx, amount, description, u.callback, reference)
	if err != nil {
		return nil, "", fmt.Errorf("gateway request: %w", err)
	}
	p.Meta.Gateway.Authority = authority
	p.Meta.Gateway.PayURL = payURL

	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, "", fmt.Errorf("save payment: %w", err)
	}

	metrics.IncPayment(string(model.PaymentStatusPending))
	u.log.Info().Str("payment_id", p.ID).Str("reference", reference).Str("kind", string(kind)).Int64("amount", amount).Msg("payment initiated")
	return p, payURL, nil
}

func (u *paymentUC) ConfirmAuto(ctx context.Context, reference string) (*model.Payment, error) {
	p, err := u.payments.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil, fmt.Errorf("find payment by reference %s: %w", reference, err)
	}
	if p.Status.Terminal() {
		return p, nil
	}
	if p.Meta.Gateway == nil || p.Meta.Gateway.Authority == "" {
		return nil, fmt.Errorf("payment %s has no gateway authority: %w", p.ID, domain.ErrInvalidArgument)
	}

	res, err := u.gateway.VerifyPayment(ctx, p.Meta.Gateway.Authority, p.RequestedAmount)
	if err != nil {
		// Leave the payment pending; the poller retries on the next sweep
		// and a late webhook can still settle it.
		return nil, fmt.Errorf("verify payment %s: %w", p.ID, err)
	}

	occurred := u.nowFn()
	_, err = u.reconcile.Reconcile(ctx, nil, model.GatewayEvent{
		TransactionID: res.TxID,
		Status:        model.GatewayEventSuccess,
		Amount:        res.Amount,
		Fees:          res.Fees,
		Method:        res.Method,
		Reference:     reference,
		OccurredAt:    &occurred,
	})
	if err != nil {
		return nil, err
	}
	return u.payments.FindByID(ctx, repository.NoTX, p.ID)
}
