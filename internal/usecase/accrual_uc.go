package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ AccrualUseCase = (*accrualUC)(nil)

// AccrualUseCase is the read-side projection over the ledger of validated
// payments. Every consumer (dashboard, payment screens, conversion gate)
// goes through here instead of recomputing balances ad hoc.
type AccrualUseCase interface {
	// Summary computes the subscriber's arrears/advance position as of `now`.
	// The instant is a parameter so callers and tests control the clock.
	Summary(ctx context.Context, subscriberID string, now time.Time) (model.SubscriberSummary, error)
	// ParcelBalance computes the position of a single parcel as of `now`.
	ParcelBalance(ctx context.Context, parcelID string, now time.Time) (model.Balance, error)
	// TariffFor resolves the subscriber's rate table (offer or default).
	TariffFor(ctx context.Context, subscriberID string) (model.Tariff, error)
}

type accrualUC struct {
	subscribers repository.SubscriberRepository
	offers      repository.OfferRepository
	parcels     repository.ParcelRepository
	payments    repository.PaymentRepository
	log         *zerolog.Logger
}

func NewAccrualUseCase(
	subscribers repository.SubscriberRepository,
	offers repository.OfferRepository,
	parcels repository.ParcelRepository,
	payments repository.PaymentRepository,
	logger *zerolog.Logger,
) *accrualUC {
	return &accrualUC{subscribers: subscribers, offers: offers, parcels: parcels, payments: payments, log: logger}
}

func (u *accrualUC) TariffFor(ctx context.Context, subscriberID string) (model.Tariff, error) {
	sub, err := u.subscribers.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return model.Tariff{}, fmt.Errorf("find subscriber %s: %w", subscriberID, err)
	}
	return u.tariffOf(ctx, sub)
}

func (u *accrualUC) tariffOf(ctx context.Context, sub *model.Subscriber) (model.Tariff, error) {
	if sub.OfferID == nil {
		return model.DefaultTariff, nil
	}
	offer, err := u.offers.FindByID(ctx, repository.NoTX, *sub.OfferID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Dangling offer reference falls back to the default table.
			u.log.Warn().Str("subscriber_id", sub.ID).Str("offer_id", *sub.OfferID).Msg("offer not found, using default tariff")
			return model.DefaultTariff, nil
		}
		return model.Tariff{}, fmt.Errorf("find offer %s: %w", *sub.OfferID, err)
	}
	return model.ResolveTariff(offer), nil
}

func (u *accrualUC) Summary(ctx context.Context, subscriberID string, now time.Time) (model.SubscriberSummary, error) {
	sub, err := u.subscribers.FindByID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return model.SubscriberSummary{}, fmt.Errorf("find subscriber %s: %w", subscriberID, err)
	}
	tariff, err := u.tariffOf(ctx, sub)
	if err != nil {
		return model.SubscriberSummary{}, err
	}
	parcels, err := u.parcels.ListBySubscriber(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return model.SubscriberSummary{}, fmt.Errorf("list parcels: %w", err)
	}
	payments, err := u.payments.ListBySubscriber(ctx, repository.NoTX, subscriberID)
	if err != nil {
		return model.SubscriberSummary{}, fmt.Errorf("list payments: %w", err)
	}
	return model.ComputeSubscriberSummary(subscriberID, parcels, tariff, payments, now), nil
}

func (u *accrualUC) ParcelBalance(ctx context.Context, parcelID string, now time.Time) (model.Balance, error) {
	parcel, err := u.parcels.FindByID(ctx, repository.NoTX, parcelID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("find parcel %s: %w", parcelID, err)
	}
	tariff, err := u.TariffFor(ctx, parcel.SubscriberID)
	if err != nil {
		return model.Balance{}, err
	}
	payments, err := u.payments.ListBySubscriber(ctx, repository.NoTX, parcel.SubscriberID)
	if err != nil {
		return model.Balance{}, fmt.Errorf("list payments: %w", err)
	}
	return model.ComputeParcelBalance(parcel, tariff, payments, now), nil
}
