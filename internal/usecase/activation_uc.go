package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
	"agrolease-billing/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase is the post-transition hook that turns a validated
// access-right payment into an activated parcel. It must be safe to invoke
// any number of times for the same payment: the parcel-side conditional
// update is the idempotency guard.
type ActivationUseCase interface {
	ActivateFromPayment(ctx context.Context, p *model.Payment) error
}

type activationUC struct {
	parcels repository.ParcelRepository
	nowFn   func() time.Time
	log     *zerolog.Logger
}

func NewActivationUseCase(parcels repository.ParcelRepository, nowFn func() time.Time, logger *zerolog.Logger) *activationUC {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &activationUC{parcels: parcels, nowFn: nowFn, log: logger}
}

// ActivateFromPayment activates the payment's parcel in full. Activation is
// all-or-nothing; a parcel whose activated area already equals its total
// area is left untouched, which is what makes duplicate webhook deliveries
// harmless. The payment's terminal state is authoritative regardless of
// whether this call succeeds; failures are retried by the activation sweep.
func (u *activationUC) ActivateFromPayment(ctx context.Context, p *model.Payment) error {
	if p == nil {
		return domain.ErrInvalidArgument
	}
	if p.Kind != model.PaymentKindAccessRight || p.Status != model.PaymentStatusValidated || p.ParcelID == nil {
		return fmt.Errorf("activation preconditions not met for payment %q: %w", p.ID, domain.ErrInvalidArgument)
	}

	activated, err := u.parcels.ActivateIfPending(ctx, repository.NoTX, *p.ParcelID, u.nowFn())
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Str("parcel_id", *p.ParcelID).Msg("parcel activation write failed")
		return fmt.Errorf("activate parcel %s: %w", *p.ParcelID, err)
	}
	if !activated {
		// Already fully activated; duplicate delivery or sweep overlap.
		u.log.Debug().Str("payment_id", p.ID).Str("parcel_id", *p.ParcelID).Msg("parcel already active, skipping")
		return nil
	}

	metrics.IncParcelActivation()
	u.log.Info().Str("payment_id", p.ID).Str("parcel_id", *p.ParcelID).Msg("parcel activated")
	return nil
}
