package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain/ports/repository"
	"agrolease-billing/internal/infra/metrics"
	"agrolease-billing/internal/usecase"
)

// ActivationSweeper retries parcel activation for validated access-right
// payments whose parcel is still unactivated, so a crash between validation
// and activation heals on its own. The conditional update in the parcel repo
// keeps retries single-shot.
type ActivationSweeper struct {
	uc       usecase.ActivationUseCase
	payments repository.PaymentRepository
	interval time.Duration
	logger   *zerolog.Logger
}

func NewActivationSweeper(uc usecase.ActivationUseCase, payments repository.PaymentRepository, interval time.Duration, logger *zerolog.Logger) *ActivationSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ActivationSweeper{uc: uc, payments: payments, interval: interval, logger: logger}
}

func (w *ActivationSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ActivationSweeper) tick(ctx context.Context) {
	stuck, err := w.payments.ListValidatedAccessRightUnactivated(ctx, nil, 100)
	if err != nil {
		w.logger.Error().Err(err).Msg("activation-sweeper: list failed")
		return
	}
	for _, p := range stuck {
		metrics.IncActivationSweepRetry()
		if err := w.uc.ActivateFromPayment(ctx, p); err != nil {
			w.logger.Warn().Err(err).Str("payment_id", p.ID).Msg("activation-sweeper: retry failed")
			continue
		}
		w.logger.Info().Str("payment_id", p.ID).Msg("activation-sweeper: parcel activated")
	}
}
