package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain/ports/repository"
	"agrolease-billing/internal/usecase"
)

// PendingPoller periodically scans for stale pending payments and tries to
// finalize them by re-verifying against the gateway. This covers the cases
// where the webhook never arrived or the process crashed mid-confirm.
type PendingPoller struct {
	uc         usecase.PaymentUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	logger     *zerolog.Logger
}

func NewPendingPoller(uc usecase.PaymentUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PendingPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PendingPoller{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, logger: logger}
}

func (w *PendingPoller) Start(ctx context.Context) {
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

func (w *PendingPoller) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.logger.Error().Err(err).Msg("pending-poller: list pending failed")
		return
	}
	for _, p := range pending {
		if p.Meta.Gateway == nil || p.Meta.Gateway.Authority == "" {
			continue
		}
		if _, err := w.uc.ConfirmAuto(ctx, p.Reference); err != nil {
			w.logger.Warn().Err(err).Str("payment_id", p.ID).Str("reference", p.Reference).Msg("pending-poller: confirm failed")
			continue
		}
		w.logger.Info().Str("payment_id", p.ID).Msg("pending-poller: reconciled")
	}
}
