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
	"agrolease-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileResult is what the webhook endpoint reports back to the gateway.
type ReconcileResult struct {
	PaymentID string
	Status    model.PaymentStatus
	Duplicate bool
	Note      string
}

// ReconcileUseCase applies one gateway event to the payment lifecycle. It is
// safe under at-least-once, possibly concurrent delivery of the same event:
// the event log short-circuits replays by transaction id, and the payment
// transition itself is a conditional update that only fires while the
// payment is still pending.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, rawPayload []byte, ev model.GatewayEvent) (*ReconcileResult, error)
}

// Scheduler lets the reconciler hand post-transition work (parcel
// activation) to a background pool instead of running it inline.
type Scheduler interface {
	Submit(task func(ctx context.Context) error) error
}

type reconcileUC struct {
	payments   repository.PaymentRepository
	events     repository.WebhookEventRepository
	activation ActivationUseCase
	sched      Scheduler // optional; nil runs activation synchronously
	nowFn      func() time.Time
	log        *zerolog.Logger
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	events repository.WebhookEventRepository,
	activation ActivationUseCase,
	sched Scheduler,
	nowFn func() time.Time,
	logger *zerolog.Logger,
) *reconcileUC {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &reconcileUC{
		payments:   payments,
		events:     events,
		activation: activation,
		sched:      sched,
		nowFn:      nowFn,
		log:        logger,
	}
}

func (u *reconcileUC) Reconcile(ctx context.Context, rawPayload []byte, ev model.GatewayEvent) (*ReconcileResult, error) {
	if ev.TransactionID == "" {
		return nil, fmt.Errorf("gateway event without transaction id: %w", domain.ErrInvalidArgument)
	}

	// Step 0: append to the event log. A transaction id that was fully
	// processed before returns its cached outcome without touching the
	// payment at all.
	stored, created, err := u.events.Record(ctx, repository.NoTX, &model.WebhookEvent{
		GatewayTxID: ev.TransactionID,
		Payload:     rawPayload,
		ReceivedAt:  u.nowFn(),
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.Processed {
		metrics.IncWebhookDuplicate()
		u.log.Debug().Str("gateway_tx_id", ev.TransactionID).Msg("duplicate gateway event short-circuited")
		res := &ReconcileResult{Duplicate: true, Note: "duplicate delivery"}
		if stored.PaymentID != nil {
			res.PaymentID = *stored.PaymentID
		}
		if stored.ResultStatus != nil {
			res.Status = *stored.ResultStatus
		}
		return res, nil
	}

	// Step 1: resolve the target payment. An unknown payment is acknowledged
	// without error: the event may belong to another instance or have raced
	// ahead of the local insert; the unprocessed event row allows backfill
	// on redelivery.
	p, err := u.resolvePayment(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookEvent("unmatched")
			u.log.Warn().Str("gateway_tx_id", ev.TransactionID).Str("reference", ev.Reference).Msg("gateway event matches no payment")
			return &ReconcileResult{Note: "payment not found"}, nil
		}
		return nil, err
	}

	// Step 2: map the external outcome. PENDING leaves the payment as-is and
	// the event row unprocessed, so a later final delivery is not mistaken
	// for a duplicate.
	mapped, final := ev.MappedStatus()
	if !final {
		metrics.IncWebhookEvent("pending")
		return &ReconcileResult{PaymentID: p.ID, Status: p.Status, Note: "gateway still pending"}, nil
	}

	// Steps 3-4: terminal payments are final. Same mapped status is an
	// idempotent replay; a different one is a reconciliation anomaly that is
	// recorded for manual review and never auto-resolved.
	if p.Status.Terminal() {
		return u.finishTerminal(ctx, ev, p, mapped)
	}

	// Step 5: the actual transition, conditional on the payment still being
	// pending, closing the race between concurrent reconcilers.
	upd := u.buildUpdate(ev, p, mapped)
	applied, err := u.payments.UpdateStatusIfPending(ctx, repository.NoTX, p.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("transition payment %s: %w", p.ID, err)
	}
	if !applied {
		// A concurrent reconciler or the polling path won the race.
		p, err = u.payments.FindByID(ctx, repository.NoTX, p.ID)
		if err != nil {
			return nil, fmt.Errorf("reload payment after lost race: %w", err)
		}
		return u.finishTerminal(ctx, ev, p, mapped)
	}

	metrics.IncPayment(string(mapped))
	if mapped == model.PaymentStatusValidated {
		metrics.AddPaymentRevenue(ev.Amount)
	}
	u.log.Info().
		Str("payment_id", p.ID).
		Str("gateway_tx_id", ev.TransactionID).
		Str("status", string(mapped)).
		Int64("amount", ev.Amount).
		Msg("payment reconciled")

	// Step 6: post-transition hook, decoupled from the state transition.
	if mapped == model.PaymentStatusValidated && p.Kind == model.PaymentKindAccessRight {
		u.scheduleActivation(ctx, p.ID)
	}

	// Step 7: stamp the event log with the outcome.
	if err := u.events.MarkProcessed(ctx, repository.NoTX, ev.TransactionID, &p.ID, &mapped, ""); err != nil {
		u.log.Error().Err(err).Str("gateway_tx_id", ev.TransactionID).Msg("mark event processed failed")
	}
	metrics.IncWebhookEvent("applied")
	return &ReconcileResult{PaymentID: p.ID, Status: mapped}, nil
}

func (u *reconcileUC) resolvePayment(ctx context.Context, ev model.GatewayEvent) (*model.Payment, error) {
	if ev.Reference != "" {
		p, err := u.payments.FindByReference(ctx, repository.NoTX, ev.Reference)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return p, err
		}
	}
	if ev.PaymentID != "" {
		p, err := u.payments.FindByID(ctx, repository.NoTX, ev.PaymentID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return p, err
		}
	}
	return u.payments.FindByGatewayTxID(ctx, repository.NoTX, ev.TransactionID)
}

// finishTerminal handles events arriving for an already-terminal payment:
// replay (same status) or anomaly (conflicting status).
func (u *reconcileUC) finishTerminal(ctx context.Context, ev model.GatewayEvent, p *model.Payment, mapped model.PaymentStatus) (*ReconcileResult, error) {
	if p.Status == mapped {
		if err := u.events.MarkProcessed(ctx, repository.NoTX, ev.TransactionID, &p.ID, &p.Status, "replay"); err != nil {
			u.log.Error().Err(err).Str("gateway_tx_id", ev.TransactionID).Msg("mark event processed failed")
		}
		metrics.IncWebhookEvent("replay")
		return &ReconcileResult{PaymentID: p.ID, Status: p.Status, Duplicate: true}, nil
	}

	note := fmt.Sprintf("terminal conflict: payment is %s, gateway reported %s", p.Status, mapped)
	if err := u.events.MarkProcessed(ctx, repository.NoTX, ev.TransactionID, &p.ID, &p.Status, note); err != nil {
		u.log.Error().Err(err).Str("gateway_tx_id", ev.TransactionID).Msg("mark event processed failed")
	}
	metrics.IncReconcileAnomaly()
	u.log.Warn().
		Str("payment_id", p.ID).
		Str("gateway_tx_id", ev.TransactionID).
		Str("current", string(p.Status)).
		Str("reported", string(mapped)).
		Msg("gateway contradicts terminal payment state, keeping current state")
	return &ReconcileResult{PaymentID: p.ID, Status: p.Status, Note: note}, nil
}

func (u *reconcileUC) buildUpdate(ev model.GatewayEvent, p *model.Payment, mapped model.PaymentStatus) repository.TerminalUpdate {
	meta := p.Meta
	if meta.Gateway == nil {
		meta.Gateway = &model.GatewayMeta{}
	} else {
		gw := *meta.Gateway
		meta.Gateway = &gw
	}
	meta.Gateway.TxID = ev.TransactionID
	meta.Gateway.Method = ev.Method
	meta.Gateway.Fees = ev.Fees
	meta.Gateway.OccurredAt = ev.OccurredAt

	txID := ev.TransactionID
	upd := repository.TerminalUpdate{Status: mapped, GatewayTxID: &txID, Meta: meta}
	if mapped == model.PaymentStatusValidated {
		amount := ev.Amount
		now := u.nowFn()
		upd.PaidAmount = &amount
		upd.ValidatedAt = &now
	} else {
		meta.Gateway.FailureNote = string(ev.Status)
	}
	return upd
}

func (u *reconcileUC) scheduleActivation(ctx context.Context, paymentID string) {
	task := func(taskCtx context.Context) error {
		p, err := u.payments.FindByID(taskCtx, repository.NoTX, paymentID)
		if err != nil {
			return fmt.Errorf("load payment for activation: %w", err)
		}
		return u.activation.ActivateFromPayment(taskCtx, p)
	}
	if u.sched != nil {
		if err := u.sched.Submit(task); err == nil {
			return
		}
		// Pool saturated; fall through to the synchronous path rather than
		// dropping the trigger (the sweep would still catch it later).
	}
	if err := task(ctx); err != nil {
		u.log.Error().Err(err).Str("payment_id", paymentID).Msg("activation trigger failed, sweep will retry")
	}
}
