package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const eventCols = `gateway_tx_id, payload, received_at, processed, processed_at, payment_id, result_status, note`

func scanEvent(row pgx.Row) (*model.WebhookEvent, error) {
	ev := &model.WebhookEvent{}
	if err := row.Scan(&ev.GatewayTxID, &ev.Payload, &ev.ReceivedAt, &ev.Processed, &ev.ProcessedAt, &ev.PaymentID, &ev.ResultStatus, &ev.Note); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ev, nil
}

// Record appends the raw event, keyed by gateway transaction id. The unique
// key makes this the dedup gate: when the id was seen before, the existing
// record is returned with created=false and nothing is written.
func (r *webhookEventRepo) Record(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	const ins = `
INSERT INTO webhook_events (gateway_tx_id, payload, received_at, processed)
VALUES ($1,$2,$3,false)
ON CONFLICT (gateway_tx_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, ins, ev.GatewayTxID, ev.Payload, ev.ReceivedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, false, err
		}
		return nil, false, domain.ErrOperationFailed
	}
	if cmd.RowsAffected() >= 1 {
		return ev, true, nil
	}

	existing, err := r.FindByTxID(ctx, tx, ev.GatewayTxID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, gatewayTxID string, paymentID *string, status *model.PaymentStatus, note string) error {
	const q = `
UPDATE webhook_events
   SET processed=true, processed_at=$2, payment_id=COALESCE($3, payment_id),
       result_status=COALESCE($4, result_status), note=$5
 WHERE gateway_tx_id=$1;`

	now := time.Now()
	_, err := execSQL(ctx, r.pool, tx, q, gatewayTxID, now, paymentID, status, note)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) FindByTxID(ctx context.Context, tx repository.Tx, gatewayTxID string) (*model.WebhookEvent, error) {
	const q = `SELECT ` + eventCols + ` FROM webhook_events WHERE gateway_tx_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayTxID)
	if err != nil {
		return nil, err
	}
	return scanEvent(row)
}
