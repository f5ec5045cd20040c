package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentCols = `id, reference, gateway_tx_id, subscriber_id, parcel_id, kind, requested_amount, paid_amount, status, created_at, validated_at, meta`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var meta []byte
	if err := row.Scan(&p.ID, &p.Reference, &p.GatewayTxID, &p.SubscriberID, &p.ParcelID, &p.Kind, &p.RequestedAmount, &p.PaidAmount, &p.Status, &p.CreatedAt, &p.ValidatedAt, &meta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Meta); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, reference, gateway_tx_id, subscriber_id, parcel_id, kind, requested_amount, paid_amount, status, created_at, validated_at, meta
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) ON CONFLICT (id) DO UPDATE SET
  gateway_tx_id=$3, paid_amount=$8, status=$9, validated_at=$11, meta=$12;`

	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	_, err = execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.GatewayTxID, p.SubscriberID, p.ParcelID, p.Kind, p.RequestedAmount, p.PaidAmount, p.Status, p.CreatedAt, p.ValidatedAt, meta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE reference=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayTxID(ctx context.Context, tx repository.Tx, gatewayTxID string) (*model.Payment, error) {
	// Matches either the promoted column or the authority stored in gateway
	// meta at initiation time.
	const q = `SELECT ` + paymentCols + ` FROM payments
 WHERE gateway_tx_id=$1 OR meta->'gateway'->>'tx_id'=$1 OR meta->'gateway'->>'authority'=$1
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayTxID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE subscriber_id=$1 ORDER BY created_at ASC;`
	return r.list(ctx, tx, q, subscriberID)
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentRepo) ListValidatedAccessRightUnactivated(ctx context.Context, tx repository.Tx, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColsPrefixed + ` FROM payments p
 JOIN parcels pc ON pc.id = p.parcel_id
 WHERE p.status='validated' AND p.kind='access_right' AND pc.activated_at IS NULL
 ORDER BY p.validated_at ASC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

const paymentColsPrefixed = `p.id, p.reference, p.gateway_tx_id, p.subscriber_id, p.parcel_id, p.kind, p.requested_amount, p.paid_amount, p.status, p.created_at, p.validated_at, p.meta`

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// UpdateStatusIfPending atomically applies a terminal transition only when
// the current status is 'pending'. Zero rows affected means the payment is
// already terminal; the caller decides whether that is a replay or a
// conflict.
func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, upd repository.TerminalUpdate) (bool, error) {
	const q = `
    UPDATE payments
       SET status = $2,
           paid_amount = COALESCE($3, paid_amount),
           validated_at = COALESCE($4, validated_at),
           gateway_tx_id = COALESCE($5, gateway_tx_id),
           meta = $6
     WHERE id = $1
       AND status = 'pending';`

	meta, err := json.Marshal(upd.Meta)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(upd.Status), upd.PaidAmount, upd.ValidatedAt, upd.GatewayTxID, meta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// DecrementPaidIfCovered atomically reduces paid_amount, guarded on the
// payment being validated and the remaining paid amount covering the
// decrement.
func (r *paymentRepo) DecrementPaidIfCovered(ctx context.Context, tx repository.Tx, id string, amount int64, meta model.PaymentMeta) (bool, error) {
	const q = `
    UPDATE payments
       SET paid_amount = paid_amount - $2,
           meta = $3
     WHERE id = $1
       AND status = 'validated'
       AND paid_amount >= $2;`

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	cmd, err := execSQL(ctx, r.pool, tx, q, id, amount, metaJSON)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
