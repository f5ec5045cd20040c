package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

const refundCols = `id, payment_id, amount, mode, account_ref, reason, fulfillment, created_at`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	f := &model.Refund{}
	if err := row.Scan(&f.ID, &f.PaymentID, &f.Amount, &f.Mode, &f.AccountRef, &f.Reason, &f.Fulfillment, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return f, nil
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, f *model.Refund) error {
	const q = `
INSERT INTO refunds (id, payment_id, amount, mode, account_ref, reason, fulfillment, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET fulfillment=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.PaymentID, f.Amount, f.Mode, f.AccountRef, f.Reason, f.Fulfillment, f.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	const q = `SELECT ` + refundCols + ` FROM refunds WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT ` + refundCols + ` FROM refunds WHERE payment_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		f, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
