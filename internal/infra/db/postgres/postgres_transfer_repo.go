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

var _ repository.TransferRepository = (*transferRepo)(nil)

type transferRepo struct{ pool *pgxpool.Pool }

func NewTransferRepo(pool *pgxpool.Pool) *transferRepo {
	return &transferRepo{pool: pool}
}

func (r *transferRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transfer) error {
	const q = `
INSERT INTO transfers (id, source_id, dest_id, amount, memo, payment_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.SourceID, t.DestID, t.Amount, t.Memo, t.PaymentID, t.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transferRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string) ([]*model.Transfer, error) {
	const q = `SELECT id, source_id, dest_id, amount, memo, payment_id, created_at FROM transfers
 WHERE source_id=$1 OR dest_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, subscriberID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Transfer
	for rows.Next() {
		t := &model.Transfer{}
		if err := rows.Scan(&t.ID, &t.SourceID, &t.DestID, &t.Amount, &t.Memo, &t.PaymentID, &t.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}
