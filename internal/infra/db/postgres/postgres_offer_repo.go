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

var _ repository.OfferRepository = (*offerRepo)(nil)

type offerRepo struct{ pool *pgxpool.Pool }

func NewOfferRepo(pool *pgxpool.Pool) *offerRepo {
	return &offerRepo{pool: pool}
}

func (r *offerRepo) Save(ctx context.Context, tx repository.Tx, o *model.Offer) error {
	const q = `
INSERT INTO offers (id, name, monthly_per_ha, access_right_per_ha, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET name=$2, monthly_per_ha=$3, access_right_per_ha=$4;`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.Name, o.MonthlyPerHa, o.AccessRightPerHa, o.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *offerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Offer, error) {
	const q = `SELECT id, name, monthly_per_ha, access_right_per_ha, created_at FROM offers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	o := &model.Offer{}
	if err := row.Scan(&o.ID, &o.Name, &o.MonthlyPerHa, &o.AccessRightPerHa, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}
