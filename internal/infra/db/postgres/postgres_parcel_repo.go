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

var _ repository.ParcelRepository = (*parcelRepo)(nil)

type parcelRepo struct{ pool *pgxpool.Pool }

func NewParcelRepo(pool *pgxpool.Pool) *parcelRepo {
	return &parcelRepo{pool: pool}
}

const parcelCols = `id, subscriber_id, area_ha, activated_area_ha, activated_at, status, created_at`

func scanParcel(row pgx.Row) (*model.Parcel, error) {
	p := &model.Parcel{}
	if err := row.Scan(&p.ID, &p.SubscriberID, &p.AreaHa, &p.ActivatedAreaHa, &p.ActivatedAt, &p.Status, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *parcelRepo) Save(ctx context.Context, tx repository.Tx, p *model.Parcel) error {
	const q = `
INSERT INTO parcels (
  id, subscriber_id, area_ha, activated_area_ha, activated_at, status, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
) ON CONFLICT (id) DO UPDATE SET
  area_ha=$3, activated_area_ha=$4, activated_at=$5, status=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.SubscriberID, p.AreaHa, p.ActivatedAreaHa, p.ActivatedAt, p.Status, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *parcelRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Parcel, error) {
	q := `SELECT ` + parcelCols + ` FROM parcels WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanParcel(row)
}

func (r *parcelRepo) ListBySubscriber(ctx context.Context, tx repository.Tx, subscriberID string) ([]*model.Parcel, error) {
	const q = `SELECT ` + parcelCols + ` FROM parcels WHERE subscriber_id=$1 ORDER BY created_at ASC;`
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

	var out []*model.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ActivateIfPending atomically activates the full parcel area exactly once.
// The guard (activated area still below total area) makes duplicate webhook
// deliveries and sweep overlaps no-ops.
func (r *parcelRepo) ActivateIfPending(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `
    UPDATE parcels
       SET activated_area_ha = area_ha,
           activated_at = $2,
           status = 'active'
     WHERE id = $1
       AND activated_area_ha < area_ha;`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
