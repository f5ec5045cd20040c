package repository

import (
	"context"
	"time"

	"agrolease-billing/internal/domain/model"
)

type ParcelRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Parcel) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Parcel, error)
	ListBySubscriber(ctx context.Context, tx Tx, subscriberID string) ([]*model.Parcel, error)
	// ActivateIfPending atomically activates the full parcel area and stamps
	// the activation time, only when the parcel is not already fully
	// activated. Returns false when the guard did not match (already active),
	// which callers treat as an idempotent no-op.
	ActivateIfPending(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
}
