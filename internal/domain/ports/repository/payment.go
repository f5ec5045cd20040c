package repository

import (
	"context"
	"time"

	"agrolease-billing/internal/domain/model"
)

// TerminalUpdate carries everything written alongside an atomic transition
// out of the pending state.
type TerminalUpdate struct {
	Status      model.PaymentStatus
	PaidAmount  *int64     // set on validation only
	ValidatedAt *time.Time // set on validation only
	GatewayTxID *string
	Meta        model.PaymentMeta
}

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)
	FindByGatewayTxID(ctx context.Context, tx Tx, gatewayTxID string) (*model.Payment, error)
	ListBySubscriber(ctx context.Context, tx Tx, subscriberID string) ([]*model.Payment, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
	// ListValidatedAccessRightUnactivated returns validated access-right
	// payments whose parcel has not been activated yet; the sweep worker
	// retries activation from this set.
	ListValidatedAccessRightUnactivated(ctx context.Context, tx Tx, limit int) ([]*model.Payment, error)
	// UpdateStatusIfPending applies a terminal transition only when the
	// current status is 'pending'. Returns false when no row matched,
	// meaning the payment is already terminal.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, upd TerminalUpdate) (bool, error)
	// DecrementPaidIfCovered atomically reduces paid_amount by amount, only
	// when the payment is validated and its paid amount covers the
	// decrement. Returns false when the guard did not match.
	DecrementPaidIfCovered(ctx context.Context, tx Tx, id string, amount int64, meta model.PaymentMeta) (bool, error)
}
