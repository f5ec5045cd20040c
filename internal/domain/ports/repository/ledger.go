package repository

import (
	"context"

	"agrolease-billing/internal/domain/model"
)

type TransferRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transfer) error
	ListBySubscriber(ctx context.Context, tx Tx, subscriberID string) ([]*model.Transfer, error)
}

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)
}
