package repository

import (
	"context"

	"agrolease-billing/internal/domain/model"
)

type WebhookEventRepository interface {
	// Record appends the raw event keyed by gateway transaction id. When the
	// id was seen before the existing record is returned with created=false,
	// letting the reconciler short-circuit duplicate deliveries.
	Record(ctx context.Context, tx Tx, ev *model.WebhookEvent) (stored *model.WebhookEvent, created bool, err error)
	// MarkProcessed stamps the outcome of processing on the event record.
	MarkProcessed(ctx context.Context, tx Tx, gatewayTxID string, paymentID *string, status *model.PaymentStatus, note string) error
	FindByTxID(ctx context.Context, tx Tx, gatewayTxID string) (*model.WebhookEvent, error)
}
