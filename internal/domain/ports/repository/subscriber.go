package repository

import (
	"context"

	"agrolease-billing/internal/domain/model"
)

type SubscriberRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscriber) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscriber, error)
}

type OfferRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Offer) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Offer, error)
}
