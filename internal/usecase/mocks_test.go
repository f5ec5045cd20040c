//go:build !integration

package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/domain/ports/adapter"
	"agrolease-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- transaction manager ----

type memTxManager struct{}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// ---- payments ----

type memPaymentRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{byID: make(map[string]*model.Payment)}
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	return &cp
}

func (r *memPaymentRepo) Save(_ context.Context, _ repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clonePayment(p)
	return nil
}

func (r *memPaymentRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *memPaymentRepo) FindByReference(_ context.Context, _ repository.Tx, reference string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Reference == reference {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) FindByGatewayTxID(_ context.Context, _ repository.Tx, gatewayTxID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.GatewayTxID != nil && *p.GatewayTxID == gatewayTxID {
			return clonePayment(p), nil
		}
		if p.Meta.Gateway != nil && (p.Meta.Gateway.TxID == gatewayTxID || p.Meta.Gateway.Authority == gatewayTxID) {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPaymentRepo) ListBySubscriber(_ context.Context, _ repository.Tx, subscriberID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byID {
		if p.SubscriberID == subscriberID {
			out = append(out, clonePayment(p))
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListPendingOlderThan(_ context.Context, _ repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.byID {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, clonePayment(p))
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListValidatedAccessRightUnactivated(_ context.Context, _ repository.Tx, limit int) ([]*model.Payment, error) {
	// Parcel state lives in a different repo; tests drive the sweeper
	// directly, so the mock returns nothing.
	return nil, nil
}

func (r *memPaymentRepo) UpdateStatusIfPending(_ context.Context, _ repository.Tx, id string, upd repository.TerminalUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = upd.Status
	if upd.PaidAmount != nil {
		p.PaidAmount = upd.PaidAmount
	}
	if upd.ValidatedAt != nil {
		p.ValidatedAt = upd.ValidatedAt
	}
	if upd.GatewayTxID != nil {
		p.GatewayTxID = upd.GatewayTxID
	}
	p.Meta = upd.Meta
	return true, nil
}

func (r *memPaymentRepo) DecrementPaidIfCovered(_ context.Context, _ repository.Tx, id string, amount int64, meta model.PaymentMeta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusValidated || p.PaidAmount == nil || *p.PaidAmount < amount {
		return false, nil
	}
	remaining := *p.PaidAmount - amount
	p.PaidAmount = &remaining
	p.Meta = meta
	return true, nil
}

// ---- parcels ----

type memParcelRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Parcel

	activations int // how many times ActivateIfPending actually fired
}

func newMemParcelRepo() *memParcelRepo {
	return &memParcelRepo{byID: make(map[string]*model.Parcel)}
}

func (r *memParcelRepo) Save(_ context.Context, _ repository.Tx, p *model.Parcel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memParcelRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memParcelRepo) ListBySubscriber(_ context.Context, _ repository.Tx, subscriberID string) ([]*model.Parcel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Parcel
	for _, p := range r.byID {
		if p.SubscriberID == subscriberID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memParcelRepo) ActivateIfPending(_ context.Context, _ repository.Tx, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.ActivatedAreaHa >= p.AreaHa {
		return false, nil
	}
	p.ActivatedAreaHa = p.AreaHa
	p.ActivatedAt = &at
	p.Status = model.ParcelStatusActive
	r.activations++
	return true, nil
}

// ---- subscribers / offers ----

type memSubscriberRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Subscriber
}

func newMemSubscriberRepo() *memSubscriberRepo {
	return &memSubscriberRepo{byID: make(map[string]*model.Subscriber)}
}

func (r *memSubscriberRepo) Save(_ context.Context, _ repository.Tx, s *model.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = s
	return nil
}

func (r *memSubscriberRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

type memOfferRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Offer
}

func newMemOfferRepo() *memOfferRepo {
	return &memOfferRepo{byID: make(map[string]*model.Offer)}
}

func (r *memOfferRepo) Save(_ context.Context, _ repository.Tx, o *model.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[o.ID] = o
	return nil
}

func (r *memOfferRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// ---- transfers / refunds ----

type memTransferRepo struct {
	mu  sync.Mutex
	all []*model.Transfer
}

func newMemTransferRepo() *memTransferRepo { return &memTransferRepo{} }

func (r *memTransferRepo) Save(_ context.Context, _ repository.Tx, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, t)
	return nil
}

func (r *memTransferRepo) ListBySubscriber(_ context.Context, _ repository.Tx, subscriberID string) ([]*model.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Transfer
	for _, t := range r.all {
		if t.SourceID == subscriberID || t.DestID == subscriberID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memRefundRepo struct {
	mu  sync.Mutex
	all []*model.Refund
}

func newMemRefundRepo() *memRefundRepo { return &memRefundRepo{} }

func (r *memRefundRepo) Save(_ context.Context, _ repository.Tx, f *model.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, f)
	return nil
}

func (r *memRefundRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.all {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRefundRepo) ListByPayment(_ context.Context, _ repository.Tx, paymentID string) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, f := range r.all {
		if f.PaymentID == paymentID {
			out = append(out, f)
		}
	}
	return out, nil
}

// ---- webhook events ----

type memEventRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.WebhookEvent
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{byTx: make(map[string]*model.WebhookEvent)}
}

func (r *memEventRepo) Record(_ context.Context, _ repository.Tx, ev *model.WebhookEvent) (*model.WebhookEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byTx[ev.GatewayTxID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *ev
	r.byTx[ev.GatewayTxID] = &cp
	out := cp
	return &out, true, nil
}

func (r *memEventRepo) MarkProcessed(_ context.Context, _ repository.Tx, gatewayTxID string, paymentID *string, status *model.PaymentStatus, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.byTx[gatewayTxID]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	ev.Processed = true
	ev.ProcessedAt = &now
	if paymentID != nil {
		ev.PaymentID = paymentID
	}
	if status != nil {
		ev.ResultStatus = status
	}
	ev.Note = note
	return nil
}

func (r *memEventRepo) FindByTxID(_ context.Context, _ repository.Tx, gatewayTxID string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.byTx[gatewayTxID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

// ---- gateway ----

type fakeGateway struct {
	RequestFunc func(ctx context.Context, amount int64, description, callbackURL, reference string) (string, string, error)
	VerifyFunc  func(ctx context.Context, authority string, expectedAmount int64) (adapter.VerifyResult, error)
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL, reference string) (string, string, error) {
	if g.RequestFunc != nil {
		return g.RequestFunc(ctx, amount, description, callbackURL, reference)
	}
	return "auth-" + reference, "https://pay.invalid/" + reference, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (adapter.VerifyResult, error) {
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, authority, expectedAmount)
	}
	return adapter.VerifyResult{TxID: "tx-" + authority, Amount: expectedAmount, Method: "CARD"}, nil
}

// ---- locker ----

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]string)} }

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	token := fmt.Sprintf("tok-%d", len(l.held)+1)
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// ---- scheduler ----

// inlineScheduler runs submitted tasks synchronously so tests observe side
// effects without sleeping.
type inlineScheduler struct {
	submitted int
	err       error
}

func (s *inlineScheduler) Submit(task func(ctx context.Context) error) error {
	if s.err != nil {
		return s.err
	}
	s.submitted++
	return task(context.Background())
}
