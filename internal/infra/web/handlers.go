package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agrolease-billing/internal/domain"
	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/usecase"
)

// paymentResponse is the wire shape for a payment; internal meta stays out.
type paymentResponse struct {
	ID              string     `json:"id"`
	Reference       string     `json:"reference"`
	SubscriberID    string     `json:"subscriber_id"`
	ParcelID        *string    `json:"parcel_id,omitempty"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	RequestedAmount int64      `json:"requested_amount"`
	PaidAmount      *int64     `json:"paid_amount,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID,
		Reference:       p.Reference,
		SubscriberID:    p.SubscriberID,
		ParcelID:        p.ParcelID,
		Kind:            string(p.Kind),
		Status:          string(p.Status),
		RequestedAmount: p.RequestedAmount,
		PaidAmount:      p.PaidAmount,
		CreatedAt:       p.CreatedAt,
		ValidatedAt:     p.ValidatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain failures onto HTTP statuses. Validation rejections
// are 4xx with the message exposed; everything else is an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case usecase.IsValidationError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrLockNotAcquired):
		http.Error(w, "operation in progress, retry later", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type paymentCreateRequest struct {
	SubscriberID string  `json:"subscriber_id"`
	ParcelID     *string `json:"parcel_id,omitempty"`
	Kind         string  `json:"kind"`   // access_right | recurring
	Amount       int64   `json:"amount"` // ignored for access_right, which is quoted server-side
}

func (s *Server) paymentCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req paymentCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		kind := model.PaymentKind(req.Kind)
		amount := req.Amount
		if kind == model.PaymentKindAccessRight {
			if req.ParcelID == nil {
				http.Error(w, "parcel_id is required for access_right payments", http.StatusBadRequest)
				return
			}
			quoted, err := s.paymentUC.QuoteAccessRight(ctx, *req.ParcelID)
			if err != nil {
				writeError(w, err)
				return
			}
			amount = quoted
		}

		p, payURL, err := s.paymentUC.Initiate(ctx, req.SubscriberID, req.ParcelID, kind, amount)
		if err != nil {
			writeError(w, err)
			return
		}

		response := struct {
			Payment paymentResponse `json:"payment"`
			PayURL  string          `json:"pay_url"`
		}{
			Payment: toPaymentResponse(p),
			PayURL:  payURL,
		}
		writeJSON(w, http.StatusCreated, response)
	}
}

func (s *Server) paymentGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := chi.URLParam(r, "reference")
		if reference == "" {
			http.Error(w, "payment reference is required", http.StatusBadRequest)
			return
		}

		// ConfirmAuto re-verifies pending payments against the gateway on
		// read, so the caller polling this endpoint after redirect sees the
		// final status without waiting for the webhook.
		p, err := s.paymentUC.ConfirmAuto(r.Context(), reference)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func (s *Server) quoteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parcelID := chi.URLParam(r, "id")
		amount, err := s.paymentUC.QuoteAccessRight(r.Context(), parcelID)
		if err != nil {
			writeError(w, err)
			return
		}

		response := struct {
			ParcelID string `json:"parcel_id"`
			Amount   int64  `json:"amount"`
		}{ParcelID: parcelID, Amount: amount}
		writeJSON(w, http.StatusOK, response)
	}
}

type balanceResponse struct {
	ParcelID      string `json:"parcel_id"`
	Owed          int64  `json:"owed"`
	Paid          int64  `json:"paid"`
	Net           int64  `json:"net"`
	DaysOfDelay   int    `json:"days_of_delay,omitempty"`
	DaysOfAdvance int    `json:"days_of_advance,omitempty"`
}

func toBalanceResponse(b model.Balance) balanceResponse {
	return balanceResponse{
		ParcelID:      b.ParcelID,
		Owed:          b.Owed,
		Paid:          b.Paid,
		Net:           b.Net,
		DaysOfDelay:   b.DaysOfDelay,
		DaysOfAdvance: b.DaysOfAdvance,
	}
}

func (s *Server) parcelBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parcelID := chi.URLParam(r, "id")
		b, err := s.accrualUC.ParcelBalance(r.Context(), parcelID, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBalanceResponse(b))
	}
}

func (s *Server) arrearsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriberID := chi.URLParam(r, "id")
		summary, err := s.accrualUC.Summary(r.Context(), subscriberID, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}

		perParcel := make([]balanceResponse, 0, len(summary.PerParcel))
		for _, b := range summary.PerParcel {
			perParcel = append(perParcel, toBalanceResponse(b))
		}
		response := struct {
			SubscriberID  string            `json:"subscriber_id"`
			OwedTotal     int64             `json:"owed_total"`
			PaidTotal     int64             `json:"paid_total"`
			NetTotal      int64             `json:"net_total"`
			AdvanceCredit int64             `json:"advance_credit"`
			Parcels       []balanceResponse `json:"parcels"`
		}{
			SubscriberID:  summary.SubscriberID,
			OwedTotal:     summary.OwedTotal,
			PaidTotal:     summary.PaidTotal,
			NetTotal:      summary.NetTotal,
			AdvanceCredit: summary.AdvanceCredit(),
			Parcels:       perParcel,
		}
		writeJSON(w, http.StatusOK, response)
	}
}

type transferRequest struct {
	SourceID string `json:"source_id"`
	DestID   string `json:"dest_id"`
	Amount   int64  `json:"amount"`
	Memo     string `json:"memo,omitempty"`
}

func (s *Server) transferHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		credit, err := s.ledgerUC.Transfer(r.Context(), req.SourceID, req.DestID, req.Amount, req.Memo)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPaymentResponse(credit))
	}
}

type refundRequest struct {
	PaymentID  string `json:"payment_id"`
	Amount     int64  `json:"amount"`
	Mode       string `json:"mode"` // PAYA | CARD
	AccountRef string `json:"account_ref,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func (s *Server) refundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		refund, err := s.ledgerUC.Refund(r.Context(), req.PaymentID, req.Amount, model.RefundMode(req.Mode), req.AccountRef, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}

		response := struct {
			ID          string `json:"id"`
			PaymentID   string `json:"payment_id"`
			Amount      int64  `json:"amount"`
			Mode        string `json:"mode"`
			Fulfillment string `json:"fulfillment"`
		}{
			ID:          refund.ID,
			PaymentID:   refund.PaymentID,
			Amount:      refund.Amount,
			Mode:        string(refund.Mode),
			Fulfillment: string(refund.Fulfillment),
		}
		writeJSON(w, http.StatusCreated, response)
	}
}

type conversionRequest struct {
	SubscriberID string `json:"subscriber_id"`
	PeriodKind   string `json:"period_kind"` // day|week|month|quarter|semester|year
	PeriodCount  int    `json:"period_count"`
}

func (s *Server) conversionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req conversionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		settled, err := s.ledgerUC.ConvertBalance(r.Context(), req.SubscriberID, model.PeriodKind(req.PeriodKind), req.PeriodCount)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientCredit) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPaymentResponse(settled))
	}
}
