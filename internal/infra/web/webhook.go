package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"agrolease-billing/internal/domain/model"
	"agrolease-billing/internal/infra/gateway"
)

// gatewayWebhookPayload is the collector's notification shape.
type gatewayWebhookPayload struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	Fees          int64  `json:"fees"`
	Source        string `json:"source"` // payment method
	Data          struct {
		Reference string `json:"reference"`
		PaymentID string `json:"paiement_id"`
	} `json:"data"`
	PerformedAt string `json:"performed_at"` // RFC3339
}

// gatewayWebhookHandler ingests one gateway delivery. Deliveries are
// at-least-once: anything the reconciler handled, including "payment not
// found", is acknowledged with 200 so the gateway stops retrying. Only
// transport-level problems (bad signature, unreadable body, storage errors)
// are non-2xx and provoke a redelivery.
func (s *Server) gatewayWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}

		var payload gatewayWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			s.log.Warn().Err(err).Msg("webhook: malformed payload")
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		sigData := map[string]string{
			"amount":        strconv.FormatInt(payload.Amount, 10),
			"transactionId": payload.TransactionID,
			"status":        payload.Status,
		}
		if !gateway.VerifyWebhookSignature(s.webhookKey, sigData, r.Header.Get("X-Signature")) {
			s.log.Warn().Str("gateway_tx_id", payload.TransactionID).Msg("webhook: bad signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		ev := model.GatewayEvent{
			TransactionID: payload.TransactionID,
			Status:        model.GatewayEventStatus(payload.Status),
			Amount:        payload.Amount,
			Fees:          payload.Fees,
			Method:        payload.Source,
			Reference:     payload.Data.Reference,
			PaymentID:     payload.Data.PaymentID,
		}
		if payload.PerformedAt != "" {
			if at, err := time.Parse(time.RFC3339, payload.PerformedAt); err == nil {
				ev.OccurredAt = &at
			}
		}

		result, err := s.reconcileUC.Reconcile(r.Context(), body, ev)
		if err != nil {
			// Not acknowledged; the gateway will redeliver and the event log
			// dedups the retry.
			s.log.Error().Err(err).Str("gateway_tx_id", ev.TransactionID).Msg("webhook: reconcile failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		response := struct {
			PaymentID string `json:"payment_id,omitempty"`
			Status    string `json:"status,omitempty"`
			Duplicate bool   `json:"duplicate,omitempty"`
			Note      string `json:"note,omitempty"`
		}{
			PaymentID: result.PaymentID,
			Status:    string(result.Status),
			Duplicate: result.Duplicate,
			Note:      result.Note,
		}
		writeJSON(w, http.StatusOK, response)
	}
}
