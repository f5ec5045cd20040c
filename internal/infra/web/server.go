package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"agrolease-billing/internal/usecase"
)

// Server exposes the billing API: payment initiation, the gateway webhook,
// arrears reporting, and the operator-only ledger operations.
type Server struct {
	paymentUC   usecase.PaymentUseCase
	accrualUC   usecase.AccrualUseCase
	ledgerUC    usecase.LedgerUseCase
	reconcileUC usecase.ReconcileUseCase
	auth        *AuthManager
	webhookKey  string
	log         *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	accrualUC usecase.AccrualUseCase,
	ledgerUC usecase.LedgerUseCase,
	reconcileUC usecase.ReconcileUseCase,
	auth *AuthManager,
	webhookKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC:   paymentUC,
		accrualUC:   accrualUC,
		ledgerUC:    ledgerUC,
		reconcileUC: reconcileUC,
		auth:        auth,
		webhookKey:  webhookKey,
		log:         logger,
	}
}

// Router builds the full route tree. Ledger operations sit behind the
// operator JWT; the webhook authenticates with its own HMAC signature.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/gateway", s.gatewayWebhookHandler())

		r.Post("/payments", s.paymentCreateHandler())
		r.Get("/payments/{reference}", s.paymentGetHandler())
		r.Get("/parcels/{id}/quote", s.quoteHandler())
		r.Get("/parcels/{id}/balance", s.parcelBalanceHandler())
		r.Get("/subscribers/{id}/arrears", s.arrearsHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.requireOperator)
			r.Post("/transfers", s.transferHandler())
			r.Post("/refunds", s.refundHandler())
			r.Post("/conversions", s.conversionHandler())
		})
	})

	return r
}

func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("operator auth is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
