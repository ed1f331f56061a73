package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/infra/logging"
	"paypal-billing-orchestrator/internal/infra/worker"
	"paypal-billing-orchestrator/internal/usecase"
)

// IPNVerifier confirms a notification payload's authenticity with the
// sender before the reconciler is allowed to trust it.
type IPNVerifier interface {
	Verify(ctx context.Context, payload map[string]string) (bool, error)
}

type Server struct {
	mandateUC usecase.MandateUseCase
	webhookUC usecase.WebhookUseCase
	verifier  IPNVerifier
	pool      *worker.Pool
	sandbox   bool
	verifyIPN bool
	log       *zerolog.Logger
}

func NewServer(
	mandateUC usecase.MandateUseCase,
	webhookUC usecase.WebhookUseCase,
	verifier IPNVerifier,
	pool *worker.Pool,
	sandbox, verifyIPN bool,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		mandateUC: mandateUC,
		webhookUC: webhookUC,
		verifier:  verifier,
		pool:      pool,
		sandbox:   sandbox,
		verifyIPN: verifyIPN,
		log:       logger,
	}
}

// Router builds the HTTP surface: mandate lifecycle under /1/paypal/reference,
// the IPN sink, and the operational endpoints.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/1/paypal", func(r chi.Router) {
		r.Route("/reference", func(r chi.Router) {
			r.Get("/user/{userID}", s.listMandatesHandler())
			r.Post("/user/{userID}", s.createMandateHandler())

			r.Get("/{key}", s.getMandateHandler())
			r.Get("/{key}/payments", s.listPaymentsHandler())
			r.Patch("/{key}", s.activateMandateHandler())
			r.Post("/{key}", s.chargeMandateHandler())
			r.Delete("/{key}", s.cancelMandateHandler())
		})
		r.Post("/ipn", s.ipnHandler())
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), chimw.GetReqID(r.Context()))
		r = r.WithContext(ctx)
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
