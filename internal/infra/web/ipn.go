package web

import (
	"context"
	"net/http"

	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/infra/metrics"
	"paypal-billing-orchestrator/internal/infra/worker"
)

// ipnHandler is the processor's notification sink. The contract with the
// sender is acknowledge-on-durable-receipt: the payload is appended to
// the notification log and 200 is written immediately; verification and
// dispatch happen on the worker pool afterwards.
func (s *Server) ipnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		payload := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			payload[k] = r.PostForm.Get(k)
		}

		// Simulator traffic is only acceptable against the sandbox.
		if payload["test_ipn"] == "1" && !s.sandbox {
			s.log.Warn().Msg("ipn: test notification rejected outside sandbox")
			http.Error(w, "test notification rejected", http.StatusForbidden)
			return
		}

		n, err := s.webhookUC.Ingest(r.Context(), payload)
		if err != nil {
			// Not durably logged, so do not acknowledge; the sender retries.
			s.log.Error().Err(err).Msg("ipn: ingest failed")
			http.Error(w, "ingest failed", http.StatusInternalServerError)
			return
		}
		metrics.IncNotificationReceived(n.TxnType)
		w.WriteHeader(http.StatusOK)

		if err := s.pool.Submit(s.dispatchTask(n)); err != nil {
			s.log.Error().Err(err).Str("notification_id", n.ID).Msg("ipn: dispatch submit failed")
		}
	}
}

func (s *Server) dispatchTask(n *model.Notification) worker.Task {
	return func(ctx context.Context) error {
		if s.verifyIPN {
			ok, err := s.verifier.Verify(ctx, n.Payload)
			if err != nil {
				metrics.IncNotificationVerify("error")
				metrics.IncNotificationProcessed(n.TxnType, "error")
				return err
			}
			if !ok {
				metrics.IncNotificationVerify("invalid")
				metrics.IncNotificationProcessed(n.TxnType, "skipped")
				s.log.Warn().Str("notification_id", n.ID).Msg("ipn: payload failed postback verification")
				return nil
			}
			metrics.IncNotificationVerify("verified")
		}

		if err := s.webhookUC.Process(ctx, n); err != nil {
			metrics.IncNotificationProcessed(n.TxnType, "error")
			return err
		}
		metrics.IncNotificationProcessed(n.TxnType, "ok")
		return nil
	}
}
