package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/infra/metrics"
	"paypal-billing-orchestrator/internal/usecase"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses. Charge failures keep
// their saga step so callers can tell "money not charged" apart from
// "money charged, wallet not credited".
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}

	var ce *domain.ChargeError
	if errors.As(err, &ce) {
		resp.Step = string(ce.Step)
	}
	if pe, ok := domain.AsProcessorError(err); ok {
		resp.Code = pe.Code
		resp.Message = pe.Message
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidPurchaseKey):
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, domain.ErrMandateExists), errors.Is(err, domain.ErrMandateNotActive),
		errors.Is(err, domain.ErrMandateCancelled), errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, resp)
	case ce != nil, resp.Code != "":
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

type createMandateRequest struct {
	SecondaryID string `json:"secondaryId"`
	PurchaseKey string `json:"purchaseKey"`
	ReturnURL   string `json:"returnUrl"`
	CancelURL   string `json:"cancelUrl"`
	Memo        string `json:"memo,omitempty"`
}

func (s *Server) createMandateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMandateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		redirectURL, err := s.mandateUC.Create(r.Context(), usecase.CreateMandateRequest{
			UserID:      chi.URLParam(r, "userID"),
			SecondaryID: req.SecondaryID,
			PurchaseKey: req.PurchaseKey,
			ReturnURL:   req.ReturnURL,
			CancelURL:   req.CancelURL,
			Memo:        req.Memo,
		})
		if err != nil {
			metrics.IncMandateOperation("create", operationStatus(err))
			writeError(w, err)
			return
		}
		metrics.IncMandateOperation("create", "ok")

		writeJSON(w, http.StatusCreated, struct {
			RedirectURL string `json:"redirectUrl"`
		}{redirectURL})
	}
}

func (s *Server) listMandatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mandates, err := s.mandateUC.ListByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data interface{} `json:"data"`
		}{mandates})
	}
}

func (s *Server) listPaymentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payments, err := s.mandateUC.ListPayments(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Data interface{} `json:"data"`
		}{payments})
	}
}

func (s *Server) getMandateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := s.mandateUC.Get(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) activateMandateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.mandateUC.Activate(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			metrics.IncMandateOperation("activate", operationStatus(err))
			writeError(w, err)
			return
		}
		metrics.IncMandateOperation("activate", "ok")
		writeJSON(w, http.StatusOK, struct {
			Status             string `json:"status"`
			BillingAgreementID string `json:"billingAgreementId,omitempty"`
			RedirectURL        string `json:"redirectUrl,omitempty"`
		}{string(res.Status), res.BillingAgreementID, res.RedirectURL})
	}
}

type chargeMandateRequest struct {
	Amount float64 `json:"amount,omitempty"` // 0 means the authorized ceiling
}

func (s *Server) chargeMandateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chargeMandateRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
				return
			}
		}

		start := time.Now()
		payment, err := s.mandateUC.Charge(r.Context(), chi.URLParam(r, "key"), req.Amount)
		if err != nil {
			metrics.IncCharge("failed")
			metrics.ObserveChargeDuration("failed", time.Since(start).Seconds())
			writeError(w, err)
			return
		}
		metrics.IncCharge("completed")
		metrics.ObserveChargeDuration("completed", time.Since(start).Seconds())
		metrics.AddChargeRevenue(payment.CurrencyCode, payment.Amount)

		writeJSON(w, http.StatusCreated, payment)
	}
}

func (s *Server) cancelMandateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := s.mandateUC.Cancel(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			metrics.IncMandateOperation("cancel", operationStatus(err))
			writeError(w, err)
			return
		}
		metrics.IncMandateOperation("cancel", "ok")
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{string(status)})
	}
}

func operationStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrMandateExists), errors.Is(err, domain.ErrMandateNotActive),
		errors.Is(err, domain.ErrMandateCancelled):
		return "conflict"
	default:
		return "error"
	}
}
