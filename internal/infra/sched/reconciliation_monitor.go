package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/domain/ports/repository"
	"paypal-billing-orchestrator/internal/infra/metrics"
)

// ReconciliationMonitor periodically surfaces the state an operator has
// to act on: open provisioning errors (charged but not credited) and the
// mandate population per status. It never mutates anything.
type ReconciliationMonitor struct {
	interval  time.Duration
	mandates  repository.MandateRepository
	provision repository.ProvisioningErrorRepository
	log       *zerolog.Logger
}

func NewReconciliationMonitor(
	interval time.Duration,
	mandates repository.MandateRepository,
	provision repository.ProvisioningErrorRepository,
	logger *zerolog.Logger,
) *ReconciliationMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	monLog := logger.With().Str("component", "ReconciliationMonitor").Logger()
	return &ReconciliationMonitor{
		interval:  interval,
		mandates:  mandates,
		provision: provision,
		log:       &monLog,
	}
}

func (w *ReconciliationMonitor) Run(ctx context.Context) error {
	w.log.Info().Msg("starting reconciliation monitor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reconciliation monitor")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReconciliationMonitor) tick(ctx context.Context) {
	counts, err := w.mandates.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		w.log.Error().Err(err).Msg("mandate count failed")
	} else {
		for status, n := range counts {
			metrics.SetMandatesTotal(string(status), n)
		}
	}

	open, err := w.provision.ListOpen(ctx, repository.NoTX, 100)
	if err != nil {
		w.log.Error().Err(err).Msg("provisioning error scan failed")
		return
	}
	for _, pe := range open {
		w.log.Warn().
			Str("txn_id", pe.TransactionID).
			Str("wallet_tx", pe.WalletTransactionID).
			Str("user_id", pe.UserID).
			Int("points", pe.Points).
			Time("created_at", pe.CreatedAt).
			Msg("provisioning error awaiting manual remediation")
	}
}
