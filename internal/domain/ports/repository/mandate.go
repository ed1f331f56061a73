package repository

import (
	"context"

	"paypal-billing-orchestrator/internal/domain/model"
)

// MandateUpdate is the allow-listed set of fields an out-of-band
// notification may apply to a mandate. Nil fields are left untouched.
type MandateUpdate struct {
	Status     *model.MandateStatus
	PayerEmail *string
	ValidFrom  *string
	ValidUntil *string
}

// MandateRepository is the port for preapproval/billing-agreement records.
//
// All status-bearing writes are conditional: they only match rows whose
// current status permits the transition, so a late writer can never move
// a mandate backwards through its lifecycle. Methods that return a
// matched count let callers detect the no-op case.
type MandateRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Mandate) error
	// FindByKey resolves a mandate by either its token or its billing
	// agreement id (the lookup key migrates at activation).
	FindByKey(ctx context.Context, tx Tx, key string) (*model.Mandate, error)
	// FindOpenByUser returns the user's non-cancelled mandates.
	FindOpenByUser(ctx context.Context, tx Tx, userID string) ([]*model.Mandate, error)

	// Activate transitions PENDING -> ACTIVE, recording the billing
	// agreement id and the payer snapshot. Returns the number of rows
	// matched (0 means the mandate was not pending anymore).
	Activate(ctx context.Context, tx Tx, token, agreementID string, payer *model.Payer) (int64, error)
	// CancelByKey cancels every non-cancelled mandate matching key as
	// token or billing agreement id. Multi-row on purpose: a billing id
	// can appear on more than one row after a retried creation.
	CancelByKey(ctx context.Context, tx Tx, key string) (int64, error)
	// ApplyUpdate applies an allow-listed notification update; it no-ops
	// on rows already in a terminal state.
	ApplyUpdate(ctx context.Context, tx Tx, key string, upd MandateUpdate) (int64, error)
	// RecordCharge increments the charge counters of an active mandate.
	RecordCharge(ctx context.Context, tx Tx, key string, amount float64) (int64, error)
	// CountByStatus reports how many mandates currently sit in each status.
	CountByStatus(ctx context.Context, tx Tx) (map[model.MandateStatus]int, error)
}
