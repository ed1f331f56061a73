package repository

import (
	"context"

	"paypal-billing-orchestrator/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// UpsertStatus records a terminal status reported out of band, keyed
	// by processor transaction id. Inserts a stub row when the
	// synchronous flow never persisted one; a repeat delivery with the
	// same status is a no-op.
	UpsertStatus(ctx context.Context, tx Tx, id, status string) error
	ListByAgreement(ctx context.Context, tx Tx, agreementID string) ([]*model.Payment, error)
}

// -----------------------------
// Provisioning errors
// -----------------------------

type ProvisioningErrorRepository interface {
	Save(ctx context.Context, tx Tx, pe *model.ProvisioningError) error
	ListOpen(ctx context.Context, tx Tx, limit int) ([]*model.ProvisioningError, error)
}
