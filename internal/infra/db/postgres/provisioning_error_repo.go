package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
	"paypal-billing-orchestrator/internal/infra/metrics"
)

var _ repository.ProvisioningErrorRepository = (*provisioningErrorRepo)(nil)

type provisioningErrorRepo struct{ pool *pgxpool.Pool }

func NewProvisioningErrorRepo(pool *pgxpool.Pool) *provisioningErrorRepo {
	return &provisioningErrorRepo{pool: pool}
}

const provErrColumns = `id, transaction_id, wallet_transaction_id, user_id, secondary_id, purchase_key, points, error_code, error_message, created_at`

func (r *provisioningErrorRepo) Save(ctx context.Context, tx repository.Tx, pe *model.ProvisioningError) error {
	const q = `
INSERT INTO provisioning_errors (` + provErrColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
);`
	if _, err := execSQL(ctx, r.pool, tx, q,
		pe.ID, pe.TransactionID, pe.WalletTransactionID, pe.UserID, pe.SecondaryID,
		pe.PurchaseKey, pe.Points, pe.ErrorCode, pe.ErrorMessage, pe.CreatedAt,
	); err != nil {
		return domain.ErrOperationFailed
	}
	metrics.IncProvisioningError()
	return nil
}

func (r *provisioningErrorRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.ProvisioningError, error) {
	const q = `SELECT ` + provErrColumns + ` FROM provisioning_errors ORDER BY created_at DESC LIMIT $1;`
	rows, err := pickRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ProvisioningError
	for rows.Next() {
		pe := &model.ProvisioningError{}
		if err := rows.Scan(
			&pe.ID, &pe.TransactionID, &pe.WalletTransactionID, &pe.UserID, &pe.SecondaryID,
			&pe.PurchaseKey, &pe.Points, &pe.ErrorCode, &pe.ErrorMessage, &pe.CreatedAt,
		); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, pe)
	}
	return out, rows.Err()
}
