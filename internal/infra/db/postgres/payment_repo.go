package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, billing_agreement_id, user_id, amount, fee, currency_code, points, wallet_transaction_id, status, pending_reason, reason_code, occurred_at, created_at`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	// A completion notification can outrun the synchronous flow and
	// leave a stub row behind (see UpsertStatus); the saga's save fills
	// in the detail columns. A status the reconciler already settled
	// stays in place.
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  billing_agreement_id=EXCLUDED.billing_agreement_id,
  user_id=EXCLUDED.user_id,
  amount=EXCLUDED.amount,
  fee=EXCLUDED.fee,
  currency_code=EXCLUDED.currency_code,
  points=EXCLUDED.points,
  wallet_transaction_id=EXCLUDED.wallet_transaction_id,
  status=CASE WHEN payments.status='Completed' THEN payments.status ELSE EXCLUDED.status END,
  pending_reason=EXCLUDED.pending_reason,
  reason_code=EXCLUDED.reason_code,
  occurred_at=EXCLUDED.occurred_at;`
	if _, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.BillingAgreementID, p.UserID, p.Amount, p.Fee, p.CurrencyCode,
		p.Points, p.WalletTransactionID, p.Status, p.PendingReason, p.ReasonCode,
		p.OccurredAt, p.CreatedAt,
	); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) UpsertStatus(ctx context.Context, tx repository.Tx, id, status string) error {
	// A notification can outrun the synchronous flow, so insert a stub
	// row when none exists yet. Re-delivered notifications hit the
	// status=EXCLUDED guard and change nothing.
	const q = `
INSERT INTO payments (` + paymentColumns + `) VALUES (
  $1,'','',0,0,'',0,'',$2,'','',NOW(),NOW()
) ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status
WHERE payments.status IS DISTINCT FROM EXCLUDED.status;`
	if _, err := execSQL(ctx, r.pool, tx, q, id, status); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListByAgreement(ctx context.Context, tx repository.Tx, agreementID string) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE billing_agreement_id=$1 ORDER BY created_at;`
	rows, err := pickRows(ctx, r.pool, tx, q, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(
		&p.ID, &p.BillingAgreementID, &p.UserID, &p.Amount, &p.Fee, &p.CurrencyCode,
		&p.Points, &p.WalletTransactionID, &p.Status, &p.PendingReason, &p.ReasonCode,
		&p.OccurredAt, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return p, nil
}
