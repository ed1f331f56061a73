package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

var _ repository.MandateRepository = (*mandateRepo)(nil)

type mandateRepo struct{ pool *pgxpool.Pool }

func NewMandateRepo(pool *pgxpool.Pool) *mandateRepo {
	return &mandateRepo{pool: pool}
}

const mandateColumns = `id, billing_agreement_id, status, user_id, secondary_id, purchase_key, points, max_amount_per_charge, current_charge_count, current_charge_total, payer, valid_from, valid_until, created_at, updated_at`

func (r *mandateRepo) Save(ctx context.Context, tx repository.Tx, m *model.Mandate) error {
	payer, err := marshalPayer(m.Payer)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO mandates (` + mandateColumns + `) VALUES (
  $1,NULLIF($2,''),$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
) ON CONFLICT (id) DO UPDATE SET
  billing_agreement_id=NULLIF($2,''), status=$3, points=$7, max_amount_per_charge=$8,
  current_charge_count=$9, current_charge_total=$10, payer=$11,
  valid_from=$12, valid_until=$13, updated_at=NOW();`

	if _, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.BillingAgreementID, m.Status, m.UserID, m.SecondaryID, m.PurchaseKey,
		m.Points, m.MaxAmountPerCharge, m.CurrentChargeCount, m.CurrentChargeTotal,
		payer, m.ValidFrom, m.ValidUntil, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *mandateRepo) FindByKey(ctx context.Context, tx repository.Tx, key string) (*model.Mandate, error) {
	const q = `SELECT ` + mandateColumns + ` FROM mandates WHERE id=$1 OR billing_agreement_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	m, err := scanMandate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *mandateRepo) FindOpenByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Mandate, error) {
	const q = `SELECT ` + mandateColumns + ` FROM mandates WHERE user_id=$1 AND status IN ($2,$3) ORDER BY created_at;`
	rows, err := pickRows(ctx, r.pool, tx, q, userID, model.MandateStatusPending, model.MandateStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Activate performs the conditional PENDING -> ACTIVE transition; the
// status guard in the WHERE clause is what makes concurrent writers safe.
func (r *mandateRepo) Activate(ctx context.Context, tx repository.Tx, token, agreementID string, payer *model.Payer) (int64, error) {
	b, err := marshalPayer(payer)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
UPDATE mandates SET billing_agreement_id=$2, status=$3, payer=$4, updated_at=NOW()
WHERE id=$1 AND status=$5;`
	matched, err := execSQL(ctx, r.pool, tx, q, token, agreementID, model.MandateStatusActive, b, model.MandateStatusPending)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return matched, nil
}

func (r *mandateRepo) CancelByKey(ctx context.Context, tx repository.Tx, key string) (int64, error) {
	// Multi-row on purpose: a billing agreement id may appear on more
	// than one row after a retried creation.
	const q = `
UPDATE mandates SET status=$2, updated_at=NOW()
WHERE (id=$1 OR billing_agreement_id=$1) AND status<>$2;`
	matched, err := execSQL(ctx, r.pool, tx, q, key, model.MandateStatusCancelled)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return matched, nil
}

func (r *mandateRepo) ApplyUpdate(ctx context.Context, tx repository.Tx, key string, upd repository.MandateUpdate) (int64, error) {
	set := "updated_at=NOW()"
	args := []interface{}{key}
	n := 2

	arg := func(v interface{}) string {
		args = append(args, v)
		p := fmt.Sprintf("$%d", n)
		n++
		return p
	}

	// Forward-only guard: never touch terminal rows. Within the
	// non-terminal rows any allow-listed field may change; a re-delivered
	// ACTIVE update on an already-active mandate still applies the payer
	// and validity fields.
	where := fmt.Sprintf("(id=$1 OR billing_agreement_id=$1) AND status<>'%s'", model.MandateStatusCancelled)
	if upd.Status != nil {
		switch *upd.Status {
		case model.MandateStatusActive, model.MandateStatusCancelled:
		default:
			return 0, domain.ErrInvalidTransition
		}
		set += ", status=" + arg(*upd.Status)
	}
	if upd.PayerEmail != nil {
		set += ", payer=jsonb_set(COALESCE(payer,'{}'::jsonb),'{email}',to_jsonb(" + arg(*upd.PayerEmail) + "::text))"
	}
	if upd.ValidFrom != nil {
		set += ", valid_from=" + arg(*upd.ValidFrom)
	}
	if upd.ValidUntil != nil {
		set += ", valid_until=" + arg(*upd.ValidUntil)
	}

	q := "UPDATE mandates SET " + set + " WHERE " + where + ";"
	matched, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return matched, nil
}

func (r *mandateRepo) RecordCharge(ctx context.Context, tx repository.Tx, key string, amount float64) (int64, error) {
	// Counters only ever advance, and only on an active mandate.
	const q = `
UPDATE mandates SET
  current_charge_count=current_charge_count+1,
  current_charge_total=current_charge_total+$2,
  updated_at=NOW()
WHERE (id=$1 OR billing_agreement_id=$1) AND status=$3;`
	matched, err := execSQL(ctx, r.pool, tx, q, key, amount, model.MandateStatusActive)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	return matched, nil
}

func (r *mandateRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.MandateStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM mandates GROUP BY status;`
	rows, err := pickRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.MandateStatus]int)
	for rows.Next() {
		var status model.MandateStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func marshalPayer(p *model.Payer) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func scanMandate(row pgx.Row) (*model.Mandate, error) {
	m := &model.Mandate{}
	var agreementID *string
	var payer []byte
	if err := row.Scan(
		&m.ID, &agreementID, &m.Status, &m.UserID, &m.SecondaryID, &m.PurchaseKey,
		&m.Points, &m.MaxAmountPerCharge, &m.CurrentChargeCount, &m.CurrentChargeTotal,
		&payer, &m.ValidFrom, &m.ValidUntil, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if agreementID != nil {
		m.BillingAgreementID = *agreementID
	}
	if len(payer) > 0 {
		p := &model.Payer{}
		if err := json.Unmarshal(payer, p); err == nil {
			m.Payer = p
		}
	}
	return m, nil
}
