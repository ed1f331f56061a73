package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

// Compile-time check
var _ MandateUseCase = (*mandateUC)(nil)

// Config carries the orchestrator's static wiring: processor redirect and
// IPN endpoints plus the single-mandate policy.
type MandateConfig struct {
	CurrencyCode     string
	RedirectBaseURL  string // payer approval URL, token appended
	MandateNotifyURL string // IPN endpoint for mandate lifecycle events
	ChargeNotifyURL  string // IPN endpoint for charge events
	MultipleMandates bool
}

// CreateMandateRequest is the caller's input for starting a preapproval.
type CreateMandateRequest struct {
	UserID      string
	SecondaryID string
	PurchaseKey string
	ReturnURL   string
	CancelURL   string
	Memo        string
}

// ActivationResult reports where the activation flow landed. RedirectURL
// is set when the payer still has to approve the mandate.
type ActivationResult struct {
	Status             model.MandateStatus
	BillingAgreementID string
	RedirectURL        string
}

type MandateUseCase interface {
	// Create establishes a mandate authorization with the processor and
	// persists it pending; returns the payer approval redirect.
	Create(ctx context.Context, req CreateMandateRequest) (redirectURL string, err error)
	// Activate materializes the billing agreement once the payer has
	// approved the mandate. Idempotent for already-active mandates.
	Activate(ctx context.Context, token string) (*ActivationResult, error)
	// Charge executes one reference transaction against an active
	// mandate. amount <= 0 charges the authorized ceiling.
	Charge(ctx context.Context, key string, amount float64) (*model.Payment, error)
	// Cancel revokes the mandate at the processor and locally; repeating
	// it is not an error.
	Cancel(ctx context.Context, key string) (model.MandateStatus, error)
	Get(ctx context.Context, key string) (*model.Mandate, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Mandate, error)
	// ListPayments returns the mandate's charge history, oldest first.
	ListPayments(ctx context.Context, key string) ([]*model.Payment, error)
}

type mandateUC struct {
	cfg       MandateConfig
	txm       repository.TransactionManager
	mandates  repository.MandateRepository
	payments  repository.PaymentRepository
	provision repository.ProvisioningErrorRepository
	processor adapter.ProcessorGateway
	wallet    adapter.WalletGateway
	rewards   adapter.RewardQueue
	pricing   PricingUseCase
	log       *zerolog.Logger
}

func NewMandateUseCase(
	cfg MandateConfig,
	txm repository.TransactionManager,
	mandates repository.MandateRepository,
	payments repository.PaymentRepository,
	provision repository.ProvisioningErrorRepository,
	processor adapter.ProcessorGateway,
	wallet adapter.WalletGateway,
	rewards adapter.RewardQueue,
	pricing PricingUseCase,
	logger *zerolog.Logger,
) *mandateUC {
	return &mandateUC{
		cfg:       cfg,
		txm:       txm,
		mandates:  mandates,
		payments:  payments,
		provision: provision,
		processor: processor,
		wallet:    wallet,
		rewards:   rewards,
		pricing:   pricing,
		log:       logger,
	}
}

func (u *mandateUC) Create(ctx context.Context, req CreateMandateRequest) (string, error) {
	if req.UserID == "" || req.SecondaryID == "" || req.ReturnURL == "" || req.CancelURL == "" {
		return "", domain.ErrInvalidArgument
	}

	if !u.cfg.MultipleMandates {
		open, err := u.mandates.FindOpenByUser(ctx, repository.NoTX, req.UserID)
		if err != nil {
			return "", fmt.Errorf("find open mandates: %w", err)
		}
		if len(open) > 0 {
			return "", domain.ErrMandateExists
		}
	}

	price, err := u.pricing.Resolve(ctx, req.PurchaseKey)
	if err != nil {
		return "", err
	}

	memo := req.Memo
	if memo == "" {
		memo = fmt.Sprintf("$%.2f authorization for auto-billing", price.ExactPrice)
	}
	custom := fmt.Sprintf(`{"secondary_id":%q}`, req.SecondaryID)

	auth, err := u.processor.Authorize(ctx, price.ExactPrice, u.cfg.CurrencyCode, memo, custom, req.CancelURL, req.ReturnURL, u.cfg.MandateNotifyURL)
	if err != nil {
		return "", fmt.Errorf("authorize mandate: %w", err)
	}

	m, err := model.NewMandate(auth.Token, req.UserID, req.SecondaryID, req.PurchaseKey, price.Points, price.ExactPrice, auth.Timestamp)
	if err != nil {
		return "", err
	}
	if err := u.mandates.Save(ctx, repository.NoTX, m); err != nil {
		return "", fmt.Errorf("save mandate: %w", err)
	}

	u.log.Info().Str("token", auth.Token).Str("user_id", req.UserID).
		Float64("max_amount", price.ExactPrice).Msg("mandate created")
	return u.cfg.RedirectBaseURL + auth.Token, nil
}

func (u *mandateUC) Activate(ctx context.Context, token string) (*ActivationResult, error) {
	m, err := u.mandates.FindByKey(ctx, repository.NoTX, token)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case model.MandateStatusActive:
		// Repeated activation (double click, browser back) is a no-op.
		return &ActivationResult{Status: m.Status, BillingAgreementID: m.BillingAgreementID}, nil
	case model.MandateStatusCancelled:
		return nil, domain.ErrMandateCancelled
	}

	details, err := u.processor.GetDetails(ctx, token)
	if err != nil {
		if pe, ok := domain.AsProcessorError(err); ok && pe.Code == domain.ProcessorCodeTokenExpired {
			// The token died at the processor; reflect that locally
			// instead of surfacing a hard error.
			if _, cErr := u.mandates.CancelByKey(ctx, repository.NoTX, token); cErr != nil {
				u.log.Error().Err(cErr).Str("token", token).Msg("cancel of expired mandate failed")
			}
			return &ActivationResult{Status: model.MandateStatusCancelled}, nil
		}
		return nil, fmt.Errorf("get mandate details: %w", err)
	}

	if !details.AgreementAccepted {
		// Payer has not approved yet; hand back the continuation URL.
		return &ActivationResult{
			Status:      model.MandateStatusPending,
			RedirectURL: u.cfg.RedirectBaseURL + token,
		}, nil
	}

	agreementID, err := u.processor.MaterializeAgreement(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("create billing agreement: %w", err)
	}

	payer := details.Payer
	matched, err := u.mandates.Activate(ctx, repository.NoTX, token, agreementID, &payer)
	if err != nil {
		return nil, fmt.Errorf("activate mandate: %w", err)
	}
	if matched == 0 {
		// Raced with an out-of-band transition; report whatever won.
		cur, err := u.mandates.FindByKey(ctx, repository.NoTX, token)
		if err != nil {
			return nil, err
		}
		return &ActivationResult{Status: cur.Status, BillingAgreementID: cur.BillingAgreementID}, nil
	}

	u.log.Info().Str("token", token).Str("agreement_id", agreementID).Msg("mandate activated")
	return &ActivationResult{Status: model.MandateStatusActive, BillingAgreementID: agreementID}, nil
}

func (u *mandateUC) Charge(ctx context.Context, key string, amount float64) (*model.Payment, error) {
	m, err := u.mandates.FindByKey(ctx, repository.NoTX, key)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MandateStatusActive {
		return nil, domain.ErrMandateNotActive
	}
	amount = m.ClampAmount(amount)
	chargeKey := m.ChargeKey()

	// Step 1: open the pending wallet transaction. A failure here aborts
	// the saga before any money moves.
	walletTxID, err := u.wallet.CreateTransaction(ctx, m.SecondaryID, m.PurchaseKey)
	if err != nil {
		return nil, &domain.ChargeError{Step: domain.StepWalletTransaction, Err: err}
	}

	// The wallet transaction exists from here on; whatever happens, its
	// terminal status is reported best-effort before returning.
	var chargeErr error
	var payment *model.Payment
	defer func() {
		status := adapter.WalletTransactionStatus{Action: adapter.WalletActionCompleted, Response: adapter.WalletResponseSuccess}
		if chargeErr != nil {
			status.Response = adapter.WalletResponseFailed
			status.Render = chargeErr.Error()
		}
		if uErr := u.wallet.UpdateTransaction(ctx, m.SecondaryID, walletTxID, status); uErr != nil {
			u.log.Warn().Err(uErr).Str("wallet_tx", walletTxID).Msg("wallet transaction close-out failed")
		}
	}()

	// Step 2: execute the reference transaction.
	res, err := u.processor.Charge(ctx, chargeKey, amount, walletTxID, u.cfg.ChargeNotifyURL)
	if err != nil {
		if pe, ok := domain.AsProcessorError(err); ok && pe.Code == domain.ProcessorCodeAgreementCanceled {
			// The agreement died at the processor; compensate the stale
			// local state before surfacing the failure.
			if _, cErr := u.mandates.CancelByKey(ctx, repository.NoTX, chargeKey); cErr != nil {
				u.log.Error().Err(cErr).Str("key", chargeKey).Msg("compensating cancel failed")
			}
		}
		chargeErr = &domain.ChargeError{Step: domain.StepProcessorCharge, Err: err}
		return nil, chargeErr
	}

	payment = &model.Payment{
		ID:                  res.TransactionID,
		BillingAgreementID:  chargeKey,
		UserID:              m.UserID,
		Amount:              res.Amount,
		Fee:                 res.Fee,
		CurrencyCode:        res.CurrencyCode,
		Points:              m.Points,
		WalletTransactionID: walletTxID,
		Status:              res.Status,
		PendingReason:       res.PendingReason,
		ReasonCode:          res.ReasonCode,
		OccurredAt:          res.OrderTime,
		CreatedAt:           time.Now(),
	}

	if !payment.Completed() {
		// The processor accepted the charge but did not settle it
		// synchronously. Persist the record so the notification stream
		// can finish it, and fail the operation: points are only granted
		// on confirmed settlement.
		if sErr := u.payments.Save(ctx, repository.NoTX, payment); sErr != nil {
			u.log.Error().Err(sErr).Str("txn_id", payment.ID).Msg("persist of unsettled payment failed")
		}
		chargeErr = &domain.ChargeError{
			Step: domain.StepProcessorCharge,
			Err:  &domain.ProcessorError{Code: res.ReasonCode, Message: "payment not completed: " + res.Status},
		}
		return nil, chargeErr
	}

	// Step 3: credit the wallet. The charge cannot be rolled back, so a
	// failure here is recorded for manual remediation instead of failing
	// the operation.
	if cErr := u.wallet.CreditBalance(ctx, m.SecondaryID, walletTxID, m.Points); cErr != nil {
		code, msg := "", cErr.Error()
		if pe, ok := domain.AsProcessorError(cErr); ok {
			code = pe.Code
		}
		pe := &model.ProvisioningError{
			ID:                  uuid.NewString(),
			TransactionID:       res.TransactionID,
			WalletTransactionID: walletTxID,
			UserID:              m.UserID,
			SecondaryID:         m.SecondaryID,
			PurchaseKey:         m.PurchaseKey,
			Points:              m.Points,
			ErrorCode:           code,
			ErrorMessage:        msg,
			CreatedAt:           time.Now(),
		}
		if sErr := u.provision.Save(ctx, repository.NoTX, pe); sErr != nil {
			u.log.Error().Err(sErr).Str("txn_id", res.TransactionID).Msg("provisioning error record lost")
		}
		u.log.Error().Err(cErr).Str("txn_id", res.TransactionID).Str("wallet_tx", walletTxID).
			Msg("wallet credit failed after successful charge")
	}

	// Step 4: persist the payment and advance the mandate counters in one
	// local transaction, so the record and the counters move together.
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Save(ctx, tx, payment); err != nil {
			return err
		}
		matched, err := u.mandates.RecordCharge(ctx, tx, chargeKey, payment.Amount)
		if err != nil {
			return err
		}
		if matched == 0 {
			u.log.Warn().Str("key", chargeKey).Msg("charge counters not advanced, mandate no longer active")
		}
		return nil
	})
	if err != nil {
		chargeErr = &domain.ChargeError{Step: domain.StepPersistPayment, Err: err}
		return nil, chargeErr
	}

	// Rewards start with the second successful charge. Fire-and-forget:
	// a queue failure never affects the already-completed charge.
	if m.CurrentChargeCount+1 > 1 {
		job := adapter.RewardJob{
			Vendor: "PAYPAL",
			GUID:   walletTxID,
			UserID: m.SecondaryID,
			Price: adapter.RewardPrice{
				PayPal:      1,
				Points:      m.Points,
				PurchaseKey: m.PurchaseKey,
			},
			Created: res.OrderTime.UTC().Format(time.RFC3339),
		}
		if qErr := u.rewards.PutReward(ctx, job); qErr != nil {
			u.log.Warn().Err(qErr).Str("wallet_tx", walletTxID).Msg("reward enqueue failed")
		}
	}

	u.log.Info().Str("txn_id", payment.ID).Str("key", chargeKey).
		Float64("amount", payment.Amount).Msg("mandate charged")
	return payment, nil
}

func (u *mandateUC) Cancel(ctx context.Context, key string) (model.MandateStatus, error) {
	if err := u.processor.Cancel(ctx, key, u.cfg.MandateNotifyURL); err != nil {
		pe, ok := domain.AsProcessorError(err)
		if !ok || pe.Code != domain.ProcessorCodeAgreementCanceled {
			return "", fmt.Errorf("cancel billing agreement: %w", err)
		}
		// Already cancelled at the processor: same terminal outcome.
	}

	// Local-wins: cancellation is terminal and safe to apply even when
	// the notification stream already did.
	if _, err := u.mandates.CancelByKey(ctx, repository.NoTX, key); err != nil {
		return "", fmt.Errorf("cancel mandate: %w", err)
	}
	u.log.Info().Str("key", key).Msg("mandate cancelled")
	return model.MandateStatusCancelled, nil
}

func (u *mandateUC) Get(ctx context.Context, key string) (*model.Mandate, error) {
	return u.mandates.FindByKey(ctx, repository.NoTX, key)
}

func (u *mandateUC) ListByUser(ctx context.Context, userID string) ([]*model.Mandate, error) {
	return u.mandates.FindOpenByUser(ctx, repository.NoTX, userID)
}

func (u *mandateUC) ListPayments(ctx context.Context, key string) ([]*model.Payment, error) {
	m, err := u.mandates.FindByKey(ctx, repository.NoTX, key)
	if err != nil {
		return nil, err
	}
	return u.payments.ListByAgreement(ctx, repository.NoTX, m.ChargeKey())
}
