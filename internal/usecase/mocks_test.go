//go:build !integration

package usecase_test

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
	"paypal-billing-orchestrator/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// MockTxManager runs the callback without a real transaction.
type MockTxManager struct{}

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// MockMandateRepo is a small in-memory implementation used by unit tests.
type MockMandateRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Mandate // by token
	// failure injection
	SaveErr    error
	FindErr    error
	CancelFunc func(ctx context.Context, key string) (int64, error)
}

func NewMockMandateRepo() *MockMandateRepo {
	return &MockMandateRepo{store: make(map[string]*model.Mandate)}
}

func (m *MockMandateRepo) Save(ctx context.Context, tx repository.Tx, md *model.Mandate) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *md
	m.store[md.ID] = &cp
	return nil
}

func (m *MockMandateRepo) FindByKey(ctx context.Context, tx repository.Tx, key string) (*model.Mandate, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, md := range m.store {
		if md.ID == key || md.BillingAgreementID == key {
			cp := *md
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockMandateRepo) FindOpenByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Mandate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Mandate
	for _, md := range m.store {
		if md.UserID == userID && md.Status != model.MandateStatusCancelled {
			cp := *md
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockMandateRepo) Activate(ctx context.Context, tx repository.Tx, token, agreementID string, payer *model.Payer) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.store[token]
	if !ok || md.Status != model.MandateStatusPending {
		return 0, nil
	}
	md.Status = model.MandateStatusActive
	md.BillingAgreementID = agreementID
	cp := *payer
	md.Payer = &cp
	return 1, nil
}

func (m *MockMandateRepo) CancelByKey(ctx context.Context, tx repository.Tx, key string) (int64, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched int64
	for _, md := range m.store {
		if (md.ID == key || md.BillingAgreementID == key) && md.Status != model.MandateStatusCancelled {
			md.Status = model.MandateStatusCancelled
			matched++
		}
	}
	return matched, nil
}

func (m *MockMandateRepo) ApplyUpdate(ctx context.Context, tx repository.Tx, key string, upd repository.MandateUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched int64
	for _, md := range m.store {
		if md.ID != key && md.BillingAgreementID != key {
			continue
		}
		if md.Status.Terminal() {
			continue
		}
		if upd.Status != nil {
			if *upd.Status != md.Status && !md.Status.CanTransition(*upd.Status) {
				continue
			}
			md.Status = *upd.Status
		}
		if upd.PayerEmail != nil {
			if md.Payer == nil {
				md.Payer = &model.Payer{}
			}
			md.Payer.Email = *upd.PayerEmail
		}
		if upd.ValidFrom != nil {
			md.ValidFrom = *upd.ValidFrom
		}
		if upd.ValidUntil != nil {
			md.ValidUntil = *upd.ValidUntil
		}
		matched++
	}
	return matched, nil
}

func (m *MockMandateRepo) RecordCharge(ctx context.Context, tx repository.Tx, key string, amount float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, md := range m.store {
		if (md.ID == key || md.BillingAgreementID == key) && md.Status == model.MandateStatusActive {
			md.CurrentChargeCount++
			md.CurrentChargeTotal += amount
			return 1, nil
		}
	}
	return 0, nil
}

func (m *MockMandateRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.MandateStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[model.MandateStatus]int)
	for _, md := range m.store {
		counts[md.Status]++
	}
	return counts, nil
}

// get returns the stored mandate without copy, for assertions.
func (m *MockMandateRepo) get(token string) *model.Mandate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store[token]
}

// MockPaymentRepo stores payments by processor transaction id.
type MockPaymentRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Payment
	statuses map[string]string // txn id -> upserted status
	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	// UpsertCalls counts UpsertStatus invocations that changed state.
	UpsertCalls int
}

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.Payment), statuses: make(map[string]string)}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if prev, ok := m.store[p.ID]; ok && prev.Status == "Completed" {
		// A completion notification got here first; keep its verdict.
		cp.Status = prev.Status
	}
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) UpsertStatus(ctx context.Context, tx repository.Tx, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses[id] != status {
		m.statuses[id] = status
		if p, ok := m.store[id]; ok {
			p.Status = status
		} else {
			m.store[id] = &model.Payment{ID: id, Status: status}
		}
		m.UpsertCalls++
	}
	return nil
}

func (m *MockPaymentRepo) ListByAgreement(ctx context.Context, tx repository.Tx, agreementID string) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.BillingAgreementID == agreementID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockProvisioningRepo records provisioning errors.
type MockProvisioningRepo struct {
	mu      sync.Mutex
	records []*model.ProvisioningError
}

func NewMockProvisioningRepo() *MockProvisioningRepo { return &MockProvisioningRepo{} }

func (m *MockProvisioningRepo) Save(ctx context.Context, tx repository.Tx, pe *model.ProvisioningError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pe
	m.records = append(m.records, &cp)
	return nil
}

func (m *MockProvisioningRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.ProvisioningError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.ProvisioningError(nil), m.records...), nil
}

// MockNotificationLog appends notifications to a slice.
type MockNotificationLog struct {
	mu        sync.Mutex
	entries   []*model.Notification
	AppendErr error
}

func NewMockNotificationLog() *MockNotificationLog { return &MockNotificationLog{} }

func (m *MockNotificationLog) Append(ctx context.Context, tx repository.Tx, n *model.Notification) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MockNotificationLog) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Notification(nil), m.entries...), nil
}

// MockProcessorGateway simulates the payment processor; each method has
// an overridable Func field with a success default.
type MockProcessorGateway struct {
	AuthorizeFunc   func(ctx context.Context, amount float64, currencyCode, memo, custom, cancelURL, returnURL, notifyURL string) (*adapter.AuthorizationResult, error)
	GetDetailsFunc  func(ctx context.Context, token string) (*adapter.MandateDetails, error)
	MaterializeFunc func(ctx context.Context, token string) (string, error)
	ChargeFunc      func(ctx context.Context, agreementID string, amount float64, trackingID, notifyURL string) (*adapter.ChargeResult, error)
	CancelFunc      func(ctx context.Context, agreementID, notifyURL string) error
}

func (m *MockProcessorGateway) Authorize(ctx context.Context, amount float64, currencyCode, memo, custom, cancelURL, returnURL, notifyURL string) (*adapter.AuthorizationResult, error) {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, amount, currencyCode, memo, custom, cancelURL, returnURL, notifyURL)
	}
	return &adapter.AuthorizationResult{Token: "EC-1"}, nil
}

func (m *MockProcessorGateway) GetDetails(ctx context.Context, token string) (*adapter.MandateDetails, error) {
	if m.GetDetailsFunc != nil {
		return m.GetDetailsFunc(ctx, token)
	}
	return &adapter.MandateDetails{
		Token:             token,
		AgreementAccepted: true,
		Payer:             model.Payer{ID: "PAYER-1", Email: "payer@example.com", Status: "verified", CountryCode: "CA", Name: "John Doe"},
	}, nil
}

func (m *MockProcessorGateway) MaterializeAgreement(ctx context.Context, token string) (string, error) {
	if m.MaterializeFunc != nil {
		return m.MaterializeFunc(ctx, token)
	}
	return "B-1", nil
}

func (m *MockProcessorGateway) Charge(ctx context.Context, agreementID string, amount float64, trackingID, notifyURL string) (*adapter.ChargeResult, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, agreementID, amount, trackingID, notifyURL)
	}
	return &adapter.ChargeResult{
		TransactionID: "TXN-5",
		Status:        "Completed",
		Amount:        amount,
		Fee:           0.59,
		CurrencyCode:  "USD",
	}, nil
}

func (m *MockProcessorGateway) Cancel(ctx context.Context, agreementID, notifyURL string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, agreementID, notifyURL)
	}
	return nil
}

// MockWalletGateway simulates the wallet service and records the
// transaction status updates it receives.
type MockWalletGateway struct {
	mu                    sync.Mutex
	CreateTransactionFunc func(ctx context.Context, userID, purchaseKey string) (string, error)
	CreditBalanceFunc     func(ctx context.Context, userID, transactionID string, points int) error
	GetPriceListFunc      func(ctx context.Context) ([]model.PricePoint, error)
	StatusUpdates         []adapter.WalletTransactionStatus
}

func (m *MockWalletGateway) CreateTransaction(ctx context.Context, userID, purchaseKey string) (string, error) {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, userID, purchaseKey)
	}
	return "T-9", nil
}

func (m *MockWalletGateway) UpdateTransaction(ctx context.Context, userID, transactionID string, status adapter.WalletTransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockWalletGateway) CreditBalance(ctx context.Context, userID, transactionID string, points int) error {
	if m.CreditBalanceFunc != nil {
		return m.CreditBalanceFunc(ctx, userID, transactionID, points)
	}
	return nil
}

func (m *MockWalletGateway) GetPriceList(ctx context.Context) ([]model.PricePoint, error) {
	if m.GetPriceListFunc != nil {
		return m.GetPriceListFunc(ctx)
	}
	return []model.PricePoint{{PurchaseKey: "PPAP_100", Points: 500, ExactPrice: 4.99}}, nil
}

// MockRewardQueue records enqueued reward jobs.
type MockRewardQueue struct {
	mu      sync.Mutex
	Jobs    []adapter.RewardJob
	PutFunc func(ctx context.Context, job adapter.RewardJob) error
}

func (m *MockRewardQueue) PutReward(ctx context.Context, job adapter.RewardJob) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs = append(m.Jobs, job)
	return nil
}

// fakePriceCache is an in-memory PriceCache.
type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]model.PricePoint
	sets   int
}

func newFakePriceCache() *fakePriceCache { return &fakePriceCache{} }

func (c *fakePriceCache) GetPriceList(ctx context.Context) (map[string]model.PricePoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prices == nil {
		return nil, nil
	}
	out := make(map[string]model.PricePoint, len(c.prices))
	for k, v := range c.prices {
		out[k] = v
	}
	return out, nil
}

func (c *fakePriceCache) SetPriceList(ctx context.Context, prices map[string]model.PricePoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices = prices
	c.sets++
	return nil
}
