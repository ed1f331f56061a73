package adapter

import (
	"context"

	"paypal-billing-orchestrator/internal/domain/model"
)

// Wallet transaction terminal-status codes understood by the wallet
// service's transaction-update endpoint.
const (
	WalletActionCompleted = 3024
	WalletResponseSuccess = 200
	WalletResponseFailed  = 505
)

// WalletTransactionStatus closes out a wallet-side transaction record.
type WalletTransactionStatus struct {
	Action   int    `json:"action"`
	Response int    `json:"response"`
	Render   string `json:"render,omitempty"`
}

// WalletGateway is the hex port for the internal wallet/ledger service,
// which owns balance truth.
type WalletGateway interface {
	// CreateTransaction opens a pending wallet transaction and returns
	// its guid.
	CreateTransaction(ctx context.Context, userID, purchaseKey string) (transactionID string, err error)
	// UpdateTransaction records the transaction's terminal status.
	UpdateTransaction(ctx context.Context, userID, transactionID string, status WalletTransactionStatus) error
	// CreditBalance grants the purchased points against transactionID.
	CreditBalance(ctx context.Context, userID, transactionID string, points int) error
	// GetPriceList fetches the full catalog from the price service.
	GetPriceList(ctx context.Context) ([]model.PricePoint, error)
}
