package model

import "time"

// ProvisioningError records a detected inconsistency: the processor charge
// succeeded but crediting the wallet failed. It is never auto-retried;
// operators reconcile these by hand.
type ProvisioningError struct {
	ID                  string // record id (UUID)
	TransactionID       string // processor transaction id of the charge
	WalletTransactionID string
	UserID              string
	SecondaryID         string
	PurchaseKey         string
	Points              int
	ErrorCode           string
	ErrorMessage        string
	CreatedAt           time.Time
}
