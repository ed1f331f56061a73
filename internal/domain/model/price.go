package model

// PricePoint is one purchasable catalog entry resolved from the wallet
// service's price list.
type PricePoint struct {
	PurchaseKey string  `json:"purchaseKey"`
	Points      int     `json:"points"`
	ExactPrice  float64 `json:"exactPrice"`
}
