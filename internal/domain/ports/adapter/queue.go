package adapter

import "context"

// RewardJob is the payload of a post-payment loyalty reward, consumed by
// the delayed-job worker fleet.
type RewardJob struct {
	Vendor  string      `json:"vendor"`
	GUID    string      `json:"guid"` // wallet transaction id
	UserID  string      `json:"userId"`
	Price   RewardPrice `json:"price"`
	Created string      `json:"created"`
}

type RewardPrice struct {
	PayPal      int    `json:"paypal"`
	Points      int    `json:"points"`
	PurchaseKey string `json:"purchaseKey"`
}

// RewardQueue is fire-and-forget job submission: enqueue failures are
// logged by the caller and never block a completed financial operation.
type RewardQueue interface {
	PutReward(ctx context.Context, job RewardJob) error
}
