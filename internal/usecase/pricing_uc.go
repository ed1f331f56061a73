package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
)

// Compile-time check
var _ PricingUseCase = (*pricingUC)(nil)

// PriceCache is a time-bounded store of the filtered price list. The
// redis implementation lives in infra; tests use an in-memory fake.
type PriceCache interface {
	GetPriceList(ctx context.Context) (map[string]model.PricePoint, error)
	SetPriceList(ctx context.Context, prices map[string]model.PricePoint) error
}

type PricingUseCase interface {
	// Resolve maps a purchase key to its catalog entry, refreshing the
	// cache from the price service on miss. An absent key is a caller
	// error (ErrInvalidPurchaseKey), never a transient failure.
	Resolve(ctx context.Context, purchaseKey string) (*model.PricePoint, error)
}

type pricingUC struct {
	wallet adapter.WalletGateway
	cache  PriceCache
	log    *zerolog.Logger
}

func NewPricingUseCase(wallet adapter.WalletGateway, cache PriceCache, logger *zerolog.Logger) *pricingUC {
	return &pricingUC{wallet: wallet, cache: cache, log: logger}
}

func (u *pricingUC) Resolve(ctx context.Context, purchaseKey string) (*model.PricePoint, error) {
	if !model.PurchaseKeyPattern.MatchString(purchaseKey) {
		return nil, domain.ErrInvalidPurchaseKey
	}

	if prices, err := u.cache.GetPriceList(ctx); err == nil && prices != nil {
		if pp, ok := prices[purchaseKey]; ok {
			return &pp, nil
		}
		// A cached list that lacks the key is stale or the key is bogus;
		// fall through to a refresh before deciding.
	}

	list, err := u.wallet.GetPriceList(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]model.PricePoint, len(list))
	for _, pp := range list {
		if model.PurchaseKeyPattern.MatchString(pp.PurchaseKey) {
			prices[pp.PurchaseKey] = pp
		}
	}
	if err := u.cache.SetPriceList(ctx, prices); err != nil {
		u.log.Warn().Err(err).Msg("pricing: cache population failed")
	}

	if pp, ok := prices[purchaseKey]; ok {
		return &pp, nil
	}
	return nil, domain.ErrInvalidPurchaseKey
}
