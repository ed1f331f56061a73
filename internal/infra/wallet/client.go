package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.WalletGateway = (*Client)(nil)

// Client talks to the internal wallet service, which owns balance truth.
// All mutations are scoped to a wallet-side user id (the secondary id).
type Client struct {
	baseURL string
	client  *http.Client
	log     *zerolog.Logger
}

func NewClient(cfg *config.WalletConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("wallet base url empty")
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     logger,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wallet %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("wallet %s: http status %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("wallet %s: decode response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) CreateTransaction(ctx context.Context, userID, purchaseKey string) (string, error) {
	payload := map[string]string{"purchaseKey": purchaseKey}
	var res struct {
		GUID string `json:"guid"`
	}
	if err := c.post(ctx, "/1/paypal/"+userID, payload, &res); err != nil {
		return "", err
	}
	if res.GUID == "" {
		return "", errors.New("wallet: transaction created without guid")
	}
	return res.GUID, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, userID, transactionID string, status adapter.WalletTransactionStatus) error {
	return c.post(ctx, "/1/transactions/"+userID+"/"+transactionID, status, nil)
}

func (c *Client) CreditBalance(ctx context.Context, userID, transactionID string, points int) error {
	payload := map[string]interface{}{
		"app":    "PAYPAL",
		"points": points,
		"memo":   transactionID,
	}
	return c.post(ctx, "/1/wallets/"+userID, payload, nil)
}

func (c *Client) GetPriceList(ctx context.Context) ([]model.PricePoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/1/pricepoints/paypal/us", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet price list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallet price list: http status %d", resp.StatusCode)
	}
	var list []model.PricePoint
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("wallet price list: decode response: %w", err)
	}
	return list, nil
}
