//go:build !integration

package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	cli, err := NewClient(&config.WalletConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, &logger)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return cli
}

func TestClient_CreateTransaction(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/paypal/sec-1" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["purchaseKey"] != "PPAP_100" {
			t.Errorf("purchaseKey = %q", body["purchaseKey"])
		}
		json.NewEncoder(w).Encode(map[string]string{"guid": "T-9"})
	})

	guid, err := cli.CreateTransaction(context.Background(), "sec-1", "PPAP_100")
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if guid != "T-9" {
		t.Fatalf("guid = %q, want T-9", guid)
	}
}

func TestClient_CreateTransactionRejectsEmptyGUID(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	if _, err := cli.CreateTransaction(context.Background(), "sec-1", "PPAP_100"); err == nil {
		t.Fatal("expected error for missing guid")
	}
}

func TestClient_UpdateTransaction(t *testing.T) {
	var got adapter.WalletTransactionStatus
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/transactions/sec-1/T-9" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	})

	status := adapter.WalletTransactionStatus{
		Action:   adapter.WalletActionCompleted,
		Response: adapter.WalletResponseFailed,
		Render:   "processor error 10417: try another card",
	}
	if err := cli.UpdateTransaction(context.Background(), "sec-1", "T-9", status); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if got.Action != 3024 || got.Response != 505 || got.Render == "" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_CreditBalance(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/wallets/sec-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["app"] != "PAYPAL" || body["points"] != float64(500) {
			t.Errorf("unexpected payload: %v", body)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := cli.CreditBalance(context.Background(), "sec-1", "T-9", 500); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
}

func TestClient_CreditBalanceSurfacesHTTPFailure(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if err := cli.CreditBalance(context.Background(), "sec-1", "T-9", 500); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestClient_GetPriceList(t *testing.T) {
	cli := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/pricepoints/paypal/us" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`[{"purchaseKey":"PPAP_100","points":500,"exactPrice":4.99},{"purchaseKey":"GOOG_100","points":500,"exactPrice":4.99}]`))
	})

	list, err := cli.GetPriceList(context.Background())
	if err != nil {
		t.Fatalf("GetPriceList: %v", err)
	}
	if len(list) != 2 || list[0].PurchaseKey != "PPAP_100" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
