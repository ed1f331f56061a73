//go:build !integration

package paypal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*NVPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.PayPalConfig{}
	cfg.API.Endpoint = srv.URL
	cfg.API.UserID = "api-user"
	cfg.API.Password = "api-pass"
	cfg.API.Signature = "api-sig"
	cfg.Timeout = 5 * time.Second

	logger := zerolog.Nop()
	cli, err := NewNVPClient(cfg, &logger)
	if err != nil {
		t.Fatalf("NewNVPClient: %v", err)
	}
	return cli, srv
}

func parseForm(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	if err := r.ParseForm(); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return r.PostForm
}

func TestNVPClient_Authorize(t *testing.T) {
	var got url.Values
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = parseForm(t, r)
		w.Write([]byte("ACK=Success&TOKEN=EC-1&TIMESTAMP=2026-08-28T10%3A00%3A00Z"))
	})

	res, err := cli.Authorize(context.Background(), 4.99, "USD", "$4.99 authorization for auto-billing", `{"secondary_id":"sec-1"}`, "https://app/cancel", "https://app/return", "https://app/ipn")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if res.Token != "EC-1" {
		t.Fatalf("token = %q, want EC-1", res.Token)
	}

	checks := map[string]string{
		"METHOD":                         "SetExpressCheckout",
		"VERSION":                        versionCheckout,
		"USER":                           "api-user",
		"MAXAMT":                         "4.99",
		"PAYMENTREQUEST_0_AMT":           "4.99",
		"PAYMENTREQUEST_0_PAYMENTACTION": "AUTHORIZATION",
		"L_BILLINGTYPE0":                 billingType,
		"L_PAYMENTTYPE0":                 paymentTypeInstant,
		"RETURNURL":                      "https://app/return",
		"CANCELURL":                      "https://app/cancel",
	}
	for k, want := range checks {
		if got.Get(k) != want {
			t.Errorf("%s = %q, want %q", k, got.Get(k), want)
		}
	}
}

func TestNVPClient_FailureACKBecomesProcessorError(t *testing.T) {
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ACK=Failure&L_ERRORCODE0=10411&L_SHORTMESSAGE0=This+Express+Checkout+session+has+expired"))
	})

	_, err := cli.GetDetails(context.Background(), "EC-1")
	perr, ok := domain.AsProcessorError(err)
	if !ok {
		t.Fatalf("want ProcessorError, got %v", err)
	}
	if perr.Code != domain.ProcessorCodeTokenExpired {
		t.Fatalf("code = %q, want %q", perr.Code, domain.ProcessorCodeTokenExpired)
	}
}

func TestNVPClient_GetDetailsPayerSnapshot(t *testing.T) {
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		form := parseForm(t, r)
		if form.Get("METHOD") != "GetExpressCheckoutDetails" || form.Get("VERSION") != versionDetails {
			t.Errorf("unexpected call %s v%s", form.Get("METHOD"), form.Get("VERSION"))
		}
		w.Write([]byte("ACK=SuccessWithWarning&TOKEN=EC-1&CHECKOUTSTATUS=PaymentActionNotInitiated&BILLINGAGREEMENTACCEPTEDSTATUS=1&PAYERID=P-77&EMAIL=payer%40example.com&PAYERSTATUS=verified&COUNTRYCODE=US&FIRSTNAME=Pat&LASTNAME=Doe"))
	})

	d, err := cli.GetDetails(context.Background(), "EC-1")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if !d.AgreementAccepted {
		t.Fatal("expected accepted agreement")
	}
	if d.Payer.Email != "payer@example.com" || d.Payer.Name != "Pat Doe" {
		t.Fatalf("payer = %+v", d.Payer)
	}
}

func TestNVPClient_Charge(t *testing.T) {
	var got url.Values
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = parseForm(t, r)
		w.Write([]byte("ACK=Success&TRANSACTIONID=TXN-5&PAYMENTSTATUS=Completed&AMT=10.00&FEEAMT=0.59&CURRENCYCODE=USD&ORDERTIME=2026-08-28T10%3A05%3A00Z"))
	})

	res, err := cli.Charge(context.Background(), "B-1", 10.00, "T-9", "https://app/ipn/charge")
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if res.TransactionID != "TXN-5" || res.Status != "Completed" || res.Amount != 10.00 || res.Fee != 0.59 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got.Get("METHOD") != "DoReferenceTransaction" || got.Get("REFERENCEID") != "B-1" || got.Get("PAYMENTACTION") != "SALE" {
		t.Fatalf("unexpected request: %v", got)
	}
	if got.Get("CUSTOM") != "T-9" {
		t.Fatalf("tracking id = %q, want T-9", got.Get("CUSTOM"))
	}
}

func TestNVPClient_CancelAlreadyCanceled(t *testing.T) {
	cli, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		form := parseForm(t, r)
		if form.Get("BILLINGAGREEMENTSTATUS") != "Canceled" {
			t.Errorf("status = %q, want Canceled", form.Get("BILLINGAGREEMENTSTATUS"))
		}
		w.Write([]byte("ACK=Failure&L_ERRORCODE0=10201&L_SHORTMESSAGE0=Agreement+canceled"))
	})

	err := cli.Cancel(context.Background(), "B-1", "")
	perr, ok := domain.AsProcessorError(err)
	if !ok || perr.Code != domain.ProcessorCodeAgreementCanceled {
		t.Fatalf("want 10201 ProcessorError, got %v", err)
	}
}

func TestIPNVerifier(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"verified", "VERIFIED", true},
		{"invalid", "INVALID", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				form := parseForm(t, r)
				if form.Get("cmd") != "_notify-validate" {
					t.Errorf("cmd = %q", form.Get("cmd"))
				}
				if form.Get("txn_type") != "merch_pmt" {
					t.Errorf("payload not echoed back: %v", form)
				}
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cfg := &config.PayPalConfig{Timeout: 5 * time.Second}
			cfg.IPN.VerifyHost = srv.URL
			v := NewIPNVerifier(cfg)

			ok, err := v.Verify(context.Background(), map[string]string{"txn_type": "merch_pmt", "txn_id": "TXN-5"})
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("verified = %v, want %v", ok, tc.want)
			}
		})
	}
}
