package paypal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain"
	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.ProcessorGateway = (*NVPClient)(nil)

// ackSuccess matches the two ACK values the classic NVP API uses for a
// successful call. Anything else is a failure carrying L_ERRORCODE0.
var ackSuccess = regexp.MustCompile(`^Success(WithWarning)?$`)

const (
	versionCheckout = "86"
	versionDetails  = "97"

	billingType        = "MerchantInitiatedBillingSingleAgreement"
	paymentTypeInstant = "InstantOnly"
)

// NVPClient implements adapter.ProcessorGateway against PayPal's classic
// NVP API: SetExpressCheckout establishes the mandate, CreateBillingAgreement
// materializes it, DoReferenceTransaction charges it.
type NVPClient struct {
	endpoint  string
	user      string
	password  string
	signature string
	client    *http.Client
	log       *zerolog.Logger
}

func NewNVPClient(cfg *config.PayPalConfig, logger *zerolog.Logger) (*NVPClient, error) {
	if cfg.API.Endpoint == "" {
		return nil, errors.New("paypal endpoint empty")
	}
	if _, err := url.Parse(cfg.API.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid paypal endpoint: %w", err)
	}
	return &NVPClient{
		endpoint:  cfg.API.Endpoint,
		user:      cfg.API.UserID,
		password:  cfg.API.Password,
		signature: cfg.API.Signature,
		client:    &http.Client{Timeout: cfg.Timeout},
		log:       logger,
	}, nil
}

// call posts one NVP request and returns the decoded response values.
// A non-Success ACK is returned as *domain.ProcessorError.
func (c *NVPClient) call(ctx context.Context, method, version string, params url.Values) (url.Values, error) {
	form := url.Values{}
	form.Set("METHOD", method)
	form.Set("VERSION", version)
	form.Set("USER", c.user)
	form.Set("PWD", c.password)
	form.Set("SIGNATURE", c.signature)
	for k, vs := range params {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("paypal %s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paypal %s: http status %d", method, resp.StatusCode)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("paypal %s: decode response: %w", method, err)
	}

	if !ackSuccess.MatchString(values.Get("ACK")) {
		perr := &domain.ProcessorError{
			Code:    values.Get("L_ERRORCODE0"),
			Message: values.Get("L_SHORTMESSAGE0"),
		}
		c.log.Warn().Str("method", method).Str("code", perr.Code).Str("message", perr.Message).Msg("paypal: call failed")
		return values, perr
	}
	return values, nil
}

func (c *NVPClient) Authorize(ctx context.Context, amount float64, currencyCode, memo, custom, cancelURL, returnURL, notifyURL string) (*adapter.AuthorizationResult, error) {
	amt := fmt.Sprintf("%.2f", amount)
	params := url.Values{}
	params.Set("PAYMENTREQUEST_0_AMT", amt)
	params.Set("PAYMENTREQUEST_0_CURRENCYCODE", currencyCode)
	params.Set("PAYMENTREQUEST_0_PAYMENTACTION", "AUTHORIZATION")
	params.Set("PAYMENTREQUEST_0_CUSTOM", custom)
	params.Set("PAYMENTREQUEST_0_NOTIFYURL", notifyURL)
	params.Set("MAXAMT", amt)
	params.Set("L_BILLINGTYPE0", billingType)
	params.Set("L_BILLINGAGREEMENTDESCRIPTION0", memo)
	params.Set("L_PAYMENTTYPE0", paymentTypeInstant)
	params.Set("RETURNURL", returnURL)
	params.Set("CANCELURL", cancelURL)

	values, err := c.call(ctx, "SetExpressCheckout", versionCheckout, params)
	if err != nil {
		return nil, err
	}

	ts, _ := time.Parse(time.RFC3339, values.Get("TIMESTAMP"))
	return &adapter.AuthorizationResult{
		Token:     values.Get("TOKEN"),
		Timestamp: ts,
	}, nil
}

func (c *NVPClient) GetDetails(ctx context.Context, token string) (*adapter.MandateDetails, error) {
	params := url.Values{}
	params.Set("TOKEN", token)

	values, err := c.call(ctx, "GetExpressCheckoutDetails", versionDetails, params)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(values.Get("FIRSTNAME") + " " + values.Get("LASTNAME"))
	return &adapter.MandateDetails{
		Token:             values.Get("TOKEN"),
		CheckoutStatus:    values.Get("CHECKOUTSTATUS"),
		AgreementAccepted: values.Get("BILLINGAGREEMENTACCEPTEDSTATUS") == "1",
		Payer: model.Payer{
			ID:          values.Get("PAYERID"),
			Email:       values.Get("EMAIL"),
			Status:      values.Get("PAYERSTATUS"),
			CountryCode: values.Get("COUNTRYCODE"),
			Name:        name,
		},
	}, nil
}

func (c *NVPClient) MaterializeAgreement(ctx context.Context, token string) (string, error) {
	params := url.Values{}
	params.Set("TOKEN", token)

	values, err := c.call(ctx, "CreateBillingAgreement", versionCheckout, params)
	if err != nil {
		return "", err
	}
	agreementID := values.Get("BILLINGAGREEMENTID")
	if agreementID == "" {
		return "", fmt.Errorf("paypal CreateBillingAgreement: empty agreement id")
	}
	return agreementID, nil
}

func (c *NVPClient) Charge(ctx context.Context, agreementID string, amount float64, trackingID, notifyURL string) (*adapter.ChargeResult, error) {
	params := url.Values{}
	params.Set("REFERENCEID", agreementID)
	params.Set("AMT", fmt.Sprintf("%.2f", amount))
	params.Set("PAYMENTACTION", "SALE")
	params.Set("CUSTOM", trackingID)
	params.Set("NOTIFYURL", notifyURL)

	values, err := c.call(ctx, "DoReferenceTransaction", versionCheckout, params)
	if err != nil {
		return nil, err
	}

	amt, _ := strconv.ParseFloat(values.Get("AMT"), 64)
	fee, _ := strconv.ParseFloat(values.Get("FEEAMT"), 64)
	orderTime, _ := time.Parse(time.RFC3339, values.Get("ORDERTIME"))
	return &adapter.ChargeResult{
		TransactionID: values.Get("TRANSACTIONID"),
		Status:        values.Get("PAYMENTSTATUS"),
		Amount:        amt,
		Fee:           fee,
		CurrencyCode:  values.Get("CURRENCYCODE"),
		PendingReason: values.Get("PENDINGREASON"),
		ReasonCode:    values.Get("REASONCODE"),
		OrderTime:     orderTime,
	}, nil
}

func (c *NVPClient) Cancel(ctx context.Context, agreementID, notifyURL string) error {
	params := url.Values{}
	params.Set("REFERENCEID", agreementID)
	params.Set("BILLINGAGREEMENTSTATUS", "Canceled")
	if notifyURL != "" {
		params.Set("NOTIFYURL", notifyURL)
	}

	_, err := c.call(ctx, "BillAgreementUpdate", versionCheckout, params)
	return err
}
