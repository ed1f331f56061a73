package paypal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"paypal-billing-orchestrator/internal/config"
)

// IPNVerifier confirms a notification's authenticity by posting the
// payload back to the sender with cmd=_notify-validate. Only a VERIFIED
// response means the payload can be trusted.
type IPNVerifier struct {
	host   string
	client *http.Client
}

func NewIPNVerifier(cfg *config.PayPalConfig) *IPNVerifier {
	return &IPNVerifier{
		host:   cfg.IPN.VerifyHost,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify posts the notification payload back unchanged. The returned bool
// is true only for a VERIFIED response; INVALID yields (false, nil) and
// transport failures yield (false, err).
func (v *IPNVerifier) Verify(ctx context.Context, payload map[string]string) (bool, error) {
	form := url.Values{}
	form.Set("cmd", "_notify-validate")
	for k, val := range payload {
		form.Set(k, val)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.host, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ipn verify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return false, fmt.Errorf("ipn verify: read body: %w", err)
	}
	return strings.TrimSpace(string(body)) == "VERIFIED", nil
}
