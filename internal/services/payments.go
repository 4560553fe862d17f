package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PaymentClient talks to the payment provider's REST API. The provider is
// opaque: we create checkout sessions and consume its webhooks, nothing more.
type PaymentClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewPaymentClient(apiURL string, apiKey string) *PaymentClient {
	return &PaymentClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type checkoutSessionRequest struct {
	CustomerEmail string `json:"customer_email"`
	PlanID        string `json:"plan_id"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
	ClientRef     string `json:"client_reference_id"`
}

type checkoutSessionResponse struct {
	URL string `json:"url"`
}

// CreateCheckoutSession returns the provider-hosted checkout URL.
func (p *PaymentClient) CreateCheckoutSession(email string, planID string, userID uint, baseURL string) (string, error) {
	if p.apiURL == "" {
		return "", fmt.Errorf("payment API is not configured")
	}

	payload := checkoutSessionRequest{
		CustomerEmail: email,
		PlanID:        planID,
		SuccessURL:    baseURL + "/billing/success",
		CancelURL:     baseURL + "/billing/cancel",
		ClientRef:     fmt.Sprintf("%d", userID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.apiURL+"/checkout/sessions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("payment API returned status %d", resp.StatusCode)
	}

	var session checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode checkout session: %w", err)
	}

	return session.URL, nil
}

// VerifyWebhookSignature checks the provider's "ts=...;h1=..." header:
// HMAC-SHA256 over "<ts>:<raw body>" with the shared webhook secret.
func VerifyWebhookSignature(secret string, header string, body []byte) bool {
	if secret == "" || header == "" {
		return false
	}

	var ts, h1 string
	for _, part := range strings.Split(header, ";") {
		if strings.HasPrefix(part, "ts=") {
			ts = strings.TrimPrefix(part, "ts=")
		} else if strings.HasPrefix(part, "h1=") {
			h1 = strings.TrimPrefix(part, "h1=")
		}
	}

	if ts == "" || h1 == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + ":" + string(body)))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(h1), []byte(expected))
}

// SignWebhookPayload produces the signature header VerifyWebhookSignature
// accepts. Used by tests and local tooling.
func SignWebhookPayload(secret string, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + ":" + string(body)))
	return "ts=" + ts + ";h1=" + hex.EncodeToString(mac.Sum(nil))
}
