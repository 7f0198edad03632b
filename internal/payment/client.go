// Package payment integrates the external payment provider: synchronous
// intent creation and the asynchronous signed webhook callback. Unlike the
// catalog path, payment errors are surfaced, never masked: correctness beats
// availability at the money boundary.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBodyBytes = 64 << 10

// IntentRequest describes the charge to create. Amount is in minor currency
// units, matching the provider's wire contract.
type IntentRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Intent is the provider's response to a successful creation.
type Intent struct {
	ClientSecret string `json:"clientSecret"`
}

// ProviderError carries the provider's own message so it can be shown to the
// user verbatim.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Config holds the payment client configuration.
type Config struct {
	// BaseURL is the payment provider root.
	BaseURL string
	// SecretKey authenticates outbound provider calls.
	SecretKey string
}

// Client creates payment intents against the provider.
type Client struct {
	http *retryablehttp.Client
	cfg  Config
}

// NewClient builds a Client. Payment calls are deliberately not retried: a
// retry could double-charge, so failures propagate to the caller instead.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.HTTPClient.Transport = otelhttp.NewTransport(http.DefaultTransport)

	return &Client{http: rc, cfg: cfg}
}

// CreateIntent asks the provider to create a payment intent. Provider-side
// rejections come back as *ProviderError with the provider's message intact.
func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode intent request")
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build intent request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	// The provider dedupes on this key, so a request duplicated at the
	// network layer cannot charge twice.
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "payment provider request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, providerError(resp)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, errors.Wrap(err, "decode intent response")
	}
	if intent.ClientSecret == "" {
		return nil, errors.New("payment provider returned no client secret")
	}
	return &intent, nil
}

// providerError extracts the provider's error message from a non-2xx
// response. The provider wraps messages as {"error": {"message": "..."}};
// anything else falls back to a generic status line.
func providerError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return &ProviderError{Status: resp.StatusCode, Message: envelope.Error.Message}
	}

	return &ProviderError{
		Status:  resp.StatusCode,
		Message: "payment provider rejected the request (" + resp.Status + ")",
	}
}
