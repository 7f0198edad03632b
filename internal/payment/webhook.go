package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request
// body, keyed by the shared webhook secret.
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBodyBytes = 256 << 10

// Webhook event types emitted by the payment provider.
const (
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.failed"
	EventCheckoutCompleted = "checkout.completed"
)

// Event is one asynchronous payment-outcome notification.
type Event struct {
	Type     string            `json:"type"`
	IntentID string            `json:"intent_id"`
	UserID   string            `json:"user_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Sink consumes verified webhook events.
type Sink func(ctx context.Context, event Event) error

// Webhook verifies and dispatches provider callbacks. Signature mismatch is
// a hard 400 rejection, never a silent accept.
type Webhook struct {
	secret []byte
	sink   Sink
}

// NewWebhook creates a Webhook handler with the shared secret and event sink.
func NewWebhook(secret []byte, sink Sink) *Webhook {
	return &Webhook{secret: secret, sink: sink}
}

// ServeHTTP implements http.Handler.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(rw, "read body", http.StatusBadRequest)
		return
	}

	if !w.verify(body, r.Header.Get(SignatureHeader)) {
		lg.Warn("Webhook signature mismatch, rejecting",
			zap.String("remote", r.RemoteAddr))
		http.Error(rw, "invalid signature", http.StatusBadRequest)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		lg.Warn("Webhook payload unparsable", zap.Error(err))
		http.Error(rw, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := w.sink(ctx, event); err != nil {
		lg.Error("Webhook event processing failed",
			zap.String("type", event.Type), zap.Error(err))
		http.Error(rw, "processing failed", http.StatusInternalServerError)
		return
	}

	lg.Info("Webhook event processed",
		zap.String("type", event.Type), zap.String("intent_id", event.IntentID))
	rw.WriteHeader(http.StatusOK)
}

// verify checks the hex HMAC-SHA256 signature against the raw body using a
// constant-time comparison to prevent timing side-channels.
func (w *Webhook) verify(body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expected, provided) == 1
}

// Sign computes the hex signature for a payload. Used by tests and tooling
// that emit provider-compatible events.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
