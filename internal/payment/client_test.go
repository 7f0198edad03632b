package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntent_Success(t *testing.T) {
	var gotAuth string
	var gotReq IntentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"clientSecret": "pi_123_secret_abc"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test"})
	intent, err := c.CreateIntent(context.Background(), IntentRequest{
		Amount:      5950,
		Currency:    "usd",
		Description: "storefront order",
		Metadata:    map[string]string{"user_id": "u1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, int64(5950), gotReq.Amount, "amount stays in minor units on the wire")
	assert.Equal(t, "usd", gotReq.Currency)
}

func TestCreateIntent_ProviderMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": {"message": "Your card was declined."}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.CreateIntent(context.Background(), IntentRequest{Amount: 100, Currency: "usd"})
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusPaymentRequired, provErr.Status)
	assert.Equal(t, "Your card was declined.", provErr.Message, "the provider's own message is shown verbatim")
}

func TestCreateIntent_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.CreateIntent(context.Background(), IntentRequest{Amount: 100, Currency: "usd"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "payment calls must never retry")
}

func TestCreateIntent_MissingClientSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.CreateIntent(context.Background(), IntentRequest{Amount: 100, Currency: "usd"})
	assert.Error(t, err)
}
