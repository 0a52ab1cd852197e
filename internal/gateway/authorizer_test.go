package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-service/internal/gateway"
	"github.com/yourorg/checkout-service/internal/gateway/circuitbreaker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthorizer(endpoint string, cb *circuitbreaker.CircuitBreaker) *gateway.Authorizer {
	if cb == nil {
		cb = circuitbreaker.New(circuitbreaker.Config{})
	}
	return gateway.NewAuthorizer(gateway.Config{
		Endpoint: endpoint,
		APIKey:   "sk_test_123",
		Name:     "paypal",
	}, nil, cb, testLogger())
}

func TestAuthorize_Success(t *testing.T) {
	var gotAuth, gotIdem, gotContentType string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "ch_1", "status": "succeeded"}`))
	}))
	defer srv.Close()

	a := newAuthorizer(srv.URL, nil)
	res := a.Authorize(context.Background(), gateway.Request{
		OrderID:   "order-1",
		UserID:    "u-1",
		Amount:    5250,
		ItemCount: 3,
	})

	assert.Equal(t, gateway.Authorized, res.Outcome)
	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "order-1", gotIdem, "order id must be the idempotency key")
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, []string{"5250"}, gotForm["amount"])
	assert.Equal(t, []string{"usd"}, gotForm["currency"])
	assert.Equal(t, []string{"order-1"}, gotForm["metadata[order_id]"])
	assert.Equal(t, []string{"u-1"}, gotForm["metadata[user_id]"])
	assert.Equal(t, []string{"3"}, gotForm["metadata[item_count]"])
}

func TestAuthorize_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": {"type": "card_error", "code": "card_declined", "decline_code": "insufficient_funds", "message": "Your card has insufficient funds."}}`))
	}))
	defer srv.Close()

	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1})
	a := newAuthorizer(srv.URL, cb)
	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-2", Amount: 100})

	assert.Equal(t, gateway.Declined, res.Outcome)
	assert.Equal(t, "insufficient_funds", res.ErrorCode)
	assert.Equal(t, circuitbreaker.StateClosed, cb.GetState(),
		"a decline is a healthy gateway answer and must not trip the breaker")
}

func TestAuthorize_DeclineCodeInPlain400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": "card_declined", "message": "declined"}}`))
	}))
	defer srv.Close()

	a := newAuthorizer(srv.URL, nil)
	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-3", Amount: 100})
	assert.Equal(t, gateway.Declined, res.Outcome)
}

func TestAuthorize_UnavailableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1})
	a := newAuthorizer(srv.URL, cb)
	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-4", Amount: 100})

	assert.Equal(t, gateway.Unavailable, res.Outcome)
	assert.Equal(t, "GATEWAY_HTTP_502", res.ErrorCode)
	assert.Equal(t, circuitbreaker.StateOpen, cb.GetState())
}

func TestAuthorize_UnavailableOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := newAuthorizer(srv.URL, nil)
	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-5", Amount: 100})

	assert.Equal(t, gateway.Unavailable, res.Outcome)
	assert.Equal(t, "GATEWAY_NETWORK_ERROR", res.ErrorCode)
}

func TestAuthorize_SkippedWhenUnconfigured(t *testing.T) {
	a := newAuthorizer("", nil)

	assert.False(t, a.Configured())
	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-6", Amount: 100})
	assert.Equal(t, gateway.Skipped, res.Outcome)
}

func TestAuthorize_ShortCircuitsWhileOpen(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cb := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	a := newAuthorizer(srv.URL, cb)

	res := a.Authorize(context.Background(), gateway.Request{OrderID: "order-7", Amount: 100})
	require.Equal(t, gateway.Unavailable, res.Outcome)
	require.Equal(t, 1, calls)

	res = a.Authorize(context.Background(), gateway.Request{OrderID: "order-8", Amount: 100})
	assert.Equal(t, gateway.Unavailable, res.Outcome)
	assert.Equal(t, "CIRCUIT_OPEN", res.ErrorCode)
	assert.Equal(t, 1, calls, "open circuit must not touch the gateway")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "authorized", gateway.Authorized.String())
	assert.Equal(t, "declined", gateway.Declined.String())
	assert.Equal(t, "unavailable", gateway.Unavailable.String())
	assert.Equal(t, "skipped", gateway.Skipped.String())
}
