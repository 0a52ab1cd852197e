// Package gateway requests payment authorization from the configured external
// charge provider and classifies the outcome. This is the step with the
// richest failure surface: the provider is a third party outside this
// system's control, so a definitive decline, a transport failure, and an
// unconfigured gateway are all distinct, deliberately handled outcomes.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/checkout-service/internal/gateway/circuitbreaker"
)

// Outcome classifies an authorization attempt.
type Outcome int

const (
	// Authorized means the gateway accepted the charge.
	Authorized Outcome = iota
	// Declined means the gateway definitively refused the charge. Terminal;
	// a declined customer is never fulfilled.
	Declined
	// Unavailable means a transport failure, timeout, or unexpected gateway
	// response. Whether the checkout aborts or degrades is a policy decision
	// taken by the controller.
	Unavailable
	// Skipped means no gateway is configured and authorization was bypassed
	// by explicit policy (degraded mode).
	Skipped
)

// String returns the outcome label used in logs and policy rules.
func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case Declined:
		return "declined"
	case Unavailable:
		return "unavailable"
	default:
		return "skipped"
	}
}

// Request carries the charge details and the order metadata the gateway needs
// for traceability and idempotency.
type Request struct {
	OrderID   string
	UserID    string
	Amount    int64 // minor currency units
	ItemCount int
}

// Result is the classified outcome of one authorization attempt.
type Result struct {
	Outcome      Outcome
	HTTPStatus   int
	ErrorCode    string
	ErrorMessage string
	LatencyMs    int64
}

// Config identifies the external gateway. An empty Endpoint selects degraded
// mode: Authorize returns Skipped without issuing any request.
type Config struct {
	Endpoint string
	APIKey   string
	Name     string // metric/log label, e.g. "paypal"
	Currency string // settlement currency, lowercase ISO code
	Timeout  time.Duration
}

const defaultTimeout = 5 * time.Second

// errorResponse is the decline/error body shape charge providers return.
type errorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

// Authorizer issues authorization requests and classifies responses.
type Authorizer struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewAuthorizer creates an Authorizer. A nil http.Client gets a bounded
// default; the breaker and logger are required.
func NewAuthorizer(cfg Config, httpClient *http.Client, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *Authorizer {
	if breaker == nil {
		panic("circuit breaker cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Authorizer{cfg: cfg, httpClient: httpClient, breaker: breaker, logger: logger}
}

// Configured reports whether a real gateway is set up.
func (a *Authorizer) Configured() bool {
	return a.cfg.Endpoint != ""
}

// Name returns the gateway label used for metrics and logs.
func (a *Authorizer) Name() string {
	if a.cfg.Name == "" {
		return "unconfigured"
	}
	return a.cfg.Name
}

// buildPayload creates the form-encoded charge request. Amount is already in
// minor units; the order id, user id, and item count travel as metadata so
// the gateway side can trace and deduplicate.
func buildPayload(req Request, currency string) url.Values {
	payload := url.Values{}
	payload.Set("amount", strconv.FormatInt(req.Amount, 10))
	payload.Set("currency", strings.ToLower(currency))
	payload.Set("description", fmt.Sprintf("Checkout order %s", req.OrderID))
	payload.Set("metadata[order_id]", req.OrderID)
	payload.Set("metadata[user_id]", req.UserID)
	payload.Set("metadata[item_count]", strconv.Itoa(req.ItemCount))
	return payload
}

// Authorize requests authorization for the given charge. It never returns an
// error: every failure mode maps onto an Outcome the controller can apply its
// failure policy to.
func (a *Authorizer) Authorize(ctx context.Context, req Request) Result {
	if !a.Configured() {
		a.logger.Warn("payment authorization skipped, no gateway configured",
			"orderid", req.OrderID)
		return Result{Outcome: Skipped}
	}

	if !a.breaker.AllowRequest() {
		return Result{
			Outcome:      Unavailable,
			ErrorCode:    "CIRCUIT_OPEN",
			ErrorMessage: fmt.Sprintf("circuit open for gateway %s", a.Name()),
		}
	}

	start := time.Now()
	body := strings.NewReader(buildPayload(req, a.cfg.Currency).Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, body)
	if err != nil {
		return Result{
			Outcome:      Unavailable,
			ErrorCode:    "REQUEST_BUILD_ERROR",
			ErrorMessage: err.Error(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	httpReq.Header.Set("Idempotency-Key", req.OrderID)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.breaker.RecordFailure()
		a.logger.Error("gateway call failed", "gateway", a.Name(), "orderid", req.OrderID, "error", err.Error())
		return Result{
			Outcome:      Unavailable,
			ErrorCode:    "GATEWAY_NETWORK_ERROR",
			ErrorMessage: err.Error(),
			LatencyMs:    time.Since(start).Milliseconds(),
		}
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	latency := time.Since(start).Milliseconds()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		a.breaker.RecordSuccess()
		a.logger.Info("payment authorized", "gateway", a.Name(), "orderid", req.OrderID, "status", resp.StatusCode)
		return Result{Outcome: Authorized, HTTPStatus: resp.StatusCode, LatencyMs: latency}
	}

	if declined, code, msg := classifyDecline(resp.StatusCode, bodyBytes); declined {
		// A decline is a definitive answer from a healthy gateway.
		a.breaker.RecordSuccess()
		a.logger.Info("payment declined", "gateway", a.Name(), "orderid", req.OrderID, "code", code)
		return Result{
			Outcome:      Declined,
			HTTPStatus:   resp.StatusCode,
			ErrorCode:    code,
			ErrorMessage: msg,
			LatencyMs:    latency,
		}
	}

	a.breaker.RecordFailure()
	a.logger.Error("unexpected gateway response", "gateway", a.Name(), "orderid", req.OrderID, "status", resp.StatusCode)
	return Result{
		Outcome:      Unavailable,
		HTTPStatus:   resp.StatusCode,
		ErrorCode:    fmt.Sprintf("GATEWAY_HTTP_%d", resp.StatusCode),
		ErrorMessage: fmt.Sprintf("gateway returned HTTP %d", resp.StatusCode),
		LatencyMs:    latency,
	}
}

// classifyDecline distinguishes a definitive refusal from other failures.
// 402 always means declined; otherwise a 4xx carrying a decline code in the
// error body counts.
func classifyDecline(status int, body []byte) (bool, string, string) {
	var er errorResponse
	_ = json.Unmarshal(body, &er)

	code := er.Error.Code
	if er.Error.DeclineCode != "" {
		code = er.Error.DeclineCode
	}

	if status == http.StatusPaymentRequired {
		if code == "" {
			code = "payment_required"
		}
		return true, code, er.Error.Message
	}
	if status >= 400 && status < 500 && (er.Error.DeclineCode != "" || er.Error.Code == "card_declined") {
		return true, code, er.Error.Message
	}
	return false, "", ""
}
