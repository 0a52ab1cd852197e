// Package checkout sequences one purchase end to end: identity resolution,
// cart validation, order id assignment, payment authorization, order
// publication, optional history recording, and cart release. There is no
// shared transaction across the collaborators; each transition has its own
// failure policy and every classified failure is counted, logged, and
// returned to the caller immediately.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/checkout-service/internal/cart"
	"github.com/yourorg/checkout-service/internal/gateway"
	"github.com/yourorg/checkout-service/internal/metrics"
	"github.com/yourorg/checkout-service/internal/policy"
	"github.com/yourorg/checkout-service/internal/reporting"
	"github.com/yourorg/checkout-service/internal/users"
)

// State is the position of one checkout traversal. One checkout is one
// traversal; nothing persists across requests.
type State int

const (
	StateStart State = iota
	StateIdentityChecked
	StateCartValidated
	StateOrderIDAssigned
	StatePaymentAuthorized
	StateOrderPublished
	StateHistoryRecorded
	StateCartCleared
	StateSucceeded
	StateAborted
)

var stateNames = map[State]string{
	StateStart:             "start",
	StateIdentityChecked:   "identity_checked",
	StateCartValidated:     "cart_validated",
	StateOrderIDAssigned:   "order_id_assigned",
	StatePaymentAuthorized: "payment_authorized",
	StateOrderPublished:    "order_published",
	StateHistoryRecorded:   "history_recorded",
	StateCartCleared:       "cart_cleared",
	StateSucceeded:         "succeeded",
	StateAborted:           "aborted",
}

// String returns the state label used in logs.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Order is the immutable record handed to the fulfillment pipeline. The order
// id is the causal root of every downstream side effect: it is generated
// exactly once per checkout, before any of them fire.
type Order struct {
	OrderID string    `json:"orderid"`
	UserID  string    `json:"user"`
	Cart    cart.Cart `json:"cart"`
}

// Error is a classified checkout failure. Type matches the failure-by-type
// metric label; OrderID is set when the failure happened after id assignment.
type Error struct {
	Type       string
	HTTPStatus int
	Message    string
	OrderID    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout: %s: %v", e.Message, e.Err)
	}
	return "checkout: " + e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IdentityResolver classifies the caller as registered or anonymous.
type IdentityResolver interface {
	Check(ctx context.Context, userID string) (users.Status, error)
}

// HistoryRecorder appends a completed order to a registered user's history.
type HistoryRecorder interface {
	RecordOrder(ctx context.Context, userID, orderID string, crt cart.Cart) error
}

// CartReleaser empties the user's cart after a successful purchase.
type CartReleaser interface {
	DeleteCart(ctx context.Context, userID string) error
}

// Authorizer requests payment authorization and classifies the outcome.
type Authorizer interface {
	Authorize(ctx context.Context, req gateway.Request) gateway.Result
	Configured() bool
	Name() string
}

// OrderPublisher hands an order to the fulfillment transport. The call must
// not return nil unless the order is durably queued.
type OrderPublisher interface {
	Publish(ctx context.Context, order Order) error
}

// FailurePolicy decides whether a checkout proceeds after a gateway failure.
type FailurePolicy interface {
	Evaluate(outcome string, amount int64) (policy.Decision, error)
}

// Deps are the collaborators a Controller sequences.
type Deps struct {
	Identity   IdentityResolver
	History    HistoryRecorder
	Carts      CartReleaser
	Authorizer Authorizer
	Publisher  OrderPublisher
	Policy     FailurePolicy
	Metrics    *metrics.Registry
	Journal    *reporting.Journal
	Logger     *slog.Logger
}

// Controller owns the checkout request lifecycle.
type Controller struct {
	deps Deps
}

// NewController creates a Controller. All collaborators are required.
func NewController(deps Deps) *Controller {
	if deps.Identity == nil {
		panic("identity resolver cannot be nil")
	}
	if deps.History == nil {
		panic("history recorder cannot be nil")
	}
	if deps.Carts == nil {
		panic("cart releaser cannot be nil")
	}
	if deps.Authorizer == nil {
		panic("authorizer cannot be nil")
	}
	if deps.Publisher == nil {
		panic("order publisher cannot be nil")
	}
	if deps.Policy == nil {
		panic("failure policy cannot be nil")
	}
	if deps.Metrics == nil {
		panic("metrics registry cannot be nil")
	}
	if deps.Journal == nil {
		panic("journal cannot be nil")
	}
	if deps.Logger == nil {
		panic("logger cannot be nil")
	}
	return &Controller{deps: deps}
}

// Result is the terminal outcome of a successful checkout.
type Result struct {
	OrderID string
	State   State
}

// traversal is the per-request state of one checkout. It lives on the stack
// of Process; concurrent checkouts share nothing but the metrics registry.
type traversal struct {
	state    State
	userID   string
	cart     cart.Cart
	orderID  string
	identity users.Status
	gateway  string
}

// minorUnits converts a decimal currency amount to minor units for the
// gateway.
func minorUnits(total float64) int64 {
	return int64(math.Round(total * 100))
}

// Process runs one checkout traversal. On success the returned Result carries
// the order id; on failure the error is always a *Error with the classified
// type and HTTP status. Duration is recorded and the in-flight gauge is
// released on every path.
func (c *Controller) Process(ctx context.Context, userID string, crt cart.Cart) (Result, error) {
	tracer := otel.Tracer("checkout")
	ctx, span := tracer.Start(ctx, "Checkout.Process")
	defer span.End()

	start := time.Now()
	m := c.deps.Metrics
	m.ActivePayments.Inc()
	defer func() {
		m.Duration.Observe(time.Since(start).Seconds())
		m.ActivePayments.Dec()
	}()

	t := &traversal{state: StateStart, userID: userID, cart: crt}
	c.deps.Logger.Info("payment requested", "user", userID, "total", crt.Total)

	// Identity resolution. A guest is a normal outcome; only transport or
	// server failures abort.
	status, err := c.deps.Identity.Check(ctx, userID)
	if err != nil {
		return Result{}, c.fail(t, metrics.ErrorTypeUserService, http.StatusBadGateway, "user service error", err)
	}
	t.identity = status
	t.state = StateIdentityChecked

	if err := cart.Validate(crt); err != nil {
		return Result{}, c.fail(t, metrics.ErrorTypeInvalidCart, http.StatusBadRequest, "cart not valid", err)
	}
	t.state = StateCartValidated

	// The order id must exist before any side effect that depends on it.
	t.orderID = uuid.NewString()
	t.state = StateOrderIDAssigned
	span.SetAttributes(attribute.String("checkout.orderid", t.orderID))
	c.deps.Logger.Info("order id assigned", "orderid", t.orderID, "user", userID, "identity", status.String())

	if cerr := c.authorize(ctx, t); cerr != nil {
		return Result{}, cerr
	}
	t.state = StatePaymentAuthorized

	order := Order{OrderID: t.orderID, UserID: userID, Cart: crt}
	if err := c.deps.Publisher.Publish(ctx, order); err != nil {
		return Result{}, c.fail(t, metrics.ErrorTypePublish, http.StatusInternalServerError, "order publish error", err)
	}
	t.state = StateOrderPublished
	c.deps.Logger.Info("order published", "orderid", t.orderID, "user", userID)

	// History is written for registered users only; skipping it for guests is
	// a conditional transition, not a failure.
	if status == users.Registered {
		if err := c.deps.History.RecordOrder(ctx, userID, t.orderID, crt); err != nil {
			return Result{}, c.fail(t, metrics.ErrorTypeUserService, http.StatusInternalServerError, "order history update error", err)
		}
		t.state = StateHistoryRecorded
	}

	if err := c.deps.Carts.DeleteCart(ctx, userID); err != nil {
		// Accepted inconsistency window: the order is durably published but
		// the cart was not cleared. Logged distinctly so operators can tell
		// this apart from a pre-publish failure.
		c.deps.Logger.Error("order published, cart not cleared", "orderid", t.orderID, "user", userID, "error", err.Error())
		return Result{}, c.fail(t, metrics.ErrorTypeCartService, http.StatusInternalServerError, "cart delete error", err)
	}
	t.state = StateCartCleared

	units := cart.UnitCount(crt)
	m.Sold.Add(float64(units))
	m.UnitsSold.Observe(float64(units))
	m.CartValue.Observe(crt.Total)
	m.Requests.WithLabelValues(metrics.StatusSuccess).Inc()

	t.state = StateSucceeded
	c.deps.Journal.Append(reporting.LogEntry{
		Timestamp: time.Now(),
		OrderID:   t.orderID,
		UserID:    userID,
		Status:    reporting.StatusSuccess,
		Units:     units,
		Total:     crt.Total,
		Gateway:   t.gateway,
	})
	c.deps.Logger.Info("payment succeeded", "orderid", t.orderID, "user", userID, "units", units)

	return Result{OrderID: t.orderID, State: StateSucceeded}, nil
}

// authorize runs the gateway step and applies the failure policy to its
// outcome. A nil return means the checkout proceeds.
func (c *Controller) authorize(ctx context.Context, t *traversal) error {
	m := c.deps.Metrics
	if c.deps.Authorizer.Configured() {
		t.gateway = c.deps.Authorizer.Name()
	}

	res := c.deps.Authorizer.Authorize(ctx, gateway.Request{
		OrderID:   t.orderID,
		UserID:    t.userID,
		Amount:    minorUnits(t.cart.Total),
		ItemCount: cart.UnitCount(t.cart),
	})

	switch res.Outcome {
	case gateway.Authorized:
		return nil

	case gateway.Skipped:
		m.GatewayFallback.Inc()
		return nil

	case gateway.Declined:
		decision, perr := c.deps.Policy.Evaluate(res.Outcome.String(), minorUnits(t.cart.Total))
		if perr == nil && decision.Proceed {
			m.GatewayFallback.Inc()
			c.deps.Logger.Warn("proceeding despite declined authorization", "orderid", t.orderID, "reason", decision.Reason)
			return nil
		}
		return c.fail(t, metrics.ErrorTypeDeclined, http.StatusPaymentRequired, "payment declined",
			fmt.Errorf("gateway declined: %s", res.ErrorCode))

	default: // gateway.Unavailable
		m.GatewayErrors.WithLabelValues(c.deps.Authorizer.Name()).Inc()
		decision, perr := c.deps.Policy.Evaluate(res.Outcome.String(), minorUnits(t.cart.Total))
		if perr != nil {
			c.deps.Logger.Error("failure policy evaluation error", "orderid", t.orderID, "error", perr.Error())
		} else if decision.Proceed {
			m.GatewayFallback.Inc()
			c.deps.Logger.Warn("gateway unavailable, proceeding in degraded mode", "orderid", t.orderID, "reason", decision.Reason)
			return nil
		}
		return c.fail(t, metrics.ErrorTypeGateway, http.StatusBadGateway, "payment gateway error",
			fmt.Errorf("gateway unavailable: %s", res.ErrorCode))
	}
}

// fail classifies an abort: it counts the failure, logs it with the order id
// when one exists, journals the traversal, and builds the caller-facing error.
func (c *Controller) fail(t *traversal, errType string, httpStatus int, msg string, cause error) error {
	m := c.deps.Metrics
	m.Failures.WithLabelValues(errType).Inc()
	m.Requests.WithLabelValues(metrics.StatusError).Inc()

	attrs := []any{"user", t.userID, "error_type", errType, "state", t.state.String()}
	if t.orderID != "" {
		attrs = append(attrs, "orderid", t.orderID)
	}
	if cause != nil {
		attrs = append(attrs, "error", cause.Error())
	}
	c.deps.Logger.Error(msg, attrs...)

	t.state = StateAborted
	c.deps.Journal.Append(reporting.LogEntry{
		Timestamp: time.Now(),
		OrderID:   t.orderID,
		UserID:    t.userID,
		Status:    reporting.StatusFailure,
		ErrorType: errType,
		Units:     cart.UnitCount(t.cart),
		Total:     t.cart.Total,
		Gateway:   t.gateway,
	})

	return &Error{Type: errType, HTTPStatus: httpStatus, Message: msg, OrderID: t.orderID, Err: cause}
}
