// Package users is the client for the user service, which answers whether a
// caller is a registered user and records order history for registered users.
package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/checkout-service/internal/cart"
)

// Status classifies the caller of a checkout.
type Status int

const (
	// Anonymous means the user service does not know the caller (guest
	// checkout). This is a normal outcome, not an error.
	Anonymous Status = iota
	// Registered means the caller has an account and gets order history.
	Registered
)

// String returns the status label used in logs.
func (s Status) String() string {
	if s == Registered {
		return "registered"
	}
	return "anonymous"
}

const defaultTimeout = 5 * time.Second

// Client talks to the user service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a user service client for the given base URL
// (e.g. "http://user:8080"). A nil http.Client gets a bounded default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Check resolves the identity of userID. A 200 means registered, a 404 means
// anonymous; any other response or a transport failure is an error and the
// caller must abort the checkout.
func (c *Client) Check(ctx context.Context, userID string) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check/"+userID, nil)
	if err != nil {
		return Anonymous, fmt.Errorf("users: failed to create check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Anonymous, fmt.Errorf("users: check call failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Registered, nil
	case resp.StatusCode == http.StatusNotFound:
		return Anonymous, nil
	default:
		return Anonymous, fmt.Errorf("users: check returned HTTP %d", resp.StatusCode)
	}
}

// orderRecord is the order history payload the user service expects.
type orderRecord struct {
	OrderID string    `json:"orderid"`
	Cart    cart.Cart `json:"cart"`
}

// RecordOrder appends a completed order to a registered user's history.
func (c *Client) RecordOrder(ctx context.Context, userID, orderID string, crt cart.Cart) error {
	body, err := json.Marshal(orderRecord{OrderID: orderID, Cart: crt})
	if err != nil {
		return fmt.Errorf("users: failed to marshal order record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order/"+userID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("users: failed to create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("users: order history call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("users: order history update returned HTTP %d", resp.StatusCode)
	}
	return nil
}
