// Package carts is the client for the cart service. The checkout uses it for
// exactly one thing: releasing the cart after a successful purchase.
package carts

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client talks to the cart service over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a cart service client for the given base URL
// (e.g. "http://cart:8080"). A nil http.Client gets a bounded default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// DeleteCart empties the user's cart. Any non-200 response or transport
// failure is an error; a successful checkout must not report success while the
// cart is still populated.
func (c *Client) DeleteCart(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cart/"+userID, nil)
	if err != nil {
		return fmt.Errorf("carts: failed to create delete request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("carts: delete call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("carts: cart delete returned HTTP %d", resp.StatusCode)
	}
	return nil
}
