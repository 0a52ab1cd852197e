package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-service/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.WithoutSystemEnv())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "user:8080", cfg.Users.Host)
	assert.Equal(t, "cart:8080", cfg.Carts.Host)
	assert.Equal(t, 5*time.Second, cfg.Users.Timeout)
	assert.Empty(t, cfg.Gateway.Endpoint, "no gateway is a valid degraded-mode configuration")
	assert.Equal(t, "paypal", cfg.Gateway.Name)
	assert.Equal(t, "usd", cfg.Gateway.Currency)
	assert.Equal(t, config.PolicyAbort, cfg.Gateway.FailurePolicy)
	assert.Empty(t, cfg.Emitter.Brokers)
	assert.Equal(t, "orders", cfg.Emitter.Topic)
	assert.Zero(t, cfg.Emitter.PublishDelay)
}

func TestLoad_Overrides(t *testing.T) {
	env := map[string]string{
		"SHOP_PAYMENT_PORT":      "9090",
		"USER_HOST":              "users.internal:8080",
		"CART_HOST":              "carts.internal:8080",
		"PAYMENT_GATEWAY":        "https://gateway.example.com/charges",
		"PAYMENT_GATEWAY_KEY":    "sk_live_1",
		"PAYMENT_GATEWAY_NAME":   "stripe",
		"PAYMENT_CURRENCY":       "eur",
		"GATEWAY_FAILURE_POLICY": "degrade",
		"PAYMENT_DELAY_MS":       "250",
		"KAFKA_BROKERS":          "broker-1:9092,broker-2:9092",
		"ORDERS_TOPIC":           "fulfillment",
		"CLIENT_TIMEOUT":         "2s",
	}

	cfg, err := config.Load(config.WithEnvMap(env), config.WithoutSystemEnv())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "users.internal:8080", cfg.Users.Host)
	assert.Equal(t, "https://gateway.example.com/charges", cfg.Gateway.Endpoint)
	assert.Equal(t, "sk_live_1", cfg.Gateway.APIKey)
	assert.Equal(t, "stripe", cfg.Gateway.Name)
	assert.Equal(t, "eur", cfg.Gateway.Currency)
	assert.Equal(t, config.PolicyDegrade, cfg.Gateway.FailurePolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.Emitter.PublishDelay)
	assert.Equal(t, "broker-1:9092,broker-2:9092", cfg.Emitter.Brokers)
	assert.Equal(t, "fulfillment", cfg.Emitter.Topic)
	assert.Equal(t, 2*time.Second, cfg.Carts.Timeout)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad failure policy", map[string]string{"GATEWAY_FAILURE_POLICY": "maybe"}},
		{"negative delay", map[string]string{"PAYMENT_DELAY_MS": "-5"}},
		{"non-numeric delay", map[string]string{"PAYMENT_DELAY_MS": "soon"}},
		{"bad timeout", map[string]string{"CLIENT_TIMEOUT": "fast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(config.WithEnvMap(tt.env), config.WithoutSystemEnv())
			assert.Error(t, err)
		})
	}
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://user:8080", config.BaseURL("user:8080"))
	assert.Equal(t, "http://user:8080", config.BaseURL("http://user:8080"))
	assert.Equal(t, "https://user:8080", config.BaseURL("https://user:8080"))
}
