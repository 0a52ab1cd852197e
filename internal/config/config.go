// Package config loads runtime configuration from the environment. Every key
// has a default; a deployment with no environment at all starts in degraded
// demo mode (no gateway, log-only order publisher), which is a valid
// configuration, not a startup error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort          = "8080"
	defaultUserHost      = "user:8080"
	defaultCartHost      = "cart:8080"
	defaultGatewayName   = "paypal"
	defaultCurrency      = "usd"
	defaultOrdersTopic   = "orders"
	defaultClientTimeout = 5 * time.Second
)

// Gateway failure policies. Abort fails the checkout when the gateway is
// unreachable; Degrade proceeds without authorization and counts a fallback.
const (
	PolicyAbort   = "abort"
	PolicyDegrade = "degrade"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Users   ServiceConfig
	Carts   ServiceConfig
	Gateway GatewayConfig
	Emitter EmitterConfig
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Port string
}

// ServiceConfig points at one upstream REST collaborator.
type ServiceConfig struct {
	Host    string
	Timeout time.Duration
}

// GatewayConfig identifies the external payment gateway. An empty Endpoint
// selects degraded mode.
type GatewayConfig struct {
	Endpoint      string
	APIKey        string
	Name          string
	Currency      string
	FailurePolicy string
	Timeout       time.Duration
}

// EmitterConfig configures the fulfillment transport. Empty Brokers selects
// the log-only publisher.
type EmitterConfig struct {
	Brokers      string
	Topic        string
	PublishDelay time.Duration
}

type loader struct {
	env       map[string]string
	systemEnv bool
}

// Option adjusts how configuration is loaded.
type Option func(*loader)

// WithEnvMap overlays the given key/value pairs over the system environment.
// Primarily a test seam.
func WithEnvMap(env map[string]string) Option {
	return func(l *loader) { l.env = env }
}

// WithoutSystemEnv ignores the process environment entirely.
func WithoutSystemEnv() Option {
	return func(l *loader) { l.systemEnv = false }
}

func (l *loader) lookup(key string) (string, bool) {
	if v, ok := l.env[key]; ok {
		return v, true
	}
	if l.systemEnv {
		return os.LookupEnv(key)
	}
	return "", false
}

func (l *loader) str(key, fallback string) string {
	if v, ok := l.lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (l *loader) millis(key string) (time.Duration, error) {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return 0, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative integer, got %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (l *loader) duration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

// Load reads configuration from the environment.
func Load(opts ...Option) (Config, error) {
	l := &loader{systemEnv: true}
	for _, opt := range opts {
		opt(l)
	}

	timeout, err := l.duration("CLIENT_TIMEOUT", defaultClientTimeout)
	if err != nil {
		return Config{}, err
	}
	delay, err := l.millis("PAYMENT_DELAY_MS")
	if err != nil {
		return Config{}, err
	}

	failurePolicy := l.str("GATEWAY_FAILURE_POLICY", PolicyAbort)
	if failurePolicy != PolicyAbort && failurePolicy != PolicyDegrade {
		return Config{}, fmt.Errorf("config: GATEWAY_FAILURE_POLICY must be %q or %q, got %q",
			PolicyAbort, PolicyDegrade, failurePolicy)
	}

	cfg := Config{
		Server: ServerConfig{
			Port: l.str("SHOP_PAYMENT_PORT", defaultPort),
		},
		Users: ServiceConfig{
			Host:    l.str("USER_HOST", defaultUserHost),
			Timeout: timeout,
		},
		Carts: ServiceConfig{
			Host:    l.str("CART_HOST", defaultCartHost),
			Timeout: timeout,
		},
		Gateway: GatewayConfig{
			Endpoint:      l.str("PAYMENT_GATEWAY", ""),
			APIKey:        l.str("PAYMENT_GATEWAY_KEY", ""),
			Name:          l.str("PAYMENT_GATEWAY_NAME", defaultGatewayName),
			Currency:      l.str("PAYMENT_CURRENCY", defaultCurrency),
			FailurePolicy: failurePolicy,
			Timeout:       timeout,
		},
		Emitter: EmitterConfig{
			Brokers:      l.str("KAFKA_BROKERS", ""),
			Topic:        l.str("ORDERS_TOPIC", defaultOrdersTopic),
			PublishDelay: delay,
		},
	}
	return cfg, nil
}

// BaseURL normalizes a host into a client base URL, accepting either a bare
// host:port or a full URL.
func BaseURL(host string) string {
	if len(host) >= 7 && (host[:7] == "http://" || (len(host) >= 8 && host[:8] == "https://")) {
		return host
	}
	return "http://" + host
}
