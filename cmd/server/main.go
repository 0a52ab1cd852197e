package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourorg/checkout-service/internal/cart"
	"github.com/yourorg/checkout-service/internal/carts"
	"github.com/yourorg/checkout-service/internal/checkout"
	"github.com/yourorg/checkout-service/internal/config"
	"github.com/yourorg/checkout-service/internal/emitter"
	"github.com/yourorg/checkout-service/internal/gateway"
	"github.com/yourorg/checkout-service/internal/gateway/circuitbreaker"
	"github.com/yourorg/checkout-service/internal/metrics"
	"github.com/yourorg/checkout-service/internal/monitor"
	"github.com/yourorg/checkout-service/internal/policy"
	"github.com/yourorg/checkout-service/internal/reporting"
	"github.com/yourorg/checkout-service/internal/telemetry"
	"github.com/yourorg/checkout-service/internal/users"
)

const serviceName = "checkout-service"

// application holds the wired service: the HTTP engine plus anything that
// needs closing on shutdown.
type application struct {
	engine *gin.Engine
	closer func() error
}

// newApplication wires config into a runnable service. Missing gateway or
// broker configuration selects degraded modes rather than failing startup.
func newApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		OnStateChange: func(s circuitbreaker.State) {
			m.CircuitState.Set(float64(s))
			logger.Warn("gateway circuit state changed", "state", s.String())
		},
	})

	authorizer := gateway.NewAuthorizer(gateway.Config{
		Endpoint: cfg.Gateway.Endpoint,
		APIKey:   cfg.Gateway.APIKey,
		Name:     cfg.Gateway.Name,
		Currency: cfg.Gateway.Currency,
		Timeout:  cfg.Gateway.Timeout,
	}, nil, breaker, logger)
	if !authorizer.Configured() {
		logger.Warn("no payment gateway configured, authorization will be skipped")
	}

	failurePolicy, err := policy.New(policy.DefaultRules(), cfg.Gateway.FailurePolicy == config.PolicyDegrade)
	if err != nil {
		return nil, err
	}

	var publisher checkout.OrderPublisher
	closer := func() error { return nil }
	if cfg.Emitter.Brokers != "" {
		kp := emitter.NewKafkaPublisher(cfg.Emitter.Brokers, cfg.Emitter.Topic, cfg.Emitter.PublishDelay, logger)
		publisher = kp
		closer = kp.Close
	} else {
		logger.Warn("no brokers configured, orders will be logged instead of queued")
		publisher = emitter.NewLogPublisher(cfg.Emitter.PublishDelay, logger)
	}

	userClient := users.NewClient(config.BaseURL(cfg.Users.Host), &http.Client{Timeout: cfg.Users.Timeout})
	cartClient := carts.NewClient(config.BaseURL(cfg.Carts.Host), &http.Client{Timeout: cfg.Carts.Timeout})
	journal := reporting.NewJournal(1024)

	controller := checkout.NewController(checkout.Deps{
		Identity:   userClient,
		History:    userClient,
		Carts:      cartClient,
		Authorizer: authorizer,
		Publisher:  publisher,
		Policy:     failurePolicy,
		Metrics:    m,
		Journal:    journal,
		Logger:     logger,
	})

	contract, err := monitor.NewCartPayloadMonitor()
	if err != nil {
		return nil, err
	}

	return &application{
		engine: setupRouter(controller, contract, promReg, journal, logger),
		closer: closer,
	}, nil
}

func setupRouter(
	controller *checkout.Controller,
	contract *monitor.ContractMonitor,
	gatherer prometheus.Gatherer,
	journal *reporting.Journal,
	logger *slog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	engine.GET("/report", func(c *gin.Context) {
		c.JSON(http.StatusOK, reporting.GenerateRetrospective(journal.Snapshot()))
	})
	engine.POST("/pay/:userId", payHandler(controller, contract, logger))

	return engine
}

func payHandler(controller *checkout.Controller, contract *monitor.ContractMonitor, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		valid, validationErrors, err := contract.Validate(body)
		if err != nil || !valid {
			msg := monitor.FormatErrors(validationErrors)
			if msg == "" {
				msg = "malformed request body"
			}
			logger.Warn("rejected malformed payment request", "user", userID, "detail", msg)
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}

		var crt cart.Cart
		if err := json.Unmarshal(body, &crt); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
			return
		}

		result, err := controller.Process(c.Request.Context(), userID, crt)
		if err != nil {
			var cerr *checkout.Error
			if errors.As(err, &cerr) {
				c.JSON(cerr.HTTPStatus, gin.H{"error": cerr.Message})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"orderid": result.OrderID})
	}
}

func main() {
	logger := telemetry.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err.Error())
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracer(serviceName)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("tracer shutdown failed", "error", err.Error())
		}
	}()

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to wire application", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := app.closer(); err != nil {
			logger.Error("publisher close failed", "error", err.Error())
		}
	}()

	logger.Info("starting", "port", cfg.Server.Port, "gateway", cfg.Gateway.Endpoint)
	if err := app.engine.Run(":" + cfg.Server.Port); err != nil {
		logger.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}
