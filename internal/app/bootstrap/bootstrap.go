package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	checkout "seamless/contexts/payment-core/checkout"
	eventtracking "seamless/contexts/payment-core/event-tracking"
	relationaladapter "seamless/contexts/payment-core/event-tracking/adapters/relational"
	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/application/workers"
	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/paypal"
	paypalrest "seamless/contexts/payment-processors/paypal/adapters/rest"
	paypalentities "seamless/contexts/payment-processors/paypal/domain/entities"
	"seamless/contexts/payment-processors/stripe"
	striperest "seamless/contexts/payment-processors/stripe/adapters/rest"
	"seamless/internal/platform/config"
	"seamless/internal/platform/db"
	"seamless/internal/platform/httpserver"
	"seamless/internal/platform/messaging"
	"seamless/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	moduleName          = "internal/app/bootstrap"
	initializeTimeout   = 30 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

type APIApp struct {
	server   *httpserver.Server
	tracking eventtracking.Module
	bus      *messaging.Bus
	cancel   context.CancelFunc
	logger   *slog.Logger
}

type WorkerApp struct {
	relay        workers.RecordRelay
	tracking     eventtracking.Module
	publisher    *messaging.AMQPPublisher
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, "api")

	tracking, _, err := OpenTracking(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !cfg.TrackingEnabled {
		tracking.Tracker.Disable()
		logger.Warn("payment event tracking disabled",
			"event", "bootstrap_tracking_disabled",
			"module", moduleName,
			"layer", "platform",
		)
	}

	subscriptions, cancel := context.WithCancel(context.Background())
	app := &APIApp{
		tracking: tracking,
		cancel:   cancel,
		logger:   logger,
	}
	if cfg.EventBus.Kind == "inprocess" {
		app.bus = messaging.NewBus(logger)
		tracking.Tracker.AddHandler(trackingapp.PublishingHandler{
			Publisher:     app.bus,
			TopicPrefix:   cfg.EventBus.TopicPrefix,
			SourceService: cfg.ServiceName,
		})
		if err := subscribeCaptureLog(subscriptions, app.bus, cfg.EventBus.TopicPrefix, logger); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	checkoutDeps := checkout.Dependencies{
		Transactions: tracking.Transactions,
		Logger:       logger,
	}
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		module, err := paypal.NewModule(paypal.Dependencies{
			Config: paypalrest.Config{
				ClientID:     cfg.PayPal.ClientID,
				ClientSecret: cfg.PayPal.ClientSecret,
				Environment:  cfg.PayPal.Environment,
				BaseURL:      cfg.PayPal.BaseURL,
				Timeout:      cfg.Vendor.Timeout,
				MaxRetries:   cfg.Vendor.MaxRetries,
				RateLimit:    cfg.Vendor.RateLimit,
				RateBurst:    cfg.Vendor.RateBurst,
			},
			Experience: paypalentities.ExperienceContext{
				BrandName: cfg.PayPal.BrandName,
				ReturnURL: cfg.PayPal.ReturnURL,
				CancelURL: cfg.PayPal.CancelURL,
			},
			Events: tracking.Emitter,
			Clock:  relationaladapter.SystemClock{},
			Logger: logger,
		})
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("paypal module: %w", err)
		}
		checkoutDeps.PayPal = module.Service
	} else {
		logProcessorSkipped(logger, "paypal")
	}
	if cfg.Stripe.APIKey != "" {
		module, err := stripe.NewModule(stripe.Dependencies{
			Config: striperest.Config{
				APIKey:     cfg.Stripe.APIKey,
				APIVersion: cfg.Stripe.APIVersion,
				BaseURL:    cfg.Stripe.BaseURL,
				Timeout:    cfg.Vendor.Timeout,
				MaxRetries: cfg.Vendor.MaxRetries,
				RateLimit:  cfg.Vendor.RateLimit,
				RateBurst:  cfg.Vendor.RateBurst,
			},
			Events: tracking.Emitter,
			Clock:  relationaladapter.SystemClock{},
			Logger: logger,
		})
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("stripe module: %w", err)
		}
		checkoutDeps.Stripe = module.Service
	} else {
		logProcessorSkipped(logger, "stripe")
	}

	app.server = httpserver.New(tracking, checkout.NewModule(checkoutDeps), logger, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, "worker")
	if cfg.EventBus.Kind != "amqp" {
		return nil, fmt.Errorf("record relay requires event bus kind amqp, got %q", cfg.EventBus.Kind)
	}

	tracking, repo, err := OpenTracking(cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := messaging.NewAMQPPublisher(cfg.EventBus.AMQPURL, cfg.EventBus.Exchange, logger)
	if err != nil {
		_ = tracking.Close()
		return nil, err
	}

	pollInterval := cfg.Relay.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &WorkerApp{
		relay: workers.RecordRelay{
			Feed:          repo,
			Cursors:       repo,
			Publisher:     publisher,
			Clock:         relationaladapter.SystemClock{},
			Consumer:      cfg.Relay.Consumer,
			TopicPrefix:   cfg.EventBus.TopicPrefix,
			SourceService: cfg.ServiceName,
			BatchSize:     cfg.Relay.BatchSize,
			Logger:        logger,
		},
		tracking:     tracking,
		publisher:    publisher,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// OpenTracking connects the configured database and initializes the
// event-tracking module on top of it. The repository is returned for
// callers that also need the record feed.
func OpenTracking(cfg config.Config, logger *slog.Logger) (eventtracking.Module, *relationaladapter.Repository, error) {
	database, err := db.Open(db.Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Quiet:           true,
	})
	if err != nil {
		return eventtracking.Module{}, nil, err
	}

	repo := relationaladapter.NewRepository(database.DB, database.Close, logger)
	tracking := eventtracking.NewModule(eventtracking.Dependencies{
		Clock:       relationaladapter.SystemClock{},
		IDGenerator: relationaladapter.UUIDGenerator{},
		Logger:      logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), initializeTimeout)
	defer cancel()
	if err := tracking.Initialize(ctx, repo); err != nil {
		_ = repo.Close()
		return eventtracking.Module{}, nil, err
	}
	logger.Info("payment tracking store ready",
		"event", "bootstrap_store_ready",
		"module", moduleName,
		"layer", "platform",
		"driver", database.Driver,
	)
	return tracking, repo, nil
}

// NewLogger builds the process JSON logger at the configured level.
func NewLogger(cfg config.Config, process string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})
	logger := slog.New(handler).With("service", cfg.ServiceName, "process", process)
	slog.SetDefault(logger)
	return logger
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", moduleName,
			"layer", "platform",
		)
	}

	errs := make(chan error, 1)
	go func() {
		errs <- a.server.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *APIApp) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	errs = append(errs, a.tracking.Close())
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", moduleName,
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if _, err := w.relay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("record relay cycle failed",
				"event", "bootstrap_worker_cycle_failed",
				"module", moduleName,
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.publisher != nil {
		errs = append(errs, w.publisher.Close())
	}
	errs = append(errs, w.tracking.Close())
	return errors.Join(errs...)
}

// subscribeCaptureLog logs completed captures of every processor published
// on the in-process bus.
func subscribeCaptureLog(ctx context.Context, bus *messaging.Bus, prefix string, logger *slog.Logger) error {
	return bus.Subscribe(ctx, trackingapp.TopicPattern(prefix, ""), "capture-log", func(_ context.Context, envelope events.Envelope) error {
		if !trackingentities.EventType(envelope.EventType).IsCaptureCompletion() {
			return nil
		}
		logger.Info("payment capture published",
			"event", "bootstrap_capture_published",
			"module", moduleName,
			"layer", "platform",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
			"resource_id", envelope.EntityID,
			"transaction_id", envelope.CorrelationID,
		)
		return nil
	})
}

func logProcessorSkipped(logger *slog.Logger, processor string) {
	logger.Info("payment processor not configured",
		"event", "bootstrap_processor_skipped",
		"module", moduleName,
		"layer", "platform",
		"processor", processor,
	)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
