package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/gatherer"
	"treblle-hq/agent/pkg/journal"
	"treblle-hq/agent/pkg/masking"
	"treblle-hq/agent/pkg/middleware"
	"treblle-hq/agent/pkg/payload"
	"treblle-hq/agent/pkg/publisher"
	securityTLS "treblle-hq/agent/pkg/security/tls"
	"treblle-hq/agent/pkg/telemetry/health"
	"treblle-hq/agent/pkg/telemetry/logging"
	"treblle-hq/agent/pkg/telemetry/metrics"
)

var (
	// ErrMissingSDKToken is reported when no SDK token is configured.
	ErrMissingSDKToken = errors.New("treblle SDK token is not set (credentials.sdk_token or TREBLLE_SDK_TOKEN)")

	// ErrMissingAPIKey is reported when no API key is configured.
	ErrMissingAPIKey = errors.New("treblle API key is not set (credentials.api_key or TREBLLE_API_KEY)")
)

// Agent captures exchanges and ships them to Treblle.
type Agent struct {
	cfg    *config.Config
	logger *slog.Logger

	gatherer  *gatherer.Gatherer
	publisher *publisher.Publisher
	metrics   *metrics.Collector

	journal   journal.Store
	recorder  *journal.Recorder
	retention *journal.Scheduler

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	logger              *slog.Logger
	registry            *prometheus.Registry
	httpClient          *http.Client
	template            *payload.Template
	requestTransformer  gatherer.Transformer
	responseTransformer gatherer.Transformer
	observers           []publisher.Observer
}

// Option configures New.
type Option func(*options)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry registers metrics into registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// WithHTTPClient sets the client used for deliveries.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithTemplate supplies a prebuilt payload template, skipping server
// identity detection.
func WithTemplate(t *payload.Template) Option {
	return func(o *options) { o.template = t }
}

// WithRequestTransformer replaces JSON parsing of request bodies.
func WithRequestTransformer(fn gatherer.Transformer) Option {
	return func(o *options) { o.requestTransformer = fn }
}

// WithResponseTransformer replaces JSON parsing of response bodies.
func WithResponseTransformer(fn gatherer.Transformer) Option {
	return func(o *options) { o.responseTransformer = fn }
}

// WithObserver adds a publisher observer.
func WithObserver(obs publisher.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// New builds an agent from cfg. A nil cfg means config.Default.
//
// An invalid configuration is an error and returns a nil Agent. Missing
// credentials are not: New returns a usable, disabled Agent together with
// the joined ErrMissingSDKToken / ErrMissingAPIKey.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = newLogger(cfg); err != nil {
			return nil, err
		}
	}

	a := &Agent{
		cfg:     cfg,
		logger:  logger.With("component", "agent"),
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, o.registry),
	}

	gopts := []gatherer.Option{
		gatherer.WithLogger(logger),
		gatherer.WithMetrics(a.metrics),
	}
	if o.template != nil {
		gopts = append(gopts, gatherer.WithTemplate(o.template))
	}
	a.gatherer = gatherer.New(gatherer.Config{
		SDKToken:            cfg.Credentials.SDKToken,
		APIKey:              cfg.Credentials.APIKey,
		HiddenKeys:          cfg.Capture.HiddenKeys,
		MaskAuthHeader:      cfg.Capture.MaskAuthHeader,
		RequestBodyLimit:    cfg.Capture.RequestBodyLimit,
		RequestTransformer:  o.requestTransformer,
		ResponseTransformer: o.responseTransformer,
		IgnoredEnvironments: cfg.Capture.IgnoredEnvironments,
		Environment:         cfg.Capture.Environment,
		Debug:               cfg.Debug,
	}, gopts...)

	credErr := credentialsError(cfg.Credentials)
	if a.gatherer.Disabled() {
		a.logger.Info("telemetry capture disabled",
			"environment", cfg.Capture.Environment,
			"has_sdk_token", cfg.Credentials.SDKToken != "",
			"has_api_key", cfg.Credentials.APIKey != "",
		)
		return a, credErr
	}

	client := o.httpClient
	if client == nil {
		var err error
		if client, err = securityTLS.NewHTTPClient(cfg.Delivery.TLS, 0); err != nil {
			return nil, fmt.Errorf("delivery TLS: %w", err)
		}
	}

	observers := append([]publisher.Observer{a.metrics}, o.observers...)
	if cfg.Journal.Enabled {
		if err := a.openJournal(logger); err != nil {
			return nil, err
		}
		observers = append(observers, a.recorder)
	}

	popts := []publisher.Option{
		publisher.WithLogger(logger),
		publisher.WithHTTPClient(client),
	}
	for _, obs := range observers {
		popts = append(popts, publisher.WithObserver(obs))
	}
	a.publisher = publisher.New(publisher.Config{
		SDKToken:     cfg.Credentials.SDKToken,
		Endpoint:     cfg.Delivery.Endpoint,
		Hosts:        cfg.Delivery.Hosts,
		Timeout:      cfg.Delivery.Timeout,
		QueueSize:    cfg.Delivery.QueueSize,
		DrainTimeout: cfg.Delivery.DrainTimeout,
		DebugWait:    cfg.Delivery.DebugWait,
	}, popts...)
	a.metrics.RegisterQueueDepth(a.publisher.Pending)

	a.logger.Info("telemetry capture enabled",
		"environment", cfg.Capture.Environment,
		"endpoints", a.publisher.Endpoints(),
		"journal", cfg.Journal.Enabled,
	)
	return a, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	lc := logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Debug:     cfg.Debug,
	}
	if cfg.Telemetry.Logging.RedactHiddenKeys {
		lc.Masker = masking.New(cfg.Capture.HiddenKeys, cfg.Capture.MaskAuthHeader)
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func credentialsError(c config.CredentialsConfig) error {
	var errs []error
	if c.SDKToken == "" {
		errs = append(errs, ErrMissingSDKToken)
	}
	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	return errors.Join(errs...)
}

func (a *Agent) openJournal(logger *slog.Logger) error {
	jc := a.cfg.Journal
	store, err := journal.Open(journal.Config{
		Driver:         jc.Driver,
		Path:           jc.Path,
		MaxOpenConns:   jc.MaxOpenConns,
		BusyTimeout:    jc.BusyTimeout,
		MemoryCapacity: jc.MemoryCapacity,
	})
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	a.journal = store
	a.recorder = journal.NewRecorder(store, journal.RecorderConfig{}, logger)
	a.retention = journal.NewScheduler(store, jc.Retention.MaxAge, jc.Retention.Schedule, logger)
	return nil
}

// Disabled reports whether capture is switched off.
func (a *Agent) Disabled() bool {
	return a.gatherer.Disabled()
}

// Handler wraps next with telemetry capture. A disabled agent returns next.
func (a *Agent) Handler(next http.Handler) http.Handler {
	return a.Middleware()(next)
}

// Middleware returns the capture middleware with extra options, such as
// middleware.ServeMuxRoutes.
func (a *Agent) Middleware(opts ...middleware.Option) func(http.Handler) http.Handler {
	if a.Disabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	opts = append([]middleware.Option{middleware.WithLogger(a.logger)}, opts...)
	return middleware.Telemetry(a.gatherer, a.publisher, opts...)
}

// Gatherer returns the payload builder.
func (a *Agent) Gatherer() *gatherer.Gatherer { return a.gatherer }

// Publisher returns the delivery worker, or nil when disabled.
func (a *Agent) Publisher() *publisher.Publisher { return a.publisher }

// Metrics returns the Prometheus collector.
func (a *Agent) Metrics() *metrics.Collector { return a.metrics }

// Journal returns the delivery journal, or nil when not enabled.
func (a *Agent) Journal() journal.Store { return a.journal }

// Logger returns the agent logger.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// RegisterHealthChecks adds publisher and journal readiness checks.
func (a *Agent) RegisterHealthChecks(c *health.Checker) {
	if a.publisher != nil {
		c.RegisterCheck("publisher", health.QueueCheck(a.publisher.Pending, a.cfg.Delivery.QueueSize))
	}
	if a.journal != nil {
		c.RegisterCheck("journal", a.journal.Ping)
	}
}

// StartRetention starts journal pruning until ctx is cancelled. It is a
// no-op without a journal.
func (a *Agent) StartRetention(ctx context.Context) error {
	if a.retention == nil {
		return nil
	}
	return a.retention.Start(ctx)
}

// Close drains the publisher, then flushes and closes the journal. It is
// safe to call more than once.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.publisher != nil {
			errs = append(errs, a.publisher.Close())
		}
		if a.retention != nil {
			a.retention.Stop()
		}
		if a.recorder != nil {
			errs = append(errs, a.recorder.Close())
		}
		if a.journal != nil {
			errs = append(errs, a.journal.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
