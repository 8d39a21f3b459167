package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"treblle-hq/agent/pkg/agent"
	"treblle-hq/agent/pkg/cli"
	"treblle-hq/agent/pkg/config"
	"treblle-hq/agent/pkg/middleware"
	securityTLS "treblle-hq/agent/pkg/security/tls"
	"treblle-hq/agent/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	upstream      string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capturing reverse proxy",
	Long: `Start a reverse proxy that forwards every request to the upstream
application and captures the exchange.

Health (/health, /ready, /version) and Prometheus metrics endpoints are served
by the agent itself and are not captured. Set proxy.tls to terminate TLS on the
listener.

Examples:
  # Proxy :8080 to an application on :3000
  treblle run --upstream http://127.0.0.1:3000

  # Override listen address
  treblle run --listen 0.0.0.0:9000 --upstream http://app:3000

  # Validate config and credentials without starting the proxy
  treblle run --dry-run`,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the proxy")
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.upstream != "" {
		cfg.Proxy.Upstream = runFlags.upstream
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if cfg.Proxy.Upstream == "" {
		return cli.NewConfigError(cfgFile, config.ValidationError{Errors: []config.FieldError{{
			Field:   "proxy.upstream",
			Message: "upstream is required (set proxy.upstream, TREBLLE_PROXY_UPSTREAM or --upstream)",
		}}})
	}

	a, err := agent.New(cfg)
	if a == nil {
		return cli.NewConfigError(cfgFile, err)
	}
	if err != nil {
		// Missing credentials: proxy without capture.
		a.Logger().Warn("starting without capture", "error", err)
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "  capture:  %s\n", captureState(a))
		fmt.Fprintf(out, "  upstream: %s\n", cfg.Proxy.Upstream)
		return a.Close()
	}

	servers, err := newServers(cfg, a)
	if err != nil {
		_ = a.Close()
		return cli.NewCommandError("run", err)
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := a.StartRetention(ctx); err != nil {
		a.Logger().Warn("failed to start journal retention", "error", err)
	}

	fmt.Fprintf(out, "✓ Proxying %s -> %s (capture %s)\n", cfg.Proxy.ListenAddress, cfg.Proxy.Upstream, captureState(a))
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	if err := serve(ctx, servers, cfg.Proxy.ShutdownTimeout, a); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Proxy stopped")
	return nil
}

func captureState(a *agent.Agent) string {
	if a.Disabled() {
		return "disabled"
	}
	return "enabled"
}

// newServers builds the proxy server and, when metrics have their own
// listen address, a separate metrics server.
func newServers(cfg *config.Config, a *agent.Agent) ([]*http.Server, error) {
	proxy, err := newReverseProxy(cfg.Proxy.Upstream, a.Logger())
	if err != nil {
		return nil, err
	}

	checker := health.New(0)
	a.RegisterHealthChecks(checker)

	mux := http.NewServeMux()
	health.Mount(mux, checker, health.NewVersionInfo(Version, GitCommit, BuildDate))
	mux.Handle("/", middleware.Recovery(a.Logger())(
		middleware.RequestID(
			middleware.Logging(a.Logger())(
				a.Handler(proxy),
			),
		),
	))

	tlsConfig, err := cfg.Proxy.TLS.ToTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("proxy TLS: %w", err)
	}
	if warning := securityTLS.ExpiryWarning(tlsConfig, time.Now()); warning != "" {
		a.Logger().Warn(warning, "cert_file", cfg.Proxy.TLS.CertFile)
	}

	srv := newHTTPServer(cfg.Proxy.ListenAddress, mux, &cfg.Proxy)
	srv.TLSConfig = tlsConfig
	servers := []*http.Server{srv}

	metricsCfg := cfg.Telemetry.Metrics
	if metricsCfg.Enabled {
		if metricsCfg.ListenAddress == "" {
			mux.Handle(metricsCfg.Path, a.Metrics().Handler())
		} else {
			mmux := http.NewServeMux()
			mmux.Handle(metricsCfg.Path, a.Metrics().Handler())
			servers = append(servers, newHTTPServer(metricsCfg.ListenAddress, mmux, &cfg.Proxy))
		}
	}
	return servers, nil
}

func newHTTPServer(addr string, h http.Handler, cfg *config.ProxyConfig) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// newReverseProxy forwards to upstream. Transport failures are reported on
// the captured exchange and answered with 502.
func newReverseProxy(upstream string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", upstream, err)
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.WarnContext(r.Context(), "upstream request failed",
				"upstream", target.Host,
				"error", err,
			)
			middleware.ReportError(r, err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}, nil
}

// serve runs servers until ctx is cancelled or one of them fails, then shuts
// them down and closes the agent, which drains queued payloads.
func serve(ctx context.Context, servers []*http.Server, shutdownTimeout time.Duration, a *agent.Agent) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			a.Logger().Info("listening", "address", srv.Addr, "tls", srv.TLSConfig != nil)
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger().Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		errs = append(errs, a.Close())
		return errors.Join(errs...)
	})

	return g.Wait()
}
