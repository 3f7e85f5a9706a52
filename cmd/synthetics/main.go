package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odvcencio/synthetics/pkg/browser"
	"github.com/odvcencio/synthetics/pkg/browser/adapters/chrome"
	"github.com/odvcencio/synthetics/pkg/bus"
	"github.com/odvcencio/synthetics/pkg/config"
	"github.com/odvcencio/synthetics/pkg/execution"
	"github.com/odvcencio/synthetics/pkg/observability"
	"github.com/odvcencio/synthetics/pkg/plugins"
	"github.com/odvcencio/synthetics/pkg/reporter"
	"github.com/odvcencio/synthetics/pkg/runner"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// newSessionFn launches the browser; tests replace it.
var newSessionFn = func(ctx context.Context, cfg browser.SessionConfig) (sessionCloser, error) {
	s, err := chrome.NewSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type sessionCloser interface {
	browser.Session
	browser.Driver
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "synthetics:", err)
	}
	os.Exit(exitCodeForError(err))
}

type cliOptions struct {
	configPath    string
	output        string
	plugins       string
	chromePath    string
	headless      bool
	natsURL       string
	metricsAddr   string
	logLevel      string
	tracing       bool
	noBrowser     bool
	outputTimeout time.Duration
	showVersion   bool
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, map[string]bool, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("synthetics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to the suite YAML file (required)")
	fs.StringVar(&opts.output, "output", "", "Record output path, - for stdout")
	fs.StringVar(&opts.plugins, "plugins", "", "Comma separated collectors: network,trace,performance")
	fs.StringVar(&opts.chromePath, "chrome", "", "Chrome executable path")
	fs.BoolVar(&opts.headless, "headless", true, "Run the browser headless")
	fs.StringVar(&opts.natsURL, "nats", "", "Mirror records to this NATS server")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&opts.tracing, "trace", false, "Export OpenTelemetry spans to stderr")
	fs.BoolVar(&opts.noBrowser, "no-browser", false, "Run journeys without launching a browser")
	fs.DurationVar(&opts.outputTimeout, "output-timeout", 2*time.Minute, "Maximum wait for collector output per journey")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, nil, withExitCode(err, exitUsage)
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.Config, opts cliOptions, set map[string]bool) error {
	if set["output"] {
		cfg.Output.Path = opts.output
	}
	if set["plugins"] {
		kinds, err := plugins.ParseKinds(splitList(opts.plugins))
		if err != nil {
			return err
		}
		cfg.Plugins.Kinds = make([]string, 0, len(kinds))
		for _, k := range kinds {
			cfg.Plugins.Kinds = append(cfg.Plugins.Kinds, k.String())
		}
	}
	if set["chrome"] {
		cfg.Browser.ExecPath = opts.chromePath
	}
	if set["headless"] {
		cfg.Browser.Headless = opts.headless
	}
	if set["nats"] {
		cfg.Mirror.Enabled = opts.natsURL != ""
		cfg.Mirror.NATS.URL = opts.natsURL
	}
	if set["metrics-addr"] {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if set["log-level"] {
		cfg.Observability.LogLevel = opts.logLevel
	}
	if set["trace"] {
		cfg.Observability.Tracing = opts.tracing
	}
	return cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "synthetics %s (%s, %s)\n", version, commit, buildDate)
		return nil
	}
	if opts.configPath == "" {
		return withExitCode(errors.New("-config is required"), exitUsage)
	}

	cfg, err := config.LoadFromPath(opts.configPath)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	if err := applyFlags(cfg, opts, set); err != nil {
		return withExitCode(err, exitUsage)
	}
	if len(cfg.Journeys) == 0 {
		return withExitCode(errors.New("suite declares no journeys"), exitUsage)
	}

	logger := observability.NewLoggerWithWriter(stderr, "synthetics", cfg.LogLevel())

	if cfg.Observability.Tracing {
		tp, err := observability.NewTracerProvider(cfg.Observability.ServiceName, stderr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := serveMetrics(addr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	sink, closeSink, err := openSink(cfg.Output.Path, stdout)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	defer closeSink()

	r := runner.New(runner.WithLogger(logger))
	defer r.Close()
	rep := reporter.NewJSON(r, sink, reporter.WithLogger(logger))

	if cfg.Mirror.Enabled {
		b, err := bus.NewNATSBus(cfg.Mirror.NATS)
		if err != nil {
			return err
		}
		defer b.Close()
		reporter.NewBusMirror(r, b, cfg.Mirror.SubjectPrefix, reporter.WithLogger(logger))
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	execOpts := []execution.Option{
		execution.WithLogger(logger),
		execution.WithKinds(kinds...),
		execution.WithOutputTimeout(opts.outputTimeout),
		execution.WithPluginOptions(
			plugins.WithMaxFilmstrips(cfg.Plugins.MaxFilmstrips),
			plugins.WithSampleInterval(cfg.Plugins.SampleInterval),
		),
	}

	var (
		session browser.Session
		driver  browser.Driver
	)
	if !opts.noBrowser {
		s, err := newSessionFn(ctx, cfg.Browser)
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		defer s.Close()
		session, driver = s, s
		execOpts = append(execOpts, execution.WithDriver(driver))
	}

	exec := execution.NewExecutor(r, session, execOpts...)
	summary := exec.Run(ctx, execution.JourneysFromConfig(cfg, driver)...)

	logger.Info("run finished",
		"journeys", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"records", rep.Written(),
	)

	return runOutcome(rep.Err(), summary)
}

// openSink returns the record sink and a func that flushes and closes it.
// Stdout is never closed.
func openSink(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, func() {
		_ = f.Sync()
		_ = f.Close()
	}, nil
}

func serveMetrics(addr string, logger *observability.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err.Error())
		}
	}()
	return srv
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
