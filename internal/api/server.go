// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware of the multi API server.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap/exp/zapslog"

	"multiapi/internal/api/handler/v1handler"
	"multiapi/internal/config"
	"multiapi/pkg/controller"
	"multiapi/pkg/logger"
)

// v1Spec contains the embedded OpenAPI specification of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

const docsPath = "/api/docs/"

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
type Options struct {
	HandlerOptions v1handler.Options
	CORS           controller.CORSOptions
	BotGate        controller.BotGateOptions
	RateLimit      controller.RateLimitOptions

	// Addr is the TCP address the server listens on, e.g. ":3000".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// AdminAddr is the listen address of the admin server carrying metrics and
	// pprof. When empty both are mounted on the public server instead.
	AdminAddr string
	// TrustedProxies are addresses or CIDR ranges whose forwarding headers are
	// honoured when resolving the client IP.
	TrustedProxies []string

	// Registry receives the OpenTelemetry exporter and backs MetricsPath.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		HandlerOptions: v1handler.NewOptions(cfg),
		CORS: controller.CORSOptions{
			AllowedOrigins: cfg.Access.AllowedOrigins,
			OpenPaths:      []string{"/", "/test"},
		},
		BotGate: controller.BotGateOptions{
			AllowedOrigins: cfg.Access.AllowedOrigins,
			Token:          cfg.Access.BotToken,
		},
		RateLimit: controller.RateLimitOptions{
			Requests: cfg.Access.RateLimitRequests,
			Window:   cfg.Access.RateLimitWindow,
		},

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		AdminAddr:         cfg.HTTP.AdminAddr,
		TrustedProxies:    cfg.Access.TrustedProxies,
	}
}

type Deps struct {
	v1handler.Deps
}

func (opts Options) metricsRegistry() (prometheus.Registerer, prometheus.Gatherer) {
	if opts.Registry != nil {
		return opts.Registry, opts.Registry
	}

	return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
}

// mountAdmin registers the metrics and pprof endpoints on mux.
func mountAdmin(mux *http.ServeMux, opts Options) {
	_, gatherer := opts.metricsRegistry()

	// prometheus metrics server
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	// pprof
	mux.Handle("/debug/pprof/", http.StripPrefix("/debug/pprof", controller.PprofMux()))
}

// NewAdminServer returns the server carrying metrics and pprof on
// opts.AdminAddr. It must only be started when AdminAddr is set.
func NewAdminServer(opts Options) *http.Server {
	mux := http.NewServeMux()
	mountAdmin(mux, opts)

	return &http.Server{
		Addr:              opts.AdminAddr,
		Handler:           controller.WithLogger(mux),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		IdleTimeout:       opts.IdleTimeout,
		ErrorLog:          serverErrorLog(),
	}
}

func serverErrorLog() *log.Logger {
	return slog.NewLogLogger(zapslog.NewHandler(logger.Get(context.Background()).Core()), slog.LevelError)
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - OpenTelemetry metrics exporter (Prometheus) feeding the handler instruments
// - Embedded OpenAPI spec and Swagger UI
// - the chi router serving / , /test and /api
// - Prometheus metrics (MetricsPath) and pprof, unless AdminAddr moves them
// The mux is wrapped, outermost first, by the client IP resolver, access
// logger, security headers, rate limiter, bot gate and CORS, and a request
// timeout is applied.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	proxies, err := controller.ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("could not parse trusted proxies: %w", err)
	}

	mux := http.NewServeMux()
	if opts.AdminAddr == "" {
		mountAdmin(mux, opts)
	}

	// otel
	registerer, _ := opts.metricsRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	if deps.MeterProvider == nil {
		deps.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	}

	// specs file
	mux.HandleFunc("/specs/v1.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// swagger playground
	mux.Handle(docsPath, v5emb.New(
		"Multi API Server",
		"/specs/v1.yaml",
		docsPath,
	))

	// api
	v1, err := v1handler.New(deps.Deps, opts.HandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create v1 handler: %w", err)
	}
	mux.Handle("/", v1.Routes())

	handler := controller.WithCORS(opts.CORS)(mux)
	handler = controller.WithBotGate(opts.BotGate)(handler)
	handler = controller.WithRateLimit(controller.NewClientLimiter(opts.RateLimit))(handler)
	handler = controller.WithSecurityHeaders(docsPath)(handler)
	handler = controller.WithLogger(handler)
	handler = controller.WithClientIP(proxies)(handler)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout,
			`{"success":false,"error":"The request took too long to process and timed out.","code":"TIMEOUT"}`)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
		ErrorLog:          serverErrorLog(),
	}, nil
}
