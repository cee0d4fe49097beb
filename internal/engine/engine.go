// Package engine assembles the certificate manager (C1), router (C3),
// gRPC registry (C4), and protocol dispatcher (C5) into one runnable
// server (C6), exposing a fluent Builder in the teacher's configuration
// style and graceful shutdown semantics.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.ratengine.dev/ratengine/internal/certmanager"
	"go.ratengine.dev/ratengine/internal/grpcengine"
	"go.ratengine.dev/ratengine/internal/protodispatch"
	"go.ratengine.dev/ratengine/internal/router"
)

// Engine owns one running server instance: its listeners, its router and
// gRPC registry, and (if configured) its certificate manager.
type Engine struct {
	cfg config

	router *router.Router
	grpc   *grpcengine.Registry
	certs  *certmanager.Manager

	registry *prometheus.Registry

	cancel context.CancelFunc
}

type config struct {
	workerThreads  int
	maxConnections int
	bufferSize     int
	timeout        time.Duration
	keepalive      time.Duration
	tcpNoDelay     bool
	mode           protodispatch.Mode
	specialized    bool
}

// Builder assembles an Engine fluently, mirroring the teacher's
// configuration-layering style (one setter per tunable, defaults set by
// NewBuilder).
type Builder struct {
	cfg    config
	router *router.Router
	grpc   *grpcengine.Registry
	certs  *certmanager.Manager
}

// NewBuilder returns a Builder with defaults: four worker threads, a
// 10000-connection cap, 64 KiB buffers, a 30s timeout, 60s keepalive, and
// TCP_NODELAY enabled. Only the timeout reaches the dispatcher (as both
// the connection and request timeout); the worker-thread, connection-cap,
// buffer, keepalive and TCP_NODELAY values are recorded but not applied
// to the listener.
func NewBuilder() *Builder {
	return &Builder{
		cfg: config{
			workerThreads:  4,
			maxConnections: 10000,
			bufferSize:     64 * 1024,
			timeout:        30 * time.Second,
			keepalive:      60 * time.Second,
			tcpNoDelay:     true,
			mode:           protodispatch.ModeMixed,
		},
		router: router.New(),
		grpc:   grpcengine.NewRegistry(),
	}
}

func (b *Builder) WorkerThreads(n int) *Builder    { b.cfg.workerThreads = n; return b }
func (b *Builder) MaxConnections(n int) *Builder   { b.cfg.maxConnections = n; return b }
func (b *Builder) BufferSize(n int) *Builder       { b.cfg.bufferSize = n; return b }
func (b *Builder) Timeout(d time.Duration) *Builder   { b.cfg.timeout = d; return b }
func (b *Builder) Keepalive(d time.Duration) *Builder { b.cfg.keepalive = d; return b }
func (b *Builder) TCPNoDelay(enabled bool) *Builder   { b.cfg.tcpNoDelay = enabled; return b }

// WithRouter installs a pre-built router instead of the Builder's default
// empty one, letting callers register routes before Build.
func (b *Builder) WithRouter(r *router.Router) *Builder { b.router = r; return b }

// WithGRPCRegistry installs a pre-built gRPC method registry.
func (b *Builder) WithGRPCRegistry(r *grpcengine.Registry) *Builder { b.grpc = r; return b }

// CertificateManager attaches a certificate manager, enabling TLS.
func (b *Builder) CertificateManager(m *certmanager.Manager) *Builder { b.certs = m; return b }

// Mode selects HTTP-only, gRPC-only, or mixed single-port serving.
func (b *Builder) Mode(m protodispatch.Mode) *Builder { b.cfg.mode = m; return b }

// EnableSpecializedPorts switches StartSinglePortMultiProtocol-shaped
// calls to instead split HTTP and gRPC across cmux-demultiplexed ports
// carved from one listener.
func (b *Builder) EnableSpecializedPorts(enabled bool) *Builder { b.cfg.specialized = enabled; return b }

// EnableDevelopmentMode is a convenience that attaches a development-mode
// certificate manager if one has not already been set, matching the
// teacher's config layering of a single toggle for "just make TLS work".
func (b *Builder) EnableDevelopmentMode() *Builder {
	if b.certs == nil {
		mgr, err := certmanager.NewBuilder().DevelopmentMode(true).Build()
		if err == nil {
			b.certs = mgr
		}
	}
	return b
}

// Build finalizes the Engine. If a certificate manager is attached but
// not yet initialized, the caller must still call Start (which
// initializes it) before serving traffic.
func (b *Builder) Build() (*Engine, error) {
	e := &Engine{
		cfg:      b.cfg,
		router:   b.router,
		grpc:     b.grpc,
		certs:    b.certs,
		registry: prometheus.NewRegistry(),
	}
	e.registry.MustRegister(engineConnectionsGauge, engineRequestsTotal)
	for _, c := range certmanager.Collectors() {
		e.registry.MustRegister(c)
	}
	return e, nil
}

// Router returns the engine's route table for registering handlers after
// construction.
func (e *Engine) Router() *router.Router { return e.router }

// GRPC returns the engine's gRPC method registry for registering handlers
// after construction.
func (e *Engine) GRPC() *grpcengine.Registry { return e.grpc }

// Metrics returns a plain http.Handler exposing this Engine's Prometheus
// registry, addressing the specification's Open Question on renewal and
// connection observability.
func (e *Engine) Metrics() http.Handler {
	return promHandlerFor(e.registry)
}

func (e *Engine) dispatcher() *protodispatch.Dispatcher {
	return &protodispatch.Dispatcher{
		Mode:           e.cfg.mode,
		Router:         e.router,
		GRPC:           e.grpc,
		Certs:          e.certs,
		ConnTimeout:    e.cfg.timeout,
		RequestTimeout: e.cfg.timeout,
	}
}

// Start initializes the certificate manager (if any) and serves
// host:port until the context is cancelled or Shutdown is called.
func (e *Engine) Start(ctx context.Context, host string, port int) error {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	if e.certs != nil {
		if err := e.certs.Initialize(ctx); err != nil {
			return fmt.Errorf("engine: initialize certificate manager: %w", err)
		}
	}

	d := e.dispatcher()
	if e.cfg.specialized {
		return d.StartSpecializedPorts(ctx, host, port)
	}
	return d.StartSinglePortMultiProtocol(ctx, host, port)
}

// Shutdown cancels the context passed to Start, which stops the
// dispatcher's listener(s): each *http.Server drains in-flight requests
// via http.Server.Shutdown (bounded by protodispatch's fixed
// shutdownGrace) and any cmux-demultiplexed root listener is closed
// directly. Shutdown returns without waiting for that drain to finish.
func (e *Engine) Shutdown() {
	if e.certs != nil {
		e.certs.Close()
	}
	if e.cancel != nil {
		e.cancel()
	}
}
