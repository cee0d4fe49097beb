// Package protodispatch is the connection-layer state machine (C5): it
// owns the listener(s), performs the TLS/ALPN handshake where applicable,
// and routes each connection to the HTTP router or the gRPC registry
// depending on the configured operating mode and, for mixed mode, the
// negotiated protocol and request content type.
package protodispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"go.ratengine.dev/ratengine/internal/certmanager"
	"go.ratengine.dev/ratengine/internal/grpcengine"
	"go.ratengine.dev/ratengine/internal/router"
)

// shutdownGrace bounds how long serve waits for in-flight requests to
// finish after the serving context is cancelled before the listener is
// torn down forcibly.
const shutdownGrace = 5 * time.Second

// Mode selects which protocols a Dispatcher serves.
type Mode int

const (
	ModeHTTPOnly Mode = iota
	ModeGRPCOnly
	ModeMixed
)

// Dispatcher wires the router (C3) and gRPC registry (C4) to one or more
// listeners, applying the certificate manager's (C1) TLS configuration
// and mTLS whitelist where TLS is in play.
type Dispatcher struct {
	Mode Mode

	Router *router.Router
	GRPC   *grpcengine.Registry
	Certs  *certmanager.Manager // nil for plaintext-only deployments

	ConnTimeout    time.Duration
	RequestTimeout time.Duration
}

// handler builds the combined http.Handler used in every Mode: in mixed
// mode gRPC requests (HTTP/2 with an application/grpc content type) go to
// the registry and everything else goes to the router; HTTP-only mode
// sends everything to the router, and gRPC-only mode rejects non-gRPC
// requests with 501. This routing
// rule is grounded directly in the teacher's single shared http.Server,
// generalized from a hard-coded two-way branch into one that also
// respects Mode and the mTLS whitelist.
func (d *Dispatcher) handler() http.Handler {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isGRPC := r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc")

		switch d.Mode {
		case ModeGRPCOnly:
			if !isGRPC {
				http.Error(w, "this endpoint only serves gRPC", http.StatusNotImplemented)
				return
			}
			d.GRPC.ServeHTTP(w, r)
			return
		case ModeHTTPOnly:
			d.Router.ServeHTTP(w, r)
			return
		default: // ModeMixed
			if isGRPC {
				d.GRPC.ServeHTTP(w, r)
			} else {
				d.Router.ServeHTTP(w, r)
			}
		}
	})

	h := d.withMTLSWhitelist(base)
	if d.RequestTimeout > 0 {
		h = http.TimeoutHandler(h, d.RequestTimeout, "request timed out")
	}
	return h
}

// withMTLSWhitelist rejects requests on mTLS-enabled connections that
// presented no client certificate, unless the path is whitelisted. A
// connection counts as mTLS-enabled when the bundle serving it carries
// client-auth trust roots.
func (d *Dispatcher) withMTLSWhitelist(next http.Handler) http.Handler {
	if d.Certs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bundle := d.Certs.GetHTTPServerConfig()
		if d.Mode == ModeGRPCOnly {
			bundle = d.Certs.GetGRPCServerConfig()
		}
		mtls := bundle != nil && bundle.ClientCAs != nil
		if mtls && r.TLS != nil && len(r.TLS.PeerCertificates) == 0 && r.TLS.HandshakeComplete {
			if !d.Certs.IsMTLSWhitelisted(r.URL.Path) {
				http.Error(w, "client certificate required", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves host:port using whatever TLS configuration the
// certificate manager provides (or plaintext h2c if Certs is nil),
// single-port, protocol-multiplexed per Mode.
func (d *Dispatcher) Start(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("protodispatch: listen %s: %w", addr, err)
	}
	return d.serve(ctx, ln)
}

// StartSinglePortMultiProtocol is an alias for Start kept for parity with
// the specification's naming of the single-port multi-protocol entry
// point; mixed-mode behavior is controlled by Mode, not by which start
// function is called.
func (d *Dispatcher) StartSinglePortMultiProtocol(ctx context.Context, host string, port int) error {
	return d.Start(ctx, host, port)
}

func (d *Dispatcher) serve(ctx context.Context, ln net.Listener) error {
	h := d.handler()

	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  d.ConnTimeout,
		WriteTimeout: d.ConnTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	// Stop accepting and drain in-flight requests when the caller cancels
	// ctx; otherwise srv.Serve runs forever and the listener is never
	// released.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	}()

	var err error
	if d.Certs != nil {
		bundle := d.Certs.GetHTTPServerConfig()
		if d.Mode == ModeGRPCOnly {
			bundle = d.Certs.GetGRPCServerConfig()
		}
		tlsCfg := bundle.ServerTLSConfig()
		srv.TLSConfig = tlsCfg
		if cfgErr := http2.ConfigureServer(srv, &http2.Server{}); cfgErr != nil {
			return fmt.Errorf("protodispatch: configure http2: %w", cfgErr)
		}
		err = srv.Serve(tls.NewListener(ln, tlsCfg))
	} else {
		// Plaintext: wrap the handler with h2c so HTTP/2-prior-knowledge
		// gRPC clients and plain HTTP/1.1 clients share the same port.
		srv.Handler = h2c.NewHandler(h, &http2.Server{})
		err = srv.Serve(ln)
	}

	if err != nil && errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// StartSpecializedPorts serves HTTP and gRPC on two distinct listeners
// carved out of one cleartext port via cmux: HTTP/1.1 traffic and
// HTTP/2-prior-knowledge traffic are split at the connection level before
// either protocol handler ever sees a byte, then each sub-listener is
// served by its own *http.Server using the matching Mode-specific
// handler. This is the specification's "specialized ports" mode.
func (d *Dispatcher) StartSpecializedPorts(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("protodispatch: listen %s: %w", addr, err)
	}

	m := cmux.New(ln)
	grpcLn := m.Match(cmux.HTTP2())
	httpLn := m.Match(cmux.HTTP1Fast())

	// cmux's own Serve loop has no context awareness; closing the root
	// listener is what unblocks it once the caller cancels ctx. The two
	// sub-dispatchers drain gracefully on their own via serve's shutdown
	// goroutine, which shares this same ctx.
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	grpcDispatch := &Dispatcher{Mode: ModeGRPCOnly, GRPC: d.GRPC, Router: d.Router, Certs: d.Certs, ConnTimeout: d.ConnTimeout, RequestTimeout: d.RequestTimeout}
	httpDispatch := &Dispatcher{Mode: ModeHTTPOnly, GRPC: d.GRPC, Router: d.Router, Certs: d.Certs, ConnTimeout: d.ConnTimeout, RequestTimeout: d.RequestTimeout}

	errc := make(chan error, 3)
	go func() { errc <- grpcDispatch.serve(ctx, grpcLn) }()
	go func() { errc <- httpDispatch.serve(ctx, httpLn) }()
	go func() {
		if err := m.Serve(); err != nil && ctx.Err() == nil {
			errc <- err
			return
		}
		errc <- nil
	}()

	return <-errc
}
