package protodispatch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ratengine.dev/ratengine/internal/grpcengine"
	"go.ratengine.dev/ratengine/internal/pathmatch"
	"go.ratengine.dev/ratengine/internal/router"
)

func newTestDispatcher(mode Mode) *Dispatcher {
	rt := router.New()
	_ = rt.Get("/hello", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Write([]byte("world"))
	})
	return &Dispatcher{Mode: mode, Router: rt, GRPC: grpcengine.NewRegistry()}
}

func TestDispatcher_HTTPOnlyRoutesToRouter(t *testing.T) {
	d := newTestDispatcher(ModeHTTPOnly)
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	d.handler().ServeHTTP(rec, req)
	assert.Equal(t, "world", rec.Body.String())
}

func TestDispatcher_GRPCOnlyRejectsNonGRPC(t *testing.T) {
	d := newTestDispatcher(ModeGRPCOnly)
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	d.handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDispatcher_MixedModeRoutesByContentType(t *testing.T) {
	d := newTestDispatcher(ModeMixed)

	httpReq := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	d.handler().ServeHTTP(rec, httpReq)
	assert.Equal(t, "world", rec.Body.String())

	grpcReq := httptest.NewRequest(http.MethodPost, "/rat.v1.X/Y", nil)
	grpcReq.ProtoMajor = 2
	grpcReq.Header.Set("Content-Type", "application/grpc")
	rec2 := httptest.NewRecorder()
	d.handler().ServeHTTP(rec2, grpcReq)
	// Unregistered method but still dispatched to the gRPC registry, not the router.
	assert.NotEqual(t, http.StatusNotFound, rec2.Code)
}

func TestDispatcher_MTLSWhitelist_NoCertManagerPassesThrough(t *testing.T) {
	rt := router.New()
	_ = rt.Get("/private", func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) { w.WriteHeader(http.StatusOK) })

	d := &Dispatcher{Mode: ModeHTTPOnly, Router: rt, GRPC: grpcengine.NewRegistry(), Certs: nil}
	// Certs nil means no enforcement; verify the no-op passthrough path.
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.TLS = &tls.ConnectionState{HandshakeComplete: true, PeerCertificates: []*x509.Certificate{}}
	rec := httptest.NewRecorder()
	d.handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDispatcher_ServeStopsListenerOnContextCancel(t *testing.T) {
	d := newTestDispatcher(ModeHTTPOnly)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, ln) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after context cancellation")
	}
}
