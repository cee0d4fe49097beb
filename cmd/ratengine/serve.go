package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.ratengine.dev/ratengine/internal/certmanager"
	"go.ratengine.dev/ratengine/internal/engine"
	"go.ratengine.dev/ratengine/internal/pathmatch"
	"go.ratengine.dev/ratengine/internal/protodispatch"
)

func newServeCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		Long: `Starts an HTTP+gRPC server on the configured address.

Flags, environment variables, and config-file keys
  Flag                  Env var                       Config key
  ─────────────────────────────────────────────────────────────────
  --addr                RATENGINE_ADDR                addr
  --mode                RATENGINE_MODE                mode          (http|grpc|mixed)
  --specialized-ports   RATENGINE_SPECIALIZED_PORTS   specialized-ports
  --tls-mode            RATENGINE_TLS_MODE            tls-mode       (dev|static|acme)
  --hostname            RATENGINE_HOSTNAME            hostname
  --cert-path           RATENGINE_CERT_PATH           cert-path
  --key-path            RATENGINE_KEY_PATH            key-path
  --mtls                RATENGINE_MTLS                mtls
  --acme-email          RATENGINE_ACME_EMAIL          acme-email
  --acme-production     RATENGINE_ACME_PRODUCTION     acme-production
  --log-level           RATENGINE_LOG_LEVEL           log-level
  --log-format          RATENGINE_LOG_FORMAT          log-format
  --config              (flag only)

Precedence: defaults → config file → RATENGINE_* env vars → CLI flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runServe(v) },
	}

	f := cmd.Flags()
	f.String("addr", "0.0.0.0", "listen host")
	f.Int("port", 8443, "listen port")
	f.String("mode", "mixed", "protocol mode: http|grpc|mixed")
	f.Bool("specialized-ports", false, "split HTTP and gRPC across cmux-demultiplexed ports instead of ALPN on one port")
	f.String("tls-mode", "dev", "certificate mode: dev|static|acme")
	f.StringSlice("hostname", []string{"localhost", "127.0.0.1"}, "SAN hostnames for dev/ACME certificates")
	f.String("cert-path", "", "static mode: certificate PEM path")
	f.String("key-path", "", "static mode: key PEM path")
	f.String("ca-path", "", "static mode: client CA bundle for mTLS")
	f.Bool("mtls", false, "require client certificates")
	f.String("acme-email", "", "ACME account email")
	f.Bool("acme-production", false, "use the production ACME directory instead of staging")
	f.String("cloudflare-api-token", "", "Cloudflare API token for ACME DNS-01")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runServe(v *viper.Viper) error {
	setupLogging(v)

	mode := parseMode(v.GetString("mode"))
	certsMgr, err := buildCertManager(v, mode)
	if err != nil {
		return fmt.Errorf("certificate manager: %w", err)
	}

	eng, err := engine.NewBuilder().
		Mode(mode).
		EnableSpecializedPorts(v.GetBool("specialized-ports")).
		CertificateManager(certsMgr).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	registerDemoRoutes(eng)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := v.GetString("addr")
	port := v.GetInt("port")
	slog.Info("ratengine starting", "version", Version, "addr", addr, "port", port, "mode", v.GetString("mode"))

	errc := make(chan error, 1)
	go func() { errc <- eng.Start(ctx, addr, port) }()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		eng.Shutdown()
		return nil
	case err := <-errc:
		return err
	}
}

func parseMode(s string) protodispatch.Mode {
	switch strings.ToLower(s) {
	case "http":
		return protodispatch.ModeHTTPOnly
	case "grpc":
		return protodispatch.ModeGRPCOnly
	default:
		return protodispatch.ModeMixed
	}
}

func buildCertManager(v *viper.Viper, mode protodispatch.Mode) (*certmanager.Manager, error) {
	b := certmanager.NewBuilder().
		WithHostnames(v.GetStringSlice("hostname")).
		EnableGRPC(mode != protodispatch.ModeHTTPOnly).
		EnableMTLS(v.GetBool("mtls"))

	if v.GetBool("mtls") {
		b = b.WithMTLSMode(certmanager.MTLSModeSelfSigned).AutoGenerateClientCert(true)
	}

	switch strings.ToLower(v.GetString("tls-mode")) {
	case "static":
		b = b.WithCertPath(v.GetString("cert-path")).WithKeyPath(v.GetString("key-path")).WithCAPath(v.GetString("ca-path"))
	case "acme":
		token := v.GetString("cloudflare-api-token")
		if token == "" {
			return nil, fmt.Errorf("acme tls-mode requires --cloudflare-api-token")
		}
		b = b.EnableACME(true).
			WithACMEEmail(v.GetString("acme-email")).
			WithACMEProduction(v.GetBool("acme-production")).
			WithDNSProvider(certmanager.NewCloudflareDNSProvider(token))
		if v.GetBool("mtls") {
			b = b.WithMTLSMode(certmanager.MTLSModeACMEMixed)
		}
	default:
		b = b.DevelopmentMode(true)
	}

	return b.Build()
}

// registerDemoRoutes mounts the built-in introspection and health
// endpoints so a freshly started server is immediately useful.
func registerDemoRoutes(eng *engine.Engine) {
	r := eng.Router()
	_ = r.RegisterIntrospection()
	_ = r.Get("/healthz", func(w http.ResponseWriter, req *http.Request, _ pathmatch.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	_ = r.Get("/metrics", func(w http.ResponseWriter, req *http.Request, _ pathmatch.Params) {
		eng.Metrics().ServeHTTP(w, req)
	})
}
