package certmanager

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.ratengine.dev/ratengine/internal/raterr"
)

// httpALPN and grpcALPN encode the Certificate Bundle invariant from the
// specification: the gRPC-facing bundle must always advertise h2 first so
// a TLS-terminating proxy or direct client negotiates HTTP/2, while the
// HTTP-facing bundle prefers h2 but tolerates falling back to HTTP/1.1.
var (
	httpALPN = []string{"h2", "http/1.1"}
	grpcALPN = []string{"h2"}
)

// Manager owns the current certificate material for both server roles and
// runs the background renewal loop. All bundle access is lock-free: the
// renewal loop swaps pointers atomically so in-flight handshakes never
// observe a half-updated bundle.
type Manager struct {
	cfg Config

	httpBundle atomic.Pointer[Bundle]
	grpcBundle atomic.Pointer[Bundle]
	clientCert atomic.Pointer[ClientCredential]

	ca        *devCA
	whitelist *mtlsWhitelist

	cancelRefresh context.CancelFunc
}

// ClientCredential is the client-auth material handed to mTLS-enabled
// clients dialing back into this server, relevant only when
// AutoGenerateClientCert is set.
type ClientCredential struct {
	CertPEM []byte
	KeyPEM  []byte
}

// New validates cfg and constructs an uninitialized Manager. Call
// Initialize to provision the first certificate bundle.
func New(cfg Config) (*Manager, error) {
	if cfg.MTLSEnabled && cfg.MTLSMode == MTLSModeACMEMixed && cfg.Mode != ModeACME {
		return nil, raterr.New(raterr.KindConfig, "certmanager.New",
			fmt.Errorf("mtls mode acme_mixed requires certificate mode ACME"))
	}
	return &Manager{
		cfg:       cfg,
		whitelist: newMTLSWhitelist(cfg.MTLSWhitelistPaths),
	}, nil
}

// Initialize provisions the HTTP and (if enabled) gRPC certificate
// bundles and, when AutoRefreshEnabled is set, starts the background
// renewal loop. It must be called before GetHTTPServerConfig or
// GetGRPCServerConfig are used.
func (m *Manager) Initialize(ctx context.Context) error {
	const op = "certmanager.Manager.Initialize"

	httpBundle, ca, err := m.provision(ctx, httpALPN)
	if err != nil {
		return raterr.New(raterr.KindTLS, op, err)
	}
	m.ca = ca
	m.httpBundle.Store(httpBundle)

	if m.cfg.GRPCEnabled {
		grpcBundle, _, err := m.provision(ctx, grpcALPN)
		if err != nil {
			return raterr.New(raterr.KindTLS, op, err)
		}
		m.grpcBundle.Store(grpcBundle)
	}

	if m.cfg.MTLSEnabled {
		if err := m.provisionClientTrust(ctx, httpBundle); err != nil {
			return raterr.New(raterr.KindTLS, op, err)
		}
	}

	if m.cfg.AutoRefreshEnabled {
		refreshCtx, cancel := context.WithCancel(context.Background())
		m.cancelRefresh = cancel
		go m.runRefreshLoop(refreshCtx)
	}

	return nil
}

// provision issues (or loads) one bundle according to cfg.Mode.
func (m *Manager) provision(ctx context.Context, alpn []string) (*Bundle, *devCA, error) {
	switch m.cfg.Mode {
	case ModeStatic:
		bundle, err := loadStaticBundle(m.cfg.CertPath, m.cfg.KeyPath, m.cfg.CAPath, alpn)
		return bundle, nil, err
	case ModeACME:
		bundle, err := issueACMECertificate(ctx, m.cfg, alpn)
		return bundle, nil, err
	default:
		bundle, ca, err := generateDevelopmentBundle(m.cfg.Hostnames, m.cfg.ValidityDays, alpn, m.cfg.CertDir)
		return bundle, ca, err
	}
}

// provisionClientTrust establishes the client-auth trust root used to
// verify incoming client certificates, and, when requested, generates a
// client credential for this server to hand to its own clients.
func (m *Manager) provisionClientTrust(ctx context.Context, serverBundle *Bundle) error {
	switch m.cfg.MTLSMode {
	case MTLSModeACMEMixed:
		// The server certificate comes from ACME; client trust is rooted
		// in a separate, locally generated CA regardless.
		ca, err := newDevCA()
		if err != nil {
			return err
		}
		m.ca = ca
	case MTLSModeSelfSigned:
		if m.ca == nil {
			ca, err := newDevCA()
			if err != nil {
				return err
			}
			m.ca = ca
		}
	}

	pool := serverBundle.ClientCAs
	if pool == nil {
		pool = newCertPoolFromCA(m.ca)
	}
	if m.cfg.ClientCAPath != "" {
		loaded, err := loadCertPool(m.cfg.ClientCAPath)
		if err != nil {
			return err
		}
		pool = loaded
	}
	serverBundle.ClientCAs = pool
	if grpc := m.grpcBundle.Load(); grpc != nil {
		grpc.ClientCAs = pool
	}

	if m.cfg.AutoGenerateClientCert {
		cert, err := generateClientBundle(m.ca, m.cfg.ClientCertSubject, m.cfg.ValidityDays, m.cfg.CertDir)
		if err != nil {
			return err
		}
		m.clientCert.Store(&ClientCredential{
			CertPEM: encodeCertPEM(cert),
			KeyPEM:  encodeKeyPEM(cert),
		})
	}

	return nil
}

// GetHTTPServerConfig returns the current HTTP-role Bundle snapshot; its
// ServerTLSConfig method renders the *tls.Config.
func (m *Manager) GetHTTPServerConfig() *Bundle { return m.httpBundle.Load() }

// GetGRPCServerConfig returns the current gRPC-role Bundle snapshot.
// It is nil unless the manager was configured with GRPCEnabled.
func (m *Manager) GetGRPCServerConfig() *Bundle { return m.grpcBundle.Load() }

// ClientCredential returns the auto-generated client certificate, if any.
func (m *Manager) ClientCredential() *ClientCredential { return m.clientCert.Load() }

// IsMTLSWhitelisted reports whether path is exempt from client
// certificate enforcement.
func (m *Manager) IsMTLSWhitelisted(path string) bool {
	return m.whitelist.allows(path)
}

// Close stops the background renewal loop, if running.
func (m *Manager) Close() {
	if m.cancelRefresh != nil {
		m.cancelRefresh()
	}
}
