// Package certmanager owns the server's certificate lifecycle: loading
// static PEM material, generating self-signed development certificates,
// issuing certificates via ACME DNS-01, and renewing development and ACME
// certificates in the background (static certificates are only reported
// on as they near expiry, never replaced). It hands out TLS configurations for the HTTP and gRPC
// roles separately, as required by the specification's Certificate
// Bundle invariant (a gRPC-facing config must always advertise h2 ALPN).
package certmanager

import "time"

// Mode selects how server certificates are provisioned.
type Mode int

const (
	// ModeDevelopment generates a self-signed CA and leaf certificate in
	// memory (or on disk under CertDir, when set).
	ModeDevelopment Mode = iota
	// ModeStatic loads certificate and key material from disk.
	ModeStatic
	// ModeACME issues and renews certificates via ACME DNS-01.
	ModeACME
)

// MTLSMode selects how client-auth trust material is sourced, matching
// the original implementation's "self_signed" / "acme_mixed" distinction:
// the server certificate and the client trust root need not come from the
// same provisioning mode.
type MTLSMode int

const (
	// MTLSModeSelfSigned issues both the server and the client-auth CA
	// from the same self-signed development chain.
	MTLSModeSelfSigned MTLSMode = iota
	// MTLSModeACMEMixed uses an ACME-issued server certificate alongside
	// a separately generated self-signed client-auth CA.
	MTLSModeACMEMixed
)

// Config drives Certificate Manager initialization. The zero value is not
// usable directly — use NewBuilder to get sane defaults.
type Config struct {
	Mode Mode

	// Hostnames is the SAN list for development-mode and ACME certificates.
	Hostnames []string

	// Static mode.
	CertPath string
	KeyPath  string
	CAPath   string

	// Development mode.
	ValidityDays    int
	CertDir         string // optional; when set, dev certs persist here
	ForceRotation   bool

	// ACME mode.
	ACMEEmail         string
	ACMEProduction    bool
	ACMEDirectoryURL  string // override for test CAs; empty = derive from ACMEProduction
	ACMERenewalDays   int
	ACMECertDir       string
	DNSProvider       DNSProvider // pluggable DNS-01 solver, e.g. Cloudflare

	// mTLS.
	MTLSEnabled            bool
	MTLSMode               MTLSMode
	ClientCertPath         string
	ClientKeyPath          string
	ClientCAPath           string
	AutoGenerateClientCert bool
	ClientCertSubject      string
	MTLSWhitelistPaths     []string

	// Renewal.
	AutoRefreshEnabled    bool
	RefreshCheckInterval  time.Duration

	// GRPCEnabled controls whether Initialize provisions a separate
	// gRPC-role bundle, which advertises only h2 in ALPN. When false,
	// GetGRPCServerConfig returns nil.
	GRPCEnabled bool
}

// DefaultConfig returns the defaults used by NewBuilder, matching the
// provisioning defaults in the original cert-manager configuration
// (development mode, ten-year validity, 30-day ACME renewal threshold,
// hourly refresh checks).
func DefaultConfig() Config {
	return Config{
		Mode:                 ModeDevelopment,
		Hostnames:            []string{"localhost", "127.0.0.1"},
		ValidityDays:         3650,
		ACMERenewalDays:      30,
		AutoRefreshEnabled:   true,
		RefreshCheckInterval: time.Hour,
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
