package certmanager

import (
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Bundle is a set of {leaf certificate chain, private key, optional
// client-auth trust roots, ALPN list} per the specification's Certificate
// Bundle data model. Two bundles may exist in a Manager: one for HTTP,
// one for gRPC.
type Bundle struct {
	TLSCert    tls.Certificate
	Leaf       *x509.Certificate
	ClientCAs  *x509.CertPool // nil unless mTLS is enabled
	ALPN       []string
	NotAfter   time.Time
	issuedAt   time.Time
}

// ServerTLSConfig renders the bundle into a *tls.Config suitable for
// tls.NewListener or http2.Server.TLSConfig.
func (b *Bundle) ServerTLSConfig() *tls.Config {
	cfg := &tls.Config{
		Certificates: []tls.Certificate{b.TLSCert},
		NextProtos:   append([]string(nil), b.ALPN...),
		MinVersion:   tls.VersionTLS12,
	}
	if b.ClientCAs != nil {
		cfg.ClientCAs = b.ClientCAs
		cfg.ClientAuth = tls.VerifyClientCertIfGiven
	}
	return cfg
}

// ExpiringWithin reports whether the bundle's leaf certificate will expire
// within d of now — the renewal-loop trigger condition from §4.1.
func (b *Bundle) ExpiringWithin(d time.Duration, now time.Time) bool {
	return b.NotAfter.Sub(now) < d
}
