package certmanager

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/libdns/libdns"
	"github.com/mholt/acmez/v3"
	"github.com/mholt/acmez/v3/acme"

	"go.ratengine.dev/ratengine/internal/raterr"
)

const (
	letsEncryptProductionDirectory = "https://acme-v02.api.letsencrypt.org/directory"
	letsEncryptStagingDirectory    = "https://acme-staging-v02.api.letsencrypt.org/directory"
	dns01RecordTTL                 = 120 * time.Second
)

// dns01Solver adapts a DNSProvider to acmez's Solver interface, presenting
// and removing the _acme-challenge TXT record for a DNS-01 challenge.
type dns01Solver struct {
	provider DNSProvider
}

func (s *dns01Solver) Present(ctx context.Context, chal acme.Challenge) error {
	_, err := s.provider.AppendRecords(ctx, parentZone(chal.Identifier.Value), []libdns.Record{challengeRecord(chal)})
	if err != nil {
		return fmt.Errorf("present DNS-01 record: %w", err)
	}
	return nil
}

func (s *dns01Solver) CleanUp(ctx context.Context, chal acme.Challenge) error {
	_, err := s.provider.DeleteRecords(ctx, parentZone(chal.Identifier.Value), []libdns.Record{challengeRecord(chal)})
	if err != nil {
		return fmt.Errorf("clean up DNS-01 record: %w", err)
	}
	return nil
}

func challengeRecord(chal acme.Challenge) libdns.Record {
	return libdns.TXT{
		Name: "_acme-challenge." + chal.Identifier.Value,
		Text: chal.DNS01KeyAuthorization(),
		TTL:  dns01RecordTTL,
	}
}

// parentZone is a deliberately simple best-effort derivation of the zone a
// DNS-01 TXT record should be published under. A name of two labels or
// fewer (example.com) is returned as its own zone; a longer name has its
// left-most label stripped (www.example.com -> example.com). This is
// correct for registrable domains with a single-label public suffix
// (.com, .dev) but not for multi-label public suffixes (example.co.uk).
// Deployments against such suffixes should configure DNSProvider against
// the correct zone directly.
func parentZone(fqdn string) string {
	fqdn = strings.TrimSuffix(fqdn, ".")
	idx := strings.IndexByte(fqdn, '.')
	if idx < 0 || strings.Count(fqdn, ".") < 2 {
		return fqdn
	}
	return fqdn[idx+1:]
}

// issueACMECertificate runs the full DNS-01 order flow: account
// registration, challenge presentation via DNSProvider, CSR submission,
// and chain retrieval. It is grounded in the original implementation's
// ACME issuance flow, replacing its DNS-01 solver with a pluggable
// libdns provider instead of a single hard-coded DNS host.
func issueACMECertificate(ctx context.Context, cfg Config, alpn []string) (*Bundle, error) {
	const op = "certmanager.issueACMECertificate"

	if cfg.DNSProvider == nil {
		return nil, raterr.New(raterr.KindConfig, op, fmt.Errorf("ACME mode requires a DNSProvider"))
	}
	if len(cfg.Hostnames) == 0 {
		return nil, raterr.New(raterr.KindConfig, op, fmt.Errorf("ACME mode requires at least one hostname"))
	}
	if strings.TrimSpace(cfg.ACMEEmail) == "" {
		return nil, raterr.New(raterr.KindConfig, op, fmt.Errorf("ACME mode requires an account email"))
	}

	directoryURL := cfg.ACMEDirectoryURL
	if directoryURL == "" {
		directoryURL = letsEncryptStagingDirectory
		if cfg.ACMEProduction {
			directoryURL = letsEncryptProductionDirectory
		}
	}

	accountKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("generate ACME account key: %w", err))
	}

	client := &acmez.Client{
		Client: &acme.Client{
			Directory: directoryURL,
		},
		ChallengeSolvers: map[string]acmez.Solver{
			acme.ChallengeTypeDNS01: &dns01Solver{provider: cfg.DNSProvider},
		},
	}

	account := acme.Account{
		Contact:              []string{"mailto:" + cfg.ACMEEmail},
		TermsOfServiceAgreed: true,
		PrivateKey:           accountKey,
	}
	account, err = client.NewAccount(ctx, account)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("register ACME account: %w", err))
	}

	certKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("generate certificate key: %w", err))
	}
	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: cfg.Hostnames[0]},
		DNSNames: cfg.Hostnames,
	}, certKey)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("create CSR: %w", err))
	}
	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("parse CSR: %w", err))
	}

	certs, err := client.ObtainCertificateUsingCSR(ctx, account, csr)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("obtain certificate: %w", err))
	}
	if len(certs) == 0 {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("ACME order returned no certificates"))
	}

	keyDER, err := x509.MarshalECPrivateKey(certKey)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("marshal certificate key: %w", err))
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	tlsCert, err := tls.X509KeyPair(certs[0].ChainPEM, keyPEM)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("assemble TLS certificate: %w", err))
	}
	leaf, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, op, fmt.Errorf("parse issued leaf: %w", err))
	}
	tlsCert.Leaf = leaf

	if cfg.ACMECertDir != "" {
		// cert.pem holds the full chain as returned by the CA, not just the
		// leaf, so clients that don't separately fetch intermediates can
		// still build a valid trust path.
		if err := persistRawPEM(cfg.ACMECertDir, "cert.pem", certs[0].ChainPEM); err != nil {
			return nil, err
		}
		if err := persistPEM(cfg.ACMECertDir, "key.pem", &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}); err != nil {
			return nil, err
		}
	}

	return &Bundle{
		TLSCert:  tlsCert,
		Leaf:     leaf,
		ALPN:     alpn,
		NotAfter: leaf.NotAfter,
		issuedAt: time.Now(),
	}, nil
}
