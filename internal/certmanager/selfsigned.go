package certmanager

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.ratengine.dev/ratengine/internal/raterr"
)

// devCA is a development certificate authority: a self-signed ECDSA
// P-384 certificate used to sign both the server leaf and, when mTLS is
// configured for self-signed mode, a client-auth leaf.
type devCA struct {
	cert    *x509.Certificate
	certDER []byte
	key     *ecdsa.PrivateKey
}

// newDevCA generates a fresh development CA, matching the original
// implementation's choice of P-384 and ECDSA-with-SHA-384 signatures.
func newDevCA() (*devCA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate CA key: %w", err)
	}
	serial, err := randSerial()
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "RAT-Engine Development CA", Organization: []string{"RAT-Engine Development"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(20, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create CA certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parse CA certificate: %w", err)
	}
	return &devCA{cert: cert, certDER: der, key: key}, nil
}

func randSerial() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
}

// issueLeaf generates a P-384 key and issues an ECDSA leaf certificate for
// it, signed by ca, valid for validityDays, with the given SANs. It returns
// the key and the certificate's DER bytes.
func (ca *devCA) issueLeaf(cn string, hostnames []string, validityDays int, extKeyUsage []x509.ExtKeyUsage) (*ecdsa.PrivateKey, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate leaf key: %w", err)
	}
	serial, err := randSerial()
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"RAT-Engine Development"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(0, 0, validityDays),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           extKeyUsage,
		BasicConstraintsValid: true,
	}
	for _, h := range hostnames {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		return nil, nil, fmt.Errorf("create leaf certificate: %w", err)
	}
	return key, der, nil
}

// generateDevelopmentBundle creates a fresh CA + server leaf chain and
// returns a ready-to-serve Bundle. If certDir is non-empty the CA and
// server material are persisted as ca.crt, server.crt, server.key, per
// the persisted-state layout in the specification.
func generateDevelopmentBundle(hostnames []string, validityDays int, alpn []string, certDir string) (*Bundle, *devCA, error) {
	ca, err := newDevCA()
	if err != nil {
		return nil, nil, raterr.New(raterr.KindTLS, "certmanager.generateDevelopmentBundle", err)
	}

	leafKey, leafDER, err := ca.issueLeaf("RAT-Engine Development Server", hostnames, validityDays,
		[]x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth})
	if err != nil {
		return nil, nil, raterr.New(raterr.KindTLS, "certmanager.generateDevelopmentBundle", err)
	}
	leaf, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, nil, raterr.New(raterr.KindTLS, "certmanager.generateDevelopmentBundle", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	if err != nil {
		return nil, nil, raterr.New(raterr.KindTLS, "certmanager.generateDevelopmentBundle", err)
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{leafDER, ca.certDER},
		PrivateKey:  leafKey,
		Leaf:        leaf,
	}

	if certDir != "" {
		if err := persistPEM(certDir, "ca.crt", pemBlock("CERTIFICATE", ca.certDER)); err != nil {
			return nil, nil, err
		}
		if err := persistPEM(certDir, "server.crt", pemBlock("CERTIFICATE", leafDER)); err != nil {
			return nil, nil, err
		}
		if err := persistPEM(certDir, "server.key", pemBlock("EC PRIVATE KEY", keyDER)); err != nil {
			return nil, nil, err
		}
	}

	return &Bundle{
		TLSCert:  tlsCert,
		Leaf:     leaf,
		ALPN:     alpn,
		NotAfter: leaf.NotAfter,
		issuedAt: time.Now(),
	}, ca, nil
}

// generateClientBundle issues a client-auth certificate signed by ca, for
// the self-signed mTLS mode's auto_generate_client_cert feature.
func generateClientBundle(ca *devCA, subject string, validityDays int, certDir string) (tls.Certificate, error) {
	if subject == "" {
		subject = "RAT-Engine Development Client"
	}
	key, der, err := ca.issueLeaf(subject, nil, validityDays, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth})
	if err != nil {
		return tls.Certificate{}, raterr.New(raterr.KindTLS, "certmanager.generateClientBundle", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, raterr.New(raterr.KindTLS, "certmanager.generateClientBundle", err)
	}

	if certDir != "" {
		if err := persistPEM(certDir, "client.crt", pemBlock("CERTIFICATE", der)); err != nil {
			return tls.Certificate{}, err
		}
		if err := persistPEM(certDir, "client.key", pemBlock("EC PRIVATE KEY", keyDER)); err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(pem.EncodeToMemory(pemBlock("CERTIFICATE", der)), pem.EncodeToMemory(pemBlock("EC PRIVATE KEY", keyDER)))
	if err != nil {
		return tls.Certificate{}, raterr.New(raterr.KindTLS, "certmanager.generateClientBundle", err)
	}
	return cert, nil
}

func pemBlock(typ string, der []byte) *pem.Block {
	return &pem.Block{Type: typ, Bytes: der}
}

func persistPEM(dir, name string, block *pem.Block) error {
	return persistRawPEM(dir, name, pem.EncodeToMemory(block))
}

// persistRawPEM writes already PEM-encoded bytes as-is, for callers (such
// as ACME issuance) holding a full certificate chain rather than a single
// block.
func persistRawPEM(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return raterr.New(raterr.KindConfig, "certmanager.persistPEM", fmt.Errorf("mkdir %s: %w", dir, err))
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return raterr.New(raterr.KindConfig, "certmanager.persistPEM", fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
