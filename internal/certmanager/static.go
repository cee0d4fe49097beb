package certmanager

import (
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.ratengine.dev/ratengine/internal/raterr"
)

// allowedSignatureAlgorithms mirrors the original implementation's refusal
// to serve certificates signed with anything but ECDSA: RSA material is
// rejected even if otherwise well-formed, so a misconfigured static
// deployment fails fast at startup rather than at the first handshake.
var allowedSignatureAlgorithms = map[x509.SignatureAlgorithm]bool{
	x509.ECDSAWithSHA256: true,
	x509.ECDSAWithSHA384: true,
	x509.ECDSAWithSHA512: true,
}

// loadStaticBundle reads a certificate/key pair (and, optionally, a CA
// bundle for mTLS) from disk and validates that the leaf uses an ECDSA
// key and signature algorithm.
func loadStaticBundle(certPath, keyPath, caPath string, alpn []string) (*Bundle, error) {
	tlsCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, raterr.New(raterr.KindTLS, "certmanager.loadStaticBundle",
			fmt.Errorf("load key pair %s/%s: %w", certPath, keyPath, err))
	}

	leaf := tlsCert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(tlsCert.Certificate[0])
		if err != nil {
			return nil, raterr.New(raterr.KindTLS, "certmanager.loadStaticBundle",
				fmt.Errorf("parse leaf certificate: %w", err))
		}
	}

	if err := validateECDSALeaf(leaf, tlsCert.PrivateKey); err != nil {
		return nil, raterr.New(raterr.KindTLS, "certmanager.loadStaticBundle", err)
	}

	bundle := &Bundle{
		TLSCert: tlsCert,
		Leaf:    leaf,
		ALPN:    alpn,
	}
	bundle.NotAfter = leaf.NotAfter

	if caPath != "" {
		pool, err := loadCertPool(caPath)
		if err != nil {
			return nil, raterr.New(raterr.KindTLS, "certmanager.loadStaticBundle", err)
		}
		bundle.ClientCAs = pool
	}

	return bundle, nil
}

func validateECDSALeaf(leaf *x509.Certificate, key any) error {
	if _, ok := leaf.PublicKey.(*ecdsa.PublicKey); !ok {
		return fmt.Errorf("static certificate public key must be ECDSA, got %T", leaf.PublicKey)
	}
	if _, ok := key.(*ecdsa.PrivateKey); !ok {
		return fmt.Errorf("static private key must be ECDSA, got %T", key)
	}
	if !allowedSignatureAlgorithms[leaf.SignatureAlgorithm] {
		return fmt.Errorf("static certificate signature algorithm %s is not an accepted ECDSA variant", leaf.SignatureAlgorithm)
	}
	return nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates parsed from CA bundle %s", path)
	}
	return pool, nil
}
