package certmanager

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDevCertFiles(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()
	_, ca, err := generateDevelopmentBundle([]string{"localhost"}, 30, httpALPN, dir)
	require.NoError(t, err)
	require.NotNil(t, ca)
	return filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")
}

func TestLoadStaticBundle_AcceptsECDSA(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeDevCertFiles(t, dir)

	bundle, err := loadStaticBundle(certPath, keyPath, "", httpALPN)
	require.NoError(t, err)
	assert.NotNil(t, bundle.Leaf)
}

func TestLoadStaticBundle_RejectsRSA(t *testing.T) {
	dir := t.TempDir()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: bigOne(),
		Subject:      pkix.Name{CommonName: "rsa-leaf"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().AddDate(1, 0, 0),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certPath := filepath.Join(dir, "rsa.crt")
	keyPath := filepath.Join(dir, "rsa.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	keyDER := x509.MarshalPKCS1PrivateKey(key)
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: keyDER}), 0o600))

	_, err = loadStaticBundle(certPath, keyPath, "", httpALPN)
	assert.Error(t, err)
}

func bigOne() *big.Int { return big.NewInt(1) }
