package certmanager

import (
	"crypto/ecdsa"
	"crypto/x509"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDevelopmentBundle_SignedByCA(t *testing.T) {
	bundle, ca, err := generateDevelopmentBundle([]string{"localhost", "127.0.0.1"}, 30, httpALPN, "")
	require.NoError(t, err)
	require.NotNil(t, ca)

	require.NoError(t, bundle.Leaf.CheckSignatureFrom(ca.cert))
	assert.Contains(t, bundle.Leaf.DNSNames, "localhost")
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), bundle.NotAfter, time.Hour)
	assert.IsType(t, &ecdsa.PrivateKey{}, bundle.TLSCert.PrivateKey)
}

func TestGenerateDevelopmentBundle_PersistsToDir(t *testing.T) {
	dir := t.TempDir()
	_, _, err := generateDevelopmentBundle([]string{"localhost"}, 30, httpALPN, dir)
	require.NoError(t, err)

	for _, name := range []string{"ca.crt", "server.crt", "server.key"} {
		assert.FileExists(t, dir+"/"+name)
	}
}

func TestGenerateClientBundle_SignedBySameCA(t *testing.T) {
	_, ca, err := generateDevelopmentBundle([]string{"localhost"}, 30, httpALPN, "")
	require.NoError(t, err)

	client, err := generateClientBundle(ca, "test-client", 30, "")
	require.NoError(t, err)
	require.Len(t, client.Certificate, 1)

	leaf, err := x509.ParseCertificate(client.Certificate[0])
	require.NoError(t, err)
	require.NoError(t, leaf.CheckSignatureFrom(ca.cert))
}
