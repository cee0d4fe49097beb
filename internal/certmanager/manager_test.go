package certmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DevelopmentModeInitialize(t *testing.T) {
	cfg := NewBuilder().
		DevelopmentMode(true).
		WithHostnames([]string{"localhost"}).
		EnableAutoRefresh(false).
		EnableGRPC(true).
		BuildConfig()

	mgr, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(context.Background()))

	httpBundle := mgr.GetHTTPServerConfig()
	grpcBundle := mgr.GetGRPCServerConfig()
	require.NotNil(t, httpBundle)
	require.NotNil(t, grpcBundle)

	assert.Equal(t, []string{"h2", "http/1.1"}, httpBundle.ALPN)
	assert.Equal(t, []string{"h2"}, grpcBundle.ALPN)
}

func TestManager_MTLSSelfSignedProvisionsClientTrust(t *testing.T) {
	cfg := NewBuilder().
		DevelopmentMode(true).
		WithHostnames([]string{"localhost"}).
		EnableAutoRefresh(false).
		EnableMTLS(true).
		WithMTLSMode(MTLSModeSelfSigned).
		AutoGenerateClientCert(true).
		AddMTLSWhitelistPath("/healthz").
		BuildConfig()

	mgr, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Initialize(context.Background()))

	bundle := mgr.GetHTTPServerConfig()
	require.NotNil(t, bundle.ClientCAs)
	require.NotNil(t, mgr.ClientCredential())

	assert.True(t, mgr.IsMTLSWhitelisted("/healthz"))
	assert.False(t, mgr.IsMTLSWhitelisted("/private"))
}

func TestManager_ACMEMixedRequiresACMEMode(t *testing.T) {
	cfg := NewBuilder().
		DevelopmentMode(true).
		EnableMTLS(true).
		WithMTLSMode(MTLSModeACMEMixed).
		BuildConfig()

	_, err := New(cfg)
	assert.Error(t, err)
}
