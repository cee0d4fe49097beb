package grpcengine

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCallContext_ParsesTimeoutAndEncoding(t *testing.T) {
	req := httptest.NewRequest("POST", "/rat.v1.X/Y", nil)
	req.Header.Set("grpc-timeout", "500m")
	req.Header.Set("grpc-encoding", "gzip")

	ctx, cancel := newCallContext(req, "/rat.v1.X/Y")
	defer cancel()

	require.Equal(t, "gzip", ctx.RequestCodec)
	deadline := ctx.DeadlineProto()
	require.NotNil(t, deadline)
	assert.NotEmpty(t, ctx.CallID)
}

func TestNewCallContext_NoTimeoutMeansNoDeadline(t *testing.T) {
	req := httptest.NewRequest("POST", "/rat.v1.X/Y", nil)
	ctx, cancel := newCallContext(req, "/rat.v1.X/Y")
	defer cancel()
	assert.Nil(t, ctx.DeadlineProto())
}
