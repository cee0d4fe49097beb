package grpcengine

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, false, payload))
	return buf.Bytes()
}

func TestRegistry_UnaryRoundTrip(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(MethodDesc{
		FullMethod: "/rat.v1.Example/Echo",
		Kind:       Unary,
		Unary: func(ctx *CallContext, req []byte) ([]byte, error) {
			return append([]byte("echo:"), req...), nil
		},
	}))

	body := bytes.NewReader(frame(t, []byte("hi")))
	req := httptest.NewRequest(http.MethodPost, "/rat.v1.Example/Echo", body)
	rec := httptest.NewRecorder()

	reg.ServeHTTP(rec, req)

	resp, err := readMessage(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", string(resp))
	assert.Equal(t, "0", rec.Header().Get(http.TrailerPrefix+"Grpc-Status"))
}

func TestRegistry_UnknownMethodIsUnimplemented(t *testing.T) {
	reg := NewRegistry()
	req := httptest.NewRequest(http.MethodPost, "/rat.v1.Example/Missing", bytes.NewReader(nil))
	rec := httptest.NewRecorder()

	reg.ServeHTTP(rec, req)

	code, err := strconv.Atoi(rec.Header().Get(http.TrailerPrefix + "Grpc-Status"))
	require.NoError(t, err)
	assert.Equal(t, 12, code) // codes.Unimplemented
}

// headerCheckReader asserts response headers are already committed the
// first time the request body is read — the early-headers-before-first-
// message ordering required for client-streaming and bidirectional calls.
type headerCheckReader struct {
	t       *testing.T
	rec     *httptest.ResponseRecorder
	checked bool
	r       io.Reader
}

func (h *headerCheckReader) Read(p []byte) (int, error) {
	if !h.checked {
		h.checked = true
		assert.Equal(h.t, http.StatusOK, h.rec.Code, "response headers must be sent before the first request read")
		assert.NotEmpty(h.t, h.rec.Header().Get("Content-Type"))
	}
	return h.r.Read(p)
}

func TestRegistry_ClientStream_HeadersSentBeforeFirstMessage(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(MethodDesc{
		FullMethod: "/rat.v1.Example/Sum",
		Kind:       ClientStream,
		ClientStream: func(ctx *CallContext, recv func() ([]byte, error)) ([]byte, error) {
			var total int
			for {
				msg, err := recv()
				if err != nil {
					break
				}
				n, _ := strconv.Atoi(string(msg))
				total += n
			}
			return []byte(strconv.Itoa(total)), nil
		},
	}))

	framed := append(frame(t, []byte("2")), frame(t, []byte("3"))...)
	rec := httptest.NewRecorder()
	body := &headerCheckReader{t: t, rec: rec, r: bytes.NewReader(framed)}
	req := httptest.NewRequest(http.MethodPost, "/rat.v1.Example/Sum", body)

	reg.ServeHTTP(rec, req)

	resp, err := readMessage(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "5", string(resp))
}
