package grpcengine

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Metadata is the gRPC request metadata, derived from HTTP/2 headers with
// the "grpc-" and HTTP/2 pseudo-headers stripped.
type Metadata map[string][]string

// Get returns the first value for key, or "" if absent.
func (m Metadata) Get(key string) string {
	if vs := m[strings.ToLower(key)]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// DeadlineProto returns the call's effective deadline as a protobuf
// Timestamp, suitable for embedding in a response message or a log field
// without exposing the raw context.Context. Returns nil if the call
// carries no deadline. Named distinctly from the embedded
// context.Context's own Deadline method so CallContext keeps satisfying
// the context.Context interface.
func (c *CallContext) DeadlineProto() *timestamppb.Timestamp {
	t, ok := c.Context.Deadline()
	if !ok {
		return nil
	}
	return timestamppb.New(t)
}

// CallContext carries per-call state: the request's context.Context
// (cancelled when the peer resets the stream or the deadline elapses),
// metadata, negotiated compression, and an identifier used for logging
// and the reflection service.
type CallContext struct {
	context.Context

	CallID       string
	FullMethod   string
	Metadata     Metadata
	RequestCodec string // negotiated grpc-encoding for responses: "identity" or "gzip"
}

// newCallContext builds a CallContext from an inbound HTTP/2 request,
// applying the grpc-timeout header as a context deadline when present.
func newCallContext(r *http.Request, fullMethod string) (*CallContext, context.CancelFunc) {
	md := make(Metadata, len(r.Header))
	for k, v := range r.Header {
		lk := strings.ToLower(k)
		if lk == "content-type" || lk == "te" || strings.HasPrefix(lk, "grpc-") {
			continue
		}
		md[lk] = v
	}

	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if timeout, ok := parseGRPCTimeout(r.Header.Get("grpc-timeout")); ok {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	encoding := "identity"
	if e := r.Header.Get("grpc-accept-encoding"); strings.Contains(e, "gzip") {
		encoding = "gzip"
	} else if e := r.Header.Get("grpc-encoding"); e == "gzip" {
		encoding = "gzip"
	}

	return &CallContext{
		Context:      ctx,
		CallID:       uuid.NewString(),
		FullMethod:   fullMethod,
		Metadata:     md,
		RequestCodec: encoding,
	}, cancel
}

// parseGRPCTimeout decodes the grpc-timeout header's "<value><unit>"
// format, where unit is one of H, M, S, m, u, n (hours, minutes,
// seconds, milliseconds, microseconds, nanoseconds).
func parseGRPCTimeout(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	unit := v[len(v)-1]
	numPart := v[:len(v)-1]
	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, false
	}

	var scale time.Duration
	switch unit {
	case 'H':
		scale = time.Hour
	case 'M':
		scale = time.Minute
	case 'S':
		scale = time.Second
	case 'm':
		scale = time.Millisecond
	case 'u':
		scale = time.Microsecond
	case 'n':
		scale = time.Nanosecond
	default:
		return 0, false
	}
	return time.Duration(n) * scale, true
}
