package grpcengine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Registry holds registered gRPC methods and dispatches inbound HTTP/2
// requests (content-type application/grpc) to the matching handler. It
// implements http.Handler so it can be mounted directly by the protocol
// dispatcher (C5) or composed behind the HTTP router for mixed-mode
// single-port serving.
type Registry struct {
	methods map[string]MethodDesc
}

// NewRegistry returns an empty Registry with the local reflection service
// already registered (see reflection.go).
func NewRegistry() *Registry {
	r := &Registry{methods: make(map[string]MethodDesc)}
	r.registerReflection()
	return r
}

// Register adds a method. It is an error to register the same FullMethod
// twice.
func (r *Registry) Register(desc MethodDesc) error {
	if _, exists := r.methods[desc.FullMethod]; exists {
		return fmt.Errorf("grpcengine: method %s already registered", desc.FullMethod)
	}
	r.methods[desc.FullMethod] = desc
	return nil
}

// Methods returns the full list of registered methods, including the
// local reflection method, in no particular order.
func (r *Registry) Methods() []MethodDesc {
	out := make([]MethodDesc, 0, len(r.methods))
	for _, d := range r.methods {
		out = append(out, d)
	}
	return out
}

// ServeHTTP dispatches one HTTP/2 gRPC request. The caller (C5) is
// responsible for ensuring this is only reached for HTTP/2 requests whose
// Content-Type begins with "application/grpc".
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	desc, ok := r.methods[req.URL.Path]
	if !ok {
		writeStatus(w, status.New(codes.Unimplemented, "method not found: "+req.URL.Path))
		return
	}

	ctx, cancel := newCallContext(req, desc.FullMethod)
	defer cancel()

	switch desc.Kind {
	case Unary:
		r.serveUnary(w, req, ctx, desc.Unary)
	case ServerStream:
		r.serveServerStream(w, req, ctx, desc.ServerStream)
	case ClientStream:
		r.serveClientStream(w, req, ctx, desc.ClientStream)
	case Bidirectional:
		r.serveBidirectional(w, req, ctx, desc.Bidi)
	default:
		writeStatus(w, status.New(codes.Internal, "unknown call kind"))
	}
}

func prepareResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/grpc+proto")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// serveUnary reads exactly one request frame and writes exactly one
// response frame before the trailers.
func (r *Registry) serveUnary(w http.ResponseWriter, req *http.Request, ctx *CallContext, h UnaryHandler) {
	if h == nil {
		writeStatus(w, status.New(codes.Unimplemented, "unary handler not set"))
		return
	}
	reqMsg, err := readMessage(req.Body)
	if err != nil {
		writeStatus(w, status.New(codes.Internal, "read request: "+err.Error()))
		return
	}
	prepareResponse(w)
	respMsg, err := h(ctx, reqMsg)
	if err != nil {
		writeStatus(w, statusFromError(err))
		return
	}
	if err := writeMessage(w, ctx.RequestCodec == "gzip", respMsg); err != nil {
		logStreamWriteError(ctx, err)
		return
	}
	writeStatus(w, status.New(codes.OK, ""))
}

// serveServerStream reads one request frame, sends response headers, then
// lets the handler stream zero or more response frames.
func (r *Registry) serveServerStream(w http.ResponseWriter, req *http.Request, ctx *CallContext, h ServerStreamHandler) {
	if h == nil {
		writeStatus(w, status.New(codes.Unimplemented, "server-stream handler not set"))
		return
	}
	reqMsg, err := readMessage(req.Body)
	if err != nil {
		writeStatus(w, status.New(codes.Internal, "read request: "+err.Error()))
		return
	}
	prepareResponse(w)

	send := func(msg []byte) error { return writeMessage(w, ctx.RequestCodec == "gzip", msg) }
	if err := h(ctx, reqMsg, send); err != nil {
		writeStatus(w, statusFromError(err))
		return
	}
	writeStatus(w, status.New(codes.OK, ""))
}

// serveClientStream sends response headers BEFORE reading any request
// frame, so the peer's first message is never blocked on this server
// finishing earlier work. This ordering is the critical correctness
// requirement for client-streaming and bidirectional calls.
func (r *Registry) serveClientStream(w http.ResponseWriter, req *http.Request, ctx *CallContext, h ClientStreamHandler) {
	if h == nil {
		writeStatus(w, status.New(codes.Unimplemented, "client-stream handler not set"))
		return
	}
	prepareResponse(w)

	recv := func() ([]byte, error) { return readMessage(req.Body) }
	respMsg, err := h(ctx, recv)
	if err != nil {
		writeStatus(w, statusFromError(err))
		return
	}
	if err := writeMessage(w, ctx.RequestCodec == "gzip", respMsg); err != nil {
		logStreamWriteError(ctx, err)
		return
	}
	writeStatus(w, status.New(codes.OK, ""))
}

// serveBidirectional sends response headers before invoking OnConnected,
// then pumps inbound frames to OnMessageReceived on the calling
// goroutine until the peer half-closes or resets the stream.
func (r *Registry) serveBidirectional(w http.ResponseWriter, req *http.Request, ctx *CallContext, h BidiHandler) {
	if h == nil {
		writeStatus(w, status.New(codes.Unimplemented, "bidirectional handler not set"))
		return
	}
	prepareResponse(w)

	send := func(msg []byte) error { return writeMessage(w, ctx.RequestCodec == "gzip", msg) }

	if err := h.OnConnected(ctx, send); err != nil {
		h.OnError(ctx, err)
		writeStatus(w, statusFromError(err))
		return
	}

	for {
		msg, err := readMessage(req.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.OnDisconnected(ctx)
				writeStatus(w, status.New(codes.OK, ""))
				return
			}
			// A reset stream surfaces here as a read error on an
			// already-cancelled request context; treat it as a silent
			// disconnect rather than an application error.
			if ctx.Err() != nil {
				h.OnDisconnected(ctx)
				return
			}
			h.OnError(ctx, err)
			writeStatus(w, statusFromError(err))
			return
		}
		if err := h.OnMessageReceived(ctx, msg); err != nil {
			h.OnError(ctx, err)
			writeStatus(w, statusFromError(err))
			return
		}
	}
}

func statusFromError(err error) *status.Status {
	if s, ok := status.FromError(err); ok {
		return s
	}
	return status.New(codes.Unknown, err.Error())
}

// writeStatus emits the gRPC trailer pair. It uses the undeclared-trailer
// convention (http.TrailerPrefix) so it can be called at the end of
// any handler regardless of whether response headers were already sent.
func writeStatus(w http.ResponseWriter, s *status.Status) {
	h := w.Header()
	if _, sent := h["Content-Type"]; !sent {
		prepareResponse(w)
	}
	h.Set(http.TrailerPrefix+"Grpc-Status", strconv.Itoa(int(s.Code())))
	h.Set(http.TrailerPrefix+"Grpc-Message", s.Message())
}

func logStreamWriteError(ctx *CallContext, err error) {
	slog.Warn("grpcengine: stream write failed, peer likely disconnected",
		"call_id", ctx.CallID, "method", ctx.FullMethod, "error", err)
}
