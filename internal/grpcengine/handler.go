package grpcengine

// CallKind identifies one of the four gRPC call shapes a method can
// implement.
type CallKind int

const (
	Unary CallKind = iota
	ServerStream
	ClientStream
	Bidirectional
)

func (k CallKind) String() string {
	switch k {
	case Unary:
		return "unary"
	case ServerStream:
		return "server-stream"
	case ClientStream:
		return "client-stream"
	case Bidirectional:
		return "bidirectional"
	default:
		return "unknown"
	}
}

// UnaryHandler handles a single request/response call.
type UnaryHandler func(ctx *CallContext, req []byte) ([]byte, error)

// ServerStreamHandler handles one request with zero or more streamed
// responses, written via send. Returning a nil error after the handler
// returns closes the stream successfully.
type ServerStreamHandler func(ctx *CallContext, req []byte, send func([]byte) error) error

// ClientStreamHandler handles zero or more streamed requests, read via
// recv (which returns io.EOF once the client half-closes), and produces a
// single response.
type ClientStreamHandler func(ctx *CallContext, recv func() ([]byte, error)) ([]byte, error)

// BidiHandler is the delegated, event-driven handler model for fully
// bidirectional calls: the dispatcher invokes OnConnected once response
// headers have already been sent (so the handler may call send before
// ever seeing a request message), then OnMessageReceived for each inbound
// frame, and finally exactly one of OnDisconnected or OnError.
type BidiHandler interface {
	OnConnected(ctx *CallContext, send func([]byte) error) error
	OnMessageReceived(ctx *CallContext, msg []byte) error
	OnDisconnected(ctx *CallContext)
	OnError(ctx *CallContext, err error)
}

// MethodDesc describes one registered gRPC method. Exactly the handler
// field matching Kind should be set.
type MethodDesc struct {
	FullMethod   string // e.g. "/rat.v1.Example/GetThing"
	Kind         CallKind
	Unary        UnaryHandler
	ServerStream ServerStreamHandler
	ClientStream ClientStreamHandler
	Bidi         BidiHandler
}
