package grpcengine

import "encoding/json"

// ReflectionMethod is the wire shape of one entry in the local reflection
// listing. Unlike grpc.reflection.v1 (which streams FileDescriptorProtos
// and requires every service to be compiled with descriptor metadata),
// this is a lightweight, framework-native introspection surface: it lists
// method names and call kinds so a local debugging client or admin UI can
// discover what a running server exposes without a shared .proto file.
type ReflectionMethod struct {
	FullMethod string `json:"full_method"`
	Kind       string `json:"kind"`
}

const reflectionMethod = "/rat.v1.Reflection/ListMethods"

// registerReflection installs the local introspection method. It is a
// unary call returning a JSON-encoded []ReflectionMethod rather than a
// protobuf message, since the registry has no descriptor registry to
// serialize against.
func (r *Registry) registerReflection() {
	r.methods[reflectionMethod] = MethodDesc{
		FullMethod: reflectionMethod,
		Kind:       Unary,
		Unary: func(ctx *CallContext, _ []byte) ([]byte, error) {
			list := make([]ReflectionMethod, 0, len(r.methods))
			for _, d := range r.methods {
				list = append(list, ReflectionMethod{FullMethod: d.FullMethod, Kind: d.Kind.String()})
			}
			return json.Marshal(list)
		},
	}
}
