package router

import (
	"encoding/json"
	"net/http"

	"go.ratengine.dev/ratengine/internal/pathmatch"
)

// IntrospectionPath is the well-known path for the route listing endpoint
// described in the specification's supplemented C3 features.
const IntrospectionPath = "/__rat/routes"

// RegisterIntrospection mounts GET /__rat/routes, returning the full
// registered route table as JSON. It is opt-in: callers wire it in
// explicitly rather than having it appear unconditionally in every
// deployment.
func (rt *Router) RegisterIntrospection() error {
	return rt.Get(IntrospectionPath, func(w http.ResponseWriter, r *http.Request, _ pathmatch.Params) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rt.Routes())
	})
}
