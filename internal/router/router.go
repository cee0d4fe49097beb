// Package router implements the HTTP path router: method+pattern route
// storage on top of pathmatch's typed matcher, CORS policy enforcement,
// and HEAD-to-GET fallback. gRPC methods are not stored here; they live in
// grpcengine.Registry. The protocol dispatcher (C5) sends every non-gRPC
// request to this router.
package router

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.ratengine.dev/ratengine/internal/pathmatch"
)

// Handler is the HTTP route handler signature. It receives the matched
// path parameters alongside the usual request/response pair.
type Handler func(w http.ResponseWriter, r *http.Request, params pathmatch.Params)

type routeEntry struct {
	method  string
	pattern string
	handler Handler
}

// Router stores HTTP routes and CORS policy, and dispatches incoming
// requests to the best-matching handler per the typed-path specificity
// rules in pathmatch.
type Router struct {
	mu sync.RWMutex

	matchers map[string]*pathmatch.Matcher[Handler] // keyed by HTTP method
	entries  []routeEntry                           // for introspection, in registration order

	cors          *CORSPolicy
	headFallback  bool
	headWhitelist []string // path prefixes; nil means unrestricted
}

// New returns an empty Router. HEAD-to-GET fallback is enabled by default
// with no whitelist restriction, matching the specification's default
// routing behavior.
func New() *Router {
	return &Router{
		matchers:     make(map[string]*pathmatch.Matcher[Handler]),
		headFallback: true,
	}
}

// Handle registers handler for method and pattern. Method is
// case-normalized to upper-case.
func (rt *Router) Handle(method, pattern string, handler Handler) error {
	method = strings.ToUpper(method)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	m, ok := rt.matchers[method]
	if !ok {
		m = pathmatch.New[Handler]()
		rt.matchers[method] = m
	}
	if err := m.Add(pattern, handler); err != nil {
		return err
	}
	rt.entries = append(rt.entries, routeEntry{method: method, pattern: pattern, handler: handler})
	return nil
}

// Get, Post, Put, Delete, Patch are convenience wrappers around Handle.
func (rt *Router) Get(pattern string, h Handler) error    { return rt.Handle(http.MethodGet, pattern, h) }
func (rt *Router) Post(pattern string, h Handler) error   { return rt.Handle(http.MethodPost, pattern, h) }
func (rt *Router) Put(pattern string, h Handler) error    { return rt.Handle(http.MethodPut, pattern, h) }
func (rt *Router) Delete(pattern string, h Handler) error { return rt.Handle(http.MethodDelete, pattern, h) }
func (rt *Router) Patch(pattern string, h Handler) error  { return rt.Handle(http.MethodPatch, pattern, h) }

// SetCORSPolicy installs the CORS policy applied to every request. A nil
// policy disables CORS handling entirely.
func (rt *Router) SetCORSPolicy(p *CORSPolicy) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.cors = p
}

// EnableHeadFallback turns automatic HEAD-to-GET fallback on or off. When
// whitelist is non-empty, fallback only applies to requests whose path has
// one of the given prefixes; a HEAD request for a path outside the
// whitelist is not retried against GET and falls through to 404 instead.
// An empty whitelist leaves fallback unrestricted.
func (rt *Router) EnableHeadFallback(enabled bool, whitelist ...string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.headFallback = enabled
	if len(whitelist) == 0 {
		rt.headWhitelist = nil
		return
	}
	rt.headWhitelist = append([]string(nil), whitelist...)
}

// ServeHTTP implements the dispatch algorithm: CORS preflight short
// circuit, route lookup (with HEAD falling back to GET when no HEAD
// handler is registered), handler invocation, and CORS header layering
// on the actual response.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mu.RLock()
	cors := rt.cors
	rt.mu.RUnlock()

	origin := r.Header.Get("Origin")

	if r.Method == http.MethodOptions && origin != "" && r.Header.Get("Access-Control-Request-Method") != "" {
		if cors != nil {
			cors.writePreflight(w, r, origin)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}

	handler, params, ok := rt.lookup(r.Method, r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if cors != nil {
		cors.writeActual(w, origin)
	}

	handler(w, r, params)
}

func (rt *Router) lookup(method, path string) (Handler, pathmatch.Params, bool) {
	rt.mu.RLock()
	m, ok := rt.matchers[method]
	fallbackAllowed := rt.headFallback && whitelistAllows(rt.headWhitelist, path)
	getMatcher := rt.matchers[http.MethodGet]
	rt.mu.RUnlock()

	if ok {
		if h, p, found := m.Match(path); found {
			return h, p, true
		}
	}

	if method == http.MethodHead && fallbackAllowed && getMatcher != nil {
		return getMatcher.Match(path)
	}

	return nil, nil, false
}

// whitelistAllows reports whether path is eligible for HEAD fallback. A nil
// or empty whitelist imposes no restriction; otherwise path must have one
// of the whitelist entries as a prefix.
func whitelistAllows(whitelist []string, path string) bool {
	if len(whitelist) == 0 {
		return true
	}
	for _, prefix := range whitelist {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RouteInfo is one entry of the route introspection listing served at
// GET /__rat/routes.
type RouteInfo struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Routes returns all registered HTTP routes sorted by pattern and then by
// method, backing the /__rat/routes introspection endpoint.
func (rt *Router) Routes() []RouteInfo {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	out := make([]RouteInfo, 0, len(rt.entries))
	for _, e := range rt.entries {
		out = append(out, RouteInfo{Method: e.method, Pattern: e.pattern})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}
