package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy configures cross-origin access control, matching the
// specification's origin-matching rules: an exact "*" allows every
// origin, an exact string match allows that origin only, and a leading
// "*." prefix allows any subdomain of the remainder.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func (c *CORSPolicy) originAllowed(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
		if strings.HasPrefix(allowed, "*.") {
			suffix := allowed[1:] // ".example.com"
			if strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}

func (c *CORSPolicy) writePreflight(w http.ResponseWriter, r *http.Request, origin string) {
	if !c.originAllowed(origin) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", corsOriginHeader(c, origin))
	if len(c.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(c.AllowedMethods, ", "))
	}
	requested := r.Header.Get("Access-Control-Request-Headers")
	if len(c.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.AllowedHeaders, ", "))
	} else if requested != "" {
		h.Set("Access-Control-Allow-Headers", requested)
	}
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(int(c.MaxAge.Seconds())))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CORSPolicy) writeActual(w http.ResponseWriter, origin string) {
	if origin == "" || !c.originAllowed(origin) {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", corsOriginHeader(c, origin))
	if len(c.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.ExposedHeaders, ", "))
	}
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// corsOriginHeader echoes the request origin rather than "*" whenever
// credentials are allowed or the policy matched via an exact/wildcard
// entry other than a bare "*", since browsers reject "*" alongside
// Access-Control-Allow-Credentials.
func corsOriginHeader(c *CORSPolicy, origin string) string {
	if !c.AllowCredentials && len(c.AllowedOrigins) == 1 && c.AllowedOrigins[0] == "*" {
		return "*"
	}
	return origin
}
