package certmanager

import "strings"

// mtlsWhitelist evaluates whether a request path is exempt from client
// certificate enforcement, per the specification's mTLS whitelist model:
// an entry either matches a path exactly or, when it ends in "/*", matches
// it as a prefix.
type mtlsWhitelist struct {
	exact    map[string]bool
	prefixes []string
}

func newMTLSWhitelist(paths []string) *mtlsWhitelist {
	w := &mtlsWhitelist{exact: make(map[string]bool, len(paths))}
	for _, p := range paths {
		if strings.HasSuffix(p, "/*") {
			w.prefixes = append(w.prefixes, strings.TrimSuffix(p, "*"))
			continue
		}
		w.exact[p] = true
	}
	return w
}

func (w *mtlsWhitelist) allows(path string) bool {
	if w == nil {
		return false
	}
	if w.exact[path] {
		return true
	}
	for _, prefix := range w.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
