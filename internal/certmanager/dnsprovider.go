package certmanager

import "github.com/libdns/libdns"

// DNSProvider is the pluggable DNS-01 solver surface. Any libdns provider
// that can append and later remove a TXT record satisfies it, matching
// the specification's requirement that the ACME DNS-01 flow not be
// hard-wired to a single DNS host.
type DNSProvider interface {
	libdns.RecordAppender
	libdns.RecordDeleter
}
