package certmanager

import "github.com/libdns/cloudflare"

// NewCloudflareDNSProvider returns the default DNSProvider named in the
// specification's domain stack: a libdns-compatible Cloudflare DNS-01
// solver authenticated with a scoped API token.
func NewCloudflareDNSProvider(apiToken string) DNSProvider {
	return &cloudflare.Provider{APIToken: apiToken}
}
