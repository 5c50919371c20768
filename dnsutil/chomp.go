package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// ChompCanonicalName lower-cases n and removes one trailing dot. Events and query logs
// show names the way applications submit them, without the root label.
func ChompCanonicalName(n string) string {
	return strings.TrimSuffix(dns.CanonicalName(n), ".")
}
