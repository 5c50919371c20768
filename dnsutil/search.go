package dnsutil

import (
	"strings"

	"github.com/miekg/dns"
)

// SearchCandidates returns the fully qualified names to try, in order, for a name given
// the search domains. The rules follow resolv.conf: an absolute name (trailing dot) is
// only ever tried as is; a name with at least ndots dots is tried as is before the
// search list; otherwise the search list is tried first. Duplicates are suppressed and
// all returned names are canonical.
func SearchCandidates(name string, domains []string, ndots int) []string {
	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return nil
	}
	if dns.IsFqdn(name) {
		return []string{dns.CanonicalName(name)}
	}

	var out []string
	seen := make(map[string]bool)
	add := func(n string) {
		n = dns.CanonicalName(n)
		if len(n) > MaxDomainNameLen || seen[n] {
			return
		}
		if _, ok := dns.IsDomainName(n); !ok {
			return
		}
		seen[n] = true
		out = append(out, n)
	}

	asIs := strings.Count(name, ".") >= ndots
	if asIs {
		add(name)
	}
	for _, d := range domains {
		add(name + "." + strings.TrimSuffix(strings.TrimPrefix(d, "."), "."))
	}
	if !asIs {
		add(name)
	}

	return out
}

// CanonicalDomains canonicalizes, deduplicates and validates search domains. Invalid
// domains are returned separately so the caller can report them. At most
// MaxSearchDomains are kept.
func CanonicalDomains(in []string) (good, bad []string) {
	seen := make(map[string]bool)
	for _, d := range in {
		d = strings.TrimSpace(d)
		if len(d) == 0 {
			continue
		}
		if _, ok := dns.IsDomainName(d); !ok || d == "." {
			bad = append(bad, d)
			continue
		}
		c := dns.CanonicalName(d)
		if seen[c] {
			continue
		}
		seen[c] = true
		if len(good) < MaxSearchDomains {
			good = append(good, c)
		}
	}

	return
}
