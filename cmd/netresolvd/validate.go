package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/dnsutil"
)

// Check everything that could likely be a typo or usage error. Mostly check in order
// presented by the flag package.
func (t *netresolvd) ValidateCommandLineOptions() error {
	if t.cfg.reportInterval != 0 && t.cfg.reportInterval < time.Second {
		return fmt.Errorf("--report must be zero or at least 1 second")
	}

	if err := t.cfg.params.Validate(); err != nil {
		return err
	}

	if t.cfg.cacheSize < 0 {
		return fmt.Errorf("--cache-size cannot be negative")
	}
	if t.cfg.apiLevel < 0 {
		return fmt.Errorf("--api-level cannot be negative")
	}

	if len(t.cfg.listen) > 0 {
		t.cfg.listen = dnsutil.NormalizeHostPort(t.cfg.listen, defaultService)
	}

	if len(t.cfg.nameservers) == 0 {
		return fmt.Errorf("Must supply at least one --nameserver")
	}
	for _, ns := range t.cfg.nameservers {
		if _, err := dnsutil.ValidateNameserver(ns); err != nil {
			return fmt.Errorf("--nameserver: %w", err)
		}
	}
	if len(t.cfg.nameservers) > dnsutil.MaxNameservers {
		warning(nil, fmt.Sprintf("Only the first %d --nameserver values are used",
			dnsutil.MaxNameservers))
	}

	_, bad := dnsutil.CanonicalDomains(t.cfg.search)
	if len(bad) > 0 {
		return fmt.Errorf("Invalid domain name: --search %s", strings.Join(bad, ","))
	}

	_, bad = dnsutil.CanonicalDomains(t.cfg.denyDomains)
	if len(bad) > 0 {
		return fmt.Errorf("Invalid domain name: --deny-domain %s", strings.Join(bad, ","))
	}
	var deny []string
	for _, d := range t.cfg.denyDomains {
		if d = strings.TrimSpace(d); len(d) > 0 {
			deny = append(deny, dns.CanonicalName(d))
		}
	}
	t.cfg.denyDomains = deny

	return nil
}
