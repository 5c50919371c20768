package dnsutil

import (
	"fmt"
	"net"
	"strings"
)

// NormalizeHostPort coerces a naked address or host onto "host:service" form. Addresses
// which already carry a port are returned unchanged.
func NormalizeHostPort(addr, service string) string {
	if ip := net.ParseIP(addr); ip != nil { // naked IP?
		return net.JoinHostPort(addr, service)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, service)
	}

	return addr
}

// ValidateNameserver checks that addr is an IP address with an optional port. Nameservers
// must be literal addresses as resolving them would itself need a nameserver.
func ValidateNameserver(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) == 0 {
		return "", fmt.Errorf("empty nameserver address")
	}
	hp := NormalizeHostPort(addr, DefaultService)
	host, _, err := net.SplitHostPort(hp)
	if err != nil {
		return "", fmt.Errorf("nameserver %s: %w", addr, err)
	}
	if i := strings.IndexByte(host, '%'); i > 0 { // Allow fe80::1%eth0
		host = host[:i]
	}
	if net.ParseIP(host) == nil {
		return "", fmt.Errorf("nameserver %s is not an IP address", addr)
	}

	return hp, nil
}
