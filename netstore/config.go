package netstore

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
)

// Config is the immutable configuration of one network. Never modify a Config obtained
// from the Store; SetNameservers replaces it wholesale.
type Config struct {
	NetID   uint32
	Servers []string // host:port, at most dnsutil.MaxNameservers
	Domains []string // Canonical search domains
	Params  Params
}

// newConfig validates and normalizes the caller's values. Invalid nameservers and
// invalid Params are errors; invalid search domains are logged and dropped.
func newConfig(id uint32, servers, domains []string, params Params) (*Config, error) {
	result := params.check(nil)

	cfg := &Config{NetID: id, Params: params}
	seen := make(map[string]bool)
	for _, s := range servers {
		hp, err := dnsutil.ValidateNameserver(s)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if seen[hp] {
			continue
		}
		seen[hp] = true
		if len(cfg.Servers) < dnsutil.MaxNameservers {
			cfg.Servers = append(cfg.Servers, hp)
		} else {
			log.Minorf("netstore: %d: ignoring nameserver %s beyond limit of %d",
				id, hp, dnsutil.MaxNameservers)
		}
	}

	var bad []string
	cfg.Domains, bad = dnsutil.CanonicalDomains(domains)
	if len(bad) > 0 {
		log.Minorf("netstore: %d: dropped invalid search domains: %s",
			id, strings.Join(bad, ","))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return cfg, nil
}

// sameServers returns true if both configs have the same servers in the same order.
func (t *Config) sameServers(o *Config) bool {
	if len(t.Servers) != len(o.Servers) {
		return false
	}
	for ix := range t.Servers {
		if t.Servers[ix] != o.Servers[ix] {
			return false
		}
	}

	return true
}

func (t *Config) String() string {
	return fmt.Sprintf("netid=%d servers=%s domains=%s %s", t.NetID,
		strings.Join(t.Servers, ","), strings.Join(t.Domains, ","), t.Params.String())
}
