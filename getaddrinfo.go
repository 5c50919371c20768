package netresolv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/netstore"
	"github.com/markdingo/netresolv/resolver"
)

// request carries the state of one GetAddrInfo call.
type request struct {
	svc   *Service
	gate  *gate
	hints Hints
	name  string

	mu        sync.Mutex // Protects event.Queries and stats from query go-routines
	event     Event
	stats     serviceStats
	addrs     []Addr
	canonical string
}

// GetAddrInfo resolves name and service to addresses on behalf of the caller described
// by nc. The network used is nc.DNSNetID, or nc.AppNetID if that is unset. ctx bounds
// the time spent with nameservers; the callbacks are never interrupted.
//
// Outcome.Event is populated whether or not an error is returned. Errors can be mapped
// to status codes with StatusCode.
func (t *Service) GetAddrInfo(ctx context.Context, name, service string, hints Hints,
	nc callbacks.NetContext) (Outcome, error) {
	start := time.Now()
	g := newGate(t.registry.Active(), t.owner, nc)
	req := &request{svc: t, gate: g, hints: hints, name: strings.TrimSpace(name)}
	req.event.NetID = netIDFor(g.nc)
	req.event.UID = g.nc.UID
	req.event.Name = req.name
	g.log(fmt.Sprintf("resolve start: %s %s", req.name, g.nc))

	err := req.resolve(ctx, service)

	req.event.Latency = time.Since(start)
	req.event.Status = StatusCode(err)
	if err != nil && len(req.event.Note) == 0 {
		req.event.Note = dnsutil.ShortenLookupError(err).Error()
	}
	req.tally(err)
	t.addStats(&req.stats)
	g.log("resolve end: " + req.event.String())
	if t.logQueries.Load() {
		log.Major("Q: ", req.event.String(), " A: ", addrsToStrings(req.addrs))
	}

	return Outcome{Addrs: req.addrs, Canonical: req.canonical, Event: req.event}, err
}

func netIDFor(nc callbacks.NetContext) uint32 {
	if nc.DNSNetID != callbacks.NetIDUnset {
		return nc.DNSNetID
	}
	return nc.AppNetID
}

func (t *request) resolve(ctx context.Context, service string) error {
	if err := t.hints.validate(); err != nil {
		return err
	}
	if len(t.name) == 0 && len(service) == 0 {
		return fmt.Errorf("%w: name and service are both empty", ErrInvalidArgument)
	}

	if !t.gate.permitted() {
		t.event.Note = "permission denied"
		return ErrPermissionDenied
	}

	port, err := t.port(ctx, service)
	if err != nil {
		return err
	}

	if len(t.name) == 0 {
		return t.loopback(port)
	}
	if ip := numericHost(t.name); ip != nil {
		t.stats.numeric++
		if !familyMatches(ip, t.hints.Family) {
			return fmt.Errorf("%w: %s is the wrong family", ErrHostNotFound, t.name)
		}
		t.addrs = []Addr{newAddr(ip, port, t.hints)}
		if t.hints.has(AICanonName) {
			t.canonical = t.name
		}
		return nil
	}
	if t.hints.has(AINumericHost) {
		return fmt.Errorf("%w: %s is not numeric", ErrHostNotFound, t.name)
	}

	n, err := t.svc.store.Get(t.event.NetID)
	if err != nil {
		return err
	}
	cfg := n.Config()
	candidates := dnsutil.SearchCandidates(t.name, cfg.Domains, dnsutil.DefaultNdots)
	if len(candidates) == 0 {
		return fmt.Errorf("%w: %s is not a valid domain name", ErrHostNotFound, t.name)
	}

	result := ErrHostNotFound // Unless something more interesting happens
	for _, fqdn := range candidates {
		if !t.gate.evaluate(fqdn) {
			t.event.Note = "domain rejected: " + fqdn
			return fmt.Errorf("%w: %s", ErrDomainRejected, fqdn)
		}
		addrs, canonical, err := t.lookup(ctx, n, cfg, fqdn, port)
		if err != nil {
			if isFatal(ctx, err) {
				return err
			}
			if errors.Is(result, ErrHostNotFound) { // Failures outrank NXDOMAIN
				result = err
			}
			continue
		}
		if len(addrs) > 0 {
			t.addrs = addrs
			if t.hints.has(AICanonName) {
				t.canonical = canonical
			}
			return nil
		}
	}

	return result
}

// isFatal returns true for errors which end the request rather than move on to the next
// search candidate.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrOwnershipChangeFailed) ||
		errors.Is(err, ErrNoNameservers)
}

func (t *request) port(ctx context.Context, service string) (int, error) {
	if len(service) == 0 {
		return 0, nil
	}
	if p, err := strconv.Atoi(service); err == nil {
		if p < 0 || p > 65535 {
			return 0, fmt.Errorf("%w: port %d out of range", ErrInvalidArgument, p)
		}
		return p, nil
	}
	if t.hints.has(AINumericServ) {
		return 0, fmt.Errorf("%w: service %s is not numeric", ErrInvalidArgument, service)
	}
	p, err := t.svc.resolver.LookupPort(ctx, t.hints.portNetwork(), service)
	if err != nil {
		return 0, fmt.Errorf("%w: service %s: %s", ErrInvalidArgument, service, err)
	}

	return p, nil
}

func (t *request) loopback(port int) error {
	for _, ip := range []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback} {
		if familyMatches(ip, t.hints.Family) {
			t.addrs = append(t.addrs, newAddr(ip, port, t.hints))
		}
	}
	t.stats.numeric++

	return nil
}

type queryResult struct {
	record    QueryRecord
	addrs     []Addr
	canonical string
	err       error // Non-fatal failure of this query
}

// lookup queries all types needed for fqdn concurrently. A fatal error from any query
// cancels the others. Otherwise the addresses are returned in type order; if there are
// none the most relevant non-fatal error is returned.
func (t *request) lookup(ctx context.Context, n *netstore.Network, cfg *netstore.Config,
	fqdn string, port int) ([]Addr, string, error) {
	qTypes := t.hints.qTypes()
	results := make([]queryResult, len(qTypes))
	grp, gctx := errgroup.WithContext(ctx)
	for ix, qType := range qTypes {
		ix, qType := ix, qType
		grp.Go(func() error {
			var err error
			results[ix], err = t.query(gctx, n, cfg, fqdn, qType, port)
			return err
		})
	}
	fatal := grp.Wait()

	var addrs []Addr
	var canonical string
	var failure error
	t.mu.Lock()
	for _, r := range results {
		if r.record.Type == 0 { // Never ran
			continue
		}
		t.event.Queries = append(t.event.Queries, r.record)
		addrs = append(addrs, r.addrs...)
		if len(canonical) == 0 {
			canonical = r.canonical
		}
		if r.err != nil && !errors.Is(r.err, ErrHostNotFound) {
			failure = r.err
		}
	}
	t.mu.Unlock()

	switch {
	case fatal != nil:
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fatal
	case len(addrs) > 0:
		return addrs, canonical, nil
	case failure != nil:
		return nil, "", failure
	}

	return nil, "", ErrHostNotFound
}

// query asks one question, from the cache if possible. Identical questions for the same
// uid already in flight on this network are joined rather than repeated. The uid is
// part of the key as the query socket is owned by whoever started the exchange. A
// joined exchange outlives the request which started it.
func (t *request) query(ctx context.Context, n *netstore.Network, cfg *netstore.Config,
	fqdn string, qType uint16, port int) (res queryResult, fatal error) {
	rec := &res.record
	rec.Name = fqdn
	rec.Type = qType
	rec.Rcode = -1
	start := time.Now()
	defer func() { rec.Latency = time.Since(start) }()

	q := dns.Question{Name: fqdn, Qtype: qType, Qclass: dns.ClassINET}
	m, ok := n.CacheGet(q, start)
	if ok {
		rec.CacheHit = true
	} else {
		ec := resolver.NewExchangeConfig().
			SetTimeout(cfg.Params.BaseTimeout).
			SetRetries(cfg.Params.RetryCount).
			SetHook(t.gate.tagSocket)
		servers := n.UsableServers(start)
		key := fmt.Sprintf("%s/%d/%d", dns.CanonicalName(fqdn), qType, t.gate.nc.UID)
		logName := fmt.Sprintf("netid=%d", n.ID())
		rep, joined, err := n.Do(ctx, key, func(xctx context.Context) (*netstore.Reply, error) {
			rep := &netstore.Reply{}
			r, server, err := t.svc.resolver.FullExchange(xctx, ec, q, servers, logName,
				func(result resolver.Result) {
					rep.Exchanges++
					if s, ok := sampleFrom(result); ok {
						n.Record(result.Server, s)
						rep.Samples++
					}
				})
			rep.Msg, rep.Server = r, server
			if err == nil && r != nil {
				n.CachePut(r, time.Now())
			}
			return rep, err
		})
		rec.Shared = joined
		if rep != nil {
			rec.Server = rep.Server
			if !joined {
				rec.Exchanges, rec.Samples = rep.Exchanges, rep.Samples
			}
		}
		if err != nil {
			return res, t.classify(ctx, &res, err)
		}
		m = rep.Msg
	}

	rec.Rcode = m.Rcode
	switch m.Rcode {
	case dns.RcodeSuccess:
		res.addrs, res.canonical = extractAddrs(m, qType, port, t.hints)
		rec.Answers = len(res.addrs)
		if len(res.addrs) == 0 {
			res.err = ErrHostNotFound // NODATA
		}
	case dns.RcodeNameError:
		res.err = ErrHostNotFound
	default:
		res.err = fmt.Errorf("%w: %s/%s %s", ErrServerFailure,
			dnsutil.ChompCanonicalName(fqdn), dnsutil.TypeToString(qType),
			dnsutil.RcodeToString(m.Rcode))
	}

	return res, nil
}

// classify sorts an exchange error into fatal, which is returned, or non-fatal, which is
// stored in res.
func (t *request) classify(ctx context.Context, res *queryResult, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrOwnershipChangeFailed):
		t.mu.Lock()
		t.event.Note = "ownership change failed"
		t.mu.Unlock()
		return err
	case errors.Is(err, resolver.ErrSocketRejected):
		return fmt.Errorf("%w: %w", ErrOwnershipChangeFailed, err)
	case errors.Is(err, resolver.ErrNoServers):
		return fmt.Errorf("%w: netid %d", ErrNoNameservers, t.event.NetID)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		res.err = fmt.Errorf("%w: %s", ErrTimeout, dnsutil.ShortenLookupError(err))
	} else {
		res.err = fmt.Errorf("%w: %s", ErrServerFailure, dnsutil.ShortenLookupError(err))
	}

	return nil
}

// sampleFrom converts an exchange result into a statistics sample. Failures which are
// not the server's fault produce no sample.
func sampleFrom(r resolver.Result) (netstore.Sample, bool) {
	s := netstore.Sample{At: time.Now(), Rcode: r.Rcode, RTT: r.RTT}
	switch {
	case r.Err == nil:
		s.Outcome = netstore.OutcomeFromRcode(r.Rcode)
	case errors.Is(r.Err, resolver.ErrSocketRejected),
		errors.Is(r.Err, context.Canceled),
		errors.Is(r.Err, context.DeadlineExceeded):
		return s, false
	case r.Timeout:
		s.Outcome = netstore.OutcomeTimeout
	default:
		s.Outcome = netstore.OutcomeError
	}

	return s, true
}

// extractAddrs returns the addresses of type qType from the answer section along with
// the owner name of the first one, which is the canonical name after any CNAMEs.
func extractAddrs(m *dns.Msg, qType uint16, port int, hints Hints) (addrs []Addr, canonical string) {
	for _, rr := range m.Answer {
		var ip net.IP
		switch rrt := rr.(type) {
		case *dns.A:
			if qType == dns.TypeA {
				ip = rrt.A
			}
		case *dns.AAAA:
			if qType == dns.TypeAAAA {
				ip = rrt.AAAA
			}
		}
		if ip == nil {
			continue
		}
		if len(canonical) == 0 {
			canonical = dnsutil.ChompCanonicalName(rr.Header().Name)
		}
		addrs = append(addrs, newAddr(ip, port, hints))
	}

	return
}

// tally folds the gate counters, query records and final error into the request stats.
func (t *request) tally(err error) {
	t.stats.requests++
	gs := t.gate.counters()
	t.stats.add(&gs)
	for _, q := range t.event.Queries {
		if q.CacheHit {
			t.stats.cacheHits++
		}
		if q.Shared {
			t.stats.shared++
		}
		t.stats.exchanges += q.Exchanges
	}

	switch {
	case err == nil:
		t.stats.good++
	case errors.Is(err, ErrHostNotFound):
		t.stats.nxDomain++
	case errors.Is(err, ErrTimeout):
		t.stats.timeouts++
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrDomainRejected),
		errors.Is(err, ErrOwnershipChangeFailed):
	default:
		t.stats.failures++
	}
}
