package resolver

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/resolver"
)

type responseKey struct {
	qType uint16
	qName string
}

// mockResolver implements the resolver.Resolver interface by answering queries from
// responses registered with Set. Unregistered questions are answered with REFUSED.
//
// Every exchange opens a real loopback UDP socket which is passed to the SocketHook so
// callers can observe socket tagging, but no packet is ever sent.
type mockResolver struct {
	mu        sync.Mutex
	responses map[responseKey]dns.Msg
	counts    map[responseKey]int
	sockets   int
	delay     time.Duration
}

// NewResolver creates an empty mock resolver.
func NewResolver() *mockResolver {
	return &mockResolver{
		responses: make(map[responseKey]dns.Msg),
		counts:    make(map[responseKey]int),
	}
}

// Set registers the response for qName/qType. See parseResponse for the text format.
func (t *mockResolver) Set(qType uint16, qName, text string) {
	k := responseKey{qType, dns.CanonicalName(qName)}
	m := parseResponse(strings.NewReader(text), qName)
	t.mu.Lock()
	t.responses[k] = m
	t.mu.Unlock()
}

// SetDelay makes every exchange take at least d, or until its context is done.
func (t *mockResolver) SetDelay(d time.Duration) {
	t.mu.Lock()
	t.delay = d
	t.mu.Unlock()
}

// Exchanges returns how many times qName/qType has been exchanged.
func (t *mockResolver) Exchanges(qType uint16, qName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[responseKey{qType, dns.CanonicalName(qName)}]
}

// Sockets returns the number of query sockets created.
func (t *mockResolver) Sockets() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.sockets
}

func (t *mockResolver) LookupPort(ctx context.Context, network, service string) (int, error) {
	var err error
	port, ok := map[string]int{"domain": 53, "http": 80, "https": 443}[service]
	if !ok {
		port, err = strconv.Atoi(service)
		if err != nil {
			err = fmt.Errorf("unknown port %s/%s", network, service)
		}
	}
	if log.IfDebug() {
		resolver.LogPort(network, service, port, "mock", err)
	}

	return port, err
}

// socket creates a real socket and hands it to hook exactly as the real resolver would.
func (t *mockResolver) socket(hook resolver.SocketHook) error {
	t.mu.Lock()
	t.sockets++
	t.mu.Unlock()
	if hook == nil {
		return nil
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return err
	}
	defer conn.Close()
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var hookErr error
	err = rc.Control(func(fd uintptr) {
		hookErr = hook(int(fd))
	})
	if err != nil {
		return err
	}
	if hookErr != nil {
		return fmt.Errorf("%w: %w", resolver.ErrSocketRejected, hookErr)
	}

	return nil
}

func (t *mockResolver) SingleExchange(ctx context.Context, c resolver.ExchangeConfig, q *dns.Msg,
	server, logName string) (out *dns.Msg, rtt time.Duration, err error) {
	if len(q.Question) != 1 {
		err = fmt.Errorf("SingleExchange Message contains %d Question(s), expect one",
			len(q.Question))
		return
	}

	question := q.Question[0]
	if log.IfDebug() {
		resolver.LogExchangeQ(c.Net(), logName, server, question)
	}
	if err = t.socket(c.Hook()); err != nil {
		return
	}

	k := responseKey{question.Qtype, dns.CanonicalName(question.Name)}
	t.mu.Lock()
	t.counts[k]++
	r, ok := t.responses[k]
	delay := t.delay
	t.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}

	if !ok {
		r.MsgHdr.Rcode = dns.RcodeRefused
	}
	out = r.Copy() // Callers own what they get
	out.SetRcode(q, r.MsgHdr.Rcode)
	if log.IfDebug() {
		resolver.LogExchangeA(server, question, out, err)
	}

	rtt = delay

	return
}

// FullExchange makes a single pass over servers as the mock never times out.
func (t *mockResolver) FullExchange(ctx context.Context, c resolver.ExchangeConfig, q dns.Question,
	servers []string, logName string, rf resolver.ResultFunc) (r *dns.Msg, server string, err error) {
	if len(servers) == 0 {
		err = resolver.ErrNoServers
		return
	}
	query := new(dns.Msg)
	query.Id = dns.Id()
	query.RecursionDesired = true
	query.Question = append(query.Question, q)
	for _, server = range servers {
		var rtt time.Duration
		r, rtt, err = t.SingleExchange(ctx, c, query, server, logName)
		if rf != nil {
			res := resolver.Result{Server: dnsutil.NormalizeHostPort(server, dnsutil.DefaultService),
				Net: c.Net(), Rcode: -1, RTT: rtt, Err: err}
			if err == nil {
				res.Rcode = r.Rcode
			}
			rf(res)
		}
		if err != nil {
			return nil, server, err
		}
		if r.Rcode == dns.RcodeSuccess || r.Rcode == dns.RcodeNameError {
			return
		}
	}

	return
}
