package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/miekg/dns"

	real "github.com/markdingo/netresolv/resolver"
)

func TestMockResolver(t *testing.T) {
	r := NewResolver()
	r.Set(dns.TypeA, "example.mock", `
;; One address
A:example.mock. 300 IN A 127.0.0.1
N:mock. 300 IN NS ns.mock.
E:ns.mock. 300 IN A 192.0.2.53
`)
	r.Set(dns.TypeAAAA, "empty.mock", "")
	r.Set(dns.TypeA, "fail.mock", "RCODE:SERVFAIL")

	var fds []int
	cfg := real.NewExchangeConfig().SetHook(func(fd int) error {
		fds = append(fds, fd)
		return nil
	})
	out, server, err := r.FullExchange(context.Background(), cfg,
		dns.Question{Name: "example.mock.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{"192.0.2.254"}, "mock", nil)
	if err != nil {
		t.Fatal("Setup error for FullExchange", err)
	}
	if server != "192.0.2.254" {
		t.Error("Wrong server", server)
	}
	if out.Rcode != dns.RcodeSuccess {
		t.Error("Expected Success, not", out.Rcode)
	}
	if len(out.Answer) != 1 || len(out.Ns) != 1 || len(out.Extra) != 1 {
		t.Error("Wrong RR Count. Want 1, 1, 1. Got",
			len(out.Answer), len(out.Ns), len(out.Extra))
	}
	if len(fds) != 1 || r.Sockets() != 1 {
		t.Error("Want one hooked socket, got", fds, r.Sockets())
	}

	out, _, _ = r.FullExchange(context.Background(), cfg,
		dns.Question{Name: "empty.mock.", Qtype: dns.TypeAAAA, Qclass: dns.ClassINET},
		[]string{"192.0.2.254"}, "mock", nil)
	if out.Rcode != dns.RcodeNameError {
		t.Error("Empty response should be NXDOMAIN, not", out.Rcode)
	}

	var results []real.Result
	out, _, _ = r.FullExchange(context.Background(), cfg,
		dns.Question{Name: "fail.mock.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{"192.0.2.1", "192.0.2.2"}, "mock", func(res real.Result) {
			results = append(results, res)
		})
	if out.Rcode != dns.RcodeServerFailure || len(results) != 2 {
		t.Error("SERVFAIL should try every server", out.Rcode, results)
	}
	if r.Exchanges(dns.TypeA, "fail.mock") != 2 {
		t.Error("Want two exchanges, got", r.Exchanges(dns.TypeA, "fail.mock"))
	}

	out, _, _ = r.FullExchange(context.Background(), cfg,
		dns.Question{Name: "unknown.mock.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{"192.0.2.1"}, "mock", nil)
	if out.Rcode != dns.RcodeRefused {
		t.Error("Unknown should be REFUSED, not", out.Rcode)
	}
}

func TestMockHookFailure(t *testing.T) {
	r := NewResolver()
	r.Set(dns.TypeA, "example.mock", "A:example.mock. 300 IN A 127.0.0.1")
	bad := errors.New("bad")
	cfg := real.NewExchangeConfig().SetHook(func(fd int) error { return bad })
	_, _, err := r.FullExchange(context.Background(), cfg,
		dns.Question{Name: "example.mock.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{"192.0.2.1", "192.0.2.2"}, "mock", nil)
	if !errors.Is(err, real.ErrSocketRejected) || !errors.Is(err, bad) {
		t.Error("Want wrapped hook error, got", err)
	}
	if r.Exchanges(dns.TypeA, "example.mock") != 0 {
		t.Error("Rejected socket should not exchange")
	}
	if r.Sockets() != 1 {
		t.Error("Want one socket attempt, got", r.Sockets())
	}
}
