package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/log"
	"github.com/markdingo/netresolv/mock"
	mockDNS "github.com/markdingo/netresolv/mock/dns"
)

const (
	serverAddr1 = "127.0.0.1:53153"
	serverAddr2 = "127.0.0.1:53154"
)

type results struct {
	mu sync.Mutex
	ar []Result
}

func (t *results) add(r Result) {
	t.mu.Lock()
	t.ar = append(t.ar, r)
	t.mu.Unlock()
}

func (t *results) get() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Result(nil), t.ar...)
}

func TestExchange(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(log.SilentLevel)

	h, shutdown := mockDNS.StartResponder(serverAddr1)
	defer shutdown()
	h.AddMapping("x.example.net.", dns.TypeAAAA, "::1")

	var fds []int
	res := NewResolver()
	cfg := NewExchangeConfig().SetTimeout(time.Second).SetHook(func(fd int) error {
		fds = append(fds, fd)
		return nil
	})
	q := new(dns.Msg)
	q.SetQuestion("x.example.net.", dns.TypeAAAA)

	r, _, err := res.SingleExchange(context.Background(), cfg, q, serverAddr1, "TestLocalHost")
	if err != nil {
		t.Fatal("Unexpected error", err)
	}
	if r.MsgHdr.Rcode != dns.RcodeSuccess {
		t.Error("Expected RcodeSuccess, got", dns.RcodeToString[r.MsgHdr.Rcode])
	} else if len(r.Answer) != 1 {
		t.Error("Expected one answer, not", len(r.Answer))
	}
	if len(fds) != 1 || fds[0] < 0 {
		t.Error("Hook should have been called once with a real fd, got", fds)
	}

	got := out.String()
	exp := "Dbg:res: Q TestLocalHost udp 127.0.0.1:53153 x.example.net./AAAA"
	if !strings.Contains(got, exp) {
		t.Error("Log of good exchange differs. Exp", exp, "got", got)
	}

	// Should get the same result from FullExchange

	var rs results
	r, server, err := res.FullExchange(context.Background(), cfg, q.Question[0],
		[]string{serverAddr1}, "TestLocalHost", rs.add)
	if err != nil {
		t.Fatal("Unexpected error", err)
	}
	if len(r.Answer) != 1 {
		t.Error("Expected one answer, not", len(r.Answer))
	}
	if server != serverAddr1 {
		t.Error("Want responding server", serverAddr1, "got", server)
	}
	ar := rs.get()
	if len(ar) != 1 || ar[0].Rcode != dns.RcodeSuccess || ar[0].Net != "udp" {
		t.Error("Unexpected results", ar)
	}
	lq := h.LastQuery()
	if lq == nil || !lq.RecursionDesired {
		t.Error("FullExchange query should have RD set", lq)
	}
}

func TestExchangeHookRejects(t *testing.T) {
	h, shutdown := mockDNS.StartResponder(serverAddr1)
	defer shutdown()

	hookErr := errors.New("no chown for you")
	calls := 0
	res := NewResolver()
	cfg := NewExchangeConfig().SetTimeout(time.Second).SetRetries(3).
		SetHook(func(fd int) error {
			calls++
			return hookErr
		})
	var rs results
	_, _, err := res.FullExchange(context.Background(), cfg,
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1, serverAddr2}, "Reject", rs.add)
	if !errors.Is(err, ErrSocketRejected) {
		t.Error("Want ErrSocketRejected, got", err)
	}
	if !errors.Is(err, hookErr) {
		t.Error("Want hook error wrapped, got", err)
	}
	if calls != 1 {
		t.Error("Hook failure must stop all further attempts. Calls", calls)
	}
	if h.Total() != 0 {
		t.Error("No query should reach the server, got", h.Total())
	}
}

func TestExchangeTCPFallback(t *testing.T) {
	h, shutdown := mockDNS.StartResponder(serverAddr1)
	defer shutdown()
	h.AddMapping("big.example.", dns.TypeA, "192.0.2.1")
	h.SetTruncate(true)

	var nets []string
	cfg := NewExchangeConfig().SetTimeout(time.Second)
	var rs results
	r, _, err := NewResolver().FullExchange(context.Background(), cfg,
		dns.Question{Name: "big.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1}, "TCP", rs.add)
	if err != nil {
		t.Fatal(err)
	}
	if r.Truncated || len(r.Answer) != 1 {
		t.Error("Expected full TCP answer, got", r)
	}
	for _, res := range rs.get() {
		nets = append(nets, res.Net)
	}
	if strings.Join(nets, ",") != "udp,tcp" {
		t.Error("Want udp,tcp exchanges, got", nets)
	}
	if h.QueryCount("big.example.", dns.TypeA) != 2 {
		t.Error("Want two queries, got", h.QueryCount("big.example.", dns.TypeA))
	}
}

func TestExchangeNextServer(t *testing.T) {
	h1, shutdown1 := mockDNS.StartResponder(serverAddr1)
	defer shutdown1()
	h2, shutdown2 := mockDNS.StartResponder(serverAddr2)
	defer shutdown2()
	h1.SetRcode(dns.RcodeServerFailure)
	h2.AddMapping("a.example.", dns.TypeA, "192.0.2.2")

	var rs results
	r, server, err := NewResolver().FullExchange(context.Background(),
		NewExchangeConfig().SetTimeout(time.Second),
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1, serverAddr2}, "Next", rs.add)
	if err != nil {
		t.Fatal(err)
	}
	if server != serverAddr2 || len(r.Answer) != 1 {
		t.Error("Want answer from second server, got", server, r)
	}
	ar := rs.get()
	if len(ar) != 2 || ar[0].Rcode != dns.RcodeServerFailure || ar[1].Rcode != dns.RcodeSuccess {
		t.Error("Unexpected results", ar)
	}

	// All servers fail: last response comes back
	h2.SetRcode(dns.RcodeRefused)
	r, _, err = NewResolver().FullExchange(context.Background(),
		NewExchangeConfig().SetTimeout(time.Second).SetRetries(0),
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1, serverAddr2}, "Next", nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Rcode != dns.RcodeRefused {
		t.Error("Want last response REFUSED, got", dns.RcodeToString[r.Rcode])
	}
}

func TestExchangeTimeout(t *testing.T) {
	h, shutdown := mockDNS.StartResponder(serverAddr1)
	defer shutdown()
	h.SetIgnore(true)

	base := 50 * time.Millisecond
	cfg := NewExchangeConfig().SetTimeout(base).SetRetries(1)
	var rs results
	start := time.Now()
	_, _, err := NewResolver().FullExchange(context.Background(), cfg,
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1}, "Timeout", rs.add)
	if err == nil {
		t.Fatal("Expected a timeout error return")
	}
	if diff := time.Since(start); diff < base+2*base {
		t.Error("Second pass timeout should double. Want at least", 3*base, "got", diff)
	}
	ar := rs.get()
	if len(ar) != 2 {
		t.Fatal("Want two results, got", ar)
	}
	for ix, r := range ar {
		if !r.Timeout || r.Rcode != -1 {
			t.Error(ix, "Want timeout result, got", r)
		}
	}
	if h.Total() != 2 {
		t.Error("Want two queries, got", h.Total())
	}
}

func TestExchangeCancel(t *testing.T) {
	h, shutdown := mockDNS.StartResponder(serverAddr1)
	defer shutdown()
	h.SetIgnore(true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, _, err := NewResolver().FullExchange(ctx,
		NewExchangeConfig().SetTimeout(5*time.Second),
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		[]string{serverAddr1}, "Cancel", nil)
	if !errors.Is(err, context.Canceled) {
		t.Error("Want context.Canceled, got", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Cancel did not stop the exchange promptly")
	}
}

// Cancelling a context without a deadline must also stop the exchange
func TestSingleExchangeCancel(t *testing.T) {
	h, shutdown := mockDNS.StartResponder(serverAddr2)
	defer shutdown()
	h.SetIgnore(true)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	q := new(dns.Msg)
	q.SetQuestion("a.example.", dns.TypeA)
	start := time.Now()
	_, _, err := NewResolver().SingleExchange(ctx,
		NewExchangeConfig().SetTimeout(5*time.Second), q, serverAddr2, "Cancel")
	if !errors.Is(err, context.Canceled) {
		t.Error("Want context.Canceled, got", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Cancel took", time.Since(start))
	}
}

func TestAttemptTimeout(t *testing.T) {
	testCases := []struct {
		base time.Duration
		pass int
		want time.Duration
	}{
		{time.Second, 0, time.Second},
		{time.Second, 1, 2 * time.Second},
		{time.Second, 3, 8 * time.Second},
		{5 * time.Second, 40, maxAttemptTimeout},
		{time.Millisecond, 1000, maxAttemptTimeout},
		{10 * time.Minute, 3, 10 * time.Minute},
	}
	for ix, tc := range testCases {
		got := attemptTimeout(tc.base, tc.pass)
		if got != tc.want {
			t.Error(ix, "Want", tc.want, "got", got)
		}
	}
}

func TestExchangeNoServers(t *testing.T) {
	_, _, err := NewResolver().FullExchange(context.Background(), NewExchangeConfig(),
		dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET},
		nil, "None", nil)
	if !errors.Is(err, ErrNoServers) {
		t.Error("Want ErrNoServers, got", err)
	}
}

func TestExchangeDefaultService(t *testing.T) {
	out := &mock.IOWriter{}
	log.SetOut(out)
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(log.SilentLevel)

	res := NewResolver()
	cfg := NewExchangeConfig().SetTimeout(50 * time.Millisecond)
	q := new(dns.Msg)
	q.SetQuestion("example.net.", dns.TypeAAAA) // Doesn't matter what the question is
	res.SingleExchange(context.Background(), cfg, q, "127.0.0.1", "Default")
	got := out.String()
	exp := "127.0.0.1:domain"
	if !strings.Contains(got, exp) {
		t.Error("Log not as expected for Default Service", got)
	}
}

func TestExchangeBadQuestion(t *testing.T) {
	res := NewResolver()
	cfg := NewExchangeConfig()
	q := new(dns.Msg) // No questions
	_, _, err := res.SingleExchange(context.Background(), cfg, q, "127.0.0.1", "Default")
	if err == nil {
		t.Fatal("Expected an error return")
	}
	if !strings.Contains(err.Error(), "expect one") {
		t.Error("Got an error, but doesn't match", err)
	}

	q.SetQuestion("example.net.", dns.TypeAAAA)    // Doesn't matter what the question is
	q.Question = append(q.Question, q.Question[0]) // Now have two

	_, _, err = res.SingleExchange(context.Background(), cfg, q, "127.0.0.1", "Default")
	if err == nil {
		t.Fatal("Expected an error return")
	}
	if !strings.Contains(err.Error(), "expect one") {
		t.Error("Got an error, but doesn't match", err)
	}
}

func TestExchangeConfig(t *testing.T) {
	c := NewExchangeConfig()
	if c.Tries() != defaultTries || c.Timeout() != defaultTimeout {
		t.Error("Defaults wrong", c.Tries(), c.Timeout())
	}
	c.SetRetries(0).SetTimeout(-1)
	if c.Tries() != 1 {
		t.Error("Want 1 try with zero retries, got", c.Tries())
	}
	if c.Timeout() != defaultTimeout {
		t.Error("Negative timeout should be ignored, got", c.Timeout())
	}
	cl := c.clone()
	cl.net = "tcp"
	if c.Net() != "udp" {
		t.Error("clone should not share state")
	}
}
