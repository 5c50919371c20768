package netstore

import (
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

func newA(name, addr string, ttl uint32) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)
	m.Response = true
	m.Answer = append(m.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(addr).To4()})

	return m
}

func newNegative(name string, rcode int, soaTTL, minTTL uint32) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeAAAA)
	m.Response = true
	m.Rcode = rcode
	m.Ns = append(m.Ns, &dns.SOA{
		Hdr: dns.RR_Header{Name: "example.", Rrtype: dns.TypeSOA, Class: dns.ClassINET,
			Ttl: soaTTL},
		Ns: "ns.example.", Mbox: "hostmaster.example.", Serial: 1, Refresh: 3600,
		Retry: 600, Expire: 86400, Minttl: minTTL})

	return m
}

func TestCachePositive(t *testing.T) {
	c := newAnswerCache(10, [2]uint64{1, 2})
	now := time.Now()
	if ttl := c.put(newA("Host.Example.", "192.0.2.1", 300), now); ttl != 300*time.Second {
		t.Error("Want 300s TTL, got", ttl)
	}

	q := dns.Question{Name: "host.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET}
	m, ok := c.get(q, now.Add(100*time.Second))
	if !ok {
		t.Fatal("Expected case-insensitive hit")
	}
	if m.Answer[0].Header().Ttl != 200 {
		t.Error("Want decremented TTL 200, got", m.Answer[0].Header().Ttl)
	}

	// Modifying the returned copy must not affect the cache
	m.Answer = nil
	m, _ = c.get(q, now)
	if len(m.Answer) != 1 {
		t.Error("Cache entry was modified via returned copy")
	}

	_, ok = c.get(q, now.Add(300*time.Second))
	if ok {
		t.Error("Expected expiry at TTL")
	}
	if c.len() != 0 {
		t.Error("Expired entry should be removed")
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits != 2 || misses != 1 {
		t.Error("Want 2/1 hits/misses, got", hits, misses)
	}
}

func TestCacheLowestTTL(t *testing.T) {
	m := newA("a.example.", "192.0.2.1", 600)
	m.Answer = append(m.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: "a.example.", Rrtype: dns.TypeA, Class: dns.ClassINET,
			Ttl: 30},
		A: net.ParseIP("192.0.2.2").To4()})
	if ttl := cacheTTL(m); ttl != 30*time.Second {
		t.Error("Want lowest TTL 30s, got", ttl)
	}
	m.Answer[1].Header().Ttl = 1 << 30
	m.Answer[0].Header().Ttl = 1 << 30
	if ttl := cacheTTL(m); ttl != MaxCacheTTL {
		t.Error("Want capped TTL, got", ttl)
	}
}

func TestCacheNegative(t *testing.T) {
	testCases := []struct {
		m    *dns.Msg
		want time.Duration
	}{
		{newNegative("x.example.", dns.RcodeNameError, 3600, 60), 60 * time.Second},
		{newNegative("x.example.", dns.RcodeNameError, 30, 60), 30 * time.Second},
		{newNegative("x.example.", dns.RcodeSuccess, 3600, 120), 120 * time.Second}, // NODATA
		{newNegative("x.example.", dns.RcodeServerFailure, 3600, 120), 0},
		{newNegative("x.example.", dns.RcodeNameError, 1<<30, 1<<30), MaxNegativeTTL},
	}
	for ix, tc := range testCases {
		got := cacheTTL(tc.m)
		if got != tc.want {
			t.Error(ix, "Want", tc.want, "got", got)
		}
	}

	nx := new(dns.Msg) // NXDOMAIN without SOA
	nx.SetQuestion("y.example.", dns.TypeA)
	nx.Rcode = dns.RcodeNameError
	c := newAnswerCache(10, [2]uint64{})
	if ttl := c.put(nx, time.Now()); ttl != 0 || c.len() != 0 {
		t.Error("NXDOMAIN without SOA should not be cached", ttl)
	}
}

func TestCacheTruncatedNotStored(t *testing.T) {
	c := newAnswerCache(10, [2]uint64{})
	m := newA("a.example.", "192.0.2.1", 300)
	m.Truncated = true
	if ttl := c.put(m, time.Now()); ttl != 0 {
		t.Error("Truncated response cached")
	}
}

// Same hash but a different question must miss
func TestCacheCollision(t *testing.T) {
	c := newAnswerCache(10, [2]uint64{3, 4})
	now := time.Now()
	m := newA("a.example.", "192.0.2.1", 300)
	c.put(m, now)
	k := c.key(canonicalQuestion(m.Question[0]))
	e, _ := c.lru.Get(k)
	e.question.Name = "b.example."

	if _, ok := c.get(dns.Question{Name: "a.example.", Qtype: dns.TypeA,
		Qclass: dns.ClassINET}, now); ok {
		t.Error("Expected miss on question mismatch")
	}
}

func TestCacheKeySecrets(t *testing.T) {
	q := dns.Question{Name: "a.example.", Qtype: dns.TypeA, Qclass: dns.ClassINET}
	a := newAnswerCache(1, [2]uint64{1, 2})
	b := newAnswerCache(1, [2]uint64{5, 6})
	if a.key(q) == b.key(q) {
		t.Error("Different secrets should produce different keys")
	}
	q2 := q
	q2.Qtype = dns.TypeAAAA
	if a.key(q) == a.key(q2) {
		t.Error("Different qtypes should produce different keys")
	}
}
