package netstore

import (
	"encoding/binary"
	"time"

	"github.com/dchest/siphash"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miekg/dns"
	"go.uber.org/atomic"
)

const (
	DefaultCacheSize = 1024
	MaxCacheTTL      = 24 * time.Hour
	MaxNegativeTTL   = 3 * time.Hour
)

type cacheEntry struct {
	question dns.Question // Canonical, for collision checks
	msg      *dns.Msg
	stored   time.Time
	expires  time.Time
}

// answerCache is an LRU of responses keyed by a siphash of the canonical question. The
// secret is per-network so keys cannot be predicted by whoever chooses the names.
type answerCache struct {
	secrets [2]uint64
	lru     *lru.Cache[uint64, *cacheEntry]

	hits, misses atomic.Uint64
}

func newAnswerCache(size int, secrets [2]uint64) *answerCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[uint64, *cacheEntry](size)
	if err != nil { // Only possible with a non-positive size
		panic(err)
	}

	return &answerCache{secrets: secrets, lru: c}
}

func canonicalQuestion(q dns.Question) dns.Question {
	q.Name = dns.CanonicalName(q.Name)
	return q
}

func (t *answerCache) key(q dns.Question) uint64 {
	b := make([]byte, 0, len(q.Name)+4)
	b = append(b, q.Name...)
	b = binary.BigEndian.AppendUint16(b, q.Qtype)
	b = binary.BigEndian.AppendUint16(b, q.Qclass)

	return siphash.Hash(t.secrets[0], t.secrets[1], b)
}

// get returns a copy of the cached response with TTLs reduced by the time spent in the
// cache. Expired entries are removed.
func (t *answerCache) get(q dns.Question, now time.Time) (*dns.Msg, bool) {
	q = canonicalQuestion(q)
	k := t.key(q)
	e, ok := t.lru.Get(k)
	if !ok || e.question != q {
		t.misses.Inc()
		return nil, false
	}
	if !now.Before(e.expires) {
		t.lru.Remove(k)
		t.misses.Inc()
		return nil, false
	}
	t.hits.Inc()

	m := e.msg.Copy()
	age := uint32(now.Sub(e.stored) / time.Second)
	for _, sec := range [][]dns.RR{m.Answer, m.Ns, m.Extra} {
		for _, rr := range sec {
			h := rr.Header()
			if h.Rrtype == dns.TypeOPT {
				continue
			}
			if h.Ttl > age {
				h.Ttl -= age
			} else {
				h.Ttl = 0
			}
		}
	}

	return m, true
}

// put caches m if it is cacheable and returns the TTL it was cached with.
func (t *answerCache) put(m *dns.Msg, now time.Time) time.Duration {
	if len(m.Question) != 1 || m.Truncated {
		return 0
	}
	ttl := cacheTTL(m)
	if ttl <= 0 {
		return 0
	}
	q := canonicalQuestion(m.Question[0])
	t.lru.Add(t.key(q), &cacheEntry{question: q, msg: m.Copy(), stored: now,
		expires: now.Add(ttl)})

	return ttl
}

func (t *answerCache) flush() {
	t.lru.Purge()
}

func (t *answerCache) len() int {
	return t.lru.Len()
}

// cacheTTL derives how long m may be cached. Positive answers use the smallest answer
// TTL. NXDOMAIN and NODATA use the SOA minimum from the authority section (RFC2308) and
// are not cached without one. Anything else is not cached.
func cacheTTL(m *dns.Msg) time.Duration {
	switch m.Rcode {
	case dns.RcodeSuccess:
		if len(m.Answer) > 0 {
			lowest := m.Answer[0].Header().Ttl
			for _, rr := range m.Answer[1:] {
				if rr.Header().Ttl < lowest {
					lowest = rr.Header().Ttl
				}
			}
			return capTTL(time.Duration(lowest)*time.Second, MaxCacheTTL)
		}
		return negativeTTL(m)
	case dns.RcodeNameError:
		return negativeTTL(m)
	}

	return 0
}

func negativeTTL(m *dns.Msg) time.Duration {
	for _, rr := range m.Ns {
		if soa, ok := rr.(*dns.SOA); ok {
			ttl := soa.Minttl
			if soa.Hdr.Ttl < ttl {
				ttl = soa.Hdr.Ttl
			}
			return capTTL(time.Duration(ttl)*time.Second, MaxNegativeTTL)
		}
	}

	return 0
}

func capTTL(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}
