package netstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Outcome classifies one exchange with a nameserver.
type Outcome int

const (
	OutcomeSuccess  Outcome = iota // NOERROR, NXDOMAIN or NOTAUTH
	OutcomeError                   // Any other rcode or a transport error
	OutcomeTimeout                 // No response before the timeout
	OutcomeInternal                // Local failure, never counted against the server
)

func (t Outcome) String() string {
	switch t {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	}

	return "internal"
}

// OutcomeFromRcode classifies a response rcode.
func OutcomeFromRcode(rcode int) Outcome {
	switch rcode {
	case dns.RcodeSuccess, dns.RcodeNameError, dns.RcodeNotAuth:
		return OutcomeSuccess
	}

	return OutcomeError
}

// Sample is a single exchange result recorded against a server.
type Sample struct {
	At      time.Time
	Outcome Outcome
	Rcode   int
	RTT     time.Duration
}

// ServerStats summarizes the samples held for one server.
type ServerStats struct {
	Server    string
	Successes int
	Errors    int
	Timeouts  int
	AvgRTT    time.Duration // Of successes only
	LastAt    time.Time
	Usable    bool
}

func (t ServerStats) Total() int {
	return t.Successes + t.Errors + t.Timeouts
}

func (t ServerStats) String() string {
	return fmt.Sprintf("%s ok=%d err=%d to=%d rtt=%s usable=%t",
		t.Server, t.Successes, t.Errors, t.Timeouts, t.AvgRTT, t.Usable)
}

// ring is a fixed capacity sample buffer for one server.
type ring struct {
	samples []Sample
	next    int
	full    bool
}

func (t *ring) add(s Sample, capacity int) {
	if capacity <= 0 {
		return
	}
	if len(t.samples) != capacity {
		t.samples = make([]Sample, capacity)
		t.next, t.full = 0, false
	}
	t.samples[t.next] = s
	t.next++
	if t.next == capacity {
		t.next, t.full = 0, true
	}
}

func (t *ring) each(fn func(Sample)) {
	n := t.next
	if t.full {
		n = len(t.samples)
	}
	for ix := 0; ix < n; ix++ {
		fn(t.samples[ix])
	}
}

// serverStats holds the sample rings of every server of a network. A ring is discarded
// whenever the servers or sampling Params change as its samples were gathered under
// different assumptions.
type serverStats struct {
	mu    sync.Mutex
	rings map[string]*ring
}

func newServerStats() *serverStats {
	return &serverStats{rings: make(map[string]*ring)}
}

func (t *serverStats) reset() {
	t.mu.Lock()
	t.rings = make(map[string]*ring)
	t.mu.Unlock()
}

func (t *serverStats) record(server string, s Sample, p Params) {
	if s.Outcome == OutcomeInternal {
		return
	}
	t.mu.Lock()
	r := t.rings[server]
	if r == nil {
		r = &ring{}
		t.rings[server] = r
	}
	r.add(s, p.retained())
	t.mu.Unlock()
}

// summarize must be called with the mutex held. Samples older than SampleValidity are
// ignored. A server is unusable if it has at least MinSamples relevant samples and its
// success percentage is below SuccessThreshold.
func (t *serverStats) summarize(server string, p Params, now time.Time) ServerStats {
	ss := ServerStats{Server: server, Usable: true}
	r := t.rings[server]
	if r == nil {
		return ss
	}

	var rttSum time.Duration
	r.each(func(s Sample) {
		if p.SampleValidity > 0 && now.Sub(s.At) > p.SampleValidity {
			return
		}
		switch s.Outcome {
		case OutcomeSuccess:
			ss.Successes++
			rttSum += s.RTT
		case OutcomeError:
			ss.Errors++
		case OutcomeTimeout:
			ss.Timeouts++
		}
		if s.At.After(ss.LastAt) {
			ss.LastAt = s.At
		}
	})
	if ss.Successes > 0 {
		ss.AvgRTT = rttSum / time.Duration(ss.Successes)
	}

	total := ss.Total()
	if total > 0 && total >= p.MinSamples {
		if ss.Successes*100/total < p.threshold() {
			ss.Usable = false
		}
	}

	return ss
}

func (t *serverStats) stats(servers []string, p Params, now time.Time) []ServerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	ar := make([]ServerStats, 0, len(servers))
	for _, s := range servers {
		ar = append(ar, t.summarize(s, p, now))
	}

	return ar
}

// usable returns the servers which may be queried, in configured order. If every server
// is unusable they are all returned as some answer is better than none.
func (t *serverStats) usable(servers []string, p Params, now time.Time) []string {
	var ar []string
	for _, ss := range t.stats(servers, p, now) {
		if ss.Usable {
			ar = append(ar, ss.Server)
		}
	}
	if len(ar) == 0 {
		return append([]string(nil), servers...)
	}

	return ar
}
