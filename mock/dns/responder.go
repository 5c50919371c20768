package dns

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/miekg/dns"
)

type mappingKey struct {
	name  string
	qType uint16
}

// Responder is a dumb authoritative server for tests. Answers come from mappings added
// with AddMapping and every query is counted by name and type. Anything without a
// mapping gets NXDOMAIN unless an Rcode override is set.
type Responder struct {
	mu        sync.Mutex
	mappings  map[mappingKey][]dns.RR
	counts    map[mappingKey]int
	rcode     int  // -1 means no override
	ignore    bool // Never reply, so the client times out
	truncate  bool // Set TC on UDP replies
	total     int
	lastQuery *dns.Msg
}

func NewResponder() *Responder {
	return &Responder{
		mappings: make(map[mappingKey][]dns.RR),
		counts:   make(map[mappingKey]int),
		rcode:    -1,
	}
}

// AddMapping adds an A or AAAA answer for name. name may be relative or absolute.
func (t *Responder) AddMapping(name string, qType uint16, addr string) {
	name = dns.CanonicalName(name)
	var rr dns.RR
	hdr := dns.RR_Header{Name: name, Rrtype: qType, Class: dns.ClassINET, Ttl: 300}
	switch qType {
	case dns.TypeA:
		rr = &dns.A{Hdr: hdr, A: net.ParseIP(addr).To4()}
	case dns.TypeAAAA:
		rr = &dns.AAAA{Hdr: hdr, AAAA: net.ParseIP(addr)}
	default:
		panic("mock Responder: unsupported mapping type " + dns.TypeToString[qType])
	}
	t.AddRR(rr)
}

// AddRR adds an arbitrary answer RR.
func (t *Responder) AddRR(rr dns.RR) {
	h := rr.Header()
	k := mappingKey{dns.CanonicalName(h.Name), h.Rrtype}
	t.mu.Lock()
	t.mappings[k] = append(t.mappings[k], rr)
	t.mu.Unlock()
}

// SetRcode forces all replies to carry rcode. -1 clears the override.
func (t *Responder) SetRcode(rcode int) {
	t.mu.Lock()
	t.rcode = rcode
	t.mu.Unlock()
}

// SetIgnore stops the responder from replying.
func (t *Responder) SetIgnore(b bool) {
	t.mu.Lock()
	t.ignore = b
	t.mu.Unlock()
}

// SetTruncate makes UDP replies come back truncated and empty.
func (t *Responder) SetTruncate(b bool) {
	t.mu.Lock()
	t.truncate = b
	t.mu.Unlock()
}

// QueryCount returns how many times name/qType has been asked.
func (t *Responder) QueryCount(name string, qType uint16) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.counts[mappingKey{dns.CanonicalName(name), qType}]
}

// Total returns the number of queries seen.
func (t *Responder) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// LastQuery returns a copy of the most recent query, or nil.
func (t *Responder) LastQuery() *dns.Msg {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastQuery == nil {
		return nil
	}

	return t.lastQuery.Copy()
}

// ServeDNS meets the interface definition for dns.Handler
func (t *Responder) ServeDNS(wtr dns.ResponseWriter, q *dns.Msg) {
	if len(q.Question) != 1 {
		r := new(dns.Msg)
		r.SetRcodeFormatError(q)
		wtr.WriteMsg(r)
		return
	}
	question := q.Question[0]
	k := mappingKey{dns.CanonicalName(question.Name), question.Qtype}

	t.mu.Lock()
	t.counts[k]++
	t.total++
	t.lastQuery = q.Copy()
	ignore := t.ignore
	rcode := t.rcode
	truncate := t.truncate && strings.HasPrefix(wtr.RemoteAddr().Network(), "udp")
	answers := t.mappings[k]
	t.mu.Unlock()

	if ignore {
		return
	}

	m := new(dns.Msg)
	m.SetReply(q)
	m.Authoritative = true
	switch {
	case rcode != -1:
		m.Rcode = rcode
	case truncate:
		m.Truncated = true
	case len(answers) > 0:
		m.Answer = append(m.Answer, answers...)
	default:
		m.Rcode = dns.RcodeNameError
	}

	err := wtr.WriteMsg(m)
	if err != nil {
		fmt.Println("Alert: WriteMsg error:", err)
	}
}
