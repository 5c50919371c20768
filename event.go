package netresolv

import (
	"fmt"
	"strings"
	"time"

	"github.com/markdingo/netresolv/dnsutil"
)

// QueryRecord describes one question asked on behalf of a request.
type QueryRecord struct {
	Name      string
	Type      uint16
	Server    string // Which answered, empty if from cache or none did
	Rcode     int    // -1 if no response
	Answers   int    // Address RRs extracted
	Latency   time.Duration
	CacheHit  bool
	Shared    bool // Joined an identical exchange already in flight
	Exchanges int  // With nameservers, including retries and TCP fallback
	Samples   int  // Statistics samples recorded
}

func (t QueryRecord) String() string {
	var src string
	switch {
	case t.CacheHit:
		src = "cache"
	case t.Shared:
		src = "shared"
	default:
		src = fmt.Sprintf("%s x%d", t.Server, t.Exchanges)
	}

	return fmt.Sprintf("%s/%s %s %d %s %s", dnsutil.ChompCanonicalName(t.Name),
		dnsutil.TypeToString(t.Type), rcodeString(t.Rcode), t.Answers,
		t.Latency.Round(time.Microsecond), src)
}

func rcodeString(rc int) string {
	if rc < 0 {
		return "-"
	}
	return dnsutil.RcodeToString(rc)
}

// Event is the diagnostic record of one resolution request.
type Event struct {
	NetID   uint32
	UID     uint32
	Name    string
	Queries []QueryRecord
	Latency time.Duration // Of the whole request
	Status  int
	Note    string // Why a request stopped early
}

// Samples returns the total statistics samples recorded for the request.
func (t *Event) Samples() int {
	var n int
	for _, q := range t.Queries {
		n += q.Samples
	}

	return n
}

func (t *Event) String() string {
	qs := make([]string, 0, len(t.Queries))
	for _, q := range t.Queries {
		qs = append(qs, q.String())
	}
	s := fmt.Sprintf("netid=%d uid=%d %s status=%d %s q=%d[%s]", t.NetID, t.UID, t.Name,
		t.Status, t.Latency.Round(time.Microsecond), len(t.Queries),
		strings.Join(qs, "; "))
	if len(t.Note) > 0 {
		s += " " + t.Note
	}

	return s
}

// Outcome is the result of a resolution request. Event is populated even when an error
// is returned.
type Outcome struct {
	Addrs     []Addr
	Canonical string // Only if AICanonName was requested
	Event     Event
}
