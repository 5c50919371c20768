package dnsutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// PrettyReply returns a one line summary of a reply for debug logs. The miekg String()
// output is dig-like and runs to many lines.
func PrettyReply(m *dns.Msg) string {
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{m.Response, "qr"}, {m.Authoritative, "aa"}, {m.Truncated, "tc"},
		{m.RecursionDesired, "rd"}, {m.RecursionAvailable, "ra"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	q := "-"
	if len(m.Question) > 0 {
		q = PrettyQuestion(m.Question[0])
	}

	return fmt.Sprintf("%d %s f=%s q=%s an=%s ns=%s ex=%d", m.Id, RcodeToString(m.Rcode),
		strings.Join(flags, "+"), q, rrTypes(m.Answer), rrTypes(m.Ns), len(m.Extra))
}

// rrTypes returns "count:TYPE,TYPE..." or "0".
func rrTypes(rrs []dns.RR) string {
	if len(rrs) == 0 {
		return "0"
	}
	ar := make([]string, 0, len(rrs))
	for _, rr := range rrs {
		ar = append(ar, TypeToString(rr.Header().Rrtype))
	}

	return strconv.Itoa(len(rrs)) + ":" + strings.Join(ar, ",")
}

// PrettyQuestion returns name/TYPE, with the class appended only if it is not IN.
func PrettyQuestion(q dns.Question) string {
	s := q.Name + "/" + TypeToString(q.Qtype)
	if q.Qclass != dns.ClassINET {
		s += "/" + dns.Class(q.Qclass).String()
	}

	return s
}
