package netresolv

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/markdingo/rrl"
	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/callbacks"
	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
)

const (
	proxyTimeout = 10 * time.Second // Per control query
	proxyTTL     = 30
)

// proxy is the control listener. It answers A and AAAA queries by calling GetAddrInfo
// on the configured control network so the resolution path can be exercised with any
// DNS client. Responses are optionally rate limited.
type proxy struct {
	svc        *Service
	rrlHandler *rrl.RRL // May be nil if not configured
	network    string
	listen     string
	miekg      *dns.Server
	wg         sync.WaitGroup

	statsMu sync.Mutex
	stats   proxyStats
}

func newProxy(svc *Service, listen string, rrlConfig *rrl.Config) *proxy {
	t := &proxy{svc: svc, network: dnsutil.UDPNetwork, listen: listen}
	if rrlConfig != nil && rrlConfig.IsActive() {
		t.rrlHandler = rrl.NewRRL(rrlConfig)
	}
	t.miekg = &dns.Server{Net: t.network, Addr: listen, Handler: t}

	// Count what miekg rejects before it reaches ServeDNS, otherwise they are invisible
	t.miekg.MsgAcceptFunc = func(dh dns.Header) dns.MsgAcceptAction {
		action := dns.DefaultMsgAcceptFunc(dh)
		if action != dns.MsgAccept {
			t.addStats(&proxyStats{badRequest: 1})
		}
		return action
	}

	return t
}

// start calls dns.ListenAndServe() and waits until the server has actually started
// by way of NotifyStartedFunc. Returns an error if the server fails to start.
func (t *proxy) start() error {
	t.wg.Add(1)

	hasStarted := make(chan error, 1)
	t.miekg.NotifyStartedFunc = func() {
		hasStarted <- nil
	}

	go func() {
		defer t.wg.Done()
		err := t.miekg.ListenAndServe()
		if err != nil {
			hasStarted <- err
		}
	}()

	return <-hasStarted
}

func (t *proxy) stop() {
	t.miekg.Shutdown()
	t.wg.Wait()
}

// address returns the bound address which differs from the listen address when port
// zero was requested.
func (t *proxy) address() string {
	if pc := t.miekg.PacketConn; pc != nil {
		return pc.LocalAddr().String()
	}
	return t.listen
}

func (t *proxy) addStats(from *proxyStats) {
	t.statsMu.Lock()
	t.stats.add(from)
	t.statsMu.Unlock()
}

func (t *proxy) statsString(resetCounters bool) string {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	s := t.stats.String()
	if resetCounters {
		t.stats = proxyStats{}
	}

	return s
}

// ServeDNS meets the interface definition for dns.Handler
func (t *proxy) ServeDNS(wtr dns.ResponseWriter, query *dns.Msg) {
	var stats proxyStats
	stats.queries++
	defer t.addStats(&stats)

	resp := new(dns.Msg)
	if len(query.Question) != 1 || query.Opcode != dns.OpcodeQuery {
		if log.IfMinor() {
			log.Minorf("Control: bad request from %s: opcode=%s qd=%d",
				addrString(wtr.RemoteAddr()), dnsutil.OpcodeToString(query.Opcode),
				len(query.Question))
		}
		resp.SetRcodeFormatError(query)
		stats.badRequest++
		t.writeMsg(wtr, resp)
		return
	}

	q := query.Question[0]
	var family int
	switch {
	case q.Qclass != dns.ClassINET:
	case q.Qtype == dns.TypeA:
		family = AFInet
	case q.Qtype == dns.TypeAAAA:
		family = AFInet6
	}
	if family == AFUnspec {
		resp.SetRcode(query, dns.RcodeRefused)
		stats.refused++
		t.finish(wtr, q, resp, &stats)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), proxyTimeout)
	defer cancel()
	nc := callbacks.NetContext{AppNetID: t.svc.cfg.ControlNetID,
		DNSNetID: t.svc.cfg.ControlNetID, UID: t.svc.cfg.ControlUID}
	out, err := t.svc.GetAddrInfo(ctx, q.Name, "", Hints{Family: family}, nc)

	resp.SetReply(query)
	resp.RecursionAvailable = true
	switch {
	case err == nil:
		for _, a := range out.Addrs {
			hdr := dns.RR_Header{Name: q.Name, Rrtype: q.Qtype, Class: q.Qclass, Ttl: proxyTTL}
			if family == AFInet {
				resp.Answer = append(resp.Answer, &dns.A{Hdr: hdr, A: a.IP})
			} else {
				resp.Answer = append(resp.Answer, &dns.AAAA{Hdr: hdr, AAAA: a.IP})
			}
		}
	case errors.Is(err, ErrHostNotFound):
		resp.Rcode = dns.RcodeNameError
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrDomainRejected):
		resp.Rcode = dns.RcodeRefused
		stats.refused++
	default:
		resp.Rcode = dns.RcodeServerFailure
	}

	t.finish(wtr, q, resp, &stats)
}

// finish applies response rate limiting then writes resp.
func (t *proxy) finish(wtr dns.ResponseWriter, q dns.Question, resp *dns.Msg,
	stats *proxyStats) {
	if t.rrlHandler != nil {
		tuple := &rrl.ResponseTuple{Class: q.Qclass, Type: q.Qtype,
			AllowanceCategory: allowanceCategory(resp), SalientName: q.Name}
		action, _, _ := t.rrlHandler.Debit(wtr.RemoteAddr(), tuple)
		switch action {
		case rrl.Drop:
			stats.rrlDrop++
			return
		case rrl.Slip:
			stats.rrlSlip++
			resp.Answer = nil
			resp.Truncated = true
		}
	}

	t.writeMsg(wtr, resp)
}

func allowanceCategory(resp *dns.Msg) rrl.AllowanceCategory {
	switch resp.Rcode {
	case dns.RcodeSuccess:
		if len(resp.Answer) > 0 {
			return rrl.AllowanceAnswer
		}
		return rrl.AllowanceNoData
	case dns.RcodeNameError:
		return rrl.AllowanceNXDomain
	}

	return rrl.AllowanceError
}

func (t *proxy) writeMsg(wtr dns.ResponseWriter, resp *dns.Msg) {
	err := wtr.WriteMsg(resp)
	if err != nil {
		log.Minorf("Control: WriteMsg to %s failed: %s", addrString(wtr.RemoteAddr()),
			dnsutil.ShortenLookupError(err))
	}
}

func addrString(a net.Addr) string {
	if a == nil {
		return "?"
	}
	return a.String()
}
