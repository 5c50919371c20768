package resolver

import (
	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/dnsutil"
	"github.com/markdingo/netresolv/log"
)

// The Log* functions are exported so the mock resolver logs exactly as the real one
// does. Callers should test log.IfDebug() first.

// LogPort logs a LookupPort result. note identifies which resolver did the lookup.
func LogPort(network, service string, port int, note string, err error) {
	if err != nil {
		log.Debugf("res: port %s/%s: %s (%s)", network, service, err, note)
		return
	}
	log.Debugf("res: port %s/%s=%d (%s)", network, service, port, note)
}

// LogExchangeQ logs a query before it is sent to server.
func LogExchangeQ(net, logName, server string, q dns.Question) {
	log.Debugf("res: Q %s %s %s %s", logName, net, server, dnsutil.PrettyQuestion(q))
}

// LogExchangeA logs the reply to, or the failure of, the query logged by LogExchangeQ.
func LogExchangeA(server string, q dns.Question, r *dns.Msg, err error) {
	if err != nil {
		log.Debugf("res: E %s %s %s", server, dnsutil.PrettyQuestion(q),
			dnsutil.ShortenLookupError(err))
		return
	}
	log.Debugf("res: A %s %s", server, dnsutil.PrettyReply(r))
}
